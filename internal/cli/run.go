package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/copomatas/internal/cache"
	"github.com/ppiankov/copomatas/internal/model"
	"github.com/ppiankov/copomatas/internal/output"
	"github.com/ppiankov/copomatas/internal/pipeline"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch every COPOM minutes document and write the Parquet partitions",
	Long: `Run fetches the legacy and current minutes catalogs, extracts the full
text of every meeting, computes previews and writes two Parquet files: one
for PDF documents and one for HTML pages.

Any failure aborts the run and no output file is written.

Example:
  copomatas run
  copomatas run --pdf-out data/pdfs.parquet --html-out data/htmls.parquet
  copomatas run --workers 4 --rps 2 --timeout 30s`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	flags := runCmd.Flags()
	flags.Int("workers", 1, "concurrent content fetches (1 = sequential)")
	flags.String("pdf-out", "", "output path of the PDF partition")
	flags.String("html-out", "", "output path of the HTML partition")
	flags.Bool("create-dirs", false, "create missing output directories")
	flags.String("base-url", "", "base URL of the BCB site")
	flags.Duration("timeout", 0, "per-request timeout (0 = none)")
	flags.Float64("rps", 0, "max requests per second per host (0 = unlimited)")
	flags.Bool("cache", false, "cache upstream responses on disk")
	flags.Bool("no-progress", false, "disable the progress bar")

	bindFlag("concurrency.workers", "workers")
	bindFlag("output.pdf_path", "pdf-out")
	bindFlag("output.html_path", "html-out")
	bindFlag("output.create_dirs", "create-dirs")
	bindFlag("source.base_url", "base-url")
	bindFlag("http.timeout", "timeout")
	bindFlag("http.requests_per_second", "rps")
	bindFlag("cache.enabled", "cache")
}

func bindFlag(key, name string) {
	_ = viper.BindPFlag(key, runCmd.Flags().Lookup(name))
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if noProgress, _ := cmd.Flags().GetBool("no-progress"); noProgress {
		cfg.Output.Progress = false
	}

	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var respCache cache.Cache
	if cfg.Cache.Enabled {
		respCache = cache.NewLayeredCache(cfg.Cache.Dir, cfg.Cache.TTL)
		log.Debug("response cache enabled", "dir", cfg.Cache.Dir, "ttl", cfg.Cache.TTL)
	}

	fetcher := pipeline.NewFetcher(cfg.HTTP, respCache, log.With("component", "fetcher"))

	var opts []pipeline.Option
	if cfg.Output.S3.Bucket != "" {
		pub, err := output.NewS3Publisher(ctx, cfg.Output.S3)
		if err != nil {
			return err
		}
		opts = append(opts, pipeline.WithPublisher(pub))
	}

	var bar *progressbar.ProgressBar
	if cfg.Output.Progress {
		bar = newProgressBar()
		opts = append(opts, pipeline.WithProgress(bar))
	}

	log.Info("starting run",
		"base_url", cfg.Source.BaseURL,
		"workers", cfg.Concurrency.Workers,
		"pdf_out", cfg.Output.PDFPath,
		"html_out", cfg.Output.HTMLPath,
	)

	result, err := pipeline.NewPipeline(cfg, fetcher, log, opts...).Run(ctx)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	printSummary(cmd, cfg, result)
	return nil
}

func newProgressBar() *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("fetching atas"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func printSummary(cmd *cobra.Command, cfg *model.Config, result *pipeline.Result) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "✓ %d records processed in %s\n", result.Records, result.Duration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(out, "  %-5s %4d rows  %s\n", model.DocumentTypePDF, result.Count(model.DocumentTypePDF), cfg.Output.PDFPath)
	_, _ = fmt.Fprintf(out, "  %-5s %4d rows  %s\n", model.DocumentTypeHTML, result.Count(model.DocumentTypeHTML), cfg.Output.HTMLPath)
	for _, uri := range result.Published {
		_, _ = fmt.Fprintf(out, "  published %s\n", uri)
	}
}
