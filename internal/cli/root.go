package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/copomatas/internal/logger"
	"github.com/ppiankov/copomatas/internal/model"
)

// version is overridden at build time with -ldflags "-X ...cli.version=..."
var version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "copomatas",
	Short: "Copomatas - COPOM meeting minutes to Parquet",
	Long: `Copomatas collects the minutes (atas) of the Brazilian Central Bank's
Monetary Policy Committee (COPOM).

It reads the legacy and current minutes catalogs published by the BCB,
extracts the full text of every meeting (PDF documents for the legacy
catalog, HTML pages for the current one), computes a short preview of each
text and writes one Parquet file per document type.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of copomatas.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "copomatas %s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.copomatas/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	setDefaults(viper.GetViper(), model.DefaultConfig())

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(filepath.Join(home, ".copomatas"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	bindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// bindEnv maps COPOMATAS_* variables onto config keys, e.g.
// COPOMATAS_HTTP_TIMEOUT overrides http.timeout
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("COPOMATAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// setDefaults registers every configuration key so that environment
// variables are honoured by Unmarshal.
func setDefaults(v *viper.Viper, cfg *model.Config) {
	v.SetDefault("source.base_url", cfg.Source.BaseURL)
	v.SetDefault("source.legacy_catalog", cfg.Source.LegacyCatalog)
	v.SetDefault("source.current_catalog", cfg.Source.CurrentCatalog)
	v.SetDefault("source.content_lookup", cfg.Source.ContentLookup)

	v.SetDefault("http.timeout", cfg.HTTP.Timeout)
	v.SetDefault("http.user_agent", cfg.HTTP.UserAgent)
	v.SetDefault("http.max_body_bytes", cfg.HTTP.MaxBodyBytes)
	v.SetDefault("http.requests_per_second", cfg.HTTP.RequestsPerSecond)
	v.SetDefault("http.burst", cfg.HTTP.Burst)
	v.SetDefault("http.respect_robots", cfg.HTTP.RespectRobots)
	v.SetDefault("http.http_proxy", cfg.HTTP.HTTPProxy)
	v.SetDefault("http.https_proxy", cfg.HTTP.HTTPSProxy)

	v.SetDefault("cache.enabled", cfg.Cache.Enabled)
	v.SetDefault("cache.dir", cfg.Cache.Dir)
	v.SetDefault("cache.ttl", cfg.Cache.TTL)

	v.SetDefault("concurrency.workers", cfg.Concurrency.Workers)

	v.SetDefault("output.pdf_path", cfg.Output.PDFPath)
	v.SetDefault("output.html_path", cfg.Output.HTMLPath)
	v.SetDefault("output.create_dirs", cfg.Output.CreateDirs)
	v.SetDefault("output.progress", cfg.Output.Progress)
	v.SetDefault("output.s3.bucket", cfg.Output.S3.Bucket)
	v.SetDefault("output.s3.prefix", cfg.Output.S3.Prefix)
	v.SetDefault("output.s3.region", cfg.Output.S3.Region)
	v.SetDefault("output.s3.endpoint", cfg.Output.S3.Endpoint)

	v.SetDefault("log.level", cfg.Log.Level)
}

// loadConfig merges defaults, config file, environment and bound flags
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if v.GetBool("verbose") {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

func newLogger(cfg *model.Config) *logger.Logger {
	return logger.New(cfg.Log.Level)
}
