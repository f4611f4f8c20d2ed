package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/copomatas/internal/output"
)

var inspectFull bool

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <file.parquet>",
	Short: "Print the rows of a written partition",
	Long: `Inspect reads a Parquet partition written by 'copomatas run' and prints its
row count followed by the date, title and preview of every row.

Example:
  copomatas inspect assets/df_htmls.parquet
  copomatas inspect assets/df_pdfs.parquet --full`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().BoolVar(&inspectFull, "full", false, "print the full text instead of the preview")
}

func runInspect(cmd *cobra.Command, args []string) error {
	records, err := output.ReadPartition(args[0])
	if err != nil {
		return fmt.Errorf("inspect failed: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "%s: %d rows\n", args[0], len(records))

	for i, r := range records {
		text := ""
		switch {
		case inspectFull && r.FullText != nil:
			text = *r.FullText
		case r.PreviewText != nil:
			text = *r.PreviewText
		}
		_, _ = fmt.Fprintf(out, "\n[%d] %s  %s (%s)\n", i, r.ReferenceDate, r.Title, r.DocumentType)
		_, _ = fmt.Fprintf(out, "    %s\n", r.PageLink)
		_, _ = fmt.Fprintf(out, "    %s\n", text)
	}
	return nil
}
