package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/copomatas/internal/cache"
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the upstream response cache",
	Long: `Manage the on-disk cache used by 'copomatas run --cache'.

The cache directory is taken from cache.dir (default .copomatas-cache).`,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached response",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}

		if err := cache.NewDiskCache(cfg.Cache.Dir, cfg.Cache.TTL).Clear(); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared cache: %s\n", cfg.Cache.Dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
