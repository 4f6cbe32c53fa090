package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the render cache",
}

var cacheCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove every cached render",
	RunE:  runCacheClean,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache size and entry count",
	RunE:  runCacheStats,
}

var cacheStatsFormat string

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheCleanCmd)
	cacheCmd.AddCommand(cacheStatsCmd)

	cacheStatsCmd.Flags().StringVarP(&cacheStatsFormat, "format", "f", "text", "Output format (text, json)")
}

func runCacheClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStoreAlways(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	before := store.Stats()
	if err := store.Clear(context.Background()); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "🧹 Removed %d cached render(s) from the %s cache\n", before.Entries, before.Backend)
	return nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStoreAlways(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	stats := store.Stats()
	out := cmd.OutOrStdout()
	switch cacheStatsFormat {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(stats)
	case "text":
		fmt.Fprintf(out, "Backend: %s\n", stats.Backend)
		fmt.Fprintf(out, "Enabled: %t\n", cfg.Cache.Enabled)
		fmt.Fprintf(out, "Entries: %d\n", stats.Entries)
		fmt.Fprintf(out, "Size:    %d bytes\n", stats.Bytes)
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json)", cacheStatsFormat)
	}
}
