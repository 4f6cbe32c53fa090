package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/pugar/internal/build"
	"github.com/conneroisu/pugar/internal/config"
)

var buildCmd = &cobra.Command{
	Use:     "build",
	Aliases: []string{"b"},
	Short:   "Render every page into the output directory",
	Long: `Render every page found in the configured source directories into the
output directory, mirroring the source tree with .html files. Files whose
name starts with an underscore are partials: they can be included but are
not written as pages.

Examples:
  pugar build                     # Build with settings from .pugar.yml
  pugar build --output public     # Build to a specific output directory
  pugar build --workers 8 --clean # Clean first, render with 8 workers`,
	RunE: runBuild,
}

var buildClean bool

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringP("output", "o", "", "Output directory")
	buildCmd.Flags().IntP("workers", "w", 0, "Number of concurrent render workers")
	buildCmd.Flags().BoolVar(&buildClean, "clean", false, "Remove the output directory before building")

	viper.BindPFlag("build.output_dir", buildCmd.Flags().Lookup("output"))
	viper.BindPFlag("build.workers", buildCmd.Flags().Lookup("workers"))
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline, closeStore, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if buildClean {
		fmt.Printf("🧹 Cleaning %s...\n", cfg.Build.OutputDir)
		if err := pipeline.Clean(); err != nil {
			return fmt.Errorf("failed to clean output directory: %w", err)
		}
	}

	return runFullBuild(ctx, pipeline, cfg)
}

// newPipeline builds a pipeline from cfg. The returned func closes the
// cache store, if any.
func newPipeline(cfg *config.Config) (*build.Pipeline, func(), error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	closeStore := func() {
		if store != nil {
			store.Close()
		}
	}

	pipeline := build.NewPipeline(build.Config{
		SourceDirs: cfg.Build.SourceDirs,
		OutputDir:  cfg.Build.OutputDir,
		Exclude:    cfg.Build.Exclude,
		Workers:    cfg.Build.Workers,
	}, cfg.Render.Options(), store, newLogger(cfg))
	return pipeline, closeStore, nil
}

func runFullBuild(ctx context.Context, pipeline *build.Pipeline, cfg *config.Config) error {
	start := time.Now()
	fmt.Printf("🔨 Building pages from %v...\n", cfg.Build.SourceDirs)

	results, err := pipeline.Run(ctx)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	failed := 0
	for _, result := range results {
		if result.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "❌ %s: %v\n", result.Source.Rel, result.Err)
		}
	}

	snap := pipeline.Metrics().Snapshot()
	fmt.Printf("📊 %d page(s), %d cached, %d failed in %v\n",
		len(results), snap.CacheHits, failed, time.Since(start).Round(time.Millisecond))

	if failed > 0 {
		return fmt.Errorf("%d page(s) failed to build", failed)
	}
	fmt.Printf("✅ Output written to %s\n", cfg.Build.OutputDir)
	return nil
}
