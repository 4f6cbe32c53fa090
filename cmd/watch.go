package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/pugar/internal/build"
	"github.com/conneroisu/pugar/internal/config"
	"github.com/conneroisu/pugar/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"w"},
	Short:   "Build, then rebuild whenever sources change",
	Long: `Build every page, then watch the source directories and rebuild on change.
A changed page is rebuilt on its own; a changed partial rebuilds everything,
since any page may include it.

Examples:
  pugar watch              # Watch all configured source directories
  pugar watch --verbose    # List every changed file`,
	RunE: runWatch,
}

var watchVerbose bool

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVarP(&watchVerbose, "verbose", "v", false, "Verbose output")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pipeline, closeStore, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	fileWatcher, err := watcher.NewFileWatcher(300*time.Millisecond, newLogger(cfg))
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fileWatcher.Stop()

	fileWatcher.AddFilter(watcher.PugFilter)
	fileWatcher.AddFilter(watcher.NoGitFilter)
	fileWatcher.AddFilter(watcher.NoHiddenFilter)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fileWatcher.AddHandler(func(events []watcher.ChangeEvent) error {
		if watchVerbose {
			fmt.Printf("📁 File changes detected:\n")
			for _, event := range events {
				fmt.Printf("   %s: %s\n", event.Type, event.Path)
			}
		} else {
			fmt.Printf("📁 %d file(s) changed\n", len(events))
		}
		return rebuildChanged(ctx, pipeline, cfg, events)
	})

	fmt.Println("🔍 Setting up file watching...")
	for _, dir := range cfg.Build.SourceDirs {
		if err := fileWatcher.AddRecursive(dir); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to watch path %s: %v\n", dir, err)
		} else {
			fmt.Printf("   - Watching: %s\n", dir)
		}
	}

	if err := runFullBuild(ctx, pipeline, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Initial build: %v\n", err)
	}

	if err := fileWatcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	fmt.Println("👀 Watching for changes... (Press Ctrl+C to stop)")

	<-ctx.Done()
	fmt.Println("\n🛑 Stopping file watcher...")
	return nil
}

// rebuildChanged rebuilds only the pages in events unless a partial
// changed, in which case everything is rebuilt. Outputs of deleted pages
// are removed.
func rebuildChanged(ctx context.Context, pipeline *build.Pipeline, cfg *config.Config, events []watcher.ChangeEvent) error {
	var pages []build.Source
	for _, event := range events {
		src, ok := sourceFor(cfg.Build.SourceDirs, event.Path)
		if !ok || build.IsPartial(src.Rel) {
			return runFullBuild(ctx, pipeline, cfg)
		}
		if event.Type == watcher.EventTypeDeleted || event.Type == watcher.EventTypeRenamed {
			if _, err := os.Stat(event.Path); os.IsNotExist(err) {
				out := src.OutputPath(cfg.Build.OutputDir)
				if err := os.Remove(out); err != nil && !os.IsNotExist(err) {
					fmt.Fprintf(os.Stderr, "Warning: failed to remove %s: %v\n", out, err)
				}
				continue
			}
		}
		pages = append(pages, src)
	}
	if len(pages) == 0 {
		return nil
	}

	results, err := pipeline.Build(ctx, pages)
	if err != nil {
		return err
	}
	for _, result := range results {
		if result.Err != nil {
			fmt.Fprintf(os.Stderr, "❌ %s: %v\n", result.Source.Rel, result.Err)
		} else {
			fmt.Printf("✅ %s -> %s (%v)\n", result.Source.Rel, result.Output, result.Duration.Round(time.Microsecond))
		}
	}
	return nil
}

// sourceFor finds the source root containing path.
func sourceFor(roots []string, path string) (build.Source, bool) {
	for _, root := range roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		return build.Source{Root: root, Rel: filepath.ToSlash(rel)}, true
	}
	return build.Source{}, false
}
