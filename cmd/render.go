package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	natomic "github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/conneroisu/pugar/internal/cache"
	"github.com/conneroisu/pugar/internal/config"
	"github.com/conneroisu/pugar/pkg/pug"
)

var renderCmd = &cobra.Command{
	Use:     "render FILE",
	Aliases: []string{"r"},
	Short:   "Render a single file to HTML",
	Long: `Render a single template to HTML. Use - to read from stdin; includes
are then resolved from the working directory.

Examples:
  pugar render views/index.pug                 # Print HTML to stdout
  pugar render views/index.pug -o index.html   # Write to a file
  pugar render page.pug --var title=Home       # Bind #{title}
  pugar render form.pug --csrf s3cr3t          # Inject a CSRF field into forms
  echo "p hi" | pugar render -`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

var (
	renderOutput string
	renderVars   map[string]string
	renderCSRF   string
	renderIndent int
	renderEscape string
	renderCache  bool
)

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "Write HTML to this file instead of stdout")
	renderCmd.Flags().StringToStringVar(&renderVars, "var", nil, "Bind a variable (name=value), repeatable")
	renderCmd.Flags().StringVar(&renderCSRF, "csrf", "", "CSRF token injected into every form")
	renderCmd.Flags().IntVar(&renderIndent, "indent", 0, "Source columns per nesting level (default from config)")
	renderCmd.Flags().StringVar(&renderEscape, "escape", "", "Escape policy for variable values (none, html, sanitize)")
	renderCmd.Flags().BoolVar(&renderCache, "cache", false, "Use the render cache even if disabled in config")
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts, err := renderOptions(cfg)
	if err != nil {
		return err
	}

	var (
		dir, name string
		source    []byte
	)
	if args[0] == "-" {
		dir = "."
		source, err = io.ReadAll(cmd.InOrStdin())
	} else {
		dir, name = filepath.Split(args[0])
		if dir == "" {
			dir = "."
		}
		source, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	logger := newLogger(cfg)
	useCache := cfg.Cache.Enabled || renderCache
	var store cache.Store
	if useCache {
		if store, err = openStoreAlways(cfg); err != nil {
			return err
		}
		defer store.Close()
	}

	renderer := cache.NewCached(pug.New(opts, os.DirFS(dir)), store, useCache, logger)
	html, _, err := renderer.Render(context.Background(), name, source)
	if err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	if renderOutput == "" {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), html)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(renderOutput), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return natomic.WriteFile(renderOutput, bytes.NewReader([]byte(html+"\n")))
}

// renderOptions applies render flags on top of the configured options.
func renderOptions(cfg *config.Config) (pug.Options, error) {
	opts := cfg.Render.Options()
	if len(renderVars) > 0 {
		vars := make(map[string]string, len(opts.Variables)+len(renderVars))
		for k, v := range opts.Variables {
			vars[k] = v
		}
		for k, v := range renderVars {
			vars[k] = v
		}
		opts.Variables = vars
	}
	if renderCSRF != "" {
		opts.CSRFToken = renderCSRF
	}
	if renderIndent < 0 {
		return opts, fmt.Errorf("--indent must be positive, got %d", renderIndent)
	}
	if renderIndent > 0 {
		opts.IndentUnit = renderIndent
	}
	if renderEscape != "" {
		opts.Escape = pug.EscapePolicy(renderEscape)
		if !opts.Escape.Valid() {
			return opts, fmt.Errorf("unknown escape policy: %s", renderEscape)
		}
	}
	return opts, nil
}
