package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/conneroisu/pugar/internal/htmlcheck"
	"github.com/conneroisu/pugar/pkg/pug"
)

var checkCmd = &cobra.Command{
	Use:     "check FILE...",
	Aliases: []string{"c"},
	Short:   "Render files and verify the HTML is well formed",
	Long: `Render each file and check that every element opened in the output is
closed again in nesting order. Void elements such as br and img need no
closing tag.

Examples:
  pugar check views/index.pug
  pugar check views/*.pug`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts, err := renderOptions(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	bad := 0
	for _, file := range args {
		problems, err := checkFile(cmd.Context(), opts, file)
		if err != nil {
			bad++
			fmt.Fprintf(out, "❌ %s: %v\n", file, err)
			continue
		}
		if len(problems) == 0 {
			fmt.Fprintf(out, "✅ %s\n", file)
			continue
		}
		bad++
		fmt.Fprintf(out, "❌ %s\n", file)
		for _, p := range problems {
			fmt.Fprintf(out, "   %s\n", p)
		}
	}

	if bad > 0 {
		return fmt.Errorf("%d of %d file(s) failed the check", bad, len(args))
	}
	return nil
}

func checkFile(ctx context.Context, opts pug.Options, file string) ([]htmlcheck.Problem, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	dir, name := filepath.Split(file)
	if dir == "" {
		dir = "."
	}
	html, err := pug.New(opts, os.DirFS(dir)).RenderFile(ctx, name)
	if err != nil {
		return nil, err
	}
	return htmlcheck.Check(html), nil
}
