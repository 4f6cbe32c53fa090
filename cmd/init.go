package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	natomic "github.com/natefinch/atomic"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/pugar/internal/config"
)

const configFileName = ".pugar.yml"

var initCmd = &cobra.Command{
	Use:     "init [dir]",
	Aliases: []string{"i"},
	Short:   "Create .pugar.yml and a starter page",
	Long: `Initialize a pugar project: write .pugar.yml with the default settings and
a views directory holding index.pug and the _header.pug partial it includes.
If no directory is given, the current directory is used.

Examples:
  pugar init                 # Initialize in the current directory
  pugar init site            # Initialize in ./site
  pugar init --interactive   # Answer a few questions first
  pugar init --force         # Overwrite existing files`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

var (
	initInteractive bool
	initForce       bool
)

// errAborted is returned when the user interrupts a prompt.
var errAborted = errors.New("init aborted")

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVarP(&initInteractive, "interactive", "i", false, "Ask for settings instead of using defaults")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing files")
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	cfg := config.Default()
	if initInteractive {
		if err := askConfig(surveyPrompter{}, cfg); err != nil {
			return err
		}
	}

	written, err := scaffold(dir, cfg, initForce)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "🎉 Initialized pugar project in %s\n", dir)
	for _, file := range written {
		fmt.Fprintf(out, "   - %s\n", file)
	}
	fmt.Fprintln(out, "\nNext steps:")
	if dir != "." {
		fmt.Fprintf(out, "  cd %s\n", dir)
	}
	fmt.Fprintln(out, "  pugar serve")
	return nil
}

// prompter is the subset of survey that init needs.
type prompter interface {
	Input(message, def string) (string, error)
	Select(message string, options []string, def string) (string, error)
	Confirm(message string, def bool) (bool, error)
}

type surveyPrompter struct{}

func (surveyPrompter) Input(message, def string) (string, error) {
	var out string
	err := survey.AskOne(&survey.Input{Message: message, Default: def}, &out)
	return out, translateSurveyErr(err)
}

func (surveyPrompter) Select(message string, options []string, def string) (string, error) {
	var out string
	err := survey.AskOne(&survey.Select{Message: message, Options: options, Default: def}, &out)
	return out, translateSurveyErr(err)
}

func (surveyPrompter) Confirm(message string, def bool) (bool, error) {
	var out bool
	err := survey.AskOne(&survey.Confirm{Message: message, Default: def}, &out)
	return out, translateSurveyErr(err)
}

func translateSurveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return errAborted
	}
	return err
}

// askConfig fills cfg from answers, keeping the current values as defaults.
func askConfig(p prompter, cfg *config.Config) error {
	var err error
	if cfg.Build.SourceDirs[0], err = p.Input("Source directory:", cfg.Build.SourceDirs[0]); err != nil {
		return err
	}
	if cfg.Build.OutputDir, err = p.Input("Output directory:", cfg.Build.OutputDir); err != nil {
		return err
	}

	indent, err := p.Input("Spaces per indentation level:", strconv.Itoa(cfg.Render.IndentUnit))
	if err != nil {
		return err
	}
	if cfg.Render.IndentUnit, err = strconv.Atoi(indent); err != nil || cfg.Render.IndentUnit <= 0 {
		return fmt.Errorf("indentation must be a positive number, got %q", indent)
	}

	if cfg.Render.Escape, err = p.Select("Escape variable values:", []string{"none", "html", "sanitize"}, cfg.Render.Escape); err != nil {
		return err
	}

	if cfg.Cache.Enabled, err = p.Confirm("Cache rendered pages?", cfg.Cache.Enabled); err != nil {
		return err
	}
	if cfg.Cache.Enabled {
		backends := []string{config.BackendFile, config.BackendSQLite, config.BackendMemory}
		if cfg.Cache.Backend, err = p.Select("Cache backend:", backends, cfg.Cache.Backend); err != nil {
			return err
		}
	}

	port, err := p.Input("Development server port:", strconv.Itoa(cfg.Server.Port))
	if err != nil {
		return err
	}
	if cfg.Server.Port, err = strconv.Atoi(port); err != nil || cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %q", port)
	}
	return nil
}

const starterHeader = `header
  h1 #{title}
  nav
    a(href="/") Home
`

const starterIndex = `doctype html
html(lang="en")
  head
    meta(charset="utf-8")
    title #{title}
  body
    include _header.pug
    main.content
      p Edit views/index.pug and save to reload.
`

// scaffold writes the config file and starter views under dir and returns
// the paths it wrote. Existing files are an error unless force is set.
func scaffold(dir string, cfg *config.Config, force bool) ([]string, error) {
	if cfg.Render.Variables == nil {
		cfg.Render.Variables = map[string]string{}
	}
	if _, ok := cfg.Render.Variables["title"]; !ok {
		cfg.Render.Variables["title"] = "My pugar site"
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode configuration: %w", err)
	}

	views := filepath.Join(dir, cfg.Build.SourceDirs[0])
	files := []struct {
		path string
		body []byte
	}{
		{filepath.Join(dir, configFileName), data},
		{filepath.Join(views, "index.pug"), []byte(starterIndex)},
		{filepath.Join(views, "_header.pug"), []byte(starterHeader)},
	}

	if !force {
		for _, f := range files {
			if _, err := os.Stat(f.path); err == nil {
				return nil, fmt.Errorf("%s already exists (use --force to overwrite)", f.path)
			}
		}
	}

	written := make([]string, 0, len(files))
	for _, f := range files {
		if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
			return written, fmt.Errorf("failed to create directory: %w", err)
		}
		if err := natomic.WriteFile(f.path, bytes.NewReader(f.body)); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", f.path, err)
		}
		written = append(written, f.path)
	}
	return written, nil
}
