// Package cmd provides the command-line interface for pugar.
//
// Configuration is read, in decreasing priority, from command-line flags,
// PUGAR_* environment variables (PUGAR_SERVER_PORT, PUGAR_RENDER_INDENT_UNIT
// and so on), the file named by --config or PUGAR_CONFIG_FILE, and finally
// .pugar.yml in the working directory.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/pugar/internal/cache"
	"github.com/conneroisu/pugar/internal/config"
	"github.com/conneroisu/pugar/internal/logging"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pugar",
	Short: "Render indentation based templates to HTML",
	Long: `pugar turns a small, indentation based template language into HTML.

Quick Start:
  pugar init                  Create .pugar.yml and a starter page
  pugar render page.pug       Render one file to stdout
  pugar build                 Render every page into the output directory
  pugar serve                 Preview pages with live reload
  pugar check page.pug        Verify rendered output is well formed

Documentation: https://github.com/conneroisu/pugar`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .pugar.yml, can also use PUGAR_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "log level (debug, info, warn, error)")
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig wires viper to the config file and the environment. A missing
// config file is not an error; defaults apply.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("PUGAR_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".pugar")
	}

	viper.SetEnvPrefix("PUGAR")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) logging.Logger {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logging.LevelInfo
	}
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}

// openStore returns the configured cache store, or nil when caching is off.
func openStore(cfg *config.Config) (cache.Store, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	return openStoreAlways(cfg)
}

func openStoreAlways(cfg *config.Config) (cache.Store, error) {
	if cfg.Cache.Backend == config.BackendMemory {
		return cache.NewMemoryStore(cfg.Cache.MaxSize, cfg.Cache.TTL), nil
	}
	store, err := cache.Open(cfg.Cache.Backend, cfg.Cache.Dir, cfg.Cache.TTL)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s cache: %w", cfg.Cache.Backend, err)
	}
	return store, nil
}
