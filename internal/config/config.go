// Package config provides configuration management for pugar using Viper
// for loading from files, environment variables and command-line flags.
//
// The configuration system supports a .pugar.yml file, environment variable
// overrides with the PUGAR_ prefix, defaults and validation. It covers the
// render options handed to the pug engine, the render cache, the batch build,
// the development server and logging.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/conneroisu/pugar/pkg/pug"
	"github.com/spf13/viper"
)

// Cache backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

type Config struct {
	Render RenderConfig `mapstructure:"render" yaml:"render"`
	Cache  CacheConfig  `mapstructure:"cache" yaml:"cache"`
	Build  BuildConfig  `mapstructure:"build" yaml:"build"`
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
}

type RenderConfig struct {
	IndentUnit      int               `mapstructure:"indent_unit" yaml:"indent_unit"`
	Variables       map[string]string `mapstructure:"variables" yaml:"variables"`
	CSRFToken       string            `mapstructure:"csrf_token" yaml:"csrf_token"`
	CSRFField       string            `mapstructure:"csrf_field" yaml:"csrf_field"`
	Escape          string            `mapstructure:"escape" yaml:"escape"`
	MaxIncludeDepth int               `mapstructure:"max_include_depth" yaml:"max_include_depth"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	Dir     string        `mapstructure:"dir" yaml:"dir"`
	Backend string        `mapstructure:"backend" yaml:"backend"`
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl"`
	MaxSize int64         `mapstructure:"max_size" yaml:"max_size"`
}

type BuildConfig struct {
	SourceDirs []string `mapstructure:"source_dirs" yaml:"source_dirs"`
	OutputDir  string   `mapstructure:"output_dir" yaml:"output_dir"`
	Exclude    []string `mapstructure:"exclude" yaml:"exclude"`
	Workers    int      `mapstructure:"workers" yaml:"workers"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port" yaml:"port"`
	Host           string   `mapstructure:"host" yaml:"host"`
	Open           bool     `mapstructure:"open" yaml:"open"`
	NoOpen         bool     `mapstructure:"no-open" yaml:"no-open"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Options converts the render section into engine options.
func (r RenderConfig) Options() pug.Options {
	return pug.Options{
		IndentUnit:      r.IndentUnit,
		Variables:       r.Variables,
		CSRFToken:       r.CSRFToken,
		CSRFField:       r.CSRFField,
		Escape:          pug.EscapePolicy(r.Escape),
		MaxIncludeDepth: r.MaxIncludeDepth,
	}
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	cfg := &Config{Server: ServerConfig{Open: true}}
	applyDefaults(cfg)
	return cfg
}

func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Handle slices set via viper as comma separated strings (env vars)
	if viper.IsSet("build.source_dirs") && len(config.Build.SourceDirs) == 0 {
		config.Build.SourceDirs = viper.GetStringSlice("build.source_dirs")
	}
	if viper.IsSet("build.exclude") && len(config.Build.Exclude) == 0 {
		config.Build.Exclude = viper.GetStringSlice("build.exclude")
	}
	if viper.IsSet("render.variables") && len(config.Render.Variables) == 0 {
		config.Render.Variables = viper.GetStringMapString("render.variables")
	}

	// The browser opens unless configured otherwise
	if !viper.IsSet("server.open") {
		config.Server.Open = true
	}
	// Override open if explicitly disabled via flag
	if viper.IsSet("server.no-open") && viper.GetBool("server.no-open") {
		config.Server.Open = false
	}
	if viper.IsSet("log-level") && viper.GetString("log-level") != "" {
		config.Log.Level = viper.GetString("log-level")
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func applyDefaults(config *Config) {
	if config.Render.IndentUnit == 0 {
		config.Render.IndentUnit = pug.DefaultIndentUnit
	}
	if config.Render.CSRFField == "" {
		config.Render.CSRFField = pug.DefaultCSRFField
	}
	if config.Render.Escape == "" {
		config.Render.Escape = string(pug.EscapeNone)
	}
	if config.Render.MaxIncludeDepth == 0 {
		config.Render.MaxIncludeDepth = pug.DefaultMaxIncludeDepth
	}

	if config.Cache.Dir == "" {
		config.Cache.Dir = "pug_cache/"
	}
	if config.Cache.Backend == "" {
		config.Cache.Backend = BackendFile
	}
	if config.Cache.TTL == 0 {
		config.Cache.TTL = 24 * time.Hour
	}
	if config.Cache.MaxSize == 0 {
		config.Cache.MaxSize = 64 * 1024 * 1024
	}

	if len(config.Build.SourceDirs) == 0 {
		config.Build.SourceDirs = []string{"./views"}
	}
	if config.Build.OutputDir == "" {
		config.Build.OutputDir = "./dist"
	}
	if len(config.Build.Exclude) == 0 {
		config.Build.Exclude = []string{"node_modules", ".git"}
	}
	if config.Build.Workers == 0 {
		config.Build.Workers = 4
	}

	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.Host == "" {
		config.Server.Host = "localhost"
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}
}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := validateRenderConfig(&config.Render); err != nil {
		return fmt.Errorf("render config: %w", err)
	}
	if err := validateCacheConfig(&config.Cache); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}
	if err := validateBuildConfig(&config.Build); err != nil {
		return fmt.Errorf("build config: %w", err)
	}
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := validateLogConfig(&config.Log); err != nil {
		return fmt.Errorf("log config: %w", err)
	}
	return nil
}

func validateRenderConfig(config *RenderConfig) error {
	if config.IndentUnit < 1 || config.IndentUnit > 16 {
		return fmt.Errorf("indent_unit %d is not in valid range 1-16", config.IndentUnit)
	}
	if !pug.EscapePolicy(config.Escape).Valid() {
		return fmt.Errorf("unknown escape policy: %s", config.Escape)
	}
	if config.MaxIncludeDepth < 1 {
		return fmt.Errorf("max_include_depth must be positive, got %d", config.MaxIncludeDepth)
	}
	if strings.ContainsAny(config.CSRFField, "\"<> ") {
		return fmt.Errorf("csrf_field contains invalid characters: %s", config.CSRFField)
	}
	return nil
}

func validateCacheConfig(config *CacheConfig) error {
	switch config.Backend {
	case BackendFile, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("unknown backend: %s", config.Backend)
	}

	// Clean the path
	cleanPath := filepath.Clean(config.Dir)

	// Reject path traversal attempts
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("dir contains path traversal: %s", config.Dir)
	}

	if config.TTL < 0 {
		return fmt.Errorf("ttl must not be negative: %s", config.TTL)
	}
	return nil
}

func validateBuildConfig(config *BuildConfig) error {
	for _, path := range config.SourceDirs {
		if err := validatePath(path); err != nil {
			return fmt.Errorf("invalid source dir '%s': %w", path, err)
		}
	}
	if err := validatePath(config.OutputDir); err != nil {
		return fmt.Errorf("invalid output dir '%s': %w", config.OutputDir, err)
	}
	if config.Workers < 1 || config.Workers > 64 {
		return fmt.Errorf("workers %d is not in valid range 1-64", config.Workers)
	}
	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// Validate port range (allow 0 for system-assigned ports in testing)
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	// Basic validation - no dangerous characters
	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
	for _, char := range dangerousChars {
		if strings.Contains(config.Host, char) {
			return fmt.Errorf("host contains dangerous character: %s", char)
		}
	}

	return nil
}

func validateLogConfig(config *LogConfig) error {
	switch config.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown format: %s", config.Format)
	}
	switch strings.ToLower(config.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown level: %s", config.Level)
	}
	return nil
}

// validatePath validates a file path for security
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	// Clean the path
	cleanPath := filepath.Clean(path)

	// Reject path traversal attempts
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains traversal: %s", path)
	}

	// Reject dangerous characters
	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}
