package config

import (
	"testing"
	"time"

	"github.com/conneroisu/pugar/pkg/pug"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setup       func()
		expectError bool
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name: "defaults",
			setup: func() {
				viper.Reset()
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, pug.DefaultIndentUnit, cfg.Render.IndentUnit)
				assert.Equal(t, "pug_cache/", cfg.Cache.Dir)
				assert.False(t, cfg.Cache.Enabled)
				assert.Equal(t, BackendFile, cfg.Cache.Backend)
				assert.Equal(t, []string{"./views"}, cfg.Build.SourceDirs)
				assert.Equal(t, "./dist", cfg.Build.OutputDir)
				assert.Equal(t, 4, cfg.Build.Workers)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.True(t, cfg.Server.Open)
				assert.Equal(t, "info", cfg.Log.Level)
			},
		},
		{
			name: "custom render options",
			setup: func() {
				viper.Reset()
				viper.Set("render.indent_unit", 4)
				viper.Set("render.csrf_token", "secret")
				viper.Set("render.variables", map[string]string{"name": "Gero"})
				viper.Set("cache.enabled", true)
				viper.Set("cache.ttl", "1h")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 4, cfg.Render.IndentUnit)
				assert.Equal(t, "secret", cfg.Render.CSRFToken)
				assert.Equal(t, "Gero", cfg.Render.Variables["name"])
				assert.True(t, cfg.Cache.Enabled)
				assert.Equal(t, time.Hour, cfg.Cache.TTL)
			},
		},
		{
			name: "no-open flag override",
			setup: func() {
				viper.Reset()
				viper.Set("server.open", true)
				viper.Set("server.no-open", true)
			},
			check: func(t *testing.T, cfg *Config) {
				assert.False(t, cfg.Server.Open)
			},
		},
		{
			name: "log level flag",
			setup: func() {
				viper.Reset()
				viper.Set("log-level", "debug")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Log.Level)
			},
		},
		{
			name: "invalid viper config",
			setup: func() {
				viper.Reset()
				viper.Set("server.port", "invalid_port")
			},
			expectError: true,
		},
		{
			name: "unknown backend",
			setup: func() {
				viper.Reset()
				viper.Set("cache.backend", "redis")
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer viper.Reset()

			cfg, err := Load()
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestRenderConfigOptions(t *testing.T) {
	cfg := Default()
	cfg.Render.Escape = "html"
	cfg.Render.CSRFToken = "tok"

	opts := cfg.Render.Options()
	assert.Equal(t, pug.EscapeHTML, opts.Escape)
	assert.Equal(t, "tok", opts.CSRFToken)
	assert.Equal(t, pug.DefaultIndentUnit, opts.IndentUnit)
	assert.Equal(t, 0, opts.AdditionalIndent)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *Config)
	}{
		{"zero indent", func(cfg *Config) { cfg.Render.IndentUnit = -1 }},
		{"bad escape", func(cfg *Config) { cfg.Render.Escape = "loud" }},
		{"bad csrf field", func(cfg *Config) { cfg.Render.CSRFField = `a"b` }},
		{"cache traversal", func(cfg *Config) { cfg.Cache.Dir = "../cache" }},
		{"negative ttl", func(cfg *Config) { cfg.Cache.TTL = -time.Second }},
		{"source traversal", func(cfg *Config) { cfg.Build.SourceDirs = []string{"../../etc"} }},
		{"dangerous output", func(cfg *Config) { cfg.Build.OutputDir = "dist;rm" }},
		{"too many workers", func(cfg *Config) { cfg.Build.Workers = 1000 }},
		{"port range", func(cfg *Config) { cfg.Server.Port = 70000 }},
		{"dangerous host", func(cfg *Config) { cfg.Server.Host = "localhost;ls" }},
		{"log format", func(cfg *Config) { cfg.Log.Format = "xml" }},
		{"log level", func(cfg *Config) { cfg.Log.Level = "loud" }},
	}

	require.NoError(t, validateConfig(Default()))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, validateConfig(cfg))
		})
	}
}
