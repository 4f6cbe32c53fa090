package config

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
)

// FuzzLoadConfig tests configuration loading with malformed inputs
func FuzzLoadConfig(f *testing.F) {
	f.Add(`render:
  indent_unit: 2
  variables:
    name: Gero
cache:
  enabled: true`)

	f.Add(`render:
  indent_unit: "two"`)

	f.Add(`server:
  port: 65536`)

	f.Add(`cache:
  backend: sqlite
  ttl: 10m`)

	f.Add(`malformed: yaml: content`)
	f.Add(``)

	f.Fuzz(func(t *testing.T, yamlContent string) {
		if len(yamlContent) > 50000 {
			t.Skip("Config content too large")
		}

		viper.Reset()
		defer viper.Reset()
		viper.SetConfigType("yaml")
		if err := viper.ReadConfig(strings.NewReader(yamlContent)); err != nil {
			return
		}

		cfg, err := Load()
		if err != nil {
			return
		}

		// Anything Load accepts must pass validation again.
		if err := validateConfig(cfg); err != nil {
			t.Errorf("loaded config failed validation: %v", err)
		}
	})
}
