// Package config provides configuration management for refbuild using Viper
// for flexible configuration loading from files, environment variables, and
// command-line flags.
//
// The configuration system supports YAML files (.refbuild.yml), environment
// variable overrides with the REFBUILD_ prefix, and validation. It manages
// schema scan roots, the external build command, cache location, and
// watch-mode options.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for refbuild.
type Config struct {
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Schemas SchemasConfig `yaml:"schemas" mapstructure:"schemas"`
	Build   BuildConfig   `yaml:"build" mapstructure:"build"`
	Watch   WatchConfig   `yaml:"watch" mapstructure:"watch"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// SchemasConfig controls schema discovery.
type SchemasConfig struct {
	Roots           []string `yaml:"roots" mapstructure:"roots"`
	ExcludePatterns []string `yaml:"exclude_patterns" mapstructure:"exclude_patterns"`
}

// BuildConfig controls the external build facade and the hash cache.
type BuildConfig struct {
	Command   string        `yaml:"command" mapstructure:"command"`
	Args      []string      `yaml:"args" mapstructure:"args"`
	CacheFile string        `yaml:"cache_file" mapstructure:"cache_file"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// WatchConfig controls watch mode.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce"`
}

// setDefaults installs defaults on the shared viper instance.
func setDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("schemas.roots", []string{"."})
	viper.SetDefault("schemas.exclude_patterns", []string{})
	viper.SetDefault("build.command", "refnc")
	viper.SetDefault("build.args", []string{"compile"})
	viper.SetDefault("build.cache_file", ".refbuild/cache.json")
	viper.SetDefault("build.timeout", 30*time.Second)
	viper.SetDefault("watch.debounce", 300*time.Millisecond)
}

// Load unmarshals the effective configuration from viper (flags, environment,
// config file, defaults, in that precedence) and validates it.
func Load() (*Config, error) {
	setDefaults()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values the tool cannot run with.
func (c *Config) Validate() error {
	if len(c.Schemas.Roots) == 0 {
		return fmt.Errorf("schemas.roots must list at least one directory")
	}
	if c.Build.Command == "" {
		return fmt.Errorf("build.command must not be empty")
	}
	if c.Build.CacheFile == "" {
		return fmt.Errorf("build.cache_file must not be empty")
	}
	if c.Build.Timeout <= 0 {
		return fmt.Errorf("build.timeout must be positive, got %s", c.Build.Timeout)
	}
	if c.Watch.Debounce <= 0 {
		return fmt.Errorf("watch.debounce must be positive, got %s", c.Watch.Debounce)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}
