// Package cmd provides the command-line interface for refbuild.
//
// Configuration is layered with clear precedence:
//
//  1. Command-line flags (--config, --cache-file, etc.) - highest priority
//  2. Individual environment variables (REFBUILD_BUILD_COMMAND, etc.)
//  3. Configuration file (.refbuild.yml) - lowest priority
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/refnlabs/refbuild/internal/config"
	"github.com/refnlabs/refbuild/internal/logging"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "refbuild",
	Short: "Incremental build tool for reference-linked schema files",
	Long: `Refbuild incrementally rebuilds a directory of schema files that reference
each other with refn: tokens. It tracks content hashes between runs, expands
changed files to everything that depends on them, and hands the result to the
configured build command in dependency order.

Quick Start:
  refbuild list                   List all discovered schemas
  refbuild graph                  Show the dependency graph and build order
  refbuild build                  Build changed schemas and their dependents
  refbuild watch                  Rebuild automatically on file changes`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .refbuild.yml)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().String("cache-file", "", "path to the content-hash cache file")

	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("build.cache_file", rootCmd.PersistentFlags().Lookup("cache-file"))
}

// initConfig initializes viper with the config file and environment bindings.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".refbuild")
	}

	viper.SetEnvPrefix("REFBUILD")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// A missing config file is fine; defaults and flags still apply.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig loads and validates the effective configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the root logger from configuration.
func newLogger(cfg *config.Config) logging.Logger {
	return logging.NewLogger(&logging.Config{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}
