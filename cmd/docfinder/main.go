// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the docfinder CLI.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/docfinder/internal/logging"
	"github.com/pdiddy/docfinder/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the docfinder CLI.
var rootCmd = &cobra.Command{
	Use:   "docfinder",
	Short: "Index local documents and search them",
	Long: `docfinder builds a full-text index over local folders and searches it.

Search results can be filtered by file type and folder and re-sorted
without querying the index again. A search can be saved to a YAML file
and reopened later with --load.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./docfinder.yaml or ~/.config/docfinder/docfinder.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: console or json")
	rootCmd.PersistentFlags().String("index-location", "", "directory holding the index database")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("index.location", rootCmd.PersistentFlags().Lookup("index-location"))
}

func initConfig() {
	// A missing .env is normal.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: reading .env:", err)
	}

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("docfinder")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "docfinder"))
		}
	}

	setDefaults(types.DefaultConfig())

	viper.SetEnvPrefix("DOCFINDER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every key of d so that environment variables and
// Unmarshal see them even when no config file sets them.
func setDefaults(d types.Config) {
	viper.SetDefault("index.location", d.Index.Location)
	viper.SetDefault("index.source_dirs", d.Index.SourceDirs)
	viper.SetDefault("index.include", d.Index.Include)
	viper.SetDefault("index.exclude", d.Index.Exclude)
	viper.SetDefault("index.extract_timeout", d.Index.ExtractTimeout)
	viper.SetDefault("index.max_file_size_kb", d.Index.MaxFileSizeKB)
	viper.SetDefault("search.max_results", d.Search.MaxResults)
	viper.SetDefault("search.mode", string(d.Search.Mode))
	viper.SetDefault("search.scope", string(d.Search.Scope))
	viper.SetDefault("search.case_sensitive", d.Search.CaseSensitive)
	viper.SetDefault("cache.capacity", d.Cache.Capacity)
	viper.SetDefault("view.types", d.View.Types)
	viper.SetDefault("view.sort", d.View.Sort)
	viper.SetDefault("view.direction", d.View.Direction)
	viper.SetDefault("log.level", d.Log.Level)
	viper.SetDefault("log.format", d.Log.Format)
}

// loadConfig returns the effective configuration.
func loadConfig() (types.Config, error) {
	cfg := types.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("reading configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the logger described by cfg, writing to stderr.
func newLogger(cfg types.LogConfig) (*zerolog.Logger, error) {
	lvl, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	l := logging.New(os.Stderr, lvl, cfg.Format)
	return &l, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
