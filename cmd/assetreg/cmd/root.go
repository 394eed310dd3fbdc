/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ssargent/assetreg/pkg/config"
	"github.com/ssargent/assetreg/pkg/di"
)

var container *di.Container

// SetContainer injects the dependency container used by every command.
func SetContainer(c *di.Container) {
	container = c
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "assetreg",
		Short: "assetreg - asset registry container toolkit",
		Long: `assetreg decodes, validates, re-encodes and catalogs asset registry
binary containers: a versioned header, a names batch, tag store data and
asset records.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", config.GetDefaultConfigPath(), "Path to the configuration file")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("log-format", "", "Log format (text, json)")
	flags.StringP("catalog-dir", "d", "", "Catalog directory")
	flags.StringP("format", "o", "", "Output format (table, json, yaml, cbor)")

	rootCmd.AddCommand(
		newInspectCmd(),
		newNamesCmd(),
		newPairsCmd(),
		newRoundtripCmd(),
		newSampleCmd(),
		newVersionsCmd(),
		newCatalogCmd(),
		newServeCmd(),
		newConfigCmd(),
	)
	return rootCmd
}

// setup loads the configuration, applies flag overrides and builds the logger.
func setup(cmd *cobra.Command, args []string) error {
	if container == nil {
		return errors.New("dependency container not initialized")
	}

	path, _ := cmd.Flags().GetString("config")
	cfg := config.DefaultConfig()
	if config.ConfigExists(path) {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	overrides := map[string]*string{
		"log-level":   &cfg.Logging.Level,
		"log-format":  &cfg.Logging.Format,
		"catalog-dir": &cfg.CatalogDir,
		"format":      &cfg.Output.Format,
	}
	for name, dst := range overrides {
		if cmd.Flags().Changed(name) {
			*dst, _ = cmd.Flags().GetString(name)
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	container.SetConfig(cfg)
	container.SetLogger(newLogger(cmd.ErrOrStderr(), cfg.Logging))
	return nil
}

func newLogger(w io.Writer, cfg config.Logging) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
