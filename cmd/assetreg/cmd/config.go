/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ssargent/assetreg/pkg/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the assetreg configuration file",
	}
	cmd.AddCommand(newConfigInitCmd(), newConfigShowCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with a generated API key",
		Long: `Write a new configuration file with defaults and a freshly generated API key.

Examples:
  assetreg config init
  assetreg config init --config=./assetreg.yaml --catalog-dir=./catalog`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			force, _ := cmd.Flags().GetBool("force")
			if config.ConfigExists(path) && !force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
			}
			cfg, err := config.BootstrapConfig(path, container.Config().CatalogDir)
			if err != nil {
				return err
			}
			cmd.Printf("Wrote configuration to %s\n", path)
			cmd.Printf("Catalog directory: %s\n", cfg.CatalogDir)
			cmd.Printf("API key: %s\n", cfg.Security.APIKey)
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "Overwrite an existing configuration file")
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *container.Config()
			if cfg.Security.APIKey != "" && cfg.Security.APIKey != "auto" {
				cfg.Security.APIKey = "<redacted>"
			}
			return output(cmd.OutOrStdout(), cfg, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "catalog_dir:\t%s\n", cfg.CatalogDir)
				fmt.Fprintf(tw, "listen:\t%s:%d\n", cfg.Bind, cfg.Port)
				fmt.Fprintf(tw, "api_key:\t%s\n", cfg.Security.APIKey)
				fmt.Fprintf(tw, "logging:\t%s (%s)\n", cfg.Logging.Level, cfg.Logging.Format)
				fmt.Fprintf(tw, "output:\t%s\n", cfg.Output.Format)
				fmt.Fprintf(tw, "limits:\tstring %d, pool %d, array %d\n",
					cfg.Limits.MaxStringBytes, cfg.Limits.MaxPoolBytes, cfg.Limits.MaxArrayCount)
			})
		},
	}
}
