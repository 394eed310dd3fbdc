/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ssargent/assetreg/pkg/api"
	"github.com/ssargent/assetreg/pkg/catalog"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long: `Start the assetreg REST API server over the configured catalog.

Requests to /api/v1 must carry the configured API key in the X-API-Key
header. Prometheus metrics are served unauthenticated at /metrics.

Examples:
  assetreg serve
  assetreg serve --port=9200 --api-key=mysecretkey`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := container.Config()
			port := cfg.Port
			if cmd.Flags().Changed("port") {
				port, _ = cmd.Flags().GetInt("port")
			}
			bind := cfg.Bind
			if cmd.Flags().Changed("bind") {
				bind, _ = cmd.Flags().GetString("bind")
			}
			apiKey := cfg.Security.APIKey
			if cmd.Flags().Changed("api-key") {
				apiKey, _ = cmd.Flags().GetString("api-key")
			}
			if apiKey == "auto" {
				return fmt.Errorf("no API key configured: run 'assetreg config init' or pass --api-key")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return withCatalog(func(cat *catalog.Catalog) error {
				return serve(ctx, cat, api.ServerConfig{
					Bind:   bind,
					Port:   port,
					APIKey: apiKey,
					Limits: cfg.Limits.ToCodec(),
					Logger: container.Logger(),
				})
			})
		},
	}
	cmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	cmd.Flags().String("bind", "127.0.0.1", "Address to bind")
	cmd.Flags().String("api-key", "", "API key for client authentication")
	return cmd
}

func serve(ctx context.Context, cat *catalog.Catalog, config api.ServerConfig) error {
	starter := container.GetServerFactory().CreateServerStarter()
	return starter.StartServer(ctx, cat, config)
}
