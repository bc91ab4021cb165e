package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"hpa-bench/internal/config"
	"hpa-bench/internal/web"
)

var (
	servePort      int
	serveMergedDir string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve run history and merged datasets over HTTP",
	Long: `Starts the results API.

Endpoints:
  GET /health                      no auth
  GET /metrics                     Prometheus metrics, no auth
  GET /api/v1/runs?kind=&limit=    run history
  GET /api/v1/runs/:id             run detail (load tests include history)
  GET /api/v1/merged/:name         all | locust, filters architecture= service=, format=csv

API routes require "Authorization: Bearer <token>" with the token from ` + config.EnvToken + `.`,
	Example: `  HPA_BENCH_TOKEN=secret hpa-bench serve --port 8088 --merged-dir out/`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if settings.Token == "" {
			return errors.New(config.EnvToken + " is not set")
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		cfg := web.DefaultConfig()
		cfg.Port = servePort
		cfg.Token = settings.Token
		cfg.MergedDir = serveMergedDir
		cfg.Debug = debug

		server, err := web.NewServer(cfg, store)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "🌐 http://localhost:%d/api/v1  (Ctrl+C to stop)\n", servePort)
		return server.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080,
		"Port to listen on")
	serveCmd.Flags().StringVar(&serveMergedDir, "merged-dir", ".",
		"Directory holding merged_all.csv and merged_locust.csv")

	rootCmd.AddCommand(serveCmd)
}
