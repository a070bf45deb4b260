package main

import (
	"github.com/spf13/cobra"

	"facturador/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the facturador server",
	Long: `Start the facturador HTTP server.

The server exposes invoice retrieval over HTTP. Runs are serialized:
each one drives a real browser window on the machine the server runs
on, so this is meant for a workstation or a desktop-session host, not
a headless farm.

Endpoints:
  GET  /                           Service description
  GET  /health                     Basic health check
  GET  /ready                      Readiness check
  POST /api/invoices/download      Trigger a retrieval run

Examples:
  facturador serve                 # Start on default port 8780
  facturador serve --port 3000     # Start on custom port`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := newLogger()

		h, err := loadHome()
		if err != nil {
			return err
		}
		mgr, err := loadConfig(h)
		if err != nil {
			return err
		}
		mgr.WatchConfig()

		port := servePort
		if port == "" {
			port = mgr.Get().Server.Port
		}

		srv, err := server.New(server.Config{
			Host:          serveHost,
			Port:          port,
			Home:          h,
			ConfigManager: mgr,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default from config)")

	rootCmd.AddCommand(serveCmd)
}
