package main

import (
	"github.com/spf13/cobra"

	"github.com/nippo-signage/go/internal/logger"
	"github.com/nippo-signage/go/internal/server"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the signage HTTP server",
	Long: `Start the signage HTTP server.

The server provides:
  - GET  /health      - Basic server health check
  - POST /api/rows    - List the rows of an uploaded report (form field "file")
  - POST /api/render  - Render selected rows ("file", "select", optional "date")

Edits to the config file are picked up without a restart.

Examples:
  signage serve                    # Start on the configured port (8080)
  signage serve --port 3000        # Start on custom port
  signage serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := loadConfig()
		if err != nil {
			return err
		}
		if f := mgr.ConfigFile(); f != "" {
			Logger.Info("using config file", "path", f)
		}

		srv, err := server.New(server.Config{
			Host:          serveHost,
			Port:          servePort,
			ConfigManager: mgr,
			Logger:        logger.GetLogger("server"),
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default: server.host)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default: server.port)")
	rootCmd.AddCommand(serveCmd)
}
