package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/roiviewer/internal/handlers"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the viewer HTTP API",
		Long: `Starts an HTTP API on the specified port.

Each session is a headless viewer over one image. Clients post input events,
manage ROIs, query points and fetch the rendered frame as PNG.`,
		Example: `  # Start server on default port 8888
  roiviewer serve

  # Start server on custom port
  roiviewer serve --port 3000

  # Open a session
  curl -X POST localhost:8888/api/sessions \
    -d '{"urn":"urn:cite2:hmt:vaimg.2017a:VA012RN_0013","width":800,"height":600}'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			handler := handlers.New(cfg)
			defer handler.Close()

			// Set up routes
			mux := http.NewServeMux()
			handler.Register(mux)

			addr := ":" + port
			server := &http.Server{
				Addr:              addr,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Viewer API available", "addr", addr, "url", "http://localhost"+addr, "iiif", cfg.IIIF.Server)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")

	return cmd
}
