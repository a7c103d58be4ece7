package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/nao1215/photobox/internal/config"
	"github.com/nao1215/photobox/internal/console"
)

// Serve defaults.
const (
	defaultServeAddr = "127.0.0.1:8400"
	shutdownTimeout  = 5 * time.Second
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the report directory over HTTP",
		Long: `Serve starts a local HTTP server for the index path, so the report can be
opened in a browser. The canvas template needs it: browsers refuse to start
the diff worker from file:// URLs.

Examples:
  # Serve ./photobox on http://127.0.0.1:8400/
  photobox serve

  # Serve another index path on another address
  photobox serve --index-path out/photobox --addr :9000`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("index-path", "o", config.DefaultIndexPath,
		"Directory holding index.html")
	cmd.Flags().StringP("addr", "a", defaultServeAddr,
		"Listen address")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	indexPath, err := cmd.Flags().GetString("index-path")
	if err != nil {
		return err
	}
	addr, err := cmd.Flags().GetString("addr")
	if err != nil {
		return err
	}

	info, err := os.Stat(indexPath)
	if err != nil {
		return fmt.Errorf("index path not found: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("index path is not a directory: %s", indexPath)
	}

	logger := setupLogger(cmd)
	ctx, cancel := signalContext(logger)
	defer cancel()

	printer := console.New(cmd.OutOrStdout())
	printer.Info("Serving %s on http://%s/ (Ctrl+C to stop)", indexPath, addr)

	return serve(ctx, addr, newReportRouter(indexPath), logger)
}

// newReportRouter serves the files below indexPath. Responses are never
// cached since every run rewrites the images under the same names.
func newReportRouter(indexPath string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.NoCache)

	r.Handle("/*", http.FileServer(http.Dir(indexPath)))
	return r
}

// serve runs an HTTP server until ctx is cancelled.
func serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("stopping server", "addr", addr)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
