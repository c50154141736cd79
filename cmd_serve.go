package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ax5-sect/server/internal/server"
	logx "github.com/ax5-sect/server/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP chat API",
	Long:  `Starts the orchestration server exposing /chat, /health, /agents, /agents/graph and /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		addr := a.cfg.HTTP.Addr
		if flag, _ := cmd.Flags().GetString("addr"); flag != "" {
			addr = flag
		}
		shutdownTimeout, err := time.ParseDuration(a.cfg.HTTP.ShutdownTimeout)
		if err != nil {
			return fmt.Errorf("invalid HTTP_SHUTDOWN_TIMEOUT %q: %w", a.cfg.HTTP.ShutdownTimeout, err)
		}

		srv := &http.Server{
			Addr: addr,
			Handler: server.NewHandler(server.Options{
				Runner:         a.runner,
				Gatherer:       a.registry,
				AllowedOrigins: a.cfg.HTTP.AllowedOrigins,
				Version:        version,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}
		return serve(cmd.Context(), srv, shutdownTimeout)
	},
}

// serve runs srv until it fails, ctx is done or the process is signalled,
// then drains in-flight turns for at most timeout.
func serve(ctx context.Context, srv *http.Server, timeout time.Duration) error {
	serverErrors := make(chan error, 1)
	go func() {
		logx.Info().Str("addr", srv.Addr).Msg("Starting AX5-SECT server")
		serverErrors <- srv.ListenAndServe()
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logx.Info().Msg("Shutdown requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logx.Error().Err(err).Dur("timeout", timeout).Msg("Graceful shutdown did not complete")
		return srv.Close()
	}
	logx.Info().Msg("Server stopped gracefully")
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (overrides HTTP_ADDR)")
}
