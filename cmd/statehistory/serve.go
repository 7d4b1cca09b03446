package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/vango-dev/statehistory/internal/config"
	"github.com/vango-dev/statehistory/pkg/wsbridge"
)

func serveCmd() *cobra.Command {
	var (
		dir   string
		addr  string
		debug bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the WebSocket history bridge",
		Long: `Serve the WebSocket history bridge.

Endpoints:
  /history/ws   bridge connections, one Sync per tab
  /metrics      Prometheus metrics
  /healthz      liveness check

Settings are read from statehistory.json or statehistory.yaml in the
config directory when present.

Examples:
  statehistory serve
  statehistory serve --addr=:9000 --config=./deploy`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(dir)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return runServe(cmd.Context(), cfg, newLogger(debug))
		},
	}

	cmd.Flags().StringVarP(&dir, "config", "c", ".", "Directory holding the config file")
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from config)")
	cmd.Flags().BoolVar(&debug, "debug", false, "Log capture and restore details")

	return cmd
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func bridgeConfig(cfg *config.Config) wsbridge.Config {
	return wsbridge.Config{
		ReadTimeout:       cfg.Server.ReadTimeout.Std(),
		WriteTimeout:      cfg.Server.WriteTimeout.Std(),
		Debounce:          cfg.Debounce.Std(),
		DiagnosticsBuffer: cfg.DiagnosticsBuffer,
		AllowedOrigins:    cfg.Server.AllowedOrigins,
	}
}

func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	bridge := wsbridge.NewServer(bridgeConfig(cfg), cfg.Metrics.Namespace,
		wsbridge.WithLogger(logger),
		wsbridge.WithTracer(otel.Tracer(cfg.Tracing.TracerName)))

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           bridge.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "address", cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	fmt.Printf("%s serving history bridge on %s\n", successMark("✓"), cfg.Server.Addr)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil

	case <-ctx.Done():
		logger.Info("shutting down...")
		bridge.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
