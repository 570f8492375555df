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

	"github.com/use-agent/dashcheck/api"
	"github.com/use-agent/dashcheck/api/handler"
	"github.com/use-agent/dashcheck/config"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the check over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().IntVar(&cfg.Server.Port, "port", cfg.Server.Port, "listen port")
	cmd.Flags().StringVar(&cfg.Server.Schedule, "schedule", cfg.Server.Schedule, `cron spec for periodic runs, e.g. "@every 15m"`)
	return cmd
}

func serve(parent context.Context, cfg *config.Config) error {
	if cfg.Auth.Enabled && len(cfg.Auth.APIKeys) == 0 {
		slog.Warn("auth enabled but DASHCHECK_API_KEYS is empty, the API is open")
	}

	exec, closeBrowser, err := newExecutor(cfg)
	if err != nil {
		return setupError(err)
	}
	defer closeBrowser()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	runs := handler.NewRuns(ctx, exec.Run, handler.RunsOptions{
		Defaults:      exec.Defaults(),
		MaxConcurrent: cfg.Run.MaxConcurrentRuns,
		Webhook:       cfg.Webhook,
	})
	if cfg.Server.Schedule != "" {
		if err := runs.Schedule(ctx, cfg.Server.Schedule); err != nil {
			return setupError(err)
		}
		slog.Info("scheduled runs enabled", "schedule", cfg.Server.Schedule)
	}
	router := api.NewRouter(ctx, runs, cfg, time.Now())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: router}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr, "max_runs", cfg.Run.MaxConcurrentRuns)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		return setupError(err)
	}

	// Abort in-flight runs, then give HTTP requests, run goroutines and
	// webhook deliveries 5 seconds to drain before the browser closes.
	cancel()
	sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer scancel()
	if err := srv.Shutdown(sctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}
	if err := runs.Wait(sctx); err != nil {
		slog.Warn("runs still in flight at shutdown", "error", err)
	}
	slog.Info("dashcheck stopped")
	return nil
}
