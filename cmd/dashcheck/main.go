// Command dashcheck logs into the admin dashboard, scrapes the Customer
// module and fails when any scraped value is empty. With "serve" it exposes
// the same check over HTTP.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/use-agent/dashcheck/config"
)

// Exit codes.
const (
	exitPassed = 0
	exitFailed = 1
	exitSetup  = 2
)

// exitError carries the process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func setupError(err error) error { return &exitError{code: exitSetup, err: err} }

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg := config.Load()
	initLogger(cfg.Log)

	root := newRootCmd(cfg)
	if err := root.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			if ee.code == exitSetup {
				fmt.Fprintln(os.Stderr, "error:", ee.err)
			}
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitSetup)
	}
	os.Exit(exitPassed)
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	var opts checkOptions

	root := &cobra.Command{
		Use:           "dashcheck",
		Short:         "Check that the Customer module of the admin dashboard shows no empty values",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, cfg, opts)
		},
	}

	f := root.Flags()
	f.BoolVar(&opts.strict, "strict", cfg.Run.Strict, "fail on any extraction error instead of keeping partial values")
	f.IntVar(&opts.retries, "retries", cfg.Run.Retries, "whole-run retries")
	f.DurationVar(&opts.timeout, "timeout", cfg.Run.Timeout, "per-attempt timeout")
	f.BoolVar(&opts.json, "json", false, "print the report as JSON instead of tables")
	f.BoolVar(&cfg.Browser.Headless, "headless", cfg.Browser.Headless, "run the browser without a window")

	root.AddCommand(newServeCmd(cfg))
	return root
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch {
	case cfg.Format == "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case isatty.IsTerminal(os.Stderr.Fd()):
		handler = tint.NewHandler(os.Stderr, &tint.Options{Level: level, TimeFormat: time.Kitchen})
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
