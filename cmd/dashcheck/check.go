package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/use-agent/dashcheck/browser"
	"github.com/use-agent/dashcheck/config"
	"github.com/use-agent/dashcheck/models"
	"github.com/use-agent/dashcheck/preflight"
	"github.com/use-agent/dashcheck/report"
	"github.com/use-agent/dashcheck/scenario"
	"github.com/use-agent/dashcheck/suite"
	"github.com/use-agent/dashcheck/webhook"
)

type checkOptions struct {
	strict  bool
	retries int
	timeout time.Duration
	json    bool
}

// newExecutor launches the browser and wires the executor to it. The
// returned func releases the browser.
func newExecutor(cfg *config.Config) (*suite.Executor, func(), error) {
	var prober suite.Prober
	if cfg.Run.Preflight {
		login := scenario.DefaultSelectors.Login
		p, err := preflight.New(cfg.Timeouts.NetworkIdle, login.Email, login.Password, login.Submit)
		if err != nil {
			return nil, nil, err
		}
		prober = p
	}

	b, err := browser.Launch(cfg.Browser, cfg.Timeouts)
	if err != nil {
		return nil, nil, err
	}

	exec := suite.New(cfg, suite.Options{Opener: b, Prober: prober})
	return exec, b.Close, nil
}

func (o checkOptions) validate() error {
	if o.retries < 0 {
		return fmt.Errorf("retries must be >= 0, got %d", o.retries)
	}
	if o.timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", o.timeout)
	}
	return nil
}

func runCheck(cmd *cobra.Command, cfg *config.Config, opts checkOptions) error {
	if err := opts.validate(); err != nil {
		return setupError(err)
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("dashcheck starting",
		"base_url", cfg.Target.BaseURL,
		"headless", cfg.Browser.Headless,
		"ci", cfg.Run.CI,
		"retries", opts.retries,
		"strict", opts.strict,
	)

	exec, closeBrowser, err := newExecutor(cfg)
	if err != nil {
		return setupError(err)
	}
	defer closeBrowser()

	p := exec.Defaults()
	p.ID = "run-" + uuid.NewString()
	p.Strict = opts.strict
	p.Retries = opts.retries
	p.Timeout = opts.timeout

	rep, runErr := exec.Run(ctx, p)

	if n := webhook.New(cfg.Webhook); n != nil {
		dctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		if err := n.Notify(dctx, webhook.NewRunEvent(rep)); err != nil {
			slog.Warn("webhook delivery failed", "error", err)
		}
		cancel()
	}

	if err := writeReport(cmd.OutOrStdout(), rep, opts.json); err != nil {
		return setupError(err)
	}
	if runErr != nil {
		return &exitError{code: exitFailed, err: runErr}
	}
	return nil
}

func writeReport(w io.Writer, rep *models.RunReport, asJSON bool) error {
	if !asJSON {
		return report.Render(w, rep)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
