// Package suite turns one request for a customer flow check into attempts
// against fresh pages and folds them into a RunReport.
package suite

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/dashcheck/browser"
	"github.com/use-agent/dashcheck/config"
	"github.com/use-agent/dashcheck/models"
	"github.com/use-agent/dashcheck/record"
	"github.com/use-agent/dashcheck/scenario"
)

// PageOpener hands out an isolated page per attempt. *browser.Browser
// implements it.
type PageOpener interface {
	OpenPage(ctx context.Context) (browser.Page, func(), error)
}

// Prober checks the base URL before any page is opened.
type Prober interface {
	Probe(ctx context.Context, url string) (*models.PreflightInfo, error)
}

// Params are the knobs a single run may override.
type Params struct {
	ID          string
	Credentials models.Credentials
	Strict      bool
	Timeout     time.Duration
	Retries     int
}

// Executor runs the customer flow.
type Executor struct {
	opener    PageOpener
	prober    Prober
	baseURL   string
	selectors scenario.Selectors
	timeouts  config.TimeoutConfig
	defaults  Params
	log       *slog.Logger
}

// Options configures an Executor. A nil Prober skips preflight.
type Options struct {
	Opener    PageOpener
	Prober    Prober
	Selectors *scenario.Selectors
	Logger    *slog.Logger
}

// New creates an Executor from cfg.
func New(cfg *config.Config, opts Options) *Executor {
	sel := scenario.DefaultSelectors
	if opts.Selectors != nil {
		sel = *opts.Selectors
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		opener:    opts.Opener,
		prober:    opts.Prober,
		baseURL:   cfg.Target.BaseURL,
		selectors: sel,
		timeouts:  cfg.Timeouts,
		defaults: Params{
			Credentials: models.Credentials{Email: cfg.Target.Email, Password: cfg.Target.Password},
			Strict:      cfg.Run.Strict,
			Timeout:     cfg.Run.Timeout,
			Retries:     cfg.Run.Retries,
		},
		log: logger,
	}
}

// defaultTimeout bounds an attempt when Params carries no timeout.
const defaultTimeout = 60 * time.Second

// Defaults returns the configured run parameters.
func (e *Executor) Defaults() Params { return e.defaults }

// Run executes p, retrying the whole flow on a fresh page up to p.Retries
// times. The report is always returned; err is the last attempt's
// *models.RunError when the run failed. Negative retries run once; a
// non-positive timeout falls back to 60s.
func (e *Executor) Run(ctx context.Context, p Params) (*models.RunReport, error) {
	logger := e.log.With("run_id", p.ID)
	if p.Retries < 0 {
		p.Retries = 0
	}
	if p.Timeout <= 0 {
		p.Timeout = defaultTimeout
	}
	report := &models.RunReport{
		ID:        p.ID,
		State:     scenario.StateStart.String(),
		StartedAt: time.Now(),
		Values:    record.New(),
	}
	defer func() {
		report.FinishedAt = time.Now()
		report.DurationMs = report.FinishedAt.Sub(report.StartedAt).Milliseconds()
	}()

	if e.prober != nil {
		info, err := e.prober.Probe(ctx, e.baseURL)
		report.Preflight = info
		if err != nil {
			runErr := models.AsRunError(err, models.ErrCodePreflight, "preflight failed")
			report.Error = runErr.ToDetail()
			logger.Error("preflight failed", "url", e.baseURL, "error", runErr)
			return report, runErr
		}
		logger.Info("preflight passed",
			"status", info.StatusCode,
			"title", info.Title,
			"login_markup", info.LoginMarkup,
		)
	} else {
		report.Preflight = &models.PreflightInfo{Skipped: true, SkippedCause: "disabled"}
	}

	var lastErr *models.RunError
	for attempt := 1; attempt <= p.Retries+1; attempt++ {
		alog := logger.With("attempt", attempt)
		res, err := e.attempt(ctx, p, alog)
		report.Attempts = attempt
		if res != nil {
			report.State = res.State.String()
			report.Steps = res.Steps
			report.Values = res.Record
			report.Validation = res.Validation
		} else {
			// No page: nothing from an earlier attempt describes this one.
			report.State = scenario.StateStart.String()
			report.Steps = nil
			report.Values = record.New()
			report.Validation = nil
		}

		if err == nil {
			report.Passed = true
			report.Error = nil
			alog.Info("run passed", "state", report.State)
			return report, nil
		}

		lastErr = models.AsRunError(err, models.ErrCodeInternal, "run failed")
		report.Error = lastErr.ToDetail()
		if ctx.Err() != nil {
			break
		}
		if attempt <= p.Retries {
			alog.Warn("attempt failed, retrying", "code", lastErr.Code, "error", lastErr)
		}
	}

	logger.Error("run failed", "attempts", report.Attempts, "code", lastErr.Code, "error", lastErr)
	return report, lastErr
}

// attempt runs the flow once on a fresh page, bounded by p.Timeout.
func (e *Executor) attempt(ctx context.Context, p Params, logger *slog.Logger) (*scenario.Result, error) {
	actx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	page, closePage, err := e.opener.OpenPage(actx)
	if err != nil {
		return nil, models.AsRunError(err, models.ErrCodeBrowserCrash, "could not open page")
	}
	defer closePage()

	runner := scenario.NewRunner(scenario.Options{
		Timeouts: e.timeouts,
		Strict:   p.Strict,
		Logger:   logger,
	})
	target := scenario.Target{BaseURL: e.baseURL, Credentials: p.Credentials}
	return runner.Run(actx, page, runner.CustomerFlow(target, e.selectors))
}
