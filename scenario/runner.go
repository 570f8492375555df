// Package scenario runs an ordered list of named steps against a browser
// page and collects what they scrape into a record.
package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/dashcheck/browser"
	"github.com/use-agent/dashcheck/config"
	"github.com/use-agent/dashcheck/models"
	"github.com/use-agent/dashcheck/record"
)

// State is the coarse progress of a run. It only moves forward.
type State int

const (
	StateStart State = iota
	StateAuthenticated
	StateOnModuleLanding
	StateMetricsExtracted
	StateListNavigated
	StateRowExtracted
	StateValidated
	StateDone
)

var stateNames = [...]string{
	"Start",
	"Authenticated",
	"OnModuleLanding",
	"MetricsExtracted",
	"ListNavigated",
	"RowExtracted",
	"Validated",
	"Done",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// StepFunc performs one step. It receives the record built so far and
// returns the record to carry forward, even when it also returns an error.
type StepFunc func(ctx context.Context, p browser.Page, rec *record.Record) (*record.Record, error)

// Step is one named stage of a flow.
type Step struct {
	Name    string
	Reaches State
	Run     StepFunc
}

// Options configures a Runner.
type Options struct {
	Timeouts config.TimeoutConfig

	// Strict turns every extraction group failure into a fatal
	// EXTRACTION_FAILED error. When false, failures are logged and the
	// partial group is kept.
	Strict bool

	Logger *slog.Logger
}

// Runner executes steps and owns the per-run bookkeeping (warnings and the
// validation report). A Runner is not safe for concurrent use; create one
// per run.
type Runner struct {
	timeouts config.TimeoutConfig
	strict   bool
	log      *slog.Logger

	warnings []string
	report   *record.Report
}

// NewRunner creates a Runner.
func NewRunner(opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		timeouts: opts.Timeouts,
		strict:   opts.Strict,
		log:      logger,
	}
}

// Result is what a run leaves behind, whether it passed or not.
type Result struct {
	State      State
	Record     *record.Record
	Steps      []models.StepResult
	Validation *record.Report
}

// Run executes steps in order. The first fatal error stops the run; the
// remaining steps are reported as skipped and the error is returned as a
// *models.RunError alongside the partial Result.
func (r *Runner) Run(ctx context.Context, p browser.Page, steps []Step) (*Result, error) {
	res := &Result{State: StateStart, Record: record.New()}
	r.report = nil

	for i, step := range steps {
		start := time.Now()
		r.warnings = nil
		r.log.Info("step started", "step", step.Name)

		rec, err := step.Run(ctx, p, res.Record)
		if rec != nil {
			res.Record = rec
		}

		sr := models.StepResult{
			Name:       step.Name,
			DurationMs: time.Since(start).Milliseconds(),
			Warnings:   r.warnings,
		}

		if err != nil {
			runErr := models.AsRunError(err, models.ErrCodeInternal, step.Name+" failed")
			if ctx.Err() != nil && runErr.Code != models.ErrCodeTimeout {
				runErr = models.NewRunError(models.ErrCodeTimeout, "run timed out during "+step.Name, err)
			}
			sr.Status = models.StepFailed
			sr.Error = runErr.ToDetail()
			res.Steps = append(res.Steps, sr)
			for _, rest := range steps[i+1:] {
				res.Steps = append(res.Steps, models.StepResult{Name: rest.Name, Status: models.StepSkipped})
			}
			res.Validation = r.report

			r.log.Error("step failed",
				"step", step.Name,
				"state", res.State.String(),
				"code", runErr.Code,
				"error", runErr,
			)
			return res, runErr
		}

		sr.Status = models.StepPassed
		res.Steps = append(res.Steps, sr)
		if step.Reaches > res.State {
			res.State = step.Reaches
		}
		r.log.Info("step passed", "step", step.Name, "state", res.State.String(), "duration_ms", sr.DurationMs)
	}

	res.State = StateDone
	res.Validation = r.report
	return res, nil
}

// contain applies the extraction failure policy to err from group.
func (r *Runner) contain(ctx context.Context, group string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}
	if r.strict {
		return models.NewRunError(models.ErrCodeExtraction, group+" extraction failed", err)
	}
	r.log.Warn("extraction failed, keeping partial result", "group", group, "error", err)
	r.warnings = append(r.warnings, fmt.Sprintf("%s: %v", group, err))
	return nil
}
