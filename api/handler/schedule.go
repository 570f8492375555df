package handler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/use-agent/dashcheck/models"
)

// Schedule submits a run with the default parameters on every tick of spec.
// The scheduler stops when ctx is done. A tick that fires while the previous
// scheduled run is still running is skipped.
func (r *Runs) Schedule(ctx context.Context, spec string) error {
	c := cron.New(
		cron.WithLogger(cronLogger{log: slog.Default()}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{log: slog.Default()})),
	)
	_, err := c.AddFunc(spec, func() {
		resp := r.Start(models.RunRequest{})
		slog.Info("scheduled run submitted", "run_id", resp.ID)
		r.waitFor(ctx, resp.ID)
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	c.Start()
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return nil
}

// waitFor blocks until run id finishes, expires or ctx ends.
func (r *Runs) waitFor(ctx context.Context, id string) {
	job, ok := r.store.Get(id)
	if !ok {
		return
	}
	select {
	case <-job.done:
	case <-ctx.Done():
	}
}

// cronLogger routes cron's logr-style calls into slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
