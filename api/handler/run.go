package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/semaphore"

	"github.com/use-agent/dashcheck/config"
	"github.com/use-agent/dashcheck/models"
	"github.com/use-agent/dashcheck/suite"
	"github.com/use-agent/dashcheck/webhook"
)

// Run statuses.
const (
	StatusRunning = "running"
	StatusPassed  = "passed"
	StatusFailed  = "failed"
)

// maxStoredRuns bounds the run store; the oldest runs are evicted first.
const maxStoredRuns = 1024

// webhookTimeout bounds one delivery including its retries.
const webhookTimeout = 2 * time.Minute

// RunFunc executes one run. suite.Executor.Run satisfies it.
type RunFunc func(ctx context.Context, p suite.Params) (*models.RunReport, error)

// RunsOptions configures Runs.
type RunsOptions struct {
	Defaults      suite.Params
	MaxConcurrent int
	Webhook       config.WebhookConfig

	// TTL is how long a run stays queryable after it was submitted. Default: 1h.
	TTL time.Duration
}

type runJob struct {
	mu   sync.Mutex
	resp models.RunResponse
	done chan struct{}
}

func newRunJob(id string) *runJob {
	return &runJob{
		resp: models.RunResponse{ID: id, Status: StatusRunning},
		done: make(chan struct{}),
	}
}

func (j *runJob) snapshot() models.RunResponse {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.resp
}

// Runs is the in-memory store of asynchronous runs. Runs beyond
// MaxConcurrent queue on a semaphore.
type Runs struct {
	ctx      context.Context
	run      RunFunc
	defaults suite.Params
	notifier *webhook.Notifier

	store  *expirable.LRU[string, *runJob]
	sem    *semaphore.Weighted
	max    int
	active atomic.Int32

	// wg tracks run goroutines and their webhook deliveries.
	wg sync.WaitGroup
}

// NewRuns creates the store. Runs are bound to ctx, so cancelling it aborts
// running ones and fails queued ones.
func NewRuns(ctx context.Context, run RunFunc, opts RunsOptions) *Runs {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	return &Runs{
		ctx:      ctx,
		run:      run,
		defaults: opts.Defaults,
		notifier: webhook.New(opts.Webhook),
		store:    expirable.NewLRU[string, *runJob](maxStoredRuns, nil, opts.TTL),
		sem:      semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		max:      opts.MaxConcurrent,
	}
}

// Stats reports running and maximum concurrent runs.
func (r *Runs) Stats() (active, max int) {
	return int(r.active.Load()), r.max
}

// Start submits a run in the background and returns its initial state.
func (r *Runs) Start(req models.RunRequest) models.RunResponse {
	p := r.params(req)
	job := newRunJob(p.ID)
	r.store.Add(p.ID, job)

	r.wg.Go(func() { r.execute(job, p) })
	return job.snapshot()
}

// Wait blocks until every submitted run and its webhook delivery finished,
// or ctx ends.
func (r *Runs) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Lookup returns the current state of run id.
func (r *Runs) Lookup(id string) (models.RunResponse, bool) {
	job, ok := r.store.Get(id)
	if !ok {
		return models.RunResponse{}, false
	}
	return job.snapshot(), true
}

// Post returns a handler for POST /api/v1/runs.
// The run starts in the background; poll GET /api/v1/runs/:id for the result.
func (r *Runs) Post() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.RunRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error: &models.ErrorDetail{Code: models.ErrCodeInvalidInput, Message: err.Error()},
			})
			return
		}
		c.JSON(http.StatusAccepted, r.Start(req))
	}
}

// Get returns a handler for GET /api/v1/runs/:id.
func (r *Runs) Get() gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, ok := r.Lookup(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error: &models.ErrorDetail{Code: models.ErrCodeNotFound, Message: "run not found"},
			})
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// params merges the request overrides into the configured defaults.
func (r *Runs) params(req models.RunRequest) suite.Params {
	p := r.defaults
	p.ID = "run-" + uuid.NewString()
	if req.Email != "" {
		p.Credentials = models.Credentials{Email: req.Email, Password: req.Password}
	}
	if req.Strict != nil {
		p.Strict = *req.Strict
	}
	if req.Timeout > 0 {
		p.Timeout = time.Duration(req.Timeout) * time.Second
	}
	if req.Retries != nil {
		p.Retries = *req.Retries
	}
	return p
}

func (r *Runs) execute(job *runJob, p suite.Params) {
	if err := r.sem.Acquire(r.ctx, 1); err != nil {
		r.finish(job, nil, models.NewRunError(models.ErrCodeTimeout, "server shutting down", err))
		return
	}
	r.active.Add(1)
	defer func() {
		r.active.Add(-1)
		r.sem.Release(1)
	}()

	slog.Info("run started", "run_id", p.ID, "strict", p.Strict, "retries", p.Retries)
	rep, err := r.run(r.ctx, p)
	r.finish(job, rep, err)
}

func (r *Runs) finish(job *runJob, rep *models.RunReport, err error) {
	job.mu.Lock()
	job.resp.Report = rep
	if err != nil {
		job.resp.Status = StatusFailed
		job.resp.Error = models.AsRunError(err, models.ErrCodeInternal, "run failed").ToDetail()
	} else {
		job.resp.Status = StatusPassed
	}
	id, status := job.resp.ID, job.resp.Status
	job.mu.Unlock()
	close(job.done)

	slog.Info("run finished", "run_id", id, "status", status)

	if r.notifier != nil && rep != nil {
		event := webhook.NewRunEvent(rep)
		r.wg.Go(func() {
			ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
			defer cancel()
			if err := r.notifier.Notify(ctx, event); err != nil {
				slog.Error("webhook delivery failed", "run_id", id, "error", err)
			}
		})
	}
}
