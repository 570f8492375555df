package models

import (
	"time"

	"github.com/use-agent/dashcheck/record"
)

// Step statuses.
const (
	StepPassed  = "passed"
	StepFailed  = "failed"
	StepSkipped = "skipped"
)

// StepResult records the outcome of one scenario step.
type StepResult struct {
	Name       string       `json:"name"`
	Status     string       `json:"status"`
	DurationMs int64        `json:"duration_ms"`
	Error      *ErrorDetail `json:"error,omitempty"`

	// Warnings lists contained extraction failures (lenient mode only).
	Warnings []string `json:"warnings,omitempty"`
}

// PreflightInfo summarises the HTTP probe of the base URL.
type PreflightInfo struct {
	StatusCode   int    `json:"status_code"`
	Title        string `json:"title,omitempty"`
	LoginMarkup  bool   `json:"login_markup"`
	DurationMs   int64  `json:"duration_ms"`
	FinalURL     string `json:"final_url,omitempty"`
	Skipped      bool   `json:"skipped,omitempty"`
	SkippedCause string `json:"skipped_cause,omitempty"`
}

// RunReport is the full outcome of a run, including every attempt's final
// step table.
type RunReport struct {
	ID         string         `json:"id"`
	Passed     bool           `json:"passed"`
	Attempts   int            `json:"attempts"`
	State      string         `json:"state"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	DurationMs int64          `json:"duration_ms"`
	Steps      []StepResult   `json:"steps"`
	Values     *record.Record `json:"values"`
	Validation *record.Report `json:"validation,omitempty"`
	Preflight  *PreflightInfo `json:"preflight,omitempty"`
	Error      *ErrorDetail   `json:"error,omitempty"`
}

// RunResponse is the response for POST /api/v1/runs and GET /api/v1/runs/:id.
type RunResponse struct {
	ID     string       `json:"id"`
	Status string       `json:"status"` // "running", "passed", "failed"
	Report *RunReport   `json:"report,omitempty"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status     string `json:"status"` // "healthy" or "busy"
	Uptime     string `json:"uptime"`
	ActiveRuns int    `json:"active_runs"`
	MaxRuns    int    `json:"max_runs"`
	Version    string `json:"version"`
}

// ErrorResponse is the body of every rejected API request.
type ErrorResponse struct {
	Error *ErrorDetail `json:"error"`
}
