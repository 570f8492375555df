// Package webhook notifies an endpoint when a run finishes.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/use-agent/dashcheck/config"
	"github.com/use-agent/dashcheck/models"
)

// Event types.
const (
	EventRunPassed = "run.passed"
	EventRunFailed = "run.failed"
)

// SignatureHeader carries "sha256=<hex>" of the body when a secret is set.
const SignatureHeader = "X-Dashcheck-Signature"

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string            `json:"type"`
	RunID     string            `json:"run_id"`
	Timestamp int64             `json:"timestamp"`
	Data      *models.RunReport `json:"data"`
}

// NewRunEvent builds the event for a finished run.
func NewRunEvent(rep *models.RunReport) *Event {
	typ := EventRunFailed
	if rep.Passed {
		typ = EventRunPassed
	}
	return &Event{Type: typ, RunID: rep.ID, Timestamp: time.Now().Unix(), Data: rep}
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Notifier posts run events to one endpoint. Transport errors and 5xx
// responses are retried with backoff; 4xx responses are not.
type Notifier struct {
	url    string
	secret string
	http   *resty.Client
}

// Retry policy. Waits grow from retryWait up to retryMaxWait.
var (
	retryCount   = 3
	retryWait    = 1 * time.Second
	retryMaxWait = 30 * time.Second
)

// New returns a Notifier for cfg, or nil when no URL is configured.
func New(cfg config.WebhookConfig) *Notifier {
	if cfg.URL == "" {
		return nil
	}
	c := resty.New().
		SetTimeout(10*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "Dashcheck-Webhook/1.0").
		SetRetryCount(retryCount).
		SetRetryWaitTime(retryWait).
		SetRetryMaxWaitTime(retryMaxWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})
	return &Notifier{url: cfg.URL, secret: cfg.Secret, http: c}
}

// Notify delivers event, retrying until it succeeds, the retries run out or
// ctx ends.
func (n *Notifier) Notify(ctx context.Context, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req := n.http.R().SetContext(ctx).SetBody(body)
	if n.secret != "" {
		req.SetHeader(SignatureHeader, Sign(n.secret, body))
	}

	resp, err := req.Post(n.url)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook: endpoint returned status %d after %d attempts", resp.StatusCode(), resp.Request.Attempt)
	}
	slog.Info("webhook delivered",
		"url", n.url,
		"event", event.Type,
		"run_id", event.RunID,
		"attempt", resp.Request.Attempt,
	)
	return nil
}
