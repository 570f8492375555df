package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/dashcheck/config"
	"github.com/use-agent/dashcheck/models"
)

func fastRetries(t *testing.T) {
	t.Helper()
	oldWait, oldMax := retryWait, retryMaxWait
	retryWait, retryMaxWait = time.Millisecond, 5*time.Millisecond
	t.Cleanup(func() { retryWait, retryMaxWait = oldWait, oldMax })
}

func TestNew_NoURL(t *testing.T) {
	assert.Nil(t, New(config.WebhookConfig{Secret: "s"}))
}

func TestNotify_SignsBody(t *testing.T) {
	var got Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		sig := r.Header.Get(SignatureHeader)
		assert.Equal(t, Sign("s3cret", body), sig)
		assert.Contains(t, sig, "sha256=")
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := New(config.WebhookConfig{URL: srv.URL, Secret: "s3cret"})
	require.NoError(t, n.Notify(context.Background(), NewRunEvent(&models.RunReport{ID: "run-1", Passed: true})))

	assert.Equal(t, EventRunPassed, got.Type)
	assert.Equal(t, "run-1", got.RunID)
}

func TestNotify_NoSecretNoSignature(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get(SignatureHeader))
	}))
	defer srv.Close()

	ev := NewRunEvent(&models.RunReport{ID: "run-2"})
	assert.Equal(t, EventRunFailed, ev.Type)
	require.NoError(t, New(config.WebhookConfig{URL: srv.URL}).Notify(context.Background(), ev))
}

func TestNotify_ClientErrorNotRetried(t *testing.T) {
	fastRetries(t)
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := New(config.WebhookConfig{URL: srv.URL}).Notify(context.Background(), NewRunEvent(&models.RunReport{ID: "run-3"}))
	assert.ErrorContains(t, err, "status 400")
	assert.Equal(t, int32(1), calls.Load())
}

func TestNotify_RetriesServerErrors(t *testing.T) {
	fastRetries(t)
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := New(config.WebhookConfig{URL: srv.URL}).Notify(context.Background(), NewRunEvent(&models.RunReport{ID: "run-4"}))
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}
