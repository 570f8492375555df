package models

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

func TestRunError_WrapsCause(t *testing.T) {
	cause := errors.New("element not found")
	err := NewRunError(ErrCodeAuthFailed, "submit failed", cause)

	if !errors.Is(err, cause) {
		t.Error("RunError should unwrap to its cause")
	}
	if got := err.Error(); got != "AUTH_FAILED: submit failed: element not found" {
		t.Errorf("Error() = %q", got)
	}
	if d := err.ToDetail(); d.Code != ErrCodeAuthFailed || d.Message != "submit failed" {
		t.Errorf("ToDetail() = %+v", d)
	}
}

func TestAsRunError(t *testing.T) {
	existing := NewRunError(ErrCodeEmptyValue, "empty", nil)

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"keeps run error", fmt.Errorf("step: %w", existing), ErrCodeEmptyValue},
		{"deadline", fmt.Errorf("wait: %w", context.DeadlineExceeded), ErrCodeTimeout},
		{"canceled", context.Canceled, ErrCodeTimeout},
		{"other", errors.New("boom"), ErrCodeBrowserCrash},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AsRunError(tt.err, ErrCodeBrowserCrash, "msg")
			if got.Code != tt.want {
				t.Errorf("code = %s, want %s", got.Code, tt.want)
			}
		})
	}

	if AsRunError(nil, ErrCodeInternal, "x") != nil {
		t.Error("nil error should stay nil")
	}
}

func TestCredentials_LogValueRedactsPassword(t *testing.T) {
	var sb strings.Builder
	logger := slog.New(slog.NewTextHandler(&sb, nil))

	logger.Info("login", "creds", Credentials{Email: "a@b.c", Password: "hunter2"})

	out := sb.String()
	if strings.Contains(out, "hunter2") {
		t.Errorf("password leaked into log: %s", out)
	}
	if !strings.Contains(out, "a@b.c") {
		t.Errorf("email missing from log: %s", out)
	}
}
