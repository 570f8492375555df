package preflight

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/dashcheck/models"
)

const loginPage = `<!doctype html>
<html><head><title> Admin Login </title></head>
<body><form>
<input type="email"><input type="password"><button type="submit">Sign in</button>
</form></body></html>`

func TestProbe(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    bool
		wantTitle  string
		wantMarkup bool
	}{
		{"login markup present", http.StatusOK, loginPage, false, "Admin Login", true},
		{"spa shell", http.StatusOK, `<html><head><title>App</title></head><body><div id="root"></div></body></html>`, false, "App", false},
		{"client error is informational", http.StatusNotFound, `<html><title>Missing</title></html>`, false, "Missing", false},
		{"server error fails", http.StatusBadGateway, "", true, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Contains(t, r.Header.Get("User-Agent"), "Chrome/")
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p, err := New(time.Second, `input[type="email"]`, `input[type="password"]`, `button[type="submit"]`)
			require.NoError(t, err)

			info, err := p.Probe(context.Background(), srv.URL)
			if tt.wantErr {
				var runErr *models.RunError
				require.True(t, errors.As(err, &runErr))
				assert.Equal(t, models.ErrCodePreflight, runErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.status, info.StatusCode)
			assert.Equal(t, tt.wantTitle, info.Title)
			assert.Equal(t, tt.wantMarkup, info.LoginMarkup)
		})
	}
}

func TestProbe_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p, err := New(time.Second)
	require.NoError(t, err)

	_, err = p.Probe(context.Background(), url)
	var runErr *models.RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, models.ErrCodePreflight, runErr.Code)
}

func TestNew_RejectsBadSelector(t *testing.T) {
	_, err := New(time.Second, "input[type=")
	assert.Error(t, err)
}
