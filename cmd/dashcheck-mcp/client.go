package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/use-agent/dashcheck/models"
	"github.com/use-agent/dashcheck/record"
)

// apiClient talks to a running dashcheck server.
type apiClient struct {
	http         *resty.Client
	pollInterval time.Duration
}

func newAPIClient(baseURL, apiKey string) *apiClient {
	return &apiClient{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetHeader("X-API-Key", apiKey).
			SetTimeout(30 * time.Second),
		pollInterval: 2 * time.Second,
	}
}

func (c *apiClient) do(ctx context.Context, method, path string, payload any) (*models.RunResponse, error) {
	var (
		out    models.RunResponse
		apiErr models.ErrorResponse
	)
	req := c.http.R().
		SetContext(ctx).
		ForceContentType("application/json").
		SetResult(&out).
		SetError(&apiErr)
	if payload != nil {
		req.SetBody(payload)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	if resp.IsError() {
		if apiErr.Error != nil {
			return nil, fmt.Errorf("[%s] %s", apiErr.Error.Code, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode())
	}
	return &out, nil
}

// start submits a run and returns its id.
func (c *apiClient) start(ctx context.Context, req models.RunRequest) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/runs", req)
	if err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("run creation failed")
	}
	return resp.ID, nil
}

func (c *apiClient) get(ctx context.Context, id string) (*models.RunResponse, error) {
	return c.do(ctx, http.MethodGet, "/api/v1/runs/"+id, nil)
}

// wait polls a run until it leaves the running state or ctx ends.
func (c *apiClient) wait(ctx context.Context, id string) (*models.RunResponse, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			resp, err := c.get(ctx, id)
			if err != nil {
				return nil, err
			}
			if resp.Status != "running" {
				return resp, nil
			}
		}
	}
}

// summarize renders a run for a tool result.
func summarize(resp *models.RunResponse) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Run %s: %s\n", resp.ID, resp.Status)
	if resp.Error != nil {
		fmt.Fprintf(&sb, "Error: [%s] %s\n", resp.Error.Code, resp.Error.Message)
	}

	rep := resp.Report
	if rep == nil {
		return sb.String()
	}
	fmt.Fprintf(&sb, "Attempts: %d, final state: %s, duration: %dms\n\n", rep.Attempts, rep.State, rep.DurationMs)

	for _, s := range rep.Steps {
		fmt.Fprintf(&sb, "- %s: %s", s.Name, s.Status)
		if s.Error != nil {
			fmt.Fprintf(&sb, " [%s] %s", s.Error.Code, s.Error.Message)
		}
		for _, w := range s.Warnings {
			fmt.Fprintf(&sb, " (warning: %s)", w)
		}
		sb.WriteString("\n")
	}

	if rep.Values != nil {
		sb.WriteString("\nValues:\n")
		for _, t := range rep.Values.Triples() {
			mark := ""
			if record.IsEmpty(t.Value) {
				mark = "  <empty>"
			}
			fmt.Fprintf(&sb, "  %s = %q%s\n", t.QualifiedKey(), t.Value, mark)
		}
	}
	if rep.Validation != nil && !rep.Validation.AllValuesValid {
		fmt.Fprintf(&sb, "\nEmpty values: %s\n", strings.Join(rep.Validation.EmptyValues, ", "))
	}
	return sb.String()
}
