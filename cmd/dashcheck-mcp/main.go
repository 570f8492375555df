// Command dashcheck-mcp exposes a dashcheck server to MCP clients over stdio.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/dashcheck/models"
)

func main() {
	apiURL := os.Getenv("DASHCHECK_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("DASHCHECK_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "DASHCHECK_API_KEY is required")
		os.Exit(1)
	}

	client := newAPIClient(apiURL, apiKey)
	s := server.NewMCPServer(
		"dashcheck",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	runTool := mcp.NewTool("run_customer_flow",
		mcp.WithDescription("Log into the admin dashboard, open the Customer module, scrape its metrics and first customer row, and check that no value is empty. Waits for the run to finish."),
		mcp.WithString("email",
			mcp.Description("Login email (default: server configuration)"),
		),
		mcp.WithString("password",
			mcp.Description("Login password, used together with email"),
		),
		mcp.WithBoolean("strict",
			mcp.Description("Fail the run on any extraction error instead of keeping partial values"),
		),
		mcp.WithNumber("timeout",
			mcp.Description("Per-attempt timeout in seconds (max 600)"),
		),
		mcp.WithNumber("retries",
			mcp.Description("Whole-run retries (max 5)"),
		),
	)
	s.AddTool(runTool, handleRunCustomerFlow(client))

	getTool := mcp.NewTool("get_run",
		mcp.WithDescription("Fetch the status and report of a previous run."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Run id returned by run_customer_flow"),
		),
	)
	s.AddTool(getTool, handleGetRun(client))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleRunCustomerFlow(c *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		req := models.RunRequest{
			Email:    request.GetString("email", ""),
			Password: request.GetString("password", ""),
			Timeout:  request.GetInt("timeout", 0),
		}
		args := request.GetArguments()
		if _, ok := args["strict"]; ok {
			strict := request.GetBool("strict", false)
			req.Strict = &strict
		}
		if _, ok := args["retries"]; ok {
			retries := request.GetInt("retries", 0)
			req.Retries = &retries
		}

		id, err := c.start(ctx, req)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("run request failed: %v", err)), nil
		}

		wctx, cancel := context.WithTimeout(ctx, 30*time.Minute)
		defer cancel()
		resp, err := c.wait(wctx, id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("polling run %s failed: %v", id, err)), nil
		}

		if resp.Status != "passed" {
			return mcp.NewToolResultError(summarize(resp)), nil
		}
		return mcp.NewToolResultText(summarize(resp)), nil
	}
}

func handleGetRun(c *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError("id is required"), nil
		}
		resp, err := c.get(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("get run failed: %v", err)), nil
		}
		return mcp.NewToolResultText(summarize(resp)), nil
	}
}
