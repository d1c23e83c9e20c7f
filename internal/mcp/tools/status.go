package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/neboloop/promptpulse/internal/db"
	"github.com/neboloop/promptpulse/internal/mcp/mcpctx"
)

// StatusInput takes no arguments.
type StatusInput struct{}

// RegisterStatusTool registers the get_status tool.
func RegisterStatusTool(server *mcp.Server, toolCtx *mcpctx.ToolContext) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_status",
		Title:       "Schedule Status",
		Description: "Report the next scheduled run, the countdown text and whether quiet hours are in effect.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, _ StatusInput) (*mcp.CallToolResult, any, error) {
		st, err := toolCtx.Svc().Status(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to compute status: %w", err)
		}
		return nil, st, nil
	})
}

// ListRunsInput defines input for list_runs.
type ListRunsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum number of runs, newest first (default 10)."`
}

// ListRunsOutput defines output for list_runs.
type ListRunsOutput struct {
	Count int      `json:"count"`
	Runs  []db.Run `json:"runs"`
}

// RegisterRunsTool registers the list_runs tool.
func RegisterRunsTool(server *mcp.Server, toolCtx *mcpctx.ToolContext) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_runs",
		Title:       "Run History",
		Description: "List recent automation runs with their trigger, status and outcome.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, input ListRunsInput) (*mcp.CallToolResult, any, error) {
		limit := input.Limit
		if limit <= 0 {
			limit = 10
		}
		if limit > 100 {
			return nil, nil, mcpctx.NewValidationError("limit must be at most 100", "limit")
		}
		runs, err := toolCtx.Svc().DB.ListRuns(ctx, limit)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list runs: %w", err)
		}
		if runs == nil {
			runs = []db.Run{}
		}
		return nil, ListRunsOutput{Count: len(runs), Runs: runs}, nil
	})
}
