package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/neboloop/promptpulse/internal/logging"
	"github.com/neboloop/promptpulse/internal/mcp/mcpctx"
)

// RunNowInput defines input for the run_now tool.
type RunNowInput struct {
	Prompt string `json:"prompt,omitempty" jsonschema:"Prompt to send. Defaults to the stored prompt."`
	Model  string `json:"model,omitempty" jsonschema:"Model identifier. Defaults to the stored model."`
}

// RunNowOutput defines output for run_now.
type RunNowOutput struct {
	RunID     string `json:"run_id"`
	Model     string `json:"model"`
	TargetURL string `json:"target_url"`
	Status    string `json:"status"`
}

// RegisterRunTool registers the run_now tool.
func RegisterRunTool(server *mcp.Server, toolCtx *mcpctx.ToolContext) {
	mcp.AddTool(server, &mcp.Tool{
		Name:  "run_now",
		Title: "Run Immediately",
		Description: `Open the chat page in a new tab and send the prompt now, ignoring quiet hours.

The run continues in the background; use list_runs to see how it finished.`,
	}, runNowHandler(toolCtx))
}

func runNowHandler(toolCtx *mcpctx.ToolContext) func(ctx context.Context, req *mcp.CallToolRequest, input RunNowInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input RunNowInput) (*mcp.CallToolResult, any, error) {
		logging.With("mcp").Info("run requested",
			"session", toolCtx.SessionID(),
			"subject", toolCtx.Subject(),
			"request", toolCtx.RequestID())

		run, err := toolCtx.Svc().RunNow(ctx, input.Prompt, input.Model)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to start run: %w", err)
		}
		return nil, RunNowOutput{
			RunID:     run.ID,
			Model:     run.Model,
			TargetURL: run.TargetURL,
			Status:    run.Status,
		}, nil
	}
}
