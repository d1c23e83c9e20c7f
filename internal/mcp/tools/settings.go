package tools

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/neboloop/promptpulse/internal/mcp/mcpctx"
	"github.com/neboloop/promptpulse/internal/settings"
)

var settingsActions = []string{"get", "update", "reset"}

// SettingsInput defines input for the settings tool.
type SettingsInput struct {
	Action string `json:"action,omitempty" jsonschema:"Action: get, update, reset (default get)"`

	// Update
	Prompt            *string `json:"prompt,omitempty" jsonschema:"Prompt text sent on each run."`
	Model             *string `json:"model,omitempty" jsonschema:"Model identifier put in the target URL."`
	QuietHoursEnabled *bool   `json:"quiet_hours_enabled,omitempty" jsonschema:"Skip runs inside the quiet window."`
	QuietStartHour    *int    `json:"quiet_start_hour,omitempty" jsonschema:"Quiet window start hour, 0-23."`
	QuietEndHour      *int    `json:"quiet_end_hour,omitempty" jsonschema:"Quiet window end hour, 0-23."`
}

func (in SettingsInput) patch() settings.Patch {
	return settings.Patch{
		Prompt:            in.Prompt,
		Model:             in.Model,
		QuietHoursEnabled: in.QuietHoursEnabled,
		QuietStartHour:    in.QuietStartHour,
		QuietEndHour:      in.QuietEndHour,
	}
}

// RegisterSettingsTool registers the settings tool.
func RegisterSettingsTool(server *mcp.Server, toolCtx *mcpctx.ToolContext) {
	mcp.AddTool(server, &mcp.Tool{
		Name:  "settings",
		Title: "Prompt Settings",
		Description: `Read or change the stored run settings.

Actions:
- get: Return the current settings
- update: Change any of prompt, model, quiet_hours_enabled, quiet_start_hour, quiet_end_hour
- reset: Restore the defaults

Examples:
  settings(action: get)
  settings(action: update, prompt: "Summarise today's news", quiet_hours_enabled: true)
  settings(action: reset)`,
	}, settingsHandler(toolCtx))
}

func settingsHandler(toolCtx *mcpctx.ToolContext) func(ctx context.Context, req *mcp.CallToolRequest, input SettingsInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SettingsInput) (*mcp.CallToolResult, any, error) {
		if input.Action == "" {
			input.Action = "get"
		}
		if !slices.Contains(settingsActions, input.Action) {
			return nil, nil, mcpctx.NewValidationError(
				fmt.Sprintf("invalid action '%s', must be: %s", input.Action, strings.Join(settingsActions, ", ")),
				"action")
		}

		svc := toolCtx.Svc().Settings
		switch input.Action {
		case "update":
			p := input.patch()
			if p.Empty() {
				return nil, nil, mcpctx.NewValidationError("update needs at least one field", "action")
			}
			set, err := svc.Update(ctx, p)
			if errors.Is(err, settings.ErrInvalidHour) {
				return nil, nil, mcpctx.NewValidationError(err.Error(), "quiet_hours")
			}
			if err != nil {
				return nil, nil, fmt.Errorf("failed to update settings: %w", err)
			}
			return nil, set, nil
		case "reset":
			set, err := svc.Reset(ctx)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to reset settings: %w", err)
			}
			return nil, set, nil
		default:
			set, err := svc.Load(ctx)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to load settings: %w", err)
			}
			return nil, set, nil
		}
	}
}
