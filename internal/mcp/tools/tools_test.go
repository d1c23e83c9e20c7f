package tools_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neboloop/promptpulse/internal/db"
	"github.com/neboloop/promptpulse/internal/mcp/mcpctx"
	"github.com/neboloop/promptpulse/internal/mcp/tools"
	"github.com/neboloop/promptpulse/internal/settings"
	"github.com/neboloop/promptpulse/internal/svc/svctest"
)

func connect(t *testing.T) (*svctest.Env, *mcp.ClientSession) {
	t.Helper()
	env := svctest.New(t, nil)
	ctx := context.Background()

	server := mcp.NewServer(&mcp.Implementation{Name: "test", Version: "v0"}, nil)
	toolCtx := mcpctx.NewToolContext(env.Svc, "tester", "req-1", "sess-1")
	tools.RegisterRunTool(server, toolCtx)
	tools.RegisterStatusTool(server, toolCtx)
	tools.RegisterRunsTool(server, toolCtx)
	tools.RegisterSettingsTool(server, toolCtx)

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "v0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return env, cs
}

func call(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any, out any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	if out != nil && !res.IsError {
		require.NotEmpty(t, res.Content)
		text, ok := res.Content[0].(*mcp.TextContent)
		require.True(t, ok)
		require.NoError(t, json.Unmarshal([]byte(text.Text), out))
	}
	return res
}

func TestToolsListed(t *testing.T) {
	_, cs := connect(t)

	res, err := cs.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"run_now", "get_status", "list_runs", "settings"}, names)
}

func TestSettingsTool(t *testing.T) {
	_, cs := connect(t)

	var got settings.Settings
	call(t, cs, "settings", map[string]any{}, &got)
	assert.Equal(t, settings.Defaults(), got)

	call(t, cs, "settings", map[string]any{
		"action":              "update",
		"prompt":              "status report",
		"quiet_hours_enabled": true,
	}, &got)
	assert.Equal(t, "status report", got.Prompt)
	assert.True(t, got.QuietHoursEnabled)
	assert.Equal(t, settings.DefaultStartHour, got.QuietStartHour)

	res := call(t, cs, "settings", map[string]any{"action": "update", "quiet_end_hour": 30}, nil)
	assert.True(t, res.IsError)

	res = call(t, cs, "settings", map[string]any{"action": "update"}, nil)
	assert.True(t, res.IsError)

	res = call(t, cs, "settings", map[string]any{"action": "explode"}, nil)
	assert.True(t, res.IsError)

	call(t, cs, "settings", map[string]any{"action": "reset"}, &got)
	assert.Equal(t, settings.Defaults(), got)
}

func TestRunNowAndListRuns(t *testing.T) {
	env, cs := connect(t)

	var started tools.RunNowOutput
	call(t, cs, "run_now", map[string]any{"prompt": "ping", "model": "claude-x"}, &started)
	require.NotEmpty(t, started.RunID)
	assert.Equal(t, "claude-x", started.Model)
	assert.Contains(t, started.TargetURL, "model=claude-x")

	require.Eventually(t, func() bool {
		r, err := env.Svc.DB.GetRun(context.Background(), started.RunID)
		return err == nil && r.Status == db.RunCompleted
	}, 2*time.Second, 5*time.Millisecond)

	var runs tools.ListRunsOutput
	call(t, cs, "list_runs", map[string]any{"limit": 5}, &runs)
	require.Equal(t, 1, runs.Count)
	assert.Equal(t, started.RunID, runs.Runs[0].ID)

	res := call(t, cs, "list_runs", map[string]any{"limit": 500}, nil)
	assert.True(t, res.IsError)
}

func TestStatusTool(t *testing.T) {
	_, cs := connect(t)

	var st struct {
		Active bool   `json:"active"`
		Text   string `json:"text"`
	}
	call(t, cs, "get_status", map[string]any{}, &st)
	assert.False(t, st.Active)
	assert.Equal(t, "Waiting for first run...", st.Text)
}
