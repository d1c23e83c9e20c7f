package mcp

import (
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/neboloop/promptpulse/internal/mcp/mcpctx"
	"github.com/neboloop/promptpulse/internal/mcp/tools"
	"github.com/neboloop/promptpulse/internal/svc"
)

// NewServer creates an MCP server with every tool registered. subject and
// sessionID are recorded on the tool context for logging.
func NewServer(svcCtx *svc.ServiceContext, subject, sessionID string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "promptpulse",
		Version: svc.Version,
	}, nil)

	toolCtx := mcpctx.NewToolContext(svcCtx, subject, uuid.New().String(), sessionID)

	tools.RegisterRunTool(server, toolCtx)
	tools.RegisterStatusTool(server, toolCtx)
	tools.RegisterRunsTool(server, toolCtx)
	tools.RegisterSettingsTool(server, toolCtx)

	return server
}
