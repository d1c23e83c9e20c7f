package mcpctx

import "github.com/neboloop/promptpulse/internal/svc"

// ToolContext carries the service and request metadata into tool handlers.
type ToolContext struct {
	svc       *svc.ServiceContext
	subject   string
	requestID string
	sessionID string
}

// NewToolContext creates a tool context for one MCP server instance.
func NewToolContext(svc *svc.ServiceContext, subject, requestID, sessionID string) *ToolContext {
	return &ToolContext{
		svc:       svc,
		subject:   subject,
		requestID: requestID,
		sessionID: sessionID,
	}
}

// Svc returns the service context.
func (t *ToolContext) Svc() *svc.ServiceContext {
	return t.svc
}

// Subject is the token subject, empty when auth is disabled.
func (t *ToolContext) Subject() string {
	return t.subject
}

func (t *ToolContext) RequestID() string {
	return t.requestID
}

func (t *ToolContext) SessionID() string {
	return t.sessionID
}

// ToolError represents a structured error for MCP tool responses.
type ToolError struct {
	Code    string `json:"code"`    // "not_found", "validation"
	Message string `json:"message"` // Human-readable description
	Field   string `json:"field"`   // For validation errors
}

func (e *ToolError) Error() string {
	if e.Field != "" {
		return e.Code + ": " + e.Message + " (field: " + e.Field + ")"
	}
	return e.Code + ": " + e.Message
}

// NewValidationError creates a validation error for a specific field.
func NewValidationError(message, field string) *ToolError {
	return &ToolError{Code: "validation", Message: message, Field: field}
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(message string) *ToolError {
	return &ToolError{Code: "not_found", Message: message}
}
