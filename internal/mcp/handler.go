package mcp

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/neboloop/promptpulse/internal/logging"
	"github.com/neboloop/promptpulse/internal/middleware"
	"github.com/neboloop/promptpulse/internal/svc"
)

const sessionHeader = "Mcp-Session-Id"

type subjectKey struct{}

// Handler serves MCP over streamable HTTP. When the service has a signing
// secret every request needs a bearer token.
type Handler struct {
	svc         *svc.ServiceContext
	httpHandler http.Handler
	logger      *slog.Logger

	// sessionCache stores one server per session ID.
	sessionCache sync.Map // map[sessionID]*mcp.Server
}

// NewHandler creates the MCP HTTP handler.
func NewHandler(svcCtx *svc.ServiceContext) *Handler {
	h := &Handler{
		svc:    svcCtx,
		logger: logging.With("mcp"),
	}

	// Stateless: session IDs are tracked here, not by the SDK.
	streamHandler := mcp.NewStreamableHTTPHandler(
		h.getServerForRequest,
		&mcp.StreamableHTTPOptions{Stateless: true},
	)
	h.httpHandler = h.authMiddleware(streamHandler)
	return h
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.Header.Get(sessionHeader)
		if sessionID == "" {
			sessionID = uuid.New().String()
			r.Header.Set(sessionHeader, sessionID)
		}

		subject := ""
		if secret := h.svc.Secret(); secret != "" {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				h.writeUnauthorized(w, "missing bearer token")
				return
			}
			claims, err := middleware.ValidateToken(token, secret)
			if err != nil {
				h.writeUnauthorized(w, "invalid token")
				return
			}
			subject = claims.Subject
		}

		w.Header().Set(sessionHeader, sessionID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), subjectKey{}, subject)))
	})
}

func (h *Handler) writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="promptpulse"`)
	h.logger.Debug("mcp request rejected", "reason", msg)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

func (h *Handler) getServerForRequest(r *http.Request) *mcp.Server {
	sessionID := r.Header.Get(sessionHeader)
	if cached, ok := h.sessionCache.Load(sessionID); ok {
		return cached.(*mcp.Server)
	}

	h.logger.Debug("creating mcp server", "session", sessionID)
	subject, _ := r.Context().Value(subjectKey{}).(string)
	server := NewServer(h.svc, subject, sessionID)
	actual, _ := h.sessionCache.LoadOrStore(sessionID, server)
	return actual.(*mcp.Server)
}

// ServeHTTP handles all MCP HTTP requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.httpHandler.ServeHTTP(w, r)
}
