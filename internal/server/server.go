package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/neboloop/promptpulse/internal/handler"
	"github.com/neboloop/promptpulse/internal/handler/messages"
	"github.com/neboloop/promptpulse/internal/handler/runs"
	"github.com/neboloop/promptpulse/internal/handler/schedule"
	"github.com/neboloop/promptpulse/internal/handler/settings"
	"github.com/neboloop/promptpulse/internal/logging"
	"github.com/neboloop/promptpulse/internal/mcp"
	"github.com/neboloop/promptpulse/internal/middleware"
	"github.com/neboloop/promptpulse/internal/svc"
	"github.com/neboloop/promptpulse/internal/websocket"
)

// ServerOptions holds optional server behaviour
type ServerOptions struct {
	Quiet bool // Suppress request logging and startup messages
}

// Run serves the API until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, svcCtx *svc.ServiceContext, opts ...ServerOptions) error {
	var o ServerOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	c := svcCtx.Config()

	ln, err := net.Listen("tcp", c.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s (is another promptpulse running?): %w", c.Addr(), err)
	}

	// No ReadTimeout/WriteTimeout: they would cut hijacked websocket connections.
	httpServer := &http.Server{
		Handler:     NewRouter(svcCtx, o),
		IdleTimeout: 120 * time.Second,
	}

	if !o.Quiet {
		fmt.Printf("Server ready at %s\n", c.BaseURL())
	}
	logging.Info("http server listening", "addr", ln.Addr().String(), "auth", svcCtx.Secret() != "", "mcp", c.MCP.Enabled)

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	if !o.Quiet {
		fmt.Println("\nShutting down server gracefully...")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// NewRouter builds the chi router for svcCtx.
func NewRouter(svcCtx *svc.ServiceContext, o ServerOptions) http.Handler {
	r := chi.NewRouter()

	if !o.Quiet {
		r.Use(chimw.Logger)
	}
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(corsMiddleware())

	r.Get("/health", handler.HealthCheckHandler(svcCtx))

	secret := svcCtx.Secret()
	r.Group(func(r chi.Router) {
		if secret != "" {
			r.Use(middleware.JWTMiddleware(secret))
		}
		r.Route("/api/v1", func(r chi.Router) {
			r.Use(securityHeadersMiddleware())
			registerAPIRoutes(r, svcCtx)
		})
		r.Get("/ws", websocket.Handler(svcCtx.Hub))
	})

	if svcCtx.Config().MCP.Enabled {
		mcpHandler := mcp.NewHandler(svcCtx)
		r.Handle("/mcp", mcpHandler)
		r.Handle("/mcp/*", mcpHandler)
	}
	return r
}

func registerAPIRoutes(r chi.Router, svcCtx *svc.ServiceContext) {
	r.Get("/settings", settings.GetSettingsHandler(svcCtx))
	r.Put("/settings", settings.UpdateSettingsHandler(svcCtx))
	r.Patch("/settings", settings.PatchSettingsHandler(svcCtx))
	r.Post("/settings/reset", settings.ResetSettingsHandler(svcCtx))

	r.Get("/status", schedule.GetStatusHandler(svcCtx))
	r.Post("/schedule/reset", schedule.ResetScheduleHandler(svcCtx))

	r.Get("/runs", runs.ListRunsHandler(svcCtx))
	r.Post("/runs", runs.RunNowHandler(svcCtx))
	r.Get("/runs/{id}", runs.GetRunHandler(svcCtx))

	r.Get("/messages", messages.ListActionsHandler(svcCtx))
	r.Post("/messages", messages.SendMessageHandler(svcCtx))
}

func securityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer")
			w.Header().Set("Cache-Control", "no-store")
			next.ServeHTTP(w, r)
		})
	}
}

// corsMiddleware only answers localhost origins; promptpulse is a local daemon.
func corsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && middleware.IsLocalhostOrigin(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Mcp-Session-Id")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
