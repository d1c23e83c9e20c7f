package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/neboloop/promptpulse/internal/httputil"
)

type contextKey string

const subjectKey contextKey = "subject"

// JWTMiddleware creates a chi middleware that validates tokens issued by
// IssueToken. The token comes from the Authorization header, or from the
// "token" query parameter for websocket upgrades that cannot set headers.
func JWTMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, msg := extractToken(r)
			if tokenString == "" {
				httputil.Unauthorized(w, msg)
				return
			}

			claims, err := ValidateToken(tokenString, secret)
			if err != nil {
				httputil.Unauthorized(w, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractToken(r *http.Request) (string, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if t := r.URL.Query().Get("token"); t != "" {
			return t, ""
		}
		return "", "missing authorization header"
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", "invalid authorization header format"
	}
	return strings.TrimSpace(parts[1]), "missing token"
}

// GetSubject extracts the token subject from context
func GetSubject(ctx context.Context) string {
	if v, ok := ctx.Value(subjectKey).(string); ok {
		return v
	}
	return ""
}
