package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// AuthContextKey is the key for storing AuthContext in request context
	AuthContextKey ContextKey = "authContext"
)

// SessionResolver turns a bearer token into an authentication context.
type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (*AuthContext, error)
}

// ExtractToken pulls the bearer token out of an Authorization header value.
// Returns the empty string when the header is missing or malformed.
func ExtractToken(authHeader string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(authHeader, prefix) {
		return ""
	}
	return strings.TrimSpace(authHeader[len(prefix):])
}

// Middleware resolves the request's bearer token and injects the resulting
// AuthContext. Requests with no token or an invalid one proceed without a
// context; handlers that need auth check for it (or sit behind RequireAuth).
func Middleware(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r.Header.Get("Authorization"))
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			authCtx, err := resolver.ResolveSession(r.Context(), token)
			if err != nil {
				if !errors.Is(err, ErrInvalidSession) {
					slog.Warn("session resolution failed", "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), AuthContextKey, authCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAuthContext extracts the AuthContext from a request context.
// Returns nil if no auth context is available (request had no valid token).
func GetAuthContext(ctx context.Context) *AuthContext {
	authCtx, ok := ctx.Value(AuthContextKey).(*AuthContext)
	if !ok {
		return nil
	}
	return authCtx
}

// RequireAuth wraps a handler chain so requests without a resolved session
// get 401 before reaching it.
func RequireAuth(resolver SessionResolver) func(http.Handler) http.Handler {
	authMiddleware := Middleware(resolver)

	return func(next http.Handler) http.Handler {
		return authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetAuthContext(r.Context()) == nil {
				slog.Warn("authentication required but not provided",
					"method", r.Method,
					"path", r.URL.Path,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","message":"authentication required"}`))
				return
			}

			next.ServeHTTP(w, r)
		}))
	}
}
