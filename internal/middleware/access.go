package middleware

import (
	"context"
	"net/http"
	"strings"

	"creperie-promo/internal/domain"
	"creperie-promo/internal/observability"
)

type contextKey string

const (
	SessionKey contextKey = "access_session"

	// TokenHeader is the fallback header for clients that cannot set
	// Authorization (the kiosk's embedded browser).
	TokenHeader = "X-Access-Token"
)

// SessionLookup resolves an access token to its session.
type SessionLookup interface {
	GetByToken(ctx context.Context, token string) (*domain.AccessSession, error)
}

// RequireAccess guards secret-menu routes. The token comes from the
// Authorization Bearer header or X-Access-Token; any lookup failure
// leaves the caller locked out with a 401.
func RequireAccess(sessions SessionLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				http.Error(w, `{"error":"Not authorized"}`, http.StatusUnauthorized)
				return
			}

			session, err := sessions.GetByToken(r.Context(), token)
			if err != nil {
				http.Error(w, `{"error":"Invalid or expired access"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), SessionKey, session)
			ctx = observability.WithSessionID(ctx, session.ID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken pulls the access token off the request headers.
func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.Header.Get(TokenHeader))
}

// GetSession returns the session attached by RequireAccess.
func GetSession(ctx context.Context) (*domain.AccessSession, bool) {
	session, ok := ctx.Value(SessionKey).(*domain.AccessSession)
	return session, ok
}

// WithSession attaches a session to the context, for tests and internal
// calls that bypass the middleware.
func WithSession(ctx context.Context, session *domain.AccessSession) context.Context {
	return context.WithValue(ctx, SessionKey, session)
}
