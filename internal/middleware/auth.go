package middleware

import (
	"context"
	"net/http"
)

type userContextKey struct{}

// SessionResolver maps a session ID to the username that owns it.
type SessionResolver func(ctx context.Context, sessionID string) (string, error)

// UnauthorizedHandler writes the response for requests without a valid session.
type UnauthorizedHandler func(w http.ResponseWriter, r *http.Request)

// RequireSession rejects requests whose session cookie is missing or cannot be
// resolved. On success the username is stored in the request context.
func RequireSession(cookieName string, resolve SessionResolver, deny UnauthorizedHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				deny(w, r)
				return
			}

			user, err := resolve(r.Context(), cookie.Value)
			if err != nil || user == "" {
				deny(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser returns a context carrying the authenticated username.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext returns the authenticated username, or "" if none.
func UserFromContext(ctx context.Context) string {
	if u, ok := ctx.Value(userContextKey{}).(string); ok {
		return u
	}
	return ""
}
