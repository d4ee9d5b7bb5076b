package session

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"budgetfilter/internal/log"
)

// CookieName is the cookie carrying the session token.
const CookieName = "session_token"

type contextKey struct{}

// NewContext returns ctx carrying sess.
func NewContext(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, contextKey{}, sess)
}

// FromContext returns the session stored by RequireSession.
func FromContext(ctx context.Context) (Session, bool) {
	sess, ok := ctx.Value(contextKey{}).(Session)
	return sess, ok
}

// TokenFromRequest reads the bearer token, falling back to the cookie.
func TokenFromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		scheme, token, ok := strings.Cut(auth, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

// RequireSession rejects requests without a valid session. unauthorized
// writes the rejection; when nil a plain 401 is sent.
func RequireSession(store Store, unauthorized func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	if unauthorized == nil {
		unauthorized = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				unauthorized(w, r, ErrSessionNotFound)
				return
			}

			sess, err := store.Lookup(r.Context(), token)
			if err != nil {
				if !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, ErrSessionExpired) {
					log.FromContext(r.Context()).ErrorContext(r.Context(), "Session lookup failed",
						log.FieldError, err)
				}
				unauthorized(w, r, err)
				return
			}

			ctx := NewContext(r.Context(), sess)
			logger := log.FromContext(ctx).With(log.FieldSessionID, sess.ID, log.FieldUserID, sess.UserID)
			ctx = log.NewContext(ctx, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
