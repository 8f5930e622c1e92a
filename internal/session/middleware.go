// ABOUTME: HTTP middleware that attaches a cookie-identified session handle
// ABOUTME: Issues a fresh uuid session id when the cookie is missing or invalid

package session

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// DefaultCookieName is used when the middleware is given no cookie name.
const DefaultCookieName = "recentviews_session"

// handleContextKey is the key type for storing a Handle in context.Context.
type handleContextKey struct{}

// WithHandle returns a new context carrying h.
func WithHandle(ctx context.Context, h *Handle) context.Context {
	return context.WithValue(ctx, handleContextKey{}, h)
}

// FromContext returns the session handle in ctx, or nil.
func FromContext(ctx context.Context) *Handle {
	h, _ := ctx.Value(handleContextKey{}).(*Handle)
	return h
}

// CookieOptions configures the session cookie.
type CookieOptions struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// Middleware resolves the session from its cookie, creating one when needed,
// and stores the bound handle in the request context.
func Middleware(backend Backend, opts CookieOptions, logger *slog.Logger) func(http.Handler) http.Handler {
	if opts.Name == "" {
		opts.Name = DefaultCookieName
	}
	if logger == nil {
		logger = slog.Default().With("component", "session")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(opts.Name); err == nil {
				if _, perr := uuid.Parse(c.Value); perr == nil {
					id = c.Value
				}
			}
			if id == "" {
				id = uuid.NewString()
				logger.Debug("issued new session", "session_id", id)
			}

			cookie := &http.Cookie{
				Name:     opts.Name,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				Secure:   opts.Secure,
				SameSite: http.SameSiteLaxMode,
			}
			if opts.TTL > 0 {
				cookie.MaxAge = int(opts.TTL / time.Second)
			}
			http.SetCookie(w, cookie)

			h := Bind(backend, id)
			next.ServeHTTP(w, r.WithContext(WithHandle(r.Context(), h)))
		})
	}
}
