package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/steppeindustrial/corpsite/internal/permissions"
	"github.com/steppeindustrial/corpsite/pkg/interfaces"
)

// SessionCookie carries the bearer token for browser sessions.
const SessionCookie = "corpsite_session"

// Authenticator turns a bearer token into a session.
type Authenticator interface {
	Authenticate(token string) (permissions.Session, error)
}

// SessionMiddleware attaches the request session to the context. Requests
// without a token, or with one that fails verification, continue as
// anonymous so public reads keep working; guarded routes reject them later.
func SessionMiddleware(auth Authenticator, logger interfaces.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := permissions.Anonymous
			if auth != nil {
				resolved, err := auth.Authenticate(bearerToken(r))
				switch {
				case err == nil:
					session = resolved
				case errors.Is(err, permissions.ErrMissingToken):
				default:
					if logger != nil {
						logger.WithContext(r.Context()).Debug("http.session.rejected", "error", err)
					}
				}
			}
			next.ServeHTTP(w, r.WithContext(permissions.WithSession(r.Context(), session)))
		})
	}
}

// requireStaff rejects requests whose session may not use the admin surface.
func requireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := permissions.SessionFromContext(r.Context())
		if !session.Authenticated() || !session.Role.IsStaff() {
			writeError(w, r, nil, permissions.Error{Permission: "admin"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}
