package client

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/jwtauth/v5"

	"github.com/devicelink/delegate-idm/pkg/session"
)

// AdminSessionMiddleware resolves the bearer token to a live admin session and
// attaches the AuthAdmin to the request context. The JWT alone is not enough:
// the server-side session record decides, so logout and absolute expiry are
// enforced even for tokens that still verify.
func AdminSessionMiddleware(sessions *session.SessionService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := jwtauth.TokenFromHeader(r)
			if token == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			sess, err := sessions.Validate(r.Context(), token)
			if err != nil {
				if errors.Is(err, session.ErrSessionExpired) {
					http.Error(w, "session expired", http.StatusUnauthorized)
					return
				}
				http.Error(w, "invalid session", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), AuthAdminKey, AuthAdmin{
				AdminID:   sess.AdminID,
				SessionID: sess.ID,
				Token:     token,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
