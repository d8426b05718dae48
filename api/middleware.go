package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/jfarrow/inboxpilot/models"
	"github.com/jfarrow/inboxpilot/webutil"
)

// UserSource resolves API tokens to users.
type UserSource interface {
	GetUserByAPIToken(ctx context.Context, token string) (*models.User, error)
}

// RequireAuth authenticates requests by bearer token and stores the
// resolved user on the request context.
func RequireAuth(users UserSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				webutil.RespondWithError(w, http.StatusUnauthorized, "Missing bearer token")
				return
			}

			user, err := users.GetUserByAPIToken(r.Context(), token)
			if err != nil {
				webutil.RespondWithError(w, http.StatusUnauthorized, "Invalid bearer token")
				return
			}

			next.ServeHTTP(w, r.WithContext(webutil.WithUser(r.Context(), user)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get(webutil.HeaderAuthorization)
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}
