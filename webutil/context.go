package webutil

import (
	"context"

	"github.com/jfarrow/inboxpilot/models"
)

type contextKey int

const userContextKey contextKey = iota

// WithUser stores the authenticated user on the request context.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the authenticated user, or nil when the request
// did not pass through the auth middleware.
func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userContextKey).(*models.User)
	return user
}
