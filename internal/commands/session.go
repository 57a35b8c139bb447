package commands

import (
	"context"

	"github.com/steppeindustrial/corpsite/internal/permissions"
)

// SystemUserID identifies writes made by commands run outside a request.
const SystemUserID = "system"

// WithSystemSession keeps an authenticated session already on ctx and
// otherwise attaches the admin session used by CLI and scheduled runs.
func WithSystemSession(ctx context.Context) context.Context {
	if permissions.SessionFromContext(ctx).Authenticated() {
		return ctx
	}
	return permissions.WithSession(ctx, permissions.Session{UserID: SystemUserID, Role: permissions.RoleAdmin})
}
