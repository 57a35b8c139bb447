// Package visibility decides which publication states a read may see and the
// order in which entries are listed. Every content read obtains its status
// set from here.
package visibility

import (
	"strings"
	"time"

	"github.com/steppeindustrial/corpsite/internal/domain"
	"github.com/steppeindustrial/corpsite/internal/permissions"
)

// Context is the visibility input of a single read.
type Context struct {
	preview bool
}

// Public is the context of an ordinary visitor.
var Public = Context{}

// ContextFrom builds the read context for a session. Preview is honoured only
// when the caller asked for it and the session holds the content preview grant.
func ContextFrom(session permissions.Session, previewRequested bool) Context {
	return Context{preview: previewRequested && session.Allowed(permissions.ResourceContent, permissions.ActionPreview)}
}

// Preview reports whether drafts are visible.
func (c Context) Preview() bool {
	return c.preview
}

// EligibleStatuses returns the statuses a read with ctx may return.
func EligibleStatuses(ctx Context) []domain.Status {
	if ctx.preview {
		return []domain.Status{domain.StatusDraft, domain.StatusPublished}
	}
	return []domain.Status{domain.StatusPublished}
}

// Allows reports whether status is in statuses.
func Allows(statuses []domain.Status, status domain.Status) bool {
	for _, candidate := range statuses {
		if candidate == status {
			return true
		}
	}
	return false
}

// ParsePreviewFlag interprets the preview query parameter.
func ParsePreviewFlag(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// OrderTerm is one column of the listing order.
type OrderTerm struct {
	Column string
	Desc   bool
}

// DefaultOrder is the listing order shared by every repository: featured
// entries first, then order_index, newest first, id as the final tie-break.
var DefaultOrder = []OrderTerm{
	{Column: "is_featured", Desc: true},
	{Column: "order_index"},
	{Column: "created_at", Desc: true},
	{Column: "id"},
}

// OrderKey carries the values DefaultOrder compares.
type OrderKey struct {
	Featured   bool
	OrderIndex int
	CreatedAt  time.Time
	ID         string
}

// Compare orders a and b by DefaultOrder. It returns a negative number when a
// sorts first.
func Compare(a, b OrderKey) int {
	if a.Featured != b.Featured {
		if a.Featured {
			return -1
		}
		return 1
	}
	if a.OrderIndex != b.OrderIndex {
		if a.OrderIndex < b.OrderIndex {
			return -1
		}
		return 1
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	}
	return strings.Compare(a.ID, b.ID)
}
