package permissions

import (
	"context"
	"errors"
	"strings"
)

// Action names an operation guarded by a role check.
type Action string

const (
	ActionRead    Action = "read"
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionPublish Action = "publish"
	ActionPreview Action = "preview"
)

const (
	ResourceContent  = "content"
	ResourceContacts = "contact_requests"
)

var ErrPermissionDenied = errors.New("permissions: denied")

type Error struct {
	Permission string
}

func (e Error) Error() string {
	if strings.TrimSpace(e.Permission) == "" {
		return "permission denied"
	}
	return "permission denied: " + e.Permission
}

func (e Error) Unwrap() error {
	return ErrPermissionDenied
}

// Role is the coarse authorization level attached to a session.
type Role string

const (
	RoleNone   Role = "none"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

// ParseRole maps a claim value to a Role; unknown values become RoleNone.
func ParseRole(raw string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleEditor:
		return RoleEditor
	default:
		return RoleNone
	}
}

// IsStaff reports whether the role may use the admin surface and preview.
func (r Role) IsStaff() bool {
	return r == RoleEditor || r == RoleAdmin
}

// Join builds a permission token from resource and action.
func Join(resource string, action Action) string {
	res := normalizeToken(resource)
	act := normalizeToken(string(action))
	if res == "" || act == "" {
		return ""
	}
	return res + ":" + act
}

type Set map[string]struct{}

func NewSet(perms ...string) Set {
	set := Set{}
	for _, perm := range perms {
		if normalized := normalizeToken(perm); normalized != "" {
			set[normalized] = struct{}{}
		}
	}
	return set
}

func (s Set) Allowed(permission string) bool {
	if len(s) == 0 {
		return false
	}
	normalized := normalizeToken(permission)
	if normalized == "" {
		return false
	}
	if _, ok := s[normalized]; ok {
		return true
	}
	if resource, _, found := strings.Cut(normalized, ":"); found {
		if _, ok := s[resource+":*"]; ok {
			return true
		}
	}
	_, ok := s["*"]
	return ok
}

var roleGrants = map[Role]Set{
	RoleAdmin: NewSet("*"),
	RoleEditor: NewSet(
		ResourceContent+":*",
		Join(ResourceContacts, ActionRead),
	),
}

// Grants returns the permission set carried by role.
func Grants(role Role) Set {
	return roleGrants[role]
}

// Session is the identity attached to a request by the authentication layer.
type Session struct {
	UserID string
	Role   Role
}

// Anonymous is the session of an unauthenticated visitor.
var Anonymous = Session{Role: RoleNone}

// Authenticated reports whether the session belongs to a signed-in user.
func (s Session) Authenticated() bool {
	return s.UserID != "" && s.Role != RoleNone
}

// Allowed reports whether the session may perform action on resource.
func (s Session) Allowed(resource string, action Action) bool {
	if !s.Authenticated() {
		return false
	}
	return Grants(s.Role).Allowed(Join(resource, action))
}

type contextKey string

const sessionKey contextKey = "corpsite.permissions.session"

// WithSession stores the session on the context.
func WithSession(ctx context.Context, session Session) context.Context {
	if ctx == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionKey, session)
}

// SessionFromContext returns the stored session or Anonymous.
func SessionFromContext(ctx context.Context) Session {
	if ctx == nil {
		return Anonymous
	}
	if session, ok := ctx.Value(sessionKey).(Session); ok {
		return session
	}
	return Anonymous
}

// Require returns an Error unless the context session may perform action.
func Require(ctx context.Context, resource string, action Action) error {
	if SessionFromContext(ctx).Allowed(resource, action) {
		return nil
	}
	return Error{Permission: Join(resource, action)}
}

func normalizeToken(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
