package contact

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Submission is the public contact form payload.
type Submission struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
	// Honeypot is a field hidden from people; bots fill it in.
	Honeypot string `json:"_hp"`
}

// Source describes where a submission came from.
type Source struct {
	IP        string
	UserAgent string
	Referer   string
}

// Key returns the rate limiter key of the source.
func (s Source) Key() string {
	if s.IP == "" {
		return "unknown"
	}
	return s.IP
}

// Request is a persisted contact request. It is written once and never
// updated.
type Request struct {
	bun.BaseModel `bun:"table:contact_requests,alias:cr"`

	ID        uuid.UUID      `bun:",pk,type:uuid" json:"id"`
	Name      string         `bun:"name,notnull" json:"name"`
	Phone     string         `bun:"phone,notnull" json:"phone"`
	Message   string         `bun:"message,notnull" json:"message"`
	Meta      map[string]any `bun:"meta,type:jsonb" json:"meta,omitempty"`
	CreatedAt time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// Meta keys recorded with every request.
const (
	MetaIP          = "ip"
	MetaUserAgent   = "user_agent"
	MetaReferer     = "referer"
	MetaSubmittedAt = "submitted_at"
)
