package content

import (
	"context"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/steppeindustrial/corpsite/internal/domain"
)

// Query filters a list read. Statuses is mandatory and must come from the
// visibility policy.
type Query struct {
	Kind     domain.Kind
	Locale   string
	Statuses []domain.Status
	Slugs    []string
	// Search is matched case-insensitively as a substring of SearchFields.
	Search       string
	SearchFields []string
	// Attributes are equality filters compared on the string form of the
	// stored value.
	Attributes map[string]string
	Featured   *bool
	Page       int
	PageSize   int
}

// Offset returns the zero-based row offset of the requested page.
func (q Query) Offset() int {
	if q.Page <= 1 {
		return 0
	}
	return (q.Page - 1) * q.PageSize
}

// OrderUpdate assigns a new order index to an entry.
type OrderUpdate struct {
	ID         uuid.UUID `json:"id"`
	OrderIndex int       `json:"order_index"`
}

// Batch groups writes that must succeed or fail together.
type Batch struct {
	Create []*Entry
	Update []*Entry
	Delete []uuid.UUID
}

// Empty reports whether the batch holds no writes.
func (b Batch) Empty() bool {
	return len(b.Create) == 0 && len(b.Update) == 0 && len(b.Delete) == 0
}

// Repository persists entries. Implementations must be safe for concurrent
// use, and every write must be atomic.
type Repository interface {
	List(ctx context.Context, query Query) ([]*Entry, int, error)
	GetBySlug(ctx context.Context, kind domain.Kind, locale, slug string, statuses []domain.Status) (*Entry, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	// ListGroup returns every locale row of an item regardless of status.
	ListGroup(ctx context.Context, kind domain.Kind, slug string) ([]*Entry, error)
	Create(ctx context.Context, entry *Entry) (*Entry, error)
	Update(ctx context.Context, entry *Entry) (*Entry, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// Apply performs every write of the batch in one transaction.
	Apply(ctx context.Context, batch Batch) error
	// Reorder verifies that every id exists for kind and then applies all
	// updates, or applies none and returns *MissingEntriesError.
	Reorder(ctx context.Context, kind domain.Kind, updates []OrderUpdate, at time.Time) error
}

var attributeKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

func validateQuery(query Query) error {
	if query.Kind == "" {
		return ErrKindRequired
	}
	if len(query.Statuses) == 0 {
		return ErrStatusesRequired
	}
	for key := range query.Attributes {
		if !attributeKeyPattern.MatchString(key) {
			return ErrInvalidAttribute
		}
	}
	for _, field := range query.SearchFields {
		if !attributeKeyPattern.MatchString(field) {
			return ErrInvalidAttribute
		}
	}
	return nil
}
