package content

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrStatusesRequired = errors.New("content: query must name the visible statuses")
	ErrKindRequired     = errors.New("content: kind is required")
	ErrSlugConflict     = errors.New("content: slug already used for this kind and locale")
	ErrEntryNotFound    = errors.New("content: entry not found")
	ErrInvalidAttribute = errors.New("content: invalid attribute filter")
)

// NotFoundError is returned when a lookup yields no visible entry. Drafts
// hidden by the visibility policy produce the same error.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

func (e *NotFoundError) Unwrap() error {
	return ErrEntryNotFound
}

// MissingEntriesError lists ids a batch operation could not find. Nothing is
// written when it is returned.
type MissingEntriesError struct {
	IDs []uuid.UUID
}

func (e *MissingEntriesError) Error() string {
	ids := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		ids[i] = id.String()
	}
	return "content: unknown entries: " + strings.Join(ids, ", ")
}

func (e *MissingEntriesError) Unwrap() error {
	return ErrEntryNotFound
}
