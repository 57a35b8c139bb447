package workflow

import (
	"strings"

	"github.com/google/uuid"
	"github.com/steppeindustrial/corpsite/internal/content"
)

// ReorderError names every id a reorder request referenced that does not
// exist for the kind. No order index is changed when it is returned.
type ReorderError struct {
	Missing []uuid.UUID
}

func (e *ReorderError) Error() string {
	ids := make([]string, len(e.Missing))
	for i, id := range e.Missing {
		ids[i] = id.String()
	}
	return "workflow: reorder references unknown entries: " + strings.Join(ids, ", ")
}

func (e *ReorderError) Unwrap() error {
	return content.ErrEntryNotFound
}
