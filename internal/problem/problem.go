// Package problem maps domain errors onto the stable error shape returned to
// clients.
package problem

import (
	"errors"
	"math"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/steppeindustrial/corpsite/internal/contact"
	"github.com/steppeindustrial/corpsite/internal/content"
	"github.com/steppeindustrial/corpsite/internal/permissions"
	"github.com/steppeindustrial/corpsite/internal/schema"
	"github.com/steppeindustrial/corpsite/internal/validation"
	"github.com/steppeindustrial/corpsite/internal/workflow"
)

// Kind classifies a failure.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindNotFound    Kind = "not_found"
	KindRateLimited Kind = "rate_limited"
	KindForbidden   Kind = "forbidden"
	KindBackend     Kind = "backend"
)

// Problem is the client-facing description of an error.
type Problem struct {
	Kind    Kind                    `json:"kind"`
	Message string                  `json:"message"`
	Fields  []validation.FieldError `json:"fields,omitempty"`
	Missing []string                `json:"missing,omitempty"`
	// RetryAfter is expressed in whole seconds, rounded up.
	RetryAfter int `json:"retry_after,omitempty"`
}

func (p Problem) Error() string {
	return string(p.Kind) + ": " + p.Message
}

// Status returns the HTTP status code of the problem kind.
func (p Problem) Status() int {
	switch p.Kind {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// From classifies err. Backend failures carry a generic message so storage
// details never reach clients.
func From(err error) Problem {
	if err == nil {
		return Problem{}
	}

	var (
		limited  *contact.RateLimitError
		reorder  *workflow.ReorderError
		missing  *content.MissingEntriesError
		notFound *content.NotFoundError
	)
	switch {
	case errors.As(err, &limited):
		return Problem{
			Kind:       KindRateLimited,
			Message:    "too many requests, try again later",
			RetryAfter: int(math.Ceil(limited.RetryAfter.Seconds())),
		}
	case errors.Is(err, validation.ErrInvalid):
		return Problem{Kind: KindValidation, Message: "the request contains invalid fields", Fields: validation.Fields(err)}
	case goerrors.IsCategory(err, goerrors.CategoryValidation):
		return Problem{Kind: KindValidation, Message: "the request is invalid", Fields: validation.Fields(err)}
	case errors.As(err, &reorder):
		return Problem{Kind: KindNotFound, Message: "some entries do not exist", Missing: idStrings(reorder.Missing)}
	case errors.As(err, &missing):
		return Problem{Kind: KindNotFound, Message: "some entries do not exist", Missing: idStrings(missing.IDs)}
	case errors.As(err, &notFound):
		return Problem{Kind: KindNotFound, Message: notFound.Error()}
	case errors.Is(err, content.ErrEntryNotFound), errors.Is(err, schema.ErrUnknownKind):
		return Problem{Kind: KindNotFound, Message: "not found"}
	case errors.Is(err, permissions.ErrPermissionDenied):
		return Problem{Kind: KindForbidden, Message: "forbidden"}
	case errors.Is(err, permissions.ErrMissingToken), errors.Is(err, permissions.ErrInvalidToken):
		return Problem{Kind: KindForbidden, Message: "authentication required"}
	default:
		return Problem{Kind: KindBackend, Message: "internal error"}
	}
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
