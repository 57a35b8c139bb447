package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	ozzo "github.com/go-ozzo/ozzo-validation/v4"
)

var ErrInvalid = errors.New("validation: invalid payload")

// FieldError is a single field-level failure.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error reports every field failure of a payload at once.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrInvalid.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, field := range e.Fields {
		if field.Field == "" {
			parts = append(parts, field.Message)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", field.Field, field.Message))
	}
	return strings.Join(parts, "; ")
}

func (e *Error) Unwrap() error {
	return ErrInvalid
}

// NewFieldError builds an Error with a single failure.
func NewFieldError(field, code, message string) *Error {
	return &Error{Fields: []FieldError{{Field: field, Code: code, Message: message}}}
}

// FromOzzo converts ozzo-validation errors into an Error with fields sorted
// by name. It returns nil when errs holds no failures.
func FromOzzo(errs ozzo.Errors) *Error {
	if len(errs) == 0 {
		return nil
	}
	out := &Error{Fields: make([]FieldError, 0, len(errs))}
	for field, err := range errs {
		if err == nil {
			continue
		}
		out.Fields = append(out.Fields, toFieldError(field, err))
	}
	if len(out.Fields) == 0 {
		return nil
	}
	sort.Slice(out.Fields, func(i, j int) bool { return out.Fields[i].Field < out.Fields[j].Field })
	return out
}

// Fields extracts field failures from err. Errors that are not validation
// failures yield nil.
func Fields(err error) []FieldError {
	if err == nil {
		return nil
	}
	var validationErr *Error
	if errors.As(err, &validationErr) && validationErr != nil {
		return validationErr.Fields
	}
	var ozzoErrs ozzo.Errors
	if errors.As(err, &ozzoErrs) {
		if converted := FromOzzo(ozzoErrs); converted != nil {
			return converted.Fields
		}
	}
	return nil
}

func toFieldError(field string, err error) FieldError {
	var ruleErr ozzo.Error
	if errors.As(err, &ruleErr) {
		return FieldError{Field: field, Code: ruleErr.Code(), Message: ruleErr.Error()}
	}
	return FieldError{Field: field, Code: CodeInvalid, Message: err.Error()}
}

// Error codes produced outside ozzo's built-in rules.
const (
	CodeInvalid       = "validation_invalid"
	CodeInvalidType   = "validation_invalid_type"
	CodeInvalidDate   = "validation_invalid_date"
	CodeInvalidURL    = "validation_invalid_url"
	CodeInvalidSlug   = "validation_invalid_slug"
	CodeInvalidLocale = "validation_invalid_locale"
	CodeConflict      = "validation_conflict"
	CodeInFuture      = "validation_in_future"
	CodeImmutable     = "validation_immutable"
)
