// Package schema holds the per-kind field descriptors that drive payload
// validation, search and filtering.
package schema

import (
	"errors"
	"fmt"

	"github.com/steppeindustrial/corpsite/internal/domain"
)

var ErrUnknownKind = errors.New("schema: unknown content kind")

// FieldType drives coercion of raw payload values.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeText   FieldType = "text"
	TypeURL    FieldType = "url"
	TypeInt    FieldType = "int"
	TypeBool   FieldType = "bool"
	TypeDate   FieldType = "date"
	TypeEnum   FieldType = "enum"
	TypeSlug   FieldType = "slug"
)

// Layout describes how localized values arrive in admin payloads.
type Layout string

const (
	// LayoutRows expects one payload per locale with an explicit locale field.
	LayoutRows Layout = "rows"
	// LayoutSuffixed expects every locale in one payload as field_<locale> keys.
	LayoutSuffixed Layout = "suffixed"
)

// Field describes a single payload field.
type Field struct {
	Name       string
	Type       FieldType
	Required   bool
	Localized  bool
	Enum       []string
	MinLength  int
	MaxLength  int
	Searchable bool
	Filterable bool
	Markdown   bool
}

// Descriptor is the schema of one content kind.
type Descriptor struct {
	Kind            domain.Kind
	Layout          Layout
	Fields          []Field
	DefaultPageSize int
}

// Common field names shared by every kind.
const (
	FieldSlug        = "slug"
	FieldLocale      = "locale"
	FieldStatus      = "status"
	FieldFeatured    = "is_featured"
	FieldOrderIndex  = "order_index"
	FieldPublishedAt = "published_at"
	FieldTitle       = "title"
	FieldSummary     = "summary"
	FieldBody        = "body"
	FieldImageURL    = "image_url"
)

// MaxPageSize caps every list request.
const MaxPageSize = 100

var commonFields = []Field{
	{Name: FieldSlug, Type: TypeSlug, MaxLength: 160},
	{Name: FieldStatus, Type: TypeEnum, Enum: []string{string(domain.StatusDraft), string(domain.StatusPublished)}},
	{Name: FieldFeatured, Type: TypeBool},
	{Name: FieldOrderIndex, Type: TypeInt},
	{Name: FieldPublishedAt, Type: TypeDate},
}

// Field returns the named field, including the common ones.
func (d Descriptor) Field(name string) (Field, bool) {
	for _, field := range d.AllFields() {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

// AllFields returns the common fields followed by the kind's own fields.
func (d Descriptor) AllFields() []Field {
	out := make([]Field, 0, len(commonFields)+len(d.Fields))
	out = append(out, commonFields...)
	out = append(out, d.Fields...)
	return out
}

// LocalizedFields lists the names of fields resolved per locale.
func (d Descriptor) LocalizedFields() []string {
	return d.names(func(f Field) bool { return f.Localized })
}

// SharedFields lists kind fields that hold one value for every locale.
func (d Descriptor) SharedFields() []string {
	return d.names(func(f Field) bool { return !f.Localized })
}

// SearchableFields lists the fields free-text search matches against.
func (d Descriptor) SearchableFields() []string {
	return d.names(func(f Field) bool { return f.Searchable })
}

// FilterableFields lists attribute fields accepted as equality filters.
func (d Descriptor) FilterableFields() []string {
	return d.names(func(f Field) bool { return f.Filterable })
}

// MarkdownFields lists fields rendered to HTML on public views.
func (d Descriptor) MarkdownFields() []string {
	return d.names(func(f Field) bool { return f.Markdown })
}

// IsFilterable reports whether name may be used as a list filter.
func (d Descriptor) IsFilterable(name string) bool {
	field, ok := d.Field(name)
	return ok && field.Filterable
}

// PageSize clamps a requested page size, substituting the kind default for
// non-positive values.
func (d Descriptor) PageSize(requested int) int {
	if requested <= 0 {
		requested = d.DefaultPageSize
	}
	if requested <= 0 {
		requested = 10
	}
	if requested > MaxPageSize {
		requested = MaxPageSize
	}
	return requested
}

func (d Descriptor) names(keep func(Field) bool) []string {
	var out []string
	for _, field := range d.Fields {
		if keep(field) {
			out = append(out, field.Name)
		}
	}
	return out
}

// Registry maps kinds to descriptors.
type Registry struct {
	descriptors map[domain.Kind]Descriptor
}

// NewRegistry builds a registry. Duplicate kinds are rejected.
func NewRegistry(descriptors ...Descriptor) (*Registry, error) {
	registry := &Registry{descriptors: make(map[domain.Kind]Descriptor, len(descriptors))}
	for _, descriptor := range descriptors {
		if _, exists := registry.descriptors[descriptor.Kind]; exists {
			return nil, fmt.Errorf("schema: duplicate descriptor for kind %q", descriptor.Kind)
		}
		if descriptor.Layout == "" {
			descriptor.Layout = LayoutRows
		}
		registry.descriptors[descriptor.Kind] = descriptor
	}
	return registry, nil
}

// Lookup returns the descriptor for kind.
func (r *Registry) Lookup(kind domain.Kind) (Descriptor, error) {
	if r == nil {
		return Descriptor{}, ErrUnknownKind
	}
	descriptor, ok := r.descriptors[kind]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return descriptor, nil
}

