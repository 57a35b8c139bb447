package content

import (
	"encoding/json"
	"maps"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/steppeindustrial/corpsite/internal/domain"
	"github.com/steppeindustrial/corpsite/internal/visibility"
	"github.com/uptrace/bun"
)

// Entry is one locale variant of a content item. The locale rows of one item
// share kind and slug.
type Entry struct {
	bun.BaseModel `bun:"table:entries,alias:e"`

	ID          uuid.UUID      `bun:",pk,type:uuid" json:"id"`
	Kind        domain.Kind    `bun:"kind,notnull,unique:entries_kind_locale_slug" json:"kind"`
	Locale      string         `bun:"locale,notnull,unique:entries_kind_locale_slug" json:"locale"`
	Slug        string         `bun:"slug,notnull,unique:entries_kind_locale_slug" json:"slug"`
	Status      domain.Status  `bun:"status,notnull,default:'draft'" json:"status"`
	IsFeatured  bool           `bun:"is_featured,notnull,default:false" json:"is_featured"`
	OrderIndex  int            `bun:"order_index,notnull,default:0" json:"order_index"`
	Title       string         `bun:"title,notnull,default:''" json:"title"`
	Summary     string         `bun:"summary,notnull,default:''" json:"summary,omitempty"`
	Body        string         `bun:"body,notnull,default:''" json:"body,omitempty"`
	ImageURL    string         `bun:"image_url,notnull,default:''" json:"image_url,omitempty"`
	Attributes  map[string]any `bun:"attributes,type:jsonb" json:"attributes,omitempty"`
	PublishedAt *time.Time     `bun:"published_at,nullzero" json:"published_at,omitempty"`
	CreatedAt   time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// Column-backed field names. Every other field lives in Attributes.
const (
	columnTitle    = "title"
	columnSummary  = "summary"
	columnBody     = "body"
	columnImageURL = "image_url"
)

// IsColumnField reports whether field maps onto a dedicated column.
func IsColumnField(field string) bool {
	switch field {
	case columnTitle, columnSummary, columnBody, columnImageURL:
		return true
	}
	return false
}

// Get returns the value of a schema field.
func (e *Entry) Get(field string) any {
	switch field {
	case columnTitle:
		return e.Title
	case columnSummary:
		return e.Summary
	case columnBody:
		return e.Body
	case columnImageURL:
		return e.ImageURL
	}
	if e.Attributes == nil {
		return nil
	}
	return e.Attributes[field]
}

// Set stores a schema field. Timestamps are kept as RFC3339 strings so the
// value survives the JSON column unchanged; nil removes an attribute.
func (e *Entry) Set(field string, value any) {
	if IsColumnField(field) {
		text, _ := value.(string)
		switch field {
		case columnTitle:
			e.Title = text
		case columnSummary:
			e.Summary = text
		case columnBody:
			e.Body = text
		case columnImageURL:
			e.ImageURL = text
		}
		return
	}
	if value == nil {
		delete(e.Attributes, field)
		return
	}
	if ts, ok := value.(time.Time); ok {
		value = ts.UTC().Format(time.RFC3339)
	}
	if e.Attributes == nil {
		e.Attributes = map[string]any{}
	}
	e.Attributes[field] = value
}

// OrderKey returns the values used by the listing order.
func (e *Entry) OrderKey() visibility.OrderKey {
	return visibility.OrderKey{
		Featured:   e.IsFeatured,
		OrderIndex: e.OrderIndex,
		CreatedAt:  e.CreatedAt,
		ID:         e.ID.String(),
	}
}

func cloneEntry(e *Entry) *Entry {
	if e == nil {
		return nil
	}
	cloned := *e
	if e.Attributes != nil {
		cloned.Attributes = cloneAttributes(e.Attributes)
	}
	if e.PublishedAt != nil {
		ts := *e.PublishedAt
		cloned.PublishedAt = &ts
	}
	return &cloned
}

func cloneAttributes(in map[string]any) map[string]any {
	raw, err := json.Marshal(in)
	if err != nil {
		return maps.Clone(in)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return maps.Clone(in)
	}
	return out
}

// Fold merges the locale rows of one item into the suffixed admin shape
// (title_en, title_ru, ...). Shared values come from the first row in locale
// order.
func Fold(rows []*Entry, localized []string) map[string]any {
	if len(rows) == 0 {
		return nil
	}
	sorted := append([]*Entry(nil), rows...)
	sort.Slice(sorted, func(i, j int) bool { return localeRank(sorted[i].Locale) < localeRank(sorted[j].Locale) })

	head := sorted[0]
	out := map[string]any{
		"slug":         head.Slug,
		"status":       head.Status,
		"is_featured":  head.IsFeatured,
		"order_index":  head.OrderIndex,
		"published_at": head.PublishedAt,
	}
	isLocalized := make(map[string]bool, len(localized))
	for _, field := range localized {
		isLocalized[field] = true
	}
	for key, value := range head.Attributes {
		if !isLocalized[key] {
			out[key] = value
		}
	}
	if !isLocalized[columnImageURL] {
		out[columnImageURL] = head.ImageURL
	}

	ids := make(map[string]string, len(sorted))
	for _, row := range sorted {
		ids[row.Locale] = row.ID.String()
		for _, field := range localized {
			out[field+"_"+row.Locale] = row.Get(field)
		}
	}
	out["ids"] = ids
	return out
}

func localeRank(locale string) int {
	for idx, candidate := range domain.SupportedLocales {
		if candidate == locale {
			return idx
		}
	}
	return len(domain.SupportedLocales)
}
