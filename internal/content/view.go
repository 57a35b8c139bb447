package content

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/steppeindustrial/corpsite/internal/domain"
	"github.com/steppeindustrial/corpsite/internal/i18n"
	"github.com/steppeindustrial/corpsite/internal/schema"
)

// View is the localized, render-ready form of an entry.
type View struct {
	ID           uuid.UUID     `json:"id"`
	Kind         domain.Kind   `json:"kind"`
	Slug         string        `json:"slug"`
	Locale       string        `json:"locale"`
	SourceLocale string        `json:"source_locale"`
	Status       domain.Status `json:"status"`
	IsFeatured   bool          `json:"is_featured"`
	OrderIndex   int           `json:"order_index"`
	PublishedAt  *time.Time    `json:"published_at,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	// Fields holds every schema field resolved for Locale.
	Fields map[string]any `json:"fields"`
	// Fallback names the localized fields served from the default locale.
	Fallback map[string]bool `json:"fallback,omitempty"`
}

// UsedFallback reports whether field was served from the default locale.
func (v *View) UsedFallback(field string) bool {
	return v != nil && v.Fallback[field]
}

// Renderer converts markdown sources to HTML.
type Renderer interface {
	Render(ctx context.Context, source string) (string, error)
}

// buildView resolves entry for the requested locale. fallback is the
// default-locale row of the same item, or nil when entry is that row or no
// such row is visible.
func (s *service) buildView(ctx context.Context, desc schema.Descriptor, entry, fallback *Entry, requested string) *View {
	defaultLocale := s.resolver.DefaultLocale()

	view := &View{
		ID:           entry.ID,
		Kind:         entry.Kind,
		Slug:         entry.Slug,
		Locale:       requested,
		SourceLocale: entry.Locale,
		Status:       entry.Status,
		IsFeatured:   entry.IsFeatured,
		OrderIndex:   entry.OrderIndex,
		PublishedAt:  entry.PublishedAt,
		CreatedAt:    entry.CreatedAt,
		UpdatedAt:    entry.UpdatedAt,
		Fields:       make(map[string]any, len(desc.Fields)),
	}

	for _, field := range desc.Fields {
		values := i18n.Values{}
		if fallback != nil && entry.Locale != defaultLocale {
			values[defaultLocale] = fallback.Get(field.Name)
		}
		values[entry.Locale] = entry.Get(field.Name)

		value, usedFallback := s.resolver.Resolve(values, requested)
		view.Fields[field.Name] = value

		if field.Localized && usedFallback {
			if view.Fallback == nil {
				view.Fallback = map[string]bool{}
			}
			view.Fallback[field.Name] = true
		}
	}
	if s.renderer != nil {
		for _, name := range desc.MarkdownFields() {
			s.renderField(ctx, view, name, view.Fields[name])
		}
	}
	return view
}

func (s *service) renderField(ctx context.Context, view *View, field string, value any) {
	source, _ := value.(string)
	if source == "" {
		return
	}
	html, err := s.renderer.Render(ctx, source)
	if err != nil {
		s.logger.Warn("content.view.render_failed", "kind", view.Kind, "slug", view.Slug, "field", field, "error", err)
		return
	}
	view.Fields[field+"_html"] = html
}
