package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/steppeindustrial/corpsite/internal/domain"
)

// Document is one seed file: a single locale of a content item.
type Document struct {
	Path   string
	Kind   domain.Kind
	Locale string
	Slug   string
	// Fields holds the front matter values.
	Fields map[string]any
	// Body is the Markdown below the front matter.
	Body string
}

// Payload returns the admin payload of the document for row-per-locale
// kinds.
func (d *Document) Payload() map[string]any {
	payload := make(map[string]any, len(d.Fields)+3)
	for key, value := range d.Fields {
		payload[key] = value
	}
	payload["locale"] = d.Locale
	payload["slug"] = d.Slug
	if strings.TrimSpace(d.Body) != "" {
		payload["body"] = d.Body
	}
	return payload
}

// ParseDocument splits source into front matter fields and Markdown body.
func ParseDocument(source []byte) (map[string]any, string, error) {
	fields := map[string]any{}
	body, err := frontmatter.Parse(bytes.NewReader(source), &fields)
	if err != nil {
		return nil, "", fmt.Errorf("parse frontmatter: %w", err)
	}
	return fields, strings.TrimSpace(string(body)), nil
}
