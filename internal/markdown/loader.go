package markdown

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/steppeindustrial/corpsite/internal/domain"
)

// LoadDocuments reads every Markdown file under root. Files are laid out as
// <kind>/<locale>/<slug>.md; files placed directly under <kind>/ belong to
// defaultLocale. A "slug" front matter value overrides the file name.
func LoadDocuments(ctx context.Context, fsys fs.FS, root, defaultLocale string) ([]*Document, error) {
	if root == "" {
		root = "."
	}
	var docs []*Document
	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || path.Ext(p) != ".md" {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		doc, err := loadFile(fsys, root, p, defaultLocale)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

func loadFile(fsys fs.FS, root, p, defaultLocale string) (*Document, error) {
	rel := p
	if root != "." {
		rel = strings.TrimPrefix(strings.TrimPrefix(p, root), "/")
	}
	segments := strings.Split(rel, "/")
	if len(segments) < 2 || len(segments) > 3 {
		return nil, fmt.Errorf("markdown loader: %s: expected <kind>/[<locale>/]<slug>.md", p)
	}
	kind, ok := domain.ParseKind(segments[0])
	if !ok {
		return nil, fmt.Errorf("markdown loader: %s: unknown kind %q", p, segments[0])
	}
	locale := defaultLocale
	if len(segments) == 3 {
		locale = strings.ToLower(segments[1])
	}
	if !domain.IsSupportedLocale(locale) {
		return nil, fmt.Errorf("markdown loader: %s: unsupported locale %q", p, locale)
	}

	source, err := fs.ReadFile(fsys, p)
	if err != nil {
		return nil, fmt.Errorf("markdown loader read %s: %w", p, err)
	}
	fields, body, err := ParseDocument(source)
	if err != nil {
		return nil, fmt.Errorf("markdown loader %s: %w", p, err)
	}

	slugValue := strings.TrimSuffix(path.Base(p), ".md")
	if value, ok := fields["slug"].(string); ok && strings.TrimSpace(value) != "" {
		slugValue = strings.TrimSpace(value)
	}
	delete(fields, "slug")
	delete(fields, "locale")

	return &Document{
		Path:   p,
		Kind:   kind,
		Locale: locale,
		Slug:   slugValue,
		Fields: fields,
		Body:   body,
	}, nil
}
