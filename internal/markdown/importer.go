package markdown

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/steppeindustrial/corpsite/internal/content"
	"github.com/steppeindustrial/corpsite/internal/domain"
	"github.com/steppeindustrial/corpsite/internal/logging"
	"github.com/steppeindustrial/corpsite/internal/schema"
	"github.com/steppeindustrial/corpsite/pkg/interfaces"
)

var (
	ErrWorkflowRequired = errors.New("markdown importer: workflow service is required")
	ErrLookupRequired   = errors.New("markdown importer: lookup is required")
)

// Writer is the subset of the workflow service used by the importer.
type Writer interface {
	Create(ctx context.Context, kind domain.Kind, raw map[string]any) (*content.AdminItem, error)
	Update(ctx context.Context, kind domain.Kind, id uuid.UUID, raw map[string]any) (*content.AdminItem, error)
}

// Lookup finds the stored rows of an item.
type Lookup interface {
	ListGroup(ctx context.Context, kind domain.Kind, slug string) ([]*content.Entry, error)
}

// ImporterConfig wires the importer dependencies.
type ImporterConfig struct {
	Writer        Writer
	Lookup        Lookup
	Registry      *schema.Registry
	DefaultLocale string
	Logger        interfaces.Logger
}

// ImportOptions tunes an import run.
type ImportOptions struct {
	// DryRun reports what would change without writing.
	DryRun bool
}

// ImportResult summarizes an import run.
type ImportResult struct {
	Created []string
	Updated []string
	Errors  []error
}

// Importer writes seed documents through the publish workflow so that seeded
// items obey the same validation and cache rules as admin edits. Running it
// twice over the same files updates rather than duplicates.
type Importer struct {
	writer        Writer
	lookup        Lookup
	registry      *schema.Registry
	defaultLocale string
	logger        interfaces.Logger
}

func NewImporter(cfg ImporterConfig) *Importer {
	registry := cfg.Registry
	if registry == nil {
		registry = schema.DefaultRegistry()
	}
	locale := cfg.DefaultLocale
	if locale == "" {
		locale = domain.DefaultLocale
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NoOp()
	}
	return &Importer{
		writer:        cfg.Writer,
		lookup:        cfg.Lookup,
		registry:      registry,
		defaultLocale: locale,
		logger:        logger,
	}
}

// Import applies docs. A failing item is recorded and the run continues;
// the returned error joins every item failure.
func (i *Importer) Import(ctx context.Context, docs []*Document, opts ImportOptions) (*ImportResult, error) {
	if i.writer == nil {
		return nil, ErrWorkflowRequired
	}
	if i.lookup == nil {
		return nil, ErrLookupRequired
	}

	result := &ImportResult{}
	for _, group := range i.groups(docs) {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		desc, err := i.registry.Lookup(group.kind)
		if err != nil {
			result.Errors = append(result.Errors, err)
			continue
		}
		if desc.Layout == schema.LayoutSuffixed {
			err = i.importSuffixed(ctx, desc, group, opts, result)
		} else {
			for _, doc := range group.docs {
				if rowErr := i.importRow(ctx, doc, opts, result); rowErr != nil {
					err = errors.Join(err, rowErr)
				}
			}
		}
		if err != nil {
			result.Errors = append(result.Errors, err)
		}
	}
	return result, errors.Join(result.Errors...)
}

func (i *Importer) importRow(ctx context.Context, doc *Document, opts ImportOptions, result *ImportResult) error {
	rows, err := i.lookup.ListGroup(ctx, doc.Kind, doc.Slug)
	if err != nil {
		return fmt.Errorf("%s: %w", doc.Path, err)
	}
	var existing *content.Entry
	for _, row := range rows {
		if row.Locale == doc.Locale {
			existing = row
			break
		}
	}
	return i.write(ctx, doc.Kind, existing, doc.Payload(), label(doc.Kind, doc.Locale, doc.Slug), opts, result)
}

func (i *Importer) importSuffixed(ctx context.Context, desc schema.Descriptor, group documentGroup, opts ImportOptions, result *ImportResult) error {
	rows, err := i.lookup.ListGroup(ctx, group.kind, group.slug)
	if err != nil {
		return fmt.Errorf("%s/%s: %w", group.kind, group.slug, err)
	}
	var existing *content.Entry
	for _, row := range rows {
		if existing == nil || row.Locale == i.defaultLocale {
			existing = row
		}
	}
	payload := i.foldDocuments(desc, group)
	return i.write(ctx, group.kind, existing, payload, label(group.kind, "", group.slug), opts, result)
}

func (i *Importer) write(ctx context.Context, kind domain.Kind, existing *content.Entry, payload map[string]any, name string, opts ImportOptions, result *ImportResult) error {
	logger := logging.WithEntryContext(i.logger.WithContext(ctx), string(kind), "")
	if existing == nil {
		if !opts.DryRun {
			if _, err := i.writer.Create(ctx, kind, payload); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
		result.Created = append(result.Created, name)
		logger.Info("markdown.import.created", "item", name, "dry_run", opts.DryRun)
		return nil
	}
	if !opts.DryRun {
		if _, err := i.writer.Update(ctx, kind, existing.ID, payload); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	result.Updated = append(result.Updated, name)
	logger.Info("markdown.import.updated", "item", name, "dry_run", opts.DryRun)
	return nil
}

// foldDocuments merges the locale documents of a suffixed item into one
// payload. Shared values come from the default-locale document when present.
func (i *Importer) foldDocuments(desc schema.Descriptor, group documentGroup) map[string]any {
	localized := map[string]struct{}{}
	for _, name := range desc.LocalizedFields() {
		localized[name] = struct{}{}
	}

	payload := map[string]any{schema.FieldSlug: group.slug}
	docs := append([]*Document(nil), group.docs...)
	sort.SliceStable(docs, func(a, b int) bool {
		return docs[a].Locale == i.defaultLocale && docs[b].Locale != i.defaultLocale
	})
	for idx := len(docs) - 1; idx >= 0; idx-- {
		doc := docs[idx]
		for key, value := range doc.Fields {
			if _, ok := localized[key]; ok {
				payload[key+"_"+doc.Locale] = value
				continue
			}
			payload[key] = value
		}
		if _, ok := localized[schema.FieldBody]; ok && strings.TrimSpace(doc.Body) != "" {
			payload[schema.FieldBody+"_"+doc.Locale] = doc.Body
		}
	}
	return payload
}

type documentGroup struct {
	kind domain.Kind
	slug string
	docs []*Document
}

func (i *Importer) groups(docs []*Document) []documentGroup {
	index := map[string]int{}
	var out []documentGroup
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		key := string(doc.Kind) + "/" + doc.Slug
		pos, ok := index[key]
		if !ok {
			pos = len(out)
			index[key] = pos
			out = append(out, documentGroup{kind: doc.Kind, slug: doc.Slug})
		}
		out[pos].docs = append(out[pos].docs, doc)
	}
	return out
}

func label(kind domain.Kind, locale, slug string) string {
	if locale == "" {
		return string(kind) + "/" + slug
	}
	return string(kind) + "/" + locale + "/" + slug
}
