// Package workflow implements admin mutations of content entries: validated
// create and update, publish state changes, delete and reorder. Every
// successful write invalidates the caches of the affected kind.
package workflow

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-slug"
	"github.com/google/uuid"
	"github.com/steppeindustrial/corpsite/internal/content"
	"github.com/steppeindustrial/corpsite/internal/domain"
	"github.com/steppeindustrial/corpsite/internal/identity"
	"github.com/steppeindustrial/corpsite/internal/logging"
	"github.com/steppeindustrial/corpsite/internal/permissions"
	"github.com/steppeindustrial/corpsite/internal/schema"
	"github.com/steppeindustrial/corpsite/internal/validation"
	"github.com/steppeindustrial/corpsite/pkg/interfaces"
)

// Invalidator drops cached views of a kind.
type Invalidator interface {
	Invalidate(ctx context.Context, kind domain.Kind) error
}

// Service performs admin mutations.
type Service interface {
	Create(ctx context.Context, kind domain.Kind, raw map[string]any) (*content.AdminItem, error)
	Update(ctx context.Context, kind domain.Kind, id uuid.UUID, raw map[string]any) (*content.AdminItem, error)
	SetStatus(ctx context.Context, kind domain.Kind, id uuid.UUID, status domain.Status) (*content.AdminItem, error)
	Delete(ctx context.Context, kind domain.Kind, id uuid.UUID) error
	Reorder(ctx context.Context, kind domain.Kind, updates []content.OrderUpdate) error
}

// Option customises the workflow service.
type Option func(*service)

// WithRegistry overrides the kind descriptors.
func WithRegistry(registry *schema.Registry) Option {
	return func(s *service) {
		if registry != nil {
			s.registry = registry
		}
	}
}

// WithValidator overrides the payload validator.
func WithValidator(validator *validation.Validator) Option {
	return func(s *service) {
		if validator != nil {
			s.validator = validator
		}
	}
}

// WithStateMachine overrides the allowed status transitions.
func WithStateMachine(machine *StateMachine) Option {
	return func(s *service) {
		if machine != nil {
			s.machine = machine
		}
	}
}

// WithCache registers the cache invalidated after successful writes.
func WithCache(cache Invalidator) Option {
	return func(s *service) {
		s.cache = cache
	}
}

// WithIDGenerator overrides how ids of new rows are issued.
func WithIDGenerator(generator identity.Generator) Option {
	return func(s *service) {
		if generator != nil {
			s.newID = generator
		}
	}
}

// WithClock overrides the clock used for timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *service) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithLogger sets the workflow logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDefaultLocale sets the locale slugs are derived from.
func WithDefaultLocale(locale string) Option {
	return func(s *service) {
		if locale = strings.TrimSpace(locale); locale != "" {
			s.defaultLocale = locale
		}
	}
}

type service struct {
	repo          content.Repository
	registry      *schema.Registry
	validator     *validation.Validator
	machine       *StateMachine
	cache         Invalidator
	newID         identity.Generator
	now           func() time.Time
	logger        interfaces.Logger
	defaultLocale string
}

// NewService returns the workflow service over repo.
func NewService(repo content.Repository, opts ...Option) Service {
	s := &service{
		repo:          repo,
		registry:      schema.DefaultRegistry(),
		machine:       DefaultStateMachine(),
		newID:         identity.Random,
		now:           time.Now,
		logger:        logging.NoOp(),
		defaultLocale: domain.DefaultLocale,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.validator == nil {
		s.validator = validation.NewValidator(domain.SupportedLocales, s.defaultLocale)
	}
	return s
}

func (s *service) Create(ctx context.Context, kind domain.Kind, raw map[string]any) (*content.AdminItem, error) {
	if err := permissions.Require(ctx, permissions.ResourceContent, permissions.ActionCreate); err != nil {
		return nil, err
	}
	desc, err := s.registry.Lookup(kind)
	if err != nil {
		return nil, err
	}
	logger := logging.WithEntryContext(s.logger.WithContext(ctx), string(kind), "")

	payload, err := s.validator.Create(desc, raw)
	if err != nil {
		logger.Debug("workflow.create.invalid", "error", err)
		return nil, err
	}

	status := statusOf(payload, domain.StatusDraft)
	if status == domain.StatusPublished {
		if err := permissions.Require(ctx, permissions.ResourceContent, permissions.ActionPublish); err != nil {
			return nil, err
		}
	}
	now := s.now().UTC()
	publishedAt, err := resolvePublishedAt(nil, status, payload, now)
	if err != nil {
		return nil, err
	}

	sourceLocale := payload.Locale
	if desc.Layout == schema.LayoutSuffixed {
		sourceLocale = s.defaultLocale
	}
	slugValue, err := s.slugFor(payload, sourceLocale)
	if err != nil {
		return nil, err
	}

	locales := []string{payload.Locale}
	if desc.Layout == schema.LayoutSuffixed {
		locales = payload.Locales()
		group, err := s.repo.ListGroup(ctx, kind, slugValue)
		if err != nil {
			return nil, err
		}
		if len(group) > 0 {
			return nil, slugConflict()
		}
	} else if err := s.ensureSlugFree(ctx, kind, payload.Locale, slugValue, uuid.Nil); err != nil {
		return nil, err
	}

	rows := make([]*content.Entry, 0, len(locales))
	for _, locale := range locales {
		row := &content.Entry{
			ID:        s.newID(kind, locale, slugValue),
			Kind:      kind,
			Locale:    locale,
			Slug:      slugValue,
			Status:    status,
			CreatedAt: now,
			UpdatedAt: now,
		}
		row.PublishedAt = cloneTime(publishedAt)
		applyShared(row, payload.Shared)
		applyLocalized(row, payload.Localized[locale])
		rows = append(rows, row)
	}

	if len(rows) == 1 {
		_, err = s.repo.Create(ctx, rows[0])
	} else {
		err = s.repo.Apply(ctx, content.Batch{Create: rows})
	}
	if err != nil {
		if errors.Is(err, content.ErrSlugConflict) {
			return nil, slugConflict()
		}
		logger.Error("workflow.create.failed", "slug", slugValue, "error", err)
		return nil, err
	}

	s.invalidate(ctx, kind)
	logger.Info("workflow.create.success", "slug", slugValue, "status", status, "locales", locales)
	return s.result(ctx, desc, primaryOf(rows, s.defaultLocale))
}

func (s *service) Update(ctx context.Context, kind domain.Kind, id uuid.UUID, raw map[string]any) (*content.AdminItem, error) {
	if err := permissions.Require(ctx, permissions.ResourceContent, permissions.ActionUpdate); err != nil {
		return nil, err
	}
	desc, err := s.registry.Lookup(kind)
	if err != nil {
		return nil, err
	}
	logger := logging.WithEntryContext(s.logger.WithContext(ctx), string(kind), id.String())

	existing, err := s.load(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	payload, err := s.validator.Update(desc, raw)
	if err != nil {
		logger.Debug("workflow.update.invalid", "error", err)
		return nil, err
	}
	if payload.Locale != "" && payload.Locale != existing.Locale {
		return nil, validation.NewFieldError(schema.FieldLocale, validation.CodeImmutable, "cannot be changed")
	}

	status := statusOf(payload, existing.Status)
	transition, err := s.machine.Resolve(existing.Status, status)
	if err != nil {
		return nil, validation.NewFieldError(schema.FieldStatus, validation.CodeInvalid, err.Error())
	}
	if transition.Changed() {
		if err := permissions.Require(ctx, permissions.ResourceContent, permissions.ActionPublish); err != nil {
			return nil, err
		}
	}
	now := s.now().UTC()
	publishedAt, err := resolvePublishedAt(existing.PublishedAt, status, payload, now)
	if err != nil {
		return nil, err
	}

	slugValue := existing.Slug
	if value, ok := payload.Value(schema.FieldSlug); ok {
		slugValue, _ = value.(string)
	}

	apply := func(row *content.Entry, localized map[string]any) {
		row.Slug = slugValue
		row.Status = status
		row.PublishedAt = cloneTime(publishedAt)
		row.UpdatedAt = now
		applyShared(row, payload.Shared)
		applyLocalized(row, localized)
	}

	if desc.Layout == schema.LayoutSuffixed {
		err = s.updateGroup(ctx, desc, existing, slugValue, payload, apply)
	} else {
		if slugValue != existing.Slug {
			if err := s.ensureSlugFree(ctx, kind, existing.Locale, slugValue, existing.ID); err != nil {
				return nil, err
			}
		}
		localized := mergeMaps(payload.Localized[""], payload.Localized[existing.Locale])
		apply(existing, localized)
		_, err = s.repo.Update(ctx, existing)
	}
	if err != nil {
		if errors.Is(err, content.ErrSlugConflict) {
			return nil, slugConflict()
		}
		var validationErr *validation.Error
		if !errors.As(err, &validationErr) {
			logger.Error("workflow.update.failed", "error", err)
		}
		return nil, err
	}

	existing.Slug = slugValue
	s.invalidate(ctx, kind)
	logger.Info("workflow.update.success", "slug", slugValue, "transition", transition.Name)
	return s.result(ctx, desc, existing)
}

// updateGroup applies an update to every locale row of a suffixed item and
// creates rows for locales the payload introduces, in one batch.
func (s *service) updateGroup(ctx context.Context, desc schema.Descriptor, existing *content.Entry, slugValue string, payload *validation.Payload, apply func(*content.Entry, map[string]any)) error {
	group, err := s.repo.ListGroup(ctx, desc.Kind, existing.Slug)
	if err != nil {
		return err
	}
	if slugValue != existing.Slug {
		taken, err := s.repo.ListGroup(ctx, desc.Kind, slugValue)
		if err != nil {
			return err
		}
		if len(taken) > 0 {
			return slugConflict()
		}
	}

	head := existing
	present := make(map[string]bool, len(group))
	for _, row := range group {
		present[row.Locale] = true
		if row.Locale == s.defaultLocale {
			head = row
		}
	}

	batch := content.Batch{}
	for _, row := range group {
		apply(row, payload.Localized[row.Locale])
		batch.Update = append(batch.Update, row)
	}
	for _, locale := range payload.Locales() {
		if present[locale] {
			continue
		}
		row := &content.Entry{
			ID:         s.newID(desc.Kind, locale, slugValue),
			Kind:       desc.Kind,
			Locale:     locale,
			IsFeatured: head.IsFeatured,
			OrderIndex: head.OrderIndex,
			CreatedAt:  head.CreatedAt,
		}
		for _, field := range desc.SharedFields() {
			row.Set(field, head.Get(field))
		}
		apply(row, payload.Localized[locale])
		batch.Create = append(batch.Create, row)
	}
	return s.repo.Apply(ctx, batch)
}

func (s *service) SetStatus(ctx context.Context, kind domain.Kind, id uuid.UUID, status domain.Status) (*content.AdminItem, error) {
	if err := permissions.Require(ctx, permissions.ResourceContent, permissions.ActionUpdate); err != nil {
		return nil, err
	}
	parsed, ok := domain.ParseStatus(string(status))
	if !ok {
		return nil, validation.NewFieldError(schema.FieldStatus, validation.CodeInvalid, "must be draft or published")
	}
	return s.Update(ctx, kind, id, map[string]any{schema.FieldStatus: string(parsed)})
}

func (s *service) Delete(ctx context.Context, kind domain.Kind, id uuid.UUID) error {
	if err := permissions.Require(ctx, permissions.ResourceContent, permissions.ActionDelete); err != nil {
		return err
	}
	desc, err := s.registry.Lookup(kind)
	if err != nil {
		return err
	}
	logger := logging.WithEntryContext(s.logger.WithContext(ctx), string(kind), id.String())

	existing, err := s.load(ctx, kind, id)
	if err != nil {
		return err
	}
	if desc.Layout == schema.LayoutSuffixed {
		group, err := s.repo.ListGroup(ctx, kind, existing.Slug)
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, len(group))
		for i, row := range group {
			ids[i] = row.ID
		}
		err = s.repo.Apply(ctx, content.Batch{Delete: ids})
	} else {
		err = s.repo.Delete(ctx, id)
	}
	if err != nil {
		logger.Error("workflow.delete.failed", "error", err)
		return err
	}

	s.invalidate(ctx, kind)
	logger.Info("workflow.delete.success", "slug", existing.Slug)
	return nil
}

func (s *service) Reorder(ctx context.Context, kind domain.Kind, updates []content.OrderUpdate) error {
	if err := permissions.Require(ctx, permissions.ResourceContent, permissions.ActionUpdate); err != nil {
		return err
	}
	desc, err := s.registry.Lookup(kind)
	if err != nil {
		return err
	}
	if len(updates) == 0 {
		return nil
	}
	seen := make(map[uuid.UUID]struct{}, len(updates))
	for _, update := range updates {
		if update.ID == uuid.Nil {
			return validation.NewFieldError("items", validation.CodeInvalid, "every item needs an id")
		}
		if _, dup := seen[update.ID]; dup {
			return validation.NewFieldError("items", validation.CodeInvalid, "ids must be unique")
		}
		seen[update.ID] = struct{}{}
	}

	expanded := updates
	if desc.Layout == schema.LayoutSuffixed {
		expanded, err = s.expandGroups(ctx, kind, updates)
		if err != nil {
			return err
		}
	}

	if err := s.repo.Reorder(ctx, kind, expanded, s.now().UTC()); err != nil {
		var missing *content.MissingEntriesError
		if errors.As(err, &missing) {
			return &ReorderError{Missing: missing.IDs}
		}
		s.logger.Error("workflow.reorder.failed", "kind", kind, "error", err)
		return err
	}

	s.invalidate(ctx, kind)
	s.logger.Info("workflow.reorder.success", "kind", kind, "count", len(updates))
	return nil
}

// expandGroups applies each requested order index to every locale row of the
// referenced item.
func (s *service) expandGroups(ctx context.Context, kind domain.Kind, updates []content.OrderUpdate) ([]content.OrderUpdate, error) {
	var (
		missing  []uuid.UUID
		expanded []content.OrderUpdate
	)
	for _, update := range updates {
		entry, err := s.repo.GetByID(ctx, update.ID)
		if err != nil {
			if errors.Is(err, content.ErrEntryNotFound) {
				missing = append(missing, update.ID)
				continue
			}
			return nil, err
		}
		if entry.Kind != kind {
			missing = append(missing, update.ID)
			continue
		}
		group, err := s.repo.ListGroup(ctx, kind, entry.Slug)
		if err != nil {
			return nil, err
		}
		for _, row := range group {
			expanded = append(expanded, content.OrderUpdate{ID: row.ID, OrderIndex: update.OrderIndex})
		}
	}
	if len(missing) > 0 {
		return nil, &ReorderError{Missing: missing}
	}
	return expanded, nil
}

func (s *service) load(ctx context.Context, kind domain.Kind, id uuid.UUID) (*content.Entry, error) {
	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.Kind != kind {
		return nil, &content.NotFoundError{Resource: string(kind), Key: id.String()}
	}
	return entry, nil
}

func (s *service) ensureSlugFree(ctx context.Context, kind domain.Kind, locale, slugValue string, self uuid.UUID) error {
	found, err := s.repo.GetBySlug(ctx, kind, locale, slugValue, domain.Statuses())
	if err != nil {
		if errors.Is(err, content.ErrEntryNotFound) {
			return nil
		}
		return err
	}
	if found.ID != self {
		return slugConflict()
	}
	return nil
}

// slugFor returns the payload slug or derives one from the title of locale.
func (s *service) slugFor(payload *validation.Payload, locale string) (string, error) {
	if value, ok := payload.Value(schema.FieldSlug); ok {
		if text, _ := value.(string); text != "" {
			return text, nil
		}
	}
	title, _ := payload.Localized[locale][schema.FieldTitle].(string)
	if derived, err := slug.Normalize(title); err == nil && derived != "" {
		return derived, nil
	}
	return "", validation.NewFieldError(schema.FieldSlug, validation.CodeInvalidSlug, "cannot be derived from the title; provide a slug")
}

func (s *service) result(ctx context.Context, desc schema.Descriptor, primary *content.Entry) (*content.AdminItem, error) {
	group, err := s.repo.ListGroup(ctx, desc.Kind, primary.Slug)
	if err != nil {
		return nil, err
	}
	item := &content.AdminItem{Entry: primary, Locales: group}
	for _, row := range group {
		if row.ID == primary.ID {
			item.Entry = row
		}
	}
	if desc.Layout == schema.LayoutSuffixed {
		item.Folded = content.Fold(group, desc.LocalizedFields())
	}
	return item, nil
}

// invalidate runs after the repository acknowledged a write. A failed
// invalidation is logged; the write itself already succeeded.
func (s *service) invalidate(ctx context.Context, kind domain.Kind) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, kind); err != nil {
		s.logger.Warn("workflow.cache.invalidate_failed", "kind", kind, "error", err)
	}
}

func statusOf(payload *validation.Payload, fallback domain.Status) domain.Status {
	if value, ok := payload.Value(schema.FieldStatus); ok {
		text, _ := value.(string)
		if status, ok := domain.ParseStatus(text); ok {
			return status
		}
	}
	return fallback
}

// resolvePublishedAt applies the publication timestamp rules: an explicit
// value wins, publishing without one stamps now, and a published entry may
// not carry a future timestamp. Unpublishing keeps the current value.
func resolvePublishedAt(current *time.Time, status domain.Status, payload *validation.Payload, now time.Time) (*time.Time, error) {
	result := cloneTime(current)
	if value, explicit := payload.Value(schema.FieldPublishedAt); explicit {
		result = nil
		if ts, ok := value.(time.Time); ok {
			ts = ts.UTC()
			result = &ts
		}
	}
	if status != domain.StatusPublished {
		return result, nil
	}
	if result == nil {
		stamped := now
		return &stamped, nil
	}
	if result.After(now) {
		return nil, validation.NewFieldError(schema.FieldPublishedAt, validation.CodeInFuture, "cannot be in the future for published entries")
	}
	return result, nil
}

func applyShared(row *content.Entry, shared map[string]any) {
	for field, value := range shared {
		switch field {
		case schema.FieldSlug, schema.FieldStatus, schema.FieldPublishedAt:
		case schema.FieldFeatured:
			row.IsFeatured, _ = value.(bool)
		case schema.FieldOrderIndex:
			row.OrderIndex, _ = value.(int)
		default:
			row.Set(field, value)
		}
	}
}

func applyLocalized(row *content.Entry, values map[string]any) {
	for field, value := range values {
		row.Set(field, value)
	}
}

func primaryOf(rows []*content.Entry, defaultLocale string) *content.Entry {
	for _, row := range rows {
		if row.Locale == defaultLocale {
			return row
		}
	}
	return rows[0]
}

func slugConflict() error {
	return validation.NewFieldError(schema.FieldSlug, validation.CodeConflict, "is already used by another entry")
}

func mergeMaps(a, b map[string]any) map[string]any {
	out := make(map[string]any, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func cloneTime(ts *time.Time) *time.Time {
	if ts == nil {
		return nil
	}
	out := *ts
	return &out
}
