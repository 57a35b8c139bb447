package content

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/steppeindustrial/corpsite/internal/cache"
	"github.com/steppeindustrial/corpsite/internal/domain"
	"github.com/steppeindustrial/corpsite/internal/i18n"
	"github.com/steppeindustrial/corpsite/internal/logging"
	"github.com/steppeindustrial/corpsite/internal/permissions"
	"github.com/steppeindustrial/corpsite/internal/schema"
	"github.com/steppeindustrial/corpsite/internal/validation"
	"github.com/steppeindustrial/corpsite/internal/visibility"
	"github.com/steppeindustrial/corpsite/pkg/interfaces"
)

// ListRequest describes a public list read.
type ListRequest struct {
	Locale   string
	Search   string
	Filters  map[string]string
	Featured *bool
	Page     int
	PageSize int
}

// ListResult is a page of localized views.
type ListResult struct {
	Items    []*View `json:"items"`
	Total    int     `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
	Locale   string  `json:"locale"`
	// LocaleFallback is set when the requested locale had no rows and the
	// result comes from the default locale.
	LocaleFallback bool `json:"locale_fallback"`
}

// AdminListRequest describes an admin list read. Status filters to a single
// publication state; an empty Locale lists every locale row.
type AdminListRequest struct {
	Locale   string
	Status   string
	Search   string
	Filters  map[string]string
	Page     int
	PageSize int
}

// AdminListResult is a page of raw entries.
type AdminListResult struct {
	Items    []*Entry `json:"items"`
	Total    int      `json:"total"`
	Page     int      `json:"page"`
	PageSize int      `json:"page_size"`
}

// AdminItem is an entry together with its sibling locale rows.
type AdminItem struct {
	Entry   *Entry         `json:"entry"`
	Locales []*Entry       `json:"locales"`
	Folded  map[string]any `json:"folded,omitempty"`
}

// Service serves localized content reads.
type Service interface {
	List(ctx context.Context, kind domain.Kind, req ListRequest, vis visibility.Context) (*ListResult, error)
	GetBySlug(ctx context.Context, kind domain.Kind, slug, locale string, vis visibility.Context) (*View, error)
	AdminList(ctx context.Context, kind domain.Kind, req AdminListRequest) (*AdminListResult, error)
	AdminGet(ctx context.Context, kind domain.Kind, id uuid.UUID) (*AdminItem, error)
}

// ViewCache is the read-through cache used for views.
type ViewCache interface {
	Fetch(ctx context.Context, namespace, key string, dest any, load func(context.Context) error) error
}

// ServiceOption customises the service.
type ServiceOption func(*service)

// WithRenderer enables HTML rendering of markdown fields.
func WithRenderer(renderer Renderer) ServiceOption {
	return func(s *service) {
		s.renderer = renderer
	}
}

// WithViewCache enables view caching.
func WithViewCache(viewCache ViewCache) ServiceOption {
	return func(s *service) {
		if viewCache != nil {
			s.cache = viewCache
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger interfaces.Logger) ServiceOption {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRegistry overrides the kind descriptors.
func WithRegistry(registry *schema.Registry) ServiceOption {
	return func(s *service) {
		if registry != nil {
			s.registry = registry
		}
	}
}

type service struct {
	repo     Repository
	resolver *i18n.Resolver
	registry *schema.Registry
	renderer Renderer
	cache    ViewCache
	logger   interfaces.Logger
}

// NewService returns the content read service.
func NewService(repo Repository, resolver *i18n.Resolver, opts ...ServiceOption) Service {
	s := &service{
		repo:     repo,
		resolver: resolver,
		registry: schema.DefaultRegistry(),
		cache:    passthrough{},
		logger:   logging.NoOp(),
	}
	if s.resolver == nil {
		s.resolver = i18n.NewResolver(i18n.Config{})
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *service) List(ctx context.Context, kind domain.Kind, req ListRequest, vis visibility.Context) (*ListResult, error) {
	desc, err := s.registry.Lookup(kind)
	if err != nil {
		return nil, err
	}
	if err := checkFilters(desc, req.Filters); err != nil {
		return nil, err
	}

	locale := s.resolver.Normalize(req.Locale)
	statuses := visibility.EligibleStatuses(vis)
	query := Query{
		Kind:         kind,
		Locale:       locale,
		Statuses:     statuses,
		Search:       req.Search,
		SearchFields: desc.SearchableFields(),
		Attributes:   req.Filters,
		Featured:     req.Featured,
		Page:         max(req.Page, 1),
		PageSize:     desc.PageSize(req.PageSize),
	}

	result := &ListResult{}
	key := cache.Key("list", query.Locale, query.Statuses, query.Search, query.Attributes, query.Featured, query.Page, query.PageSize)
	err = s.cache.Fetch(ctx, cache.Namespace(cache.ScopePublic, kind), key, result, func(ctx context.Context) error {
		loaded, err := s.loadList(ctx, desc, query)
		if err != nil {
			return err
		}
		*result = *loaded
		return nil
	})
	if err != nil {
		s.logger.Error("content.list.failed", "kind", kind, "locale", locale, "error", err)
		return nil, err
	}
	return result, nil
}

func (s *service) loadList(ctx context.Context, desc schema.Descriptor, query Query) (*ListResult, error) {
	requested := query.Locale
	entries, total, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, err
	}

	usedFallback := false
	if total == 0 && requested != s.resolver.DefaultLocale() {
		query.Locale = s.resolver.DefaultLocale()
		entries, total, err = s.repo.List(ctx, query)
		if err != nil {
			return nil, err
		}
		usedFallback = true
	}

	siblings, err := s.defaultSiblings(ctx, query.Kind, entries, query.Statuses)
	if err != nil {
		return nil, err
	}

	items := make([]*View, 0, len(entries))
	for _, entry := range entries {
		items = append(items, s.buildView(ctx, desc, entry, siblings[entry.Slug], requested))
	}
	return &ListResult{
		Items:          items,
		Total:          total,
		Page:           query.Page,
		PageSize:       query.PageSize,
		Locale:         requested,
		LocaleFallback: usedFallback,
	}, nil
}

// defaultSiblings loads, in one query, the visible default-locale rows of
// entries stored in another locale.
func (s *service) defaultSiblings(ctx context.Context, kind domain.Kind, entries []*Entry, statuses []domain.Status) (map[string]*Entry, error) {
	defaultLocale := s.resolver.DefaultLocale()
	var slugs []string
	for _, entry := range entries {
		if entry.Locale != defaultLocale {
			slugs = append(slugs, entry.Slug)
		}
	}
	if len(slugs) == 0 {
		return nil, nil
	}
	rows, _, err := s.repo.List(ctx, Query{
		Kind:     kind,
		Locale:   defaultLocale,
		Statuses: statuses,
		Slugs:    slugs,
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string]*Entry, len(rows))
	for _, row := range rows {
		out[row.Slug] = row
	}
	return out, nil
}

func (s *service) GetBySlug(ctx context.Context, kind domain.Kind, slug, locale string, vis visibility.Context) (*View, error) {
	desc, err := s.registry.Lookup(kind)
	if err != nil {
		return nil, err
	}
	locale = s.resolver.Normalize(locale)
	statuses := visibility.EligibleStatuses(vis)

	view := &View{}
	key := cache.Key("slug", slug, locale, statuses)
	err = s.cache.Fetch(ctx, cache.Namespace(cache.ScopePublic, kind), key, view, func(ctx context.Context) error {
		loaded, err := s.loadBySlug(ctx, desc, slug, locale, statuses)
		if err != nil {
			return err
		}
		*view = *loaded
		return nil
	})
	if err != nil {
		var notFound *NotFoundError
		if !errors.As(err, &notFound) {
			s.logger.Error("content.get.failed", "kind", kind, "slug", slug, "error", err)
		}
		return nil, err
	}
	return view, nil
}

func (s *service) loadBySlug(ctx context.Context, desc schema.Descriptor, slug, locale string, statuses []domain.Status) (*View, error) {
	defaultLocale := s.resolver.DefaultLocale()

	entry, err := s.repo.GetBySlug(ctx, desc.Kind, locale, slug, statuses)
	if isNotFound(err) && locale != defaultLocale {
		entry, err = s.repo.GetBySlug(ctx, desc.Kind, defaultLocale, slug, statuses)
	}
	if err != nil {
		return nil, err
	}

	var fallback *Entry
	if entry.Locale != defaultLocale {
		fallback, err = s.repo.GetBySlug(ctx, desc.Kind, defaultLocale, slug, statuses)
		if err != nil && !isNotFound(err) {
			return nil, err
		}
	}
	return s.buildView(ctx, desc, entry, fallback, locale), nil
}

func (s *service) AdminList(ctx context.Context, kind domain.Kind, req AdminListRequest) (*AdminListResult, error) {
	if err := permissions.Require(ctx, permissions.ResourceContent, permissions.ActionRead); err != nil {
		return nil, err
	}
	desc, err := s.registry.Lookup(kind)
	if err != nil {
		return nil, err
	}
	if err := checkFilters(desc, req.Filters); err != nil {
		return nil, err
	}

	statuses := visibility.EligibleStatuses(visibility.ContextFrom(permissions.SessionFromContext(ctx), true))
	if req.Status != "" {
		status, ok := domain.ParseStatus(req.Status)
		if !ok {
			return nil, validation.NewFieldError("status", validation.CodeInvalid, "must be draft or published")
		}
		statuses = []domain.Status{status}
	}

	locale := ""
	if req.Locale != "" {
		locale = s.resolver.Normalize(req.Locale)
	} else if desc.Layout == schema.LayoutSuffixed {
		locale = s.resolver.DefaultLocale()
	}

	query := Query{
		Kind:         kind,
		Locale:       locale,
		Statuses:     statuses,
		Search:       req.Search,
		SearchFields: desc.SearchableFields(),
		Attributes:   req.Filters,
		Page:         max(req.Page, 1),
		PageSize:     desc.PageSize(req.PageSize),
	}

	result := &AdminListResult{}
	key := cache.Key("admin-list", query.Locale, query.Statuses, query.Search, query.Attributes, query.Page, query.PageSize)
	err = s.cache.Fetch(ctx, cache.Namespace(cache.ScopeAdmin, kind), key, result, func(ctx context.Context) error {
		entries, total, err := s.repo.List(ctx, query)
		if err != nil {
			return err
		}
		*result = AdminListResult{Items: entries, Total: total, Page: query.Page, PageSize: query.PageSize}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) AdminGet(ctx context.Context, kind domain.Kind, id uuid.UUID) (*AdminItem, error) {
	if err := permissions.Require(ctx, permissions.ResourceContent, permissions.ActionRead); err != nil {
		return nil, err
	}
	desc, err := s.registry.Lookup(kind)
	if err != nil {
		return nil, err
	}
	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.Kind != kind {
		return nil, &NotFoundError{Resource: string(kind), Key: id.String()}
	}
	group, err := s.repo.ListGroup(ctx, kind, entry.Slug)
	if err != nil {
		return nil, err
	}
	item := &AdminItem{Entry: entry, Locales: group}
	if desc.Layout == schema.LayoutSuffixed {
		item.Folded = Fold(group, desc.LocalizedFields())
	}
	return item, nil
}

func checkFilters(desc schema.Descriptor, filters map[string]string) error {
	if len(filters) == 0 {
		return nil
	}
	var fields []validation.FieldError
	for key := range filters {
		if !desc.IsFilterable(key) {
			fields = append(fields, validation.FieldError{
				Field:   key,
				Code:    validation.CodeInvalid,
				Message: "is not a filterable field",
			})
		}
	}
	if len(fields) > 0 {
		return &validation.Error{Fields: fields}
	}
	return nil
}

func isNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}

type passthrough struct{}

func (passthrough) Fetch(ctx context.Context, _, _ string, _ any, load func(context.Context) error) error {
	return load(ctx)
}
