package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	repositorycache "github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/steppeindustrial/corpsite/internal/domain"
	"github.com/steppeindustrial/corpsite/internal/visibility"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

const entryNamespace = "entry"

// BunRepository stores entries through go-repository-bun with an optional
// read-through cache on id lookups. Filtered reads always hit the database:
// their criteria are query closures the cache key serializer cannot tell
// apart. Multi-row writes run in a bun transaction.
type BunRepository struct {
	db           *bun.DB
	repo         repository.Repository[*Entry]
	finder       repository.Repository[*Entry]
	cacheService cache.CacheService
	cachePrefix  string
}

func NewBunRepository(db *bun.DB) *BunRepository {
	return NewBunRepositoryWithCache(db, nil, nil)
}

func NewBunRepositoryWithCache(db *bun.DB, cacheService cache.CacheService, serializer cache.KeySerializer) *BunRepository {
	finder := NewEntryRepository(db)
	base := finder
	var svc cache.CacheService
	if cacheService != nil && serializer != nil {
		base = repositorycache.New(finder, cacheService, serializer)
		svc = cacheService
	}
	prefix := ""
	if svc != nil {
		prefix = cachePrefix(entryNamespace)
	}
	return &BunRepository{
		db:           db,
		repo:         base,
		finder:       finder,
		cacheService: svc,
		cachePrefix:  prefix,
	}
}

// NewEntryRepository builds the go-repository-bun repository for entries.
func NewEntryRepository(db *bun.DB) repository.Repository[*Entry] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Entry]{
		NewRecord: func() *Entry { return &Entry{} },
		GetID: func(e *Entry) uuid.UUID {
			return e.ID
		},
		SetID: func(e *Entry, id uuid.UUID) {
			e.ID = id
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(e *Entry) string {
			if e == nil {
				return ""
			}
			return e.ID.String()
		},
	})
}

func (r *BunRepository) List(ctx context.Context, query Query) ([]*Entry, int, error) {
	if err := validateQuery(query); err != nil {
		return nil, 0, err
	}
	processor := repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
		return applyOrder(r.applyQuery(q, query))
	})

	var (
		records []*Entry
		total   int
		err     error
	)
	if query.PageSize > 0 {
		records, total, err = r.finder.List(ctx, processor, repository.SelectPaginate(query.PageSize, query.Offset()))
	} else {
		records, total, err = r.finder.List(ctx, processor)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("entry repository error: %w", err)
	}
	return records, total, nil
}

func (r *BunRepository) GetBySlug(ctx context.Context, kind domain.Kind, locale, slug string, statuses []domain.Status) (*Entry, error) {
	if len(statuses) == 0 {
		return nil, ErrStatusesRequired
	}
	records, _, err := r.finder.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.kind = ?", kind).
				Where("?TableAlias.locale = ?", locale).
				Where("?TableAlias.slug = ?", slug).
				Where("?TableAlias.status IN (?)", bun.In(statuses))
		}),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return nil, mapRepositoryError(err, string(kind), slug)
	}
	if len(records) == 0 {
		return nil, &NotFoundError{Resource: string(kind), Key: slug}
	}
	return records[0], nil
}

func (r *BunRepository) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	record, err := r.repo.GetByID(ctx, id.String())
	if err != nil {
		return nil, mapRepositoryError(err, "entry", id.String())
	}
	return record, nil
}

func (r *BunRepository) ListGroup(ctx context.Context, kind domain.Kind, slug string) ([]*Entry, error) {
	records, _, err := r.finder.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.kind = ?", kind).
				Where("?TableAlias.slug = ?", slug)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("entry repository error: %w", err)
	}
	slices.SortFunc(records, func(a, b *Entry) int { return localeRank(a.Locale) - localeRank(b.Locale) })
	return records, nil
}

func (r *BunRepository) Create(ctx context.Context, entry *Entry) (*Entry, error) {
	record, err := r.repo.Create(ctx, entry)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlugConflict
		}
		return nil, fmt.Errorf("entry repository error: %w", err)
	}
	return record, r.InvalidateCache(ctx)
}

func (r *BunRepository) Update(ctx context.Context, entry *Entry) (*Entry, error) {
	record, err := r.repo.Update(ctx, entry,
		repository.UpdateByID(entry.ID.String()),
		repository.UpdateColumns(entryColumns...),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlugConflict
		}
		return nil, mapRepositoryError(err, "entry", entry.ID.String())
	}
	return record, r.InvalidateCache(ctx)
}

func (r *BunRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*Entry)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("entry repository error: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return &NotFoundError{Resource: "entry", Key: id.String()}
	}
	return r.InvalidateCache(ctx)
}

func (r *BunRepository) Apply(ctx context.Context, batch Batch) error {
	if batch.Empty() {
		return nil
	}
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if len(batch.Delete) > 0 {
			if err := requireIDs(ctx, tx, "", batch.Delete); err != nil {
				return err
			}
			if _, err := tx.NewDelete().
				Model((*Entry)(nil)).
				Where("?TableAlias.id IN (?)", bun.In(batch.Delete)).
				Exec(ctx); err != nil {
				return err
			}
		}
		for _, entry := range batch.Update {
			res, err := tx.NewUpdate().
				Model(entry).
				Column(entryColumns...).
				WherePK().
				Exec(ctx)
			if err != nil {
				return err
			}
			if affected, err := res.RowsAffected(); err == nil && affected == 0 {
				return &NotFoundError{Resource: "entry", Key: entry.ID.String()}
			}
		}
		if len(batch.Create) > 0 {
			if _, err := tx.NewInsert().Model(&batch.Create).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return wrapTxError(err)
	}
	return r.InvalidateCache(ctx)
}

func (r *BunRepository) Reorder(ctx context.Context, kind domain.Kind, updates []OrderUpdate, at time.Time) error {
	if len(updates) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(updates))
	for i, update := range updates {
		ids[i] = update.ID
	}
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := requireIDs(ctx, tx, kind, ids); err != nil {
			return err
		}
		for _, update := range updates {
			if _, err := tx.NewUpdate().
				Model((*Entry)(nil)).
				Set("order_index = ?", update.OrderIndex).
				Set("updated_at = ?", at).
				Where("?TableAlias.id = ?", update.ID).
				Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return wrapTxError(err)
	}
	return r.InvalidateCache(ctx)
}

// InvalidateCache drops every cached entry read.
func (r *BunRepository) InvalidateCache(ctx context.Context) error {
	if r.cacheService == nil || r.cachePrefix == "" {
		return nil
	}
	return r.cacheService.DeleteByPrefix(ctx, r.cachePrefix)
}

var entryColumns = []string{
	"kind", "locale", "slug", "status", "is_featured", "order_index",
	"title", "summary", "body", "image_url", "attributes",
	"published_at", "updated_at",
}

func (r *BunRepository) applyQuery(q *bun.SelectQuery, query Query) *bun.SelectQuery {
	q = q.Where("?TableAlias.kind = ?", query.Kind).
		Where("?TableAlias.status IN (?)", bun.In(query.Statuses))
	if query.Locale != "" {
		q = q.Where("?TableAlias.locale = ?", query.Locale)
	}
	if len(query.Slugs) > 0 {
		q = q.Where("?TableAlias.slug IN (?)", bun.In(query.Slugs))
	}
	if query.Featured != nil {
		q = q.Where("?TableAlias.is_featured = ?", *query.Featured)
	}
	for key, value := range query.Attributes {
		q = q.Where(r.fieldExpr(key)+" = ?", value)
	}
	if term := strings.TrimSpace(query.Search); term != "" && len(query.SearchFields) > 0 {
		like := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
		q = q.WhereGroup(" AND ", func(g *bun.SelectQuery) *bun.SelectQuery {
			for idx, field := range query.SearchFields {
				expr := "LOWER(" + r.fieldExpr(field) + ") LIKE ? ESCAPE '!'"
				if idx == 0 {
					g = g.Where(expr, like)
					continue
				}
				g = g.WhereOr(expr, like)
			}
			return g
		})
	}
	return q
}

// likeEscaper makes LIKE wildcards in a search term match literally.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// fieldExpr returns a text expression for a schema field. Keys are checked
// against attributeKeyPattern before they reach this point.
func (r *BunRepository) fieldExpr(field string) string {
	if IsColumnField(field) {
		return "?TableAlias." + field
	}
	if r.db.Dialect().Name() == dialect.PG {
		return "(?TableAlias.attributes->>'" + field + "')"
	}
	return "CAST(json_extract(?TableAlias.attributes, '$." + field + "') AS TEXT)"
}

func applyOrder(q *bun.SelectQuery) *bun.SelectQuery {
	for _, term := range visibility.DefaultOrder {
		direction := " ASC"
		if term.Desc {
			direction = " DESC"
		}
		q = q.OrderExpr("?TableAlias." + term.Column + direction)
	}
	return q
}

func requireIDs(ctx context.Context, tx bun.Tx, kind domain.Kind, ids []uuid.UUID) error {
	var found []uuid.UUID
	q := tx.NewSelect().
		Model((*Entry)(nil)).
		Column("id").
		Where("?TableAlias.id IN (?)", bun.In(ids))
	if kind != "" {
		q = q.Where("?TableAlias.kind = ?", kind)
	}
	if err := q.Scan(ctx, &found); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	present := make(map[uuid.UUID]struct{}, len(found))
	for _, id := range found {
		present[id] = struct{}{}
	}
	var missing []uuid.UUID
	for _, id := range ids {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return &MissingEntriesError{IDs: missing}
	}
	return nil
}

func wrapTxError(err error) error {
	var missing *MissingEntriesError
	var notFound *NotFoundError
	if errors.As(err, &missing) || errors.As(err, &notFound) {
		return err
	}
	if isUniqueViolation(err) {
		return ErrSlugConflict
	}
	return fmt.Errorf("entry repository error: %w", err)
}

// isUniqueViolation matches the unique-constraint failures of sqlite
// ("UNIQUE constraint failed") and postgres ("violates unique constraint").
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}

func mapRepositoryError(err error, resource, key string) error {
	if err == nil {
		return nil
	}
	if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) || errors.Is(err, sql.ErrNoRows) {
		return &NotFoundError{
			Resource: resource,
			Key:      key,
		}
	}
	return fmt.Errorf("%s repository error: %w", resource, err)
}

func cachePrefix(namespace string) string {
	if namespace == "" {
		return ""
	}
	return namespace + cache.KeySeparator
}
