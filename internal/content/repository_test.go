package content_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-repository-cache/cache"
	"github.com/google/uuid"
	"github.com/steppeindustrial/corpsite/internal/content"
	"github.com/steppeindustrial/corpsite/internal/domain"
	"github.com/steppeindustrial/corpsite/pkg/testsupport"
)

var (
	published = []domain.Status{domain.StatusPublished}
	allStates = []domain.Status{domain.StatusDraft, domain.StatusPublished}
	baseTime  = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
)

type repoFactory func(t *testing.T) content.Repository

func repositories() map[string]repoFactory {
	return map[string]repoFactory{
		"memory": func(*testing.T) content.Repository {
			return content.NewMemoryRepository()
		},
		"bun": func(t *testing.T) content.Repository {
			db := testsupport.NewBunDB(t, (*content.Entry)(nil))
			return content.NewBunRepository(db)
		},
		"bun_cached": func(t *testing.T) content.Repository {
			db := testsupport.NewBunDB(t, (*content.Entry)(nil))
			service, err := cache.NewCacheService(cache.DefaultConfig())
			if err != nil {
				t.Fatalf("cache service: %v", err)
			}
			return content.NewBunRepositoryWithCache(db, service, cache.NewDefaultKeySerializer())
		},
	}
}

func newEntry(kind domain.Kind, locale, slug string, status domain.Status, order int, created time.Time) *content.Entry {
	return &content.Entry{
		ID:         uuid.New(),
		Kind:       kind,
		Locale:     locale,
		Slug:       slug,
		Status:     status,
		OrderIndex: order,
		Title:      slug + " " + locale,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

func seed(t *testing.T, repo content.Repository, entries ...*content.Entry) {
	t.Helper()
	for _, entry := range entries {
		if _, err := repo.Create(context.Background(), entry); err != nil {
			t.Fatalf("seed %s/%s: %v", entry.Locale, entry.Slug, err)
		}
	}
}

func slugsOf(entries []*content.Entry) []string {
	out := make([]string, len(entries))
	for i, entry := range entries {
		out[i] = entry.Slug
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRepositoryListOrderAndVisibility(t *testing.T) {
	for name, factory := range repositories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := factory(t)

			featured := newEntry(domain.KindService, "en", "welding", domain.StatusPublished, 5, baseTime)
			featured.IsFeatured = true
			seed(t, repo,
				newEntry(domain.KindService, "en", "design", domain.StatusPublished, 1, baseTime),
				newEntry(domain.KindService, "en", "audit", domain.StatusPublished, 1, baseTime.Add(time.Hour)),
				newEntry(domain.KindService, "en", "hidden", domain.StatusDraft, 0, baseTime),
				newEntry(domain.KindService, "ru", "design", domain.StatusPublished, 1, baseTime),
				newEntry(domain.KindProject, "en", "bridge", domain.StatusPublished, 0, baseTime),
				featured,
			)

			entries, total, err := repo.List(ctx, content.Query{Kind: domain.KindService, Locale: "en", Statuses: published})
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if total != 3 {
				t.Fatalf("expected 3 published english services, got %d", total)
			}
			want := []string{"welding", "audit", "design"}
			if got := slugsOf(entries); !equalStrings(got, want) {
				t.Fatalf("unexpected order %v, want %v", got, want)
			}

			entries, total, err = repo.List(ctx, content.Query{Kind: domain.KindService, Locale: "en", Statuses: allStates})
			if err != nil {
				t.Fatalf("preview list: %v", err)
			}
			if total != 4 || entries[0].Slug != "welding" || entries[1].Slug != "hidden" {
				t.Fatalf("unexpected preview list %v", slugsOf(entries))
			}
		})
	}
}

func TestRepositoryListRequiresStatuses(t *testing.T) {
	for name, factory := range repositories() {
		t.Run(name, func(t *testing.T) {
			_, _, err := factory(t).List(context.Background(), content.Query{Kind: domain.KindNews, Locale: "en"})
			if !errors.Is(err, content.ErrStatusesRequired) {
				t.Fatalf("expected ErrStatusesRequired, got %v", err)
			}
		})
	}
}

func TestRepositoryListPaginatesAndFilters(t *testing.T) {
	for name, factory := range repositories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := factory(t)

			for i, slug := range []string{"a", "b", "c", "d", "e"} {
				entry := newEntry(domain.KindProject, "en", slug, domain.StatusPublished, i, baseTime)
				entry.Set("client", "KazMunayGas")
				if i%2 == 0 {
					entry.Set("client", "Samruk")
				}
				entry.Set("year", 2020+i)
				seed(t, repo, entry)
			}

			page, total, err := repo.List(ctx, content.Query{
				Kind: domain.KindProject, Locale: "en", Statuses: published, Page: 2, PageSize: 2,
			})
			if err != nil {
				t.Fatalf("list page: %v", err)
			}
			if total != 5 || !equalStrings(slugsOf(page), []string{"c", "d"}) {
				t.Fatalf("unexpected page total=%d slugs=%v", total, slugsOf(page))
			}

			filtered, total, err := repo.List(ctx, content.Query{
				Kind: domain.KindProject, Locale: "en", Statuses: published,
				Attributes: map[string]string{"client": "Samruk", "year": "2022"},
			})
			if err != nil {
				t.Fatalf("filtered list: %v", err)
			}
			if total != 1 || filtered[0].Slug != "c" {
				t.Fatalf("unexpected filter result %v", slugsOf(filtered))
			}

			searched, _, err := repo.List(ctx, content.Query{
				Kind: domain.KindProject, Locale: "en", Statuses: published,
				Search: "kazmunay", SearchFields: []string{"title", "client"},
			})
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if !equalStrings(slugsOf(searched), []string{"b", "d"}) {
				t.Fatalf("unexpected search result %v", slugsOf(searched))
			}
		})
	}
}

func TestRepositoryGetBySlugHonoursStatuses(t *testing.T) {
	for name, factory := range repositories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := factory(t)
			seed(t, repo, newEntry(domain.KindNews, "en", "launch", domain.StatusDraft, 0, baseTime))

			_, err := repo.GetBySlug(ctx, domain.KindNews, "en", "launch", published)
			var notFound *content.NotFoundError
			if !errors.As(err, &notFound) {
				t.Fatalf("expected not found for draft, got %v", err)
			}

			entry, err := repo.GetBySlug(ctx, domain.KindNews, "en", "launch", allStates)
			if err != nil {
				t.Fatalf("preview get: %v", err)
			}
			if entry.Status != domain.StatusDraft {
				t.Fatalf("expected draft entry, got %s", entry.Status)
			}
		})
	}
}

func TestRepositoryRejectsSlugConflict(t *testing.T) {
	for name, factory := range repositories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := factory(t)
			seed(t, repo, newEntry(domain.KindNews, "en", "launch", domain.StatusDraft, 0, baseTime))

			_, err := repo.Create(ctx, newEntry(domain.KindNews, "en", "launch", domain.StatusDraft, 0, baseTime))
			if !errors.Is(err, content.ErrSlugConflict) {
				t.Fatalf("expected ErrSlugConflict, got %v", err)
			}
			if _, err := repo.Create(ctx, newEntry(domain.KindNews, "ru", "launch", domain.StatusDraft, 0, baseTime)); err != nil {
				t.Fatalf("same slug in another locale should be accepted: %v", err)
			}
		})
	}
}

func TestRepositoryReorderIsAllOrNothing(t *testing.T) {
	for name, factory := range repositories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := factory(t)
			first := newEntry(domain.KindService, "en", "first", domain.StatusPublished, 0, baseTime)
			second := newEntry(domain.KindService, "en", "second", domain.StatusPublished, 1, baseTime)
			seed(t, repo, first, second)

			ghost := uuid.New()
			err := repo.Reorder(ctx, domain.KindService, []content.OrderUpdate{
				{ID: first.ID, OrderIndex: 9},
				{ID: ghost, OrderIndex: 0},
			}, baseTime.Add(time.Hour))
			var missing *content.MissingEntriesError
			if !errors.As(err, &missing) {
				t.Fatalf("expected MissingEntriesError, got %v", err)
			}
			if len(missing.IDs) != 1 || missing.IDs[0] != ghost {
				t.Fatalf("unexpected missing ids %v", missing.IDs)
			}

			stored, err := repo.GetByID(ctx, first.ID)
			if err != nil {
				t.Fatalf("get first: %v", err)
			}
			if stored.OrderIndex != 0 {
				t.Fatalf("expected order untouched, got %d", stored.OrderIndex)
			}

			if err := repo.Reorder(ctx, domain.KindService, []content.OrderUpdate{
				{ID: first.ID, OrderIndex: 1},
				{ID: second.ID, OrderIndex: 0},
			}, baseTime.Add(time.Hour)); err != nil {
				t.Fatalf("reorder: %v", err)
			}
			entries, _, err := repo.List(ctx, content.Query{Kind: domain.KindService, Locale: "en", Statuses: published})
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if !equalStrings(slugsOf(entries), []string{"second", "first"}) {
				t.Fatalf("unexpected order after reorder %v", slugsOf(entries))
			}
		})
	}
}

func TestRepositoryApplyRollsBackOnMissingDelete(t *testing.T) {
	for name, factory := range repositories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := factory(t)
			existing := newEntry(domain.KindAbout, "en", "history", domain.StatusDraft, 0, baseTime)
			seed(t, repo, existing)

			err := repo.Apply(ctx, content.Batch{
				Create: []*content.Entry{newEntry(domain.KindAbout, "ru", "history", domain.StatusDraft, 0, baseTime)},
				Delete: []uuid.UUID{uuid.New()},
			})
			var missing *content.MissingEntriesError
			if !errors.As(err, &missing) {
				t.Fatalf("expected MissingEntriesError, got %v", err)
			}

			group, err := repo.ListGroup(ctx, domain.KindAbout, "history")
			if err != nil {
				t.Fatalf("list group: %v", err)
			}
			if len(group) != 1 {
				t.Fatalf("expected batch to be rolled back, found %d rows", len(group))
			}
		})
	}
}

func TestRepositoryApplyWritesGroup(t *testing.T) {
	for name, factory := range repositories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := factory(t)
			existing := newEntry(domain.KindAbout, "en", "mission", domain.StatusDraft, 0, baseTime)
			stale := newEntry(domain.KindAbout, "kk", "mission", domain.StatusDraft, 0, baseTime)
			seed(t, repo, existing, stale)

			existing.Title = "Our mission"
			if err := repo.Apply(ctx, content.Batch{
				Update: []*content.Entry{existing},
				Create: []*content.Entry{newEntry(domain.KindAbout, "ru", "mission", domain.StatusDraft, 0, baseTime)},
				Delete: []uuid.UUID{stale.ID},
			}); err != nil {
				t.Fatalf("apply: %v", err)
			}

			group, err := repo.ListGroup(ctx, domain.KindAbout, "mission")
			if err != nil {
				t.Fatalf("list group: %v", err)
			}
			if len(group) != 2 || group[0].Locale != "en" || group[1].Locale != "ru" {
				t.Fatalf("unexpected group %+v", group)
			}
			if group[0].Title != "Our mission" {
				t.Fatalf("expected updated title, got %q", group[0].Title)
			}
		})
	}
}

func TestRepositoryDeleteMissing(t *testing.T) {
	for name, factory := range repositories() {
		t.Run(name, func(t *testing.T) {
			err := factory(t).Delete(context.Background(), uuid.New())
			if !errors.Is(err, content.ErrEntryNotFound) {
				t.Fatalf("expected ErrEntryNotFound, got %v", err)
			}
		})
	}
}

func TestRepositoryPreviewReadDoesNotLeakIntoPublicReads(t *testing.T) {
	for name, factory := range repositories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := factory(t)
			seed(t, repo,
				newEntry(domain.KindNews, "en", "secret-draft", domain.StatusDraft, 0, baseTime),
				newEntry(domain.KindProject, "en", "dam", domain.StatusPublished, 0, baseTime),
			)

			if _, total, err := repo.List(ctx, content.Query{Kind: domain.KindNews, Locale: "en", Statuses: allStates}); err != nil || total != 1 {
				t.Fatalf("preview list: total=%d err=%v", total, err)
			}
			entries, total, err := repo.List(ctx, content.Query{Kind: domain.KindNews, Locale: "en", Statuses: published})
			if err != nil {
				t.Fatalf("public list: %v", err)
			}
			if total != 0 || len(entries) != 0 {
				t.Fatalf("public list leaked drafts: %v", slugsOf(entries))
			}

			if _, err := repo.GetBySlug(ctx, domain.KindNews, "en", "secret-draft", allStates); err != nil {
				t.Fatalf("preview get: %v", err)
			}
			if _, err := repo.GetBySlug(ctx, domain.KindNews, "en", "secret-draft", published); !errors.As(err, new(*content.NotFoundError)) {
				t.Fatalf("expected not found for public get, got %v", err)
			}

			projects, _, err := repo.List(ctx, content.Query{Kind: domain.KindProject, Locale: "en", Statuses: published})
			if err != nil {
				t.Fatalf("project list: %v", err)
			}
			if got := slugsOf(projects); !equalStrings(got, []string{"dam"}) {
				t.Fatalf("unexpected projects %v", got)
			}
		})
	}
}

func TestRepositorySearchMatchesWildcardsLiterally(t *testing.T) {
	for name, factory := range repositories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := factory(t)

			discount := newEntry(domain.KindNews, "en", "discount", domain.StatusPublished, 0, baseTime)
			discount.Title = "Save 50% on audits"
			plain := newEntry(domain.KindNews, "en", "plain", domain.StatusPublished, 0, baseTime)
			plain.Title = "Save 500 tenge"
			snake := newEntry(domain.KindNews, "en", "snake", domain.StatusPublished, 0, baseTime)
			snake.Title = "pump_station upgrade"
			seed(t, repo, discount, plain, snake)

			query := content.Query{Kind: domain.KindNews, Locale: "en", Statuses: published, SearchFields: []string{"title"}}

			query.Search = "50%"
			entries, _, err := repo.List(ctx, query)
			if err != nil {
				t.Fatalf("search percent: %v", err)
			}
			if got := slugsOf(entries); !equalStrings(got, []string{"discount"}) {
				t.Fatalf("percent should match literally, got %v", got)
			}

			query.Search = "p_mp"
			entries, _, err = repo.List(ctx, query)
			if err != nil {
				t.Fatalf("search underscore: %v", err)
			}
			if len(entries) != 0 {
				t.Fatalf("underscore should match literally, got %v", slugsOf(entries))
			}
		})
	}
}

func TestRepositoryGetByIDSeesUpdates(t *testing.T) {
	for name, factory := range repositories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := factory(t)
			entry := newEntry(domain.KindService, "en", "welding", domain.StatusDraft, 0, baseTime)
			seed(t, repo, entry)

			if _, err := repo.GetByID(ctx, entry.ID); err != nil {
				t.Fatalf("get: %v", err)
			}
			changed := *entry
			changed.Status = domain.StatusPublished
			changed.UpdatedAt = baseTime.Add(time.Minute)
			if _, err := repo.Update(ctx, &changed); err != nil {
				t.Fatalf("update: %v", err)
			}
			got, err := repo.GetByID(ctx, entry.ID)
			if err != nil {
				t.Fatalf("get after update: %v", err)
			}
			if got.Status != domain.StatusPublished {
				t.Fatalf("expected fresh row after update, got status %s", got.Status)
			}
		})
	}
}
