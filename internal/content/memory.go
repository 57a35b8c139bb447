package content

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/steppeindustrial/corpsite/internal/domain"
	"github.com/steppeindustrial/corpsite/internal/visibility"
)

// MemoryRepository keeps entries in process memory. It backs tests and local
// development and follows the same ordering and atomicity rules as the bun
// repository.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*Entry
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{entries: make(map[uuid.UUID]*Entry)}
}

func (m *MemoryRepository) List(_ context.Context, query Query) ([]*Entry, int, error) {
	if err := validateQuery(query); err != nil {
		return nil, 0, err
	}

	m.mu.RLock()
	var matched []*Entry
	for _, entry := range m.entries {
		if matchesQuery(entry, query) {
			matched = append(matched, entry)
		}
	}
	m.mu.RUnlock()

	slices.SortFunc(matched, func(a, b *Entry) int {
		return visibility.Compare(a.OrderKey(), b.OrderKey())
	})

	total := len(matched)
	start := query.Offset()
	if start > total {
		start = total
	}
	end := total
	if query.PageSize > 0 && start+query.PageSize < end {
		end = start + query.PageSize
	}

	out := make([]*Entry, 0, end-start)
	for _, entry := range matched[start:end] {
		out = append(out, cloneEntry(entry))
	}
	return out, total, nil
}

func (m *MemoryRepository) GetBySlug(_ context.Context, kind domain.Kind, locale, slug string, statuses []domain.Status) (*Entry, error) {
	if len(statuses) == 0 {
		return nil, ErrStatusesRequired
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, entry := range m.entries {
		if entry.Kind == kind && entry.Locale == locale && entry.Slug == slug && visibility.Allows(statuses, entry.Status) {
			return cloneEntry(entry), nil
		}
	}
	return nil, &NotFoundError{Resource: string(kind), Key: slug}
}

func (m *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[id]
	if !ok {
		return nil, &NotFoundError{Resource: "entry", Key: id.String()}
	}
	return cloneEntry(entry), nil
}

func (m *MemoryRepository) ListGroup(_ context.Context, kind domain.Kind, slug string) ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Entry
	for _, entry := range m.entries {
		if entry.Kind == kind && entry.Slug == slug {
			out = append(out, cloneEntry(entry))
		}
	}
	slices.SortFunc(out, func(a, b *Entry) int { return localeRank(a.Locale) - localeRank(b.Locale) })
	return out, nil
}

func (m *MemoryRepository) Create(_ context.Context, entry *Entry) (*Entry, error) {
	if entry == nil {
		return nil, fmt.Errorf("content: nil entry")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.insertLocked(entry); err != nil {
		return nil, err
	}
	return cloneEntry(m.entries[entry.ID]), nil
}

func (m *MemoryRepository) Update(_ context.Context, entry *Entry) (*Entry, error) {
	if entry == nil {
		return nil, fmt.Errorf("content: nil entry")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.updateLocked(entry); err != nil {
		return nil, err
	}
	return cloneEntry(m.entries[entry.ID]), nil
}

func (m *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[id]; !ok {
		return &NotFoundError{Resource: "entry", Key: id.String()}
	}
	delete(m.entries, id)
	return nil
}

func (m *MemoryRepository) Apply(_ context.Context, batch Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Work on a copy so a failing write leaves the store untouched.
	staged := make(map[uuid.UUID]*Entry, len(m.entries))
	for id, entry := range m.entries {
		staged[id] = entry
	}
	original := m.entries
	m.entries = staged

	if err := m.applyLocked(batch); err != nil {
		m.entries = original
		return err
	}
	return nil
}

func (m *MemoryRepository) applyLocked(batch Batch) error {
	var missing []uuid.UUID
	for _, id := range batch.Delete {
		if _, ok := m.entries[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return &MissingEntriesError{IDs: missing}
	}
	for _, id := range batch.Delete {
		delete(m.entries, id)
	}
	for _, entry := range batch.Update {
		if err := m.updateLocked(entry); err != nil {
			return err
		}
	}
	for _, entry := range batch.Create {
		if err := m.insertLocked(entry); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryRepository) Reorder(_ context.Context, kind domain.Kind, updates []OrderUpdate, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var missing []uuid.UUID
	for _, update := range updates {
		entry, ok := m.entries[update.ID]
		if !ok || entry.Kind != kind {
			missing = append(missing, update.ID)
		}
	}
	if len(missing) > 0 {
		return &MissingEntriesError{IDs: missing}
	}

	for _, update := range updates {
		updated := cloneEntry(m.entries[update.ID])
		updated.OrderIndex = update.OrderIndex
		updated.UpdatedAt = at
		m.entries[update.ID] = updated
	}
	return nil
}

func (m *MemoryRepository) insertLocked(entry *Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if _, exists := m.entries[entry.ID]; exists {
		return fmt.Errorf("content: entry %s already exists", entry.ID)
	}
	if m.slugTakenLocked(entry) {
		return ErrSlugConflict
	}
	m.entries[entry.ID] = cloneEntry(entry)
	return nil
}

func (m *MemoryRepository) updateLocked(entry *Entry) error {
	if _, ok := m.entries[entry.ID]; !ok {
		return &NotFoundError{Resource: "entry", Key: entry.ID.String()}
	}
	if m.slugTakenLocked(entry) {
		return ErrSlugConflict
	}
	m.entries[entry.ID] = cloneEntry(entry)
	return nil
}

func (m *MemoryRepository) slugTakenLocked(entry *Entry) bool {
	for id, existing := range m.entries {
		if id != entry.ID && existing.Kind == entry.Kind && existing.Locale == entry.Locale && existing.Slug == entry.Slug {
			return true
		}
	}
	return false
}

func matchesQuery(entry *Entry, query Query) bool {
	if entry.Kind != query.Kind {
		return false
	}
	if query.Locale != "" && entry.Locale != query.Locale {
		return false
	}
	if !visibility.Allows(query.Statuses, entry.Status) {
		return false
	}
	if len(query.Slugs) > 0 && !slices.Contains(query.Slugs, entry.Slug) {
		return false
	}
	if query.Featured != nil && entry.IsFeatured != *query.Featured {
		return false
	}
	for key, want := range query.Attributes {
		value := entry.Get(key)
		if value == nil || fmt.Sprint(value) != want {
			return false
		}
	}
	if term := strings.ToLower(strings.TrimSpace(query.Search)); term != "" {
		found := false
		for _, field := range query.SearchFields {
			if text, ok := entry.Get(field).(string); ok && strings.Contains(strings.ToLower(text), term) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
