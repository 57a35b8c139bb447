package cache

import (
	"context"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

type memoryItem struct {
	data    []byte
	expires time.Time
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	items       *xsync.MapOf[string, memoryItem]
	generations *xsync.MapOf[string, uint64]
	now         func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:       xsync.NewMapOf[string, memoryItem](),
		generations: xsync.NewMapOf[string, uint64](),
		now:         time.Now,
	}
}

// WithClock overrides the clock used for expiry. It is meant for tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	item, ok := s.items.Load(key)
	if !ok {
		return nil, false, nil
	}
	if !item.expires.IsZero() && !s.now().Before(item.expires) {
		s.items.Delete(key)
		return nil, false, nil
	}
	return item.data, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	item := memoryItem{data: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expires = s.now().Add(ttl)
	}
	s.items.Store(key, item)
	return nil
}

func (s *MemoryStore) DeleteByPrefix(_ context.Context, prefix string) error {
	s.items.Range(func(key string, _ memoryItem) bool {
		if strings.HasPrefix(key, prefix) {
			s.items.Delete(key)
		}
		return true
	})
	return nil
}

func (s *MemoryStore) Generation(_ context.Context, namespace string) (uint64, error) {
	generation, _ := s.generations.Load(namespace)
	return generation, nil
}

func (s *MemoryStore) Bump(_ context.Context, namespace string) (uint64, error) {
	generation, _ := s.generations.Compute(namespace, func(old uint64, _ bool) (uint64, bool) {
		return old + 1, false
	})
	return generation, nil
}

// Sweep removes expired items and reports how many were dropped.
func (s *MemoryStore) Sweep(now time.Time) int {
	removed := 0
	s.items.Range(func(key string, item memoryItem) bool {
		if !item.expires.IsZero() && !now.Before(item.expires) {
			s.items.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

// Len returns the number of cached items, expired ones included.
func (s *MemoryStore) Len() int {
	return s.items.Size()
}
