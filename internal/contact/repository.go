package contact

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository persists contact requests.
type Repository interface {
	Create(ctx context.Context, request *Request) (*Request, error)
	// List returns requests newest first.
	List(ctx context.Context, page, pageSize int) ([]*Request, int, error)
}

// MemoryRepository keeps contact requests in process memory.
type MemoryRepository struct {
	mu       sync.RWMutex
	requests []*Request
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) Create(_ context.Context, request *Request) (*Request, error) {
	if request == nil {
		return nil, fmt.Errorf("contact: nil request")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *request
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	m.requests = append(m.requests, &stored)
	out := stored
	return &out, nil
}

func (m *MemoryRepository) List(_ context.Context, page, pageSize int) ([]*Request, int, error) {
	m.mu.RLock()
	sorted := slices.Clone(m.requests)
	m.mu.RUnlock()

	slices.SortStableFunc(sorted, func(a, b *Request) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	total := len(sorted)
	start, end := bounds(total, page, pageSize)
	out := make([]*Request, 0, end-start)
	for _, request := range sorted[start:end] {
		copied := *request
		out = append(out, &copied)
	}
	return out, total, nil
}

// Count returns the number of stored requests.
func (m *MemoryRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

func bounds(total, page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		return 0, total
	}
	start := min((page-1)*pageSize, total)
	end := min(start+pageSize, total)
	return start, end
}

// BunRepository stores contact requests through go-repository-bun.
type BunRepository struct {
	repo repository.Repository[*Request]
}

func NewBunRepository(db *bun.DB) *BunRepository {
	return &BunRepository{repo: repository.MustNewRepository(db, repository.ModelHandlers[*Request]{
		NewRecord: func() *Request { return &Request{} },
		GetID: func(r *Request) uuid.UUID {
			return r.ID
		},
		SetID: func(r *Request, id uuid.UUID) {
			r.ID = id
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(r *Request) string {
			if r == nil {
				return ""
			}
			return r.ID.String()
		},
	})}
}

func (r *BunRepository) Create(ctx context.Context, request *Request) (*Request, error) {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	record, err := r.repo.Create(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("contact repository error: %w", err)
	}
	return record, nil
}

func (r *BunRepository) List(ctx context.Context, page, pageSize int) ([]*Request, int, error) {
	if page < 1 {
		page = 1
	}
	processor := repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.OrderExpr("?TableAlias.created_at DESC").OrderExpr("?TableAlias.id ASC")
	})
	var (
		records []*Request
		total   int
		err     error
	)
	if pageSize > 0 {
		records, total, err = r.repo.List(ctx, processor, repository.SelectPaginate(pageSize, (page-1)*pageSize))
	} else {
		records, total, err = r.repo.List(ctx, processor)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("contact repository error: %w", err)
	}
	return records, total, nil
}
