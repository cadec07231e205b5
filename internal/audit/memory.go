package audit

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/JaimeStill/referrals/pkg/pagination"
)

type memoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*Record
}

// NewMemoryStore returns an in-process Store, used for ephemeral runs and tests.
func NewMemoryStore() Store {
	return &memoryStore{records: make(map[uuid.UUID]*Record)}
}

func (m *memoryStore) Append(ctx context.Context, r *Record) error {
	if err := checkAppend(r); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[r.RunID]; ok {
		return ErrDuplicate
	}
	m.records[r.RunID] = r.Clone()
	return nil
}

func (m *memoryStore) Find(ctx context.Context, runID uuid.UUID) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.records[runID]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

func (m *memoryStore) List(ctx context.Context, page pagination.PageRequest) (pagination.PageResult[Summary], error) {
	m.mu.RLock()
	all := make([]Summary, 0, len(m.records))
	for _, r := range m.records {
		all = append(all, r.Summary())
	}
	m.mu.RUnlock()

	return pageSummaries(all, page), nil
}
