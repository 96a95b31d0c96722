package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hamed0406/onionwatch/internal/domain"
	"github.com/hamed0406/onionwatch/internal/repo"
)

// Store keeps the latest status of a fixed set of endpoints.
type Store struct {
	mu    sync.RWMutex
	order []domain.EndpointKey
	recs  map[domain.EndpointKey]*domain.EndpointRecord
}

// New seeds one Unknown record per distinct endpoint key.
func New(endpoints []domain.Endpoint) *Store {
	eps := domain.UniqueEndpoints(endpoints)
	s := &Store{
		order: make([]domain.EndpointKey, 0, len(eps)),
		recs:  make(map[domain.EndpointKey]*domain.EndpointRecord, len(eps)),
	}
	for _, ep := range eps {
		s.order = append(s.order, ep.Key())
		s.recs[ep.Key()] = &domain.EndpointRecord{Endpoint: ep, Status: domain.Unknown()}
	}
	return s
}

func (m *Store) Get(ctx context.Context, key domain.EndpointKey) (domain.EndpointRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.recs[key]
	if !ok {
		return domain.EndpointRecord{}, repo.ErrNotFound
	}
	return copyRecord(r), nil
}

func (m *Store) Snapshot(ctx context.Context) ([]domain.EndpointRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.EndpointRecord, 0, len(m.order))
	for _, k := range m.order {
		out = append(out, copyRecord(m.recs[k]))
	}
	return out, nil
}

// MarkChecking sets the status to Checking and leaves LastCheck untouched;
// LastCheck only moves when Record stores a terminal result.
func (m *Store) MarkChecking(ctx context.Context, key domain.EndpointKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recs[key]
	if !ok {
		return repo.ErrNotFound
	}
	r.Status = domain.Checking()
	return nil
}

func (m *Store) Record(ctx context.Context, key domain.EndpointKey, st domain.Status, checkedAt time.Time) error {
	if !st.Terminal() {
		return repo.ErrNotTerminal
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recs[key]
	if !ok {
		return repo.ErrNotFound
	}
	ts := checkedAt.UTC()
	r.Status = st
	r.LastCheck = &ts
	return nil
}

func (m *Store) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

func copyRecord(r *domain.EndpointRecord) domain.EndpointRecord {
	out := *r
	if r.LastCheck != nil {
		ts := *r.LastCheck
		out.LastCheck = &ts
	}
	return out
}
