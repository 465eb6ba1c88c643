package records

import (
	"context"
	"fmt"
	"sync"

	"github.com/m-a-n-a-v/vettr/backend/internal/contracts"
)

// MemoryStore is an in-process record source used by tests and the
// database-less CLI mode. Safe for concurrent use.
type MemoryStore struct {
	mu         sync.RWMutex
	entities   map[string]contracts.Entity
	filings    map[string][]contracts.FilingRecord
	executives map[string][]contracts.ExecutiveRecord
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entities:   make(map[string]contracts.Entity),
		filings:    make(map[string][]contracts.FilingRecord),
		executives: make(map[string][]contracts.ExecutiveRecord),
	}
}

// PutEntity inserts or replaces entity metadata
func (s *MemoryStore) PutEntity(e contracts.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[e.ID] = e
}

// AddFilings appends filings to an entity's history
func (s *MemoryStore) AddFilings(entityID string, filings ...contracts.FilingRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range filings {
		f.EntityID = entityID
		s.filings[entityID] = append(s.filings[entityID], f)
	}
}

// SetExecutives replaces an entity's executive roster
func (s *MemoryStore) SetExecutives(entityID string, executives ...contracts.ExecutiveRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	roster := make([]contracts.ExecutiveRecord, 0, len(executives))
	for _, e := range executives {
		e.EntityID = entityID
		roster = append(roster, e)
	}
	s.executives[entityID] = roster
}

// GetEntity implements contracts.EntitySource
func (s *MemoryStore) GetEntity(ctx context.Context, entityID string) (*contracts.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entities[entityID]
	if !ok {
		return nil, fmt.Errorf("entity %s: %w", entityID, contracts.ErrNotFound)
	}
	return &e, nil
}

// GetFilings implements contracts.FilingSource
func (s *MemoryStore) GetFilings(ctx context.Context, entityID string) ([]contracts.FilingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]contracts.FilingRecord, len(s.filings[entityID]))
	copy(out, s.filings[entityID])
	return out, nil
}

// GetExecutives implements contracts.ExecutiveSource
func (s *MemoryStore) GetExecutives(ctx context.Context, entityID string) ([]contracts.ExecutiveRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]contracts.ExecutiveRecord, len(s.executives[entityID]))
	copy(out, s.executives[entityID])
	return out, nil
}

// SaveBatch upserts filings keyed by (entity, filed date, type), like the Postgres repository
func (s *MemoryStore) SaveBatch(ctx context.Context, filings []contracts.FilingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range filings {
		existing := s.filings[f.EntityID]
		replaced := false
		for i := range existing {
			if existing[i].Type == f.Type && existing[i].FiledAt.Equal(f.FiledAt) {
				existing[i] = f
				replaced = true
				break
			}
		}
		if !replaced {
			s.filings[f.EntityID] = append(existing, f)
		}
	}
	return nil
}
