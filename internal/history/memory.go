package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-a-n-a-v/vettr/backend/internal/contracts"
)

// MemoryStore is an append-only in-process history store
type MemoryStore struct {
	mu     sync.RWMutex
	scores map[string][]contracts.ScoreRecord
	flags  map[string][]contracts.FlagRecord
}

// NewMemoryStore creates an empty history store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scores: make(map[string][]contracts.ScoreRecord),
		flags:  make(map[string][]contracts.FlagRecord),
	}
}

// AppendScore stores one score record
func (s *MemoryStore) AppendScore(ctx context.Context, record contracts.ScoreRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[record.EntityID] = append(s.scores[record.EntityID], record)
	return nil
}

// AppendFlags stores the flag records of one detection run
func (s *MemoryStore) AppendFlags(ctx context.Context, records []contracts.FlagRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.flags[r.EntityID] = append(s.flags[r.EntityID], r)
	}
	return nil
}

// QueryScores returns score records recorded at or after since, oldest first
func (s *MemoryStore) QueryScores(ctx context.Context, entityID string, since time.Time) ([]contracts.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []contracts.ScoreRecord
	for _, r := range s.scores[entityID] {
		if !r.RecordedAt.Before(since) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RecordedAt.Before(out[j].RecordedAt)
	})
	return out, nil
}

// QueryFlags returns flag records recorded at or after since, oldest first
func (s *MemoryStore) QueryFlags(ctx context.Context, entityID string, since time.Time) ([]contracts.FlagRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []contracts.FlagRecord
	for _, r := range s.flags[entityID] {
		if !r.RecordedAt.Before(since) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RecordedAt.Before(out[j].RecordedAt)
	})
	return out, nil
}
