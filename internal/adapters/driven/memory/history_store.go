package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/policypal/internal/core/domain"
	"github.com/custodia-labs/policypal/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.HistoryStore = (*HistoryStore)(nil)

type historyEntry struct {
	record *domain.QueryRecord
	seq    uint64
}

// HistoryStore implements driven.HistoryStore in memory
type HistoryStore struct {
	mu      sync.RWMutex
	records map[string]historyEntry
	seq     uint64
}

// NewHistoryStore creates an empty HistoryStore
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{records: make(map[string]historyEntry)}
}

// Save stores a record. Saving an existing id returns domain.ErrAlreadyExists.
func (s *HistoryStore) Save(ctx context.Context, record *domain.QueryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[record.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.seq++
	s.records[record.ID] = historyEntry{record: cloneRecord(record), seq: s.seq}
	return nil
}

// Get retrieves a record by ID
func (s *HistoryStore) Get(ctx context.Context, id string) (*domain.QueryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneRecord(e.record), nil
}

// ListByUser retrieves a user's records, most recent first
func (s *HistoryStore) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.QueryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []historyEntry
	for _, e := range s.records {
		if e.record.UserID == userID {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.record.CreatedAt.Equal(b.record.CreatedAt) {
			return a.record.CreatedAt.After(b.record.CreatedAt)
		}
		return a.seq > b.seq
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	out := make([]*domain.QueryRecord, len(entries))
	for i, e := range entries {
		out[i] = cloneRecord(e.record)
	}
	return out, nil
}

func cloneRecord(r *domain.QueryRecord) *domain.QueryRecord {
	out := *r
	out.Sources = append([]string{}, r.Sources...)
	if flow, ok := r.Debate.Get(); ok {
		flow.ITContext = append([]string{}, flow.ITContext...)
		flow.HRContext = append([]string{}, flow.HRContext...)
		out.Debate = domain.SomeDebateFlow(flow)
	}
	return &out
}
