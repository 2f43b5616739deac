package history

import (
	"context"
	"sort"
	"sync"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string][]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	s.initialized = true
	s.runs = make(map[string][]Record)
	return nil
}

func (s *MemoryStore) Append(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	records := s.runs[record.RunID]
	for i, existing := range records {
		if existing.Generation == record.Generation {
			records[i] = record
			return nil
		}
	}
	s.runs[record.RunID] = append(records, record)
	return nil
}

func (s *MemoryStore) List(_ context.Context, runID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}
	records := append([]Record(nil), s.runs[runID]...)
	sort.Slice(records, func(i, j int) bool {
		return records[i].Generation < records[j].Generation
	})
	return records, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
