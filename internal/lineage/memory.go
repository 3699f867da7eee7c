package lineage

import (
	"context"
	"errors"
	"sync"
)

type recordKey struct {
	runID string
	id    int
}

// MemoryStore keeps records in a map. A new Init discards them.
type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	records     map[recordKey]Record
}

// NewMemoryStore returns an empty store. Call Init before use.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.records = make(map[recordKey]Record)
	return nil
}

// Save stores records, replacing earlier records of the same chromosome.
func (s *MemoryStore) Save(_ context.Context, records ...Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	for _, r := range records {
		if err := checkVersion(r); err != nil {
			return err
		}
		s.records[recordKey{r.RunID, r.Snapshot.ID}] = r
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, runID string, chromosomeID int) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return Record{}, false, errors.New("store is not initialized")
	}
	r, ok := s.records[recordKey{runID, chromosomeID}]
	return r, ok, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
