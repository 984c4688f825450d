package runlog

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// MemoryStore is the local mirror of the durable log. It keeps entries for
// the life of the process so observers can read run outcomes without waiting
// on durable-log latency.
type MemoryStore struct {
	mu      sync.Mutex
	next    int
	entries map[string]Entry
	Clock   func() time.Time
}

// NewMemoryStore returns an empty local log.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry), Clock: time.Now}
}

func (s *MemoryStore) Create(_ context.Context, entry Entry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	entry.ID = strconv.Itoa(s.next)
	if entry.StartedAt.IsZero() {
		entry.StartedAt = s.Clock()
	}
	s.entries[entry.ID] = entry
	return entry.ID, nil
}

func (s *MemoryStore) UpdateProgress(_ context.Context, id string, processed int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("entry %s not found", id)
	}
	entry.Processed = processed
	s.entries[id] = entry
	return nil
}

func (s *MemoryStore) Complete(_ context.Context, id string, end EndType, processed int, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("entry %s not found", id)
	}
	if !entry.Open() {
		return fmt.Errorf("entry %s already completed as %s", id, entry.EndType)
	}
	entry.EndType = end
	entry.Processed = processed
	entry.Error = errMsg
	entry.EndedAt = s.Clock()
	s.entries[id] = entry
	return nil
}

// Get returns a copy of the entry, if present.
func (s *MemoryStore) Get(id string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	return entry, ok
}

// Clear drops all local entries.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]Entry)
}

var _ Store = (*MemoryStore)(nil)
