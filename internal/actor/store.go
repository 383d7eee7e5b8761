package actor

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store for tests and single-node dev mode.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string][]byte)}
}

func (s *MemoryStore) key(kind, id string) string {
	return kind + ":" + id
}

func (s *MemoryStore) Load(_ context.Context, kind, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.snapshots[s.key(kind, id)]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *MemoryStore) Save(_ context.Context, kind, id string, snapshot []byte) error {
	data := make([]byte, len(snapshot))
	copy(data, snapshot)
	s.mu.Lock()
	s.snapshots[s.key(kind, id)] = data
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored snapshots.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}
