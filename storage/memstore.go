package storage

import (
	"github.com/sasha-s/go-deadlock"
)

// MemStore keeps a World in memory, encoded the same way BoltStore encodes
// it so a round trip through either store yields the same copy.
type MemStore struct {
	mu   deadlock.Mutex
	data []byte
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty store.
func NewMemStore() *MemStore { return &MemStore{} }

func (m *MemStore) Save(w *World) error {
	if w == nil {
		return ErrNilParam
	}
	data, err := encodeGob(w)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
	return nil
}

func (m *MemStore) Load() (*World, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, ErrNotFound
	}
	var w World
	if err := decodeGob(m.data, &w); err != nil {
		return nil, err
	}
	return &w, nil
}
