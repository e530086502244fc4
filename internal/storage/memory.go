package storage

import (
	"context"
	"errors"
	"sync"
)

// MemoryStore keeps objects in memory. Used by tests and local runs without a
// bucket.
type MemoryStore struct {
	mu        sync.Mutex
	publicURL string
	objects   map[string][]byte
	// Err, when set, fails every Put.
	Err error
}

func NewMemoryStore(publicURL string) *MemoryStore {
	return &MemoryStore{publicURL: publicURL, objects: map[string][]byte{}}
}

func (m *MemoryStore) Configured() bool { return true }

func (m *MemoryStore) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	if key == "" {
		return "", errors.New("storage: key required")
	}
	m.objects[key] = append([]byte(nil), body...)
	return m.publicURL + "/" + key, nil
}

// Objects returns a copy of the stored keys and bodies.
func (m *MemoryStore) Objects() map[string][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]byte, len(m.objects))
	for k, v := range m.objects {
		out[k] = v
	}
	return out
}
