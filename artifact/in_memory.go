package artifact

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// InMemoryStore is a trivial in-process AssetSource useful for tests,
// examples and single-process demos. It keeps all artifacts in a map guarded
// by an RWMutex. Data is copied on save / retrieval to avoid accidental
// external mutation of internal buffers.
type InMemoryStore struct {
	mu        sync.RWMutex
	artifacts map[string][]byte // key -> data
}

// NewInMemoryStore returns an empty in-memory artifact store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{artifacts: make(map[string][]byte)}
}

// Save stores (or overwrites) the artifact bytes for key.
// The input slice is copied before storage.
func (a *InMemoryStore) Save(key string, data []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	a.artifacts[key] = cp
}

// Fetch returns a copy of the stored bytes or ErrNotFound.
func (a *InMemoryStore) Fetch(_ context.Context, key string) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	data, ok := a.artifacts[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// List returns the sorted keys starting with prefix.
func (a *InMemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	keys := make([]string, 0, len(a.artifacts))
	for k := range a.artifacts {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Delete removes the artifact if present or returns ErrNotFound.
func (a *InMemoryStore) Delete(key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.artifacts[key]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	delete(a.artifacts, key)
	return nil
}
