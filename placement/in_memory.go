package placement

import (
	"sort"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hupe1980/anchorkit/core"
	"github.com/hupe1980/anchorkit/logging"
)

// InMemoryStore is the PlacementStore implementation keeping placement
// records and the latest environment snapshot in process memory. It is safe
// for concurrent access from controller loops and snapshot goroutines; a
// single RWMutex serialises writers, which is enough because every mutation
// is a plain upsert or delete.
type InMemoryStore struct {
	mu        sync.RWMutex
	records   map[core.AnchorKey]core.PlacementRecord
	snapshot  *core.EnvironmentSnapshot
	sessionID string
	logger    logging.Logger
}

// Options configures an InMemoryStore.
type Options struct {
	Logger logging.Logger
}

// NewInMemoryStore constructs an empty placement store.
func NewInMemoryStore(optFns ...func(o *Options)) *InMemoryStore {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &InMemoryStore{records: make(map[core.AnchorKey]core.PlacementRecord), logger: opts.Logger}
}

// SetPlaced upserts the record for key, tagging it with the current session.
func (s *InMemoryStore) SetPlaced(key core.AnchorKey, transform mgl32.Mat4) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = core.PlacementRecord{
		Key:       key,
		Placed:    true,
		Transform: transform,
		SessionID: s.sessionID,
		UpdatedAt: time.Now().UTC(),
	}
	s.logger.Debug("Placement stored", "anchor", string(key), "x", transform[12], "y", transform[13], "z", transform[14])
}

// Placement returns the record for key. Absence means "not yet placed".
func (s *InMemoryStore) Placement(key core.AnchorKey) (core.PlacementRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	return rec, ok
}

// IsPlaced reports whether content is anchored for key.
func (s *InMemoryStore) IsPlaced(key core.AnchorKey) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[key].Placed
}

// ClearPlacement removes the record for key. Clearing an absent key is a no-op.
func (s *InMemoryStore) ClearPlacement(key core.AnchorKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; !ok {
		return
	}
	delete(s.records, key)
	s.logger.Debug("Placement cleared", "anchor", string(key))
}

// ClearAll removes every record and the environment snapshot.
func (s *InMemoryStore) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[core.AnchorKey]core.PlacementRecord)
	s.snapshot = nil
	s.logger.Info("All placements and environment snapshot cleared")
}

// SaveSnapshot replaces the stored snapshot. The data is copied.
func (s *InMemoryStore) SaveSnapshot(snapshot core.EnvironmentSnapshot) {
	cp := snapshot.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = &cp
}

// Snapshot returns a copy of the latest snapshot, if any.
func (s *InMemoryStore) Snapshot() (core.EnvironmentSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return core.EnvironmentSnapshot{}, false
	}
	return s.snapshot.Clone(), true
}

// SetCurrentSession records the session id used to tag new placements.
func (s *InMemoryStore) SetCurrentSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = id
}

// CurrentSession returns the active session id.
func (s *InMemoryStore) CurrentSession() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// Keys lists the keys with a record, sorted.
func (s *InMemoryStore) Keys() []core.AnchorKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]core.AnchorKey, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
