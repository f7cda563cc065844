package core

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// AnchorKey identifies a placement in the store.
type AnchorKey string

// SessionAnchorKey is the single content anchor of a viewing session. Content
// is swapped inside this anchor rather than re-anchored per asset.
const SessionAnchorKey AnchorKey = "session_anchor"

// PlacementRecord describes where content for a key is anchored.
// Placed implies Transform is meaningful.
type PlacementRecord struct {
	Key       AnchorKey  `json:"key"`
	Placed    bool       `json:"placed"`
	Transform mgl32.Mat4 `json:"transform"`
	SessionID string     `json:"session_id,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// EnvironmentSnapshot is an opaque capture of the tracking runtime's spatial
// map. ReferencePoints is kept for diagnostics only.
type EnvironmentSnapshot struct {
	Data            []byte    `json:"data"`
	ReferencePoints int       `json:"reference_points"`
	SessionID       string    `json:"session_id,omitempty"`
	CapturedAt      time.Time `json:"captured_at"`
}

// Clone returns a deep copy so callers cannot mutate stored bytes.
func (s EnvironmentSnapshot) Clone() EnvironmentSnapshot {
	cp := s
	cp.Data = append([]byte(nil), s.Data...)
	return cp
}

// SnapshotStore is the single-slot environment snapshot holder.
type SnapshotStore interface {
	SaveSnapshot(snapshot EnvironmentSnapshot)
	Snapshot() (EnvironmentSnapshot, bool)
}

// PlacementStore holds placement records and the latest environment snapshot
// for the lifetime of the process. Implementations must be safe for
// concurrent use and must never block on I/O.
type PlacementStore interface {
	SnapshotStore
	SetPlaced(key AnchorKey, transform mgl32.Mat4)
	Placement(key AnchorKey) (PlacementRecord, bool)
	IsPlaced(key AnchorKey) bool
	ClearPlacement(key AnchorKey)
	ClearAll()
	SetCurrentSession(id string)
	CurrentSession() string
}
