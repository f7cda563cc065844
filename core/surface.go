package core

import (
	"context"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// PlaneDetection selects which plane orientations the tracking runtime looks for.
type PlaneDetection int

const (
	// PlaneDetectionHorizontal detects floors and table tops.
	PlaneDetectionHorizontal PlaneDetection = iota
	// PlaneDetectionVertical detects walls.
	PlaneDetectionVertical
)

// SessionConfig configures a (re)start of the tracking session.
type SessionConfig struct {
	PlaneDetection PlaneDetection
	// InitialSnapshot seeds relocalization with a previously captured map.
	InitialSnapshot *EnvironmentSnapshot
	// ResetTracking discards the current world origin.
	ResetTracking bool
	// RemoveExistingAnchors drops the runtime's own anchor list. Controllers
	// re-derive their anchors from the placement store afterwards.
	RemoveExistingAnchors bool
}

// SessionEventKind enumerates tracking lifecycle events.
type SessionEventKind string

const (
	SessionFrameUpdated      SessionEventKind = "frame_updated"
	SessionInterrupted       SessionEventKind = "interrupted"
	SessionInterruptionEnded SessionEventKind = "interruption_ended"
	SessionRestarted         SessionEventKind = "restarted"
	SessionFailed            SessionEventKind = "failed"
)

// SessionEvent is emitted by the tracking surface and republished by the
// session bridge.
type SessionEvent struct {
	Kind      SessionEventKind
	Err       error
	Timestamp time.Time
}

// NewSessionEvent stamps an event of the given kind.
func NewSessionEvent(kind SessionEventKind, err error) SessionEvent {
	return SessionEvent{Kind: kind, Err: err, Timestamp: time.Now().UTC()}
}

// ResetSignal asks controllers to drop their anchor. An empty Key addresses
// every controller.
type ResetSignal struct {
	Token  string
	Key    AnchorKey
	Reason string
}

// NewResetSignal creates a signal with a fresh token.
func NewResetSignal(key AnchorKey, reason string) ResetSignal {
	return ResetSignal{Token: NewID(), Key: key, Reason: reason}
}

// Matches reports whether the signal addresses key.
func (r ResetSignal) Matches(key AnchorKey) bool { return r.Key == "" || r.Key == key }

// TrackingSurface is the boundary to the tracking and rendering runtime.
// Scene mutation (AddEntity, RemoveEntity) is only called from a controller
// loop; the remaining methods may be called from any goroutine.
type TrackingSurface interface {
	// Supported reports whether world tracking is available on this device.
	Supported() bool
	// HitTest casts a ray from a screen point against detected surfaces.
	HitTest(point mgl32.Vec2) (mgl32.Mat4, bool)
	// CameraPose returns the current viewpoint; false before the first frame.
	CameraPose() (mgl32.Mat4, bool)
	// CaptureSnapshot captures the accumulated spatial map.
	CaptureSnapshot(ctx context.Context) (EnvironmentSnapshot, error)
	// Run (re)starts tracking with cfg.
	Run(ctx context.Context, cfg SessionConfig) error
	// AddEntity places a root entity (an anchor) in the scene.
	AddEntity(e *Entity) error
	// RemoveEntity removes a root entity from the scene.
	RemoveEntity(id string) error
	// Events streams lifecycle events. The channel is closed when the
	// surface shuts down.
	Events() <-chan SessionEvent
}
