// Package simsurface provides an in-process core.TrackingSurface used by tests
// and by the demo host. It has no rendering: the scene is a map of root
// entities, hit-testing is a configurable function and lifecycle events are
// injected with Emit.
package simsurface

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hupe1980/anchorkit/core"
)

// HitFunc resolves a screen point against simulated geometry.
type HitFunc func(point mgl32.Vec2) (mgl32.Mat4, bool)

// Options configures a Surface.
type Options struct {
	// Unsupported makes Supported report false.
	Unsupported bool
	// Hit is the hit-test function. Defaults to "no surface detected".
	Hit HitFunc
	// Camera is the initial camera pose. Nil means no frame yet.
	Camera *mgl32.Mat4
	// EventBuffer sizes the lifecycle event channel.
	EventBuffer int
}

// Surface is a thread-safe simulated tracking surface.
type Surface struct {
	mu          sync.Mutex
	opts        Options
	camera      *mgl32.Mat4
	entities    map[string]*core.Entity
	runs        []core.SessionConfig
	captureErr  error
	snapshotSeq int
	captures    int
	runErr      error
	events      chan core.SessionEvent

	// evMu guards closed separately from mu so Emit can block on a full
	// channel while the consumer calls back into the surface.
	evMu   sync.RWMutex
	closed bool
}

var _ core.TrackingSurface = (*Surface)(nil)

// New creates a surface.
func New(optFns ...func(o *Options)) *Surface {
	opts := Options{EventBuffer: 16}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Hit == nil {
		opts.Hit = func(mgl32.Vec2) (mgl32.Mat4, bool) { return mgl32.Mat4{}, false }
	}
	s := &Surface{
		opts:     opts,
		entities: make(map[string]*core.Entity),
		events:   make(chan core.SessionEvent, opts.EventBuffer),
	}
	if opts.Camera != nil {
		c := *opts.Camera
		s.camera = &c
	}
	return s
}

// PlaneAt returns a HitFunc that reports a horizontal plane hit at height y
// directly below the tapped point: screen x maps to world x, screen y to
// world z.
func PlaneAt(y float32) HitFunc {
	return func(p mgl32.Vec2) (mgl32.Mat4, bool) {
		return mgl32.Translate3D(p.X(), y, p.Y()), true
	}
}

// Supported reports tracking capability.
func (s *Surface) Supported() bool { return !s.opts.Unsupported }

// HitTest applies the configured hit function.
func (s *Surface) HitTest(point mgl32.Vec2) (mgl32.Mat4, bool) {
	s.mu.Lock()
	hit := s.opts.Hit
	s.mu.Unlock()
	return hit(point)
}

// SetHit replaces the hit function.
func (s *Surface) SetHit(fn HitFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.Hit = fn
}

// CameraPose returns the current viewpoint.
func (s *Surface) CameraPose() (mgl32.Mat4, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.camera == nil {
		return mgl32.Mat4{}, false
	}
	return *s.camera, true
}

// SetCamera moves the viewpoint.
func (s *Surface) SetCamera(pose mgl32.Mat4) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera = &pose
}

// FailCaptures makes CaptureSnapshot return err until cleared with nil.
func (s *Surface) FailCaptures(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captureErr = err
}

// FailRuns makes Run return err until cleared with nil.
func (s *Surface) FailRuns(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runErr = err
}

// CaptureSnapshot returns a synthetic map whose payload changes on every
// successful capture.
func (s *Surface) CaptureSnapshot(ctx context.Context) (core.EnvironmentSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return core.EnvironmentSnapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captures++
	if s.captureErr != nil {
		return core.EnvironmentSnapshot{}, s.captureErr
	}
	s.snapshotSeq++
	return core.EnvironmentSnapshot{
		Data:            []byte(fmt.Sprintf("worldmap-%d", s.snapshotSeq)),
		ReferencePoints: 100 * s.snapshotSeq,
	}, nil
}

// Captures reports how many capture attempts were made.
func (s *Surface) Captures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captures
}

// Run records cfg. A configured run error is returned as-is.
func (s *Surface) Run(_ context.Context, cfg core.SessionConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runErr != nil {
		return s.runErr
	}
	if cfg.InitialSnapshot != nil {
		snap := cfg.InitialSnapshot.Clone()
		cfg.InitialSnapshot = &snap
	}
	if cfg.RemoveExistingAnchors {
		s.entities = make(map[string]*core.Entity)
	}
	s.runs = append(s.runs, cfg)
	return nil
}

// Runs returns every recorded session configuration.
func (s *Surface) Runs() []core.SessionConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.SessionConfig, len(s.runs))
	copy(out, s.runs)
	return out
}

// AddEntity places a root entity.
func (s *Surface) AddEntity(e *core.Entity) error {
	if e == nil {
		return errors.New("nil entity")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[e.ID]; ok {
		return fmt.Errorf("entity %s already in scene", e.ID)
	}
	s.entities[e.ID] = e
	return nil
}

// RemoveEntity removes a root entity. Removing an unknown id is a no-op.
func (s *Surface) RemoveEntity(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entities, id)
	return nil
}

// Entities returns the root entities sorted by id.
func (s *Surface) Entities() []*core.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*core.Entity, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// EntityCount reports the number of root entities.
func (s *Surface) EntityCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entities)
}

// Events streams lifecycle events.
func (s *Surface) Events() <-chan core.SessionEvent { return s.events }

// Emit injects a lifecycle event. It returns false once the surface is closed.
func (s *Surface) Emit(kind core.SessionEventKind, err error) bool {
	s.evMu.RLock()
	defer s.evMu.RUnlock()
	if s.closed {
		return false
	}
	s.events <- core.NewSessionEvent(kind, err)
	return true
}

// Close closes the event stream.
func (s *Surface) Close() {
	s.evMu.Lock()
	defer s.evMu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
}
