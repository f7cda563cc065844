package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/anchorkit/core"
	"github.com/hupe1980/anchorkit/events"
	"github.com/hupe1980/anchorkit/logging"
	"github.com/hupe1980/anchorkit/metrics"
)

// Options configures a Bridge.
type Options struct {
	// SessionID tags placements made during this session. Defaults to a
	// random id; hosts typically pass a stable device identifier.
	SessionID string
	// PlaneDetection is forwarded to every Run.
	PlaneDetection core.PlaneDetection
	// OnFrame is invoked for every frame update on the pump goroutine. It
	// must not block.
	OnFrame func(ev core.SessionEvent)
	Logger  logging.Logger
	Metrics *metrics.Recorder
}

// Bridge owns the tracking session lifecycle for one surface.
type Bridge struct {
	surface core.TrackingSurface
	store   core.PlacementStore
	bus     *events.Bus[core.SessionEvent]
	opts    Options

	mu      sync.Mutex
	failure error
	started bool
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a bridge. Call Start to begin tracking.
func New(surface core.TrackingSurface, store core.PlacementStore, optFns ...func(o *Options)) *Bridge {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.SessionID == "" {
		opts.SessionID = core.NewID()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Bridge{surface: surface, store: store, bus: events.NewBus[core.SessionEvent](), opts: opts}
}

// SessionID returns the identifier placements are tagged with.
func (b *Bridge) SessionID() string { return b.opts.SessionID }

// Start checks capability, runs the tracking session (relocalizing against
// the stored snapshot when one exists) and starts pumping surface events.
// It returns core.ErrSurfaceNotSupported without retry on devices lacking
// world tracking.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return core.ErrClosed
	}
	if b.started {
		return nil
	}
	if !b.surface.Supported() {
		b.opts.Logger.Warn("World tracking not supported; running degraded")
		return core.ErrSurfaceNotSupported
	}

	b.store.SetCurrentSession(b.opts.SessionID)
	cfg := core.SessionConfig{PlaneDetection: b.opts.PlaneDetection}
	if snap, ok := b.store.Snapshot(); ok {
		cfg.InitialSnapshot = &snap
	}
	if err := b.surface.Run(ctx, cfg); err != nil {
		err = fmt.Errorf("%w: %w", core.ErrTrackingSessionFailure, err)
		b.failure = err
		return err
	}

	pumpCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	b.cancel = cancel
	b.done = make(chan struct{})
	b.started = true
	go b.pump(pumpCtx, b.done)

	b.opts.Logger.Info("Tracking session started", "session_id", b.opts.SessionID, "relocalizing", cfg.InitialSnapshot != nil)
	return nil
}

func (b *Bridge) pump(ctx context.Context, done chan struct{}) {
	defer close(done)
	evs := b.surface.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-evs:
			if !ok {
				return
			}
			_ = b.Handle(ctx, ev)
		}
	}
}

// Handle applies the recovery policy for one lifecycle event. Hosts that
// receive runtime callbacks directly may call it instead of relying on the
// surface event stream.
func (b *Bridge) Handle(ctx context.Context, ev core.SessionEvent) error {
	b.opts.Metrics.SessionEvent(string(ev.Kind))

	switch ev.Kind {
	case core.SessionFrameUpdated:
		if b.opts.OnFrame != nil {
			b.opts.OnFrame(ev)
		}
		return nil

	case core.SessionInterrupted:
		b.opts.Logger.Info("Tracking session interrupted")
		return b.bus.Publish(ctx, ev)

	case core.SessionInterruptionEnded:
		if err := b.bus.Publish(ctx, ev); err != nil {
			return err
		}
		return b.restart(ctx)

	case core.SessionFailed:
		err := ev.Err
		if err == nil {
			err = errors.New("unknown error")
		}
		if !errors.Is(err, core.ErrTrackingSessionFailure) {
			err = fmt.Errorf("%w: %w", core.ErrTrackingSessionFailure, err)
		}
		b.setFailure(err)
		b.opts.Logger.Error("Tracking session failed", "error", err.Error())
		ev.Err = err
		return b.bus.Publish(ctx, ev)

	default:
		return b.bus.Publish(ctx, ev)
	}
}

// restart relocalizes against the stored snapshot. Without a snapshot the
// runtime simply continues its own recovery.
func (b *Bridge) restart(ctx context.Context) error {
	snap, ok := b.store.Snapshot()
	if !ok {
		b.opts.Logger.Info("Interruption ended without stored snapshot; continuing")
		return nil
	}
	cfg := core.SessionConfig{
		PlaneDetection:        b.opts.PlaneDetection,
		InitialSnapshot:       &snap,
		ResetTracking:         true,
		RemoveExistingAnchors: true,
	}
	if err := b.surface.Run(ctx, cfg); err != nil {
		return b.Handle(ctx, core.NewSessionEvent(core.SessionFailed, err))
	}
	b.opts.Logger.Info("Tracking session restarted from snapshot", "reference_points", snap.ReferencePoints, "bytes", len(snap.Data))
	return b.bus.Publish(ctx, core.NewSessionEvent(core.SessionRestarted, nil))
}

func (b *Bridge) setFailure(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failure = err
}

// Failure returns the fatal tracking error, if any.
func (b *Bridge) Failure() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failure
}

// Subscribe registers for republished lifecycle events.
func (b *Bridge) Subscribe(buffer int) (<-chan core.SessionEvent, func()) {
	return b.bus.Subscribe(buffer)
}

// Close stops the event pump and closes every subscription. It does not
// touch the placement store.
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	cancel, done := b.cancel, b.done
	b.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	b.bus.Close()
}
