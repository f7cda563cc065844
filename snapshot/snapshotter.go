// Package snapshot periodically captures the tracking runtime's environment
// map and stores it as the single latest snapshot.
//
// Failures never stop the ticker: they are logged, counted and retried on the
// next tick. CaptureNow is also used on deliberate teardown so the store holds
// a fresh map before the surface goes away.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/anchorkit/core"
	"github.com/hupe1980/anchorkit/logging"
	"github.com/hupe1980/anchorkit/metrics"
)

const (
	// DefaultInterval between captures.
	DefaultInterval = 30 * time.Second
	// DefaultCaptureTimeout bounds a single capture.
	DefaultCaptureTimeout = 5 * time.Second
)

// Capturer is the part of core.TrackingSurface the snapshotter needs.
type Capturer interface {
	CaptureSnapshot(ctx context.Context) (core.EnvironmentSnapshot, error)
}

type sessionSource interface {
	CurrentSession() string
}

var errEmptySnapshot = errors.New("empty environment map")

// Options configures a Snapshotter.
type Options struct {
	Interval       time.Duration
	CaptureTimeout time.Duration
	Logger         logging.Logger
	Metrics        *metrics.Recorder
	Tracer         trace.Tracer
}

// Snapshotter drives periodic captures into a core.SnapshotStore.
type Snapshotter struct {
	surface Capturer
	store   core.SnapshotStore
	opts    Options

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Snapshotter. It does not start ticking until Start or Run.
func New(surface Capturer, store core.SnapshotStore, optFns ...func(o *Options)) *Snapshotter {
	opts := Options{Interval: DefaultInterval, CaptureTimeout: DefaultCaptureTimeout}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.CaptureTimeout <= 0 {
		opts.CaptureTimeout = DefaultCaptureTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("github.com/hupe1980/anchorkit/snapshot")
	}
	return &Snapshotter{surface: surface, store: store, opts: opts}
}

// Run captures on every tick until ctx is done.
func (s *Snapshotter) Run(ctx context.Context) {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.CaptureNow(ctx)
		}
	}
}

// Start runs the ticker on its own goroutine. Starting twice is a no-op.
func (s *Snapshotter) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		s.Run(ctx)
	}(s.done)
}

// Stop halts a ticker started with Start and waits for it to exit.
func (s *Snapshotter) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// CaptureNow captures one snapshot and stores it. Errors wrap
// core.ErrSnapshotCaptureFailure; the previous snapshot is kept on failure.
func (s *Snapshotter) CaptureNow(ctx context.Context) error {
	ctx, span := s.opts.Tracer.Start(ctx, "snapshot.Capture")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.opts.CaptureTimeout)
	defer cancel()

	start := time.Now()
	snap, err := s.surface.CaptureSnapshot(ctx)
	if err == nil && len(snap.Data) == 0 {
		err = errEmptySnapshot
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", core.ErrSnapshotCaptureFailure, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logging.LogSnapshot(s.opts.Logger, 0, 0, time.Since(start), err)
		s.opts.Metrics.Snapshot(false, 0)
		return err
	}
	if snap.CapturedAt.IsZero() {
		snap.CapturedAt = time.Now().UTC()
	}
	if ss, ok := s.store.(sessionSource); ok && snap.SessionID == "" {
		snap.SessionID = ss.CurrentSession()
	}
	s.store.SaveSnapshot(snap)

	span.SetAttributes(attribute.Int("snapshot.bytes", len(snap.Data)), attribute.Int("snapshot.reference_points", snap.ReferencePoints))
	logging.LogSnapshot(s.opts.Logger, snap.ReferencePoints, len(snap.Data), time.Since(start), nil)
	s.opts.Metrics.Snapshot(true, len(snap.Data))
	return nil
}
