package anchor

import (
	"context"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/hupe1980/anchorkit/asset"
	"github.com/hupe1980/anchorkit/core"
	"github.com/hupe1980/anchorkit/logging"
	"github.com/hupe1980/anchorkit/metrics"
	"github.com/hupe1980/anchorkit/placement"
	"github.com/hupe1980/anchorkit/snapshot"
)

// Config defines tuning parameters for a Controller.
type Config struct {
	// Key is the placement key this controller owns.
	Key core.AnchorKey

	// RestoreGrace is how long a started controller waits for the tracking
	// runtime to relocalize before re-anchoring at a stored transform.
	RestoreGrace time.Duration

	// FallbackOffset is added to the camera translation when a tap hits no
	// surface.
	FallbackOffset mgl32.Vec3

	// Playback controls autoplay of the first animation clip.
	Playback core.PlaybackOptions

	// SnapshotInterval and CaptureTimeout configure the default snapshotter.
	SnapshotInterval time.Duration
	CaptureTimeout   time.Duration

	// EventBuffer sizes the reset and session subscriptions.
	EventBuffer int
}

// DefaultConfig anchors under core.SessionAnchorKey with a 2s restore grace.
// Fallback content sits one metre ahead of and 30 cm below the viewpoint.
var DefaultConfig = Config{
	Key:              core.SessionAnchorKey,
	RestoreGrace:     2 * time.Second,
	FallbackOffset:   core.DefaultFallbackOffset,
	Playback:         core.DefaultPlayback,
	SnapshotInterval: snapshot.DefaultInterval,
	CaptureTimeout:   snapshot.DefaultCaptureTimeout,
	EventBuffer:      16,
}

// ResetSource delivers broadcast reset signals. *events.Bus[core.ResetSignal]
// satisfies it.
type ResetSource interface {
	Subscribe(buffer int) (<-chan core.ResetSignal, func())
}

// SessionSource delivers tracking lifecycle events. *session.Bridge
// satisfies it.
type SessionSource interface {
	Subscribe(buffer int) (<-chan core.SessionEvent, func())
}

// Snapshotter is the periodic capture task owned by a controller.
type Snapshotter interface {
	Start(ctx context.Context)
	Stop()
	CaptureNow(ctx context.Context) error
}

// Options configures a Controller using the functional options pattern.
// Every dependency has an in-memory default.
type Options struct {
	Config Config

	// Store is shared between controllers. Defaults to a private in-memory store.
	Store core.PlacementStore

	// Loader resolves model identifiers. Defaults to asset.New().
	Loader core.AssetLoader

	// Resets and Session are optional subscriptions.
	Resets  ResetSource
	Session SessionSource

	// Snapshotter defaults to snapshot.New over the surface and store.
	// DisableSnapshots turns periodic capture off entirely.
	Snapshotter      Snapshotter
	DisableSnapshots bool

	// Callbacks receives lifecycle events. Defaults to an empty manager.
	Callbacks *CallbackManager

	// Model is the initial model identifier.
	Model string

	Logger  logging.Logger
	Metrics *metrics.Recorder
}

type loadResult struct {
	gen    uint64
	model  string
	entity *core.Entity
}

// Controller is the anchoring state machine for one view.
//
// All state transitions, scene mutations and store writes for the
// controller's key run on a single loop goroutine, the controller's "main
// thread". Public methods post closures to that loop and wait for them.
// Asset loads run on their own goroutines and post their results back;
// a generation counter discards completions that were superseded by a swap
// or a reset.
//
// Invariants:
//   - at most one anchor exists per controller
//   - swapping content never moves the anchor or rewrites its stored transform
//   - after a reset the key is not placed and the anchor is gone from the scene
type Controller struct {
	surface core.TrackingSurface
	opts    Options
	logger  logging.Logger

	cmds    chan func()
	results chan loadResult
	stop    chan struct{}
	done    chan struct{}

	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu           sync.Mutex
	started      bool
	closed       bool
	snapshotting bool

	// loop-owned
	state       State
	model       string
	anchor      *core.Entity
	content     *core.Entity
	playback    *core.Playback
	gen         uint64
	loadCancel  context.CancelFunc
	restore     *time.Timer
	restoreC    <-chan time.Time
	resetCh     <-chan core.ResetSignal
	sessionCh   <-chan core.SessionEvent
	unsubscribe []func()
	degraded    bool
	failure     error
}

// New creates a controller over surface and starts its loop. Call Start to
// subscribe to resets and session events, schedule restoration and begin
// periodic snapshots; call Close to release it.
func New(surface core.TrackingSurface, optFns ...func(o *Options)) *Controller {
	opts := Options{Config: DefaultConfig}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Config.Key == "" {
		opts.Config.Key = DefaultConfig.Key
	}
	if opts.Config.RestoreGrace < 0 {
		opts.Config.RestoreGrace = 0
	}
	if opts.Config.EventBuffer <= 0 {
		opts.Config.EventBuffer = DefaultConfig.EventBuffer
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Store == nil {
		opts.Store = placement.NewInMemoryStore(func(o *placement.Options) { o.Logger = opts.Logger })
	}
	if opts.Loader == nil {
		opts.Loader = asset.New(func(o *asset.Options) {
			o.Logger = opts.Logger
			o.Metrics = opts.Metrics
		})
	}
	if opts.Callbacks == nil {
		opts.Callbacks = NewCallbackManager()
	}
	if opts.Snapshotter == nil && !opts.DisableSnapshots {
		opts.Snapshotter = snapshot.New(surface, opts.Store, func(o *snapshot.Options) {
			o.Interval = opts.Config.SnapshotInterval
			o.CaptureTimeout = opts.Config.CaptureTimeout
			o.Logger = opts.Logger
			o.Metrics = opts.Metrics
		})
	}

	baseCtx, baseCancel := context.WithCancel(context.Background())
	c := &Controller{
		surface:    surface,
		opts:       opts,
		logger:     opts.Logger,
		cmds:       make(chan func()),
		results:    make(chan loadResult, 1),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
		model:      opts.Model,
	}
	go c.loop()
	return c
}

// Key returns the placement key owned by the controller.
func (c *Controller) Key() core.AnchorKey { return c.opts.Config.Key }

// Store returns the placement store the controller writes to.
func (c *Controller) Store() core.PlacementStore { return c.opts.Store }

func (c *Controller) loop() {
	defer close(c.done)
	for {
		select {
		case <-c.stop:
			return
		case fn := <-c.cmds:
			fn()
		case r := <-c.results:
			c.onLoaded(r)
		case sig, ok := <-c.resetCh:
			if !ok {
				c.resetCh = nil
				continue
			}
			if sig.Matches(c.opts.Config.Key) {
				c.reset("broadcast", sig.Reason)
			}
		case ev, ok := <-c.sessionCh:
			if !ok {
				c.sessionCh = nil
				continue
			}
			c.onSessionEvent(ev)
		case <-c.restoreC:
			c.restoreC = nil
			c.restore = nil
			c.restoreFromStore()
		}
	}
}

// do runs fn on the loop and waits for it to finish.
func (c *Controller) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	select {
	case c.cmds <- func() { defer close(finished); fn() }:
	case <-c.done:
		return core.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	// an accepted command always runs to completion
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start subscribes to reset signals and session events, schedules
// restoration from the store and starts periodic snapshots. On a device
// without world tracking it marks the controller degraded and returns
// core.ErrSurfaceNotSupported; the controller then refuses taps but still
// answers Status. Starting twice is a no-op.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrClosed
	}
	if c.started {
		return nil
	}
	c.started = true

	if !c.surface.Supported() {
		_ = c.do(ctx, func() { c.degraded = true })
		c.logger.Warn("Tracking surface not supported; controller degraded", "anchor", string(c.opts.Config.Key))
		return core.ErrSurfaceNotSupported
	}

	var resetCh <-chan core.ResetSignal
	var sessionCh <-chan core.SessionEvent
	var unsubs []func()
	if c.opts.Resets != nil {
		ch, unsub := c.opts.Resets.Subscribe(c.opts.Config.EventBuffer)
		resetCh = ch
		unsubs = append(unsubs, unsub)
	}
	if c.opts.Session != nil {
		ch, unsub := c.opts.Session.Subscribe(c.opts.Config.EventBuffer)
		sessionCh = ch
		unsubs = append(unsubs, unsub)
	}

	err := c.do(ctx, func() {
		c.resetCh = resetCh
		c.sessionCh = sessionCh
		c.unsubscribe = unsubs
		c.scheduleRestore()
	})
	if err != nil {
		for _, u := range unsubs {
			u()
		}
		return err
	}

	if c.opts.Snapshotter != nil {
		c.opts.Snapshotter.Start(c.baseCtx)
		c.snapshotting = true
	}
	return nil
}

// Tap handles a user tap at a screen point. With no anchor it hit-tests the
// point, falling back to a pose in front of the camera when nothing is hit,
// creates the anchor, stores its transform and requests the current model.
// With an anchor it does nothing and reports false.
func (c *Controller) Tap(ctx context.Context, point mgl32.Vec2) (bool, error) {
	var placed bool
	var tapErr error
	err := c.do(ctx, func() {
		placed, tapErr = c.tap(point)
	})
	if err != nil {
		return false, err
	}
	return placed, tapErr
}

func (c *Controller) tap(point mgl32.Vec2) (bool, error) {
	if c.degraded || !c.surface.Supported() {
		return false, core.ErrSurfaceNotSupported
	}
	if c.anchor != nil {
		return false, nil
	}
	source := "hit"
	pose, ok := c.surface.HitTest(point)
	if !ok {
		camera, ok := c.surface.CameraPose()
		if !ok {
			return false, core.ErrCameraUnavailable
		}
		pose = core.FallbackPose(camera, c.opts.Config.FallbackOffset)
		source = "fallback"
	}
	c.cancelRestore()
	if err := c.place(pose, source); err != nil {
		return false, err
	}
	return true, nil
}

// place creates the anchor at pose, records it and requests content.
func (c *Controller) place(pose mgl32.Mat4, source string) error {
	c.setState(StateAnchoring)
	anchor := core.NewAnchor(pose)
	if err := c.surface.AddEntity(anchor); err != nil {
		c.setState(StateNoAnchor)
		c.logger.Error("Failed to add anchor to scene", "anchor", string(c.opts.Config.Key), "error", err.Error())
		return err
	}
	c.anchor = anchor
	c.opts.Store.SetPlaced(c.opts.Config.Key, pose)

	logging.LogPlacement(c.logger, string(c.opts.Config.Key), source, pose)
	c.opts.Metrics.Placement(source)
	c.fire(CallbackPlaced, &CallbackContext{Source: source})

	c.requestLoad()
	return nil
}

func (c *Controller) requestLoad() {
	c.cancelLoad()
	c.gen++
	gen, model := c.gen, c.model
	ctx, cancel := context.WithCancel(c.baseCtx)
	c.loadCancel = cancel
	c.setState(StateLoading)

	go func() {
		e := c.opts.Loader.Load(ctx, model)
		select {
		case c.results <- loadResult{gen: gen, model: model, entity: e}:
		case <-c.stop:
		}
	}()
}

func (c *Controller) cancelLoad() {
	if c.loadCancel != nil {
		c.loadCancel()
		c.loadCancel = nil
	}
}

func (c *Controller) onLoaded(r loadResult) {
	if r.gen != c.gen || c.anchor == nil {
		c.logger.Debug("Discarding stale asset load", "anchor", string(c.opts.Config.Key), "model", r.model)
		return
	}
	c.loadCancel = nil
	c.content = r.entity
	c.anchor.AddChild(r.entity)
	c.playFirstClip()

	if r.entity.Placeholder {
		c.setState(StateFallback)
		c.fire(CallbackFallback, &CallbackContext{})
		return
	}
	c.setState(StateReady)
	c.fire(CallbackReady, &CallbackContext{})
}

func (c *Controller) playFirstClip() {
	c.playback = nil
	if c.content == nil {
		return
	}
	clips := c.opts.Loader.Animations(c.content)
	if len(clips) == 0 {
		return
	}
	c.playback = c.content.PlayAnimation(clips[0], c.opts.Config.Playback)
}

// SetModel changes the model identifier. While anchored, the attached
// content is torn down and the new model loaded into the same anchor; the
// anchor pose and the stored transform are left untouched. Setting the
// current model again is a no-op.
func (c *Controller) SetModel(ctx context.Context, model string) error {
	return c.do(ctx, func() {
		if model == c.model {
			return
		}
		c.model = model
		if c.anchor == nil {
			return
		}
		c.detachContent()
		c.opts.Metrics.Swap()
		c.fire(CallbackSwap, &CallbackContext{})
		c.requestLoad()
	})
}

func (c *Controller) detachContent() {
	if c.content == nil {
		return
	}
	core.StopAnimations(c.content)
	c.anchor.RemoveChild(c.content.ID)
	c.content = nil
	c.playback = nil
}

// RestartAnimations restarts the first clip of the attached content.
func (c *Controller) RestartAnimations(ctx context.Context) error {
	return c.do(ctx, func() {
		if c.content == nil {
			return
		}
		core.StopAnimations(c.content)
		c.playFirstClip()
	})
}

// Reset tears the anchor down and clears the stored placement. It is
// idempotent.
func (c *Controller) Reset(ctx context.Context) error {
	return c.do(ctx, func() { c.reset("local", "") })
}

func (c *Controller) reset(origin, reason string) {
	c.cancelRestore()
	c.cancelLoad()
	// invalidate any completion already queued
	c.gen++

	if c.anchor != nil {
		core.StopAnimations(c.anchor)
		c.anchor.RemoveChildren()
		if err := c.surface.RemoveEntity(c.anchor.ID); err != nil {
			c.logger.Warn("Failed to remove anchor from scene", "anchor", string(c.opts.Config.Key), "error", err.Error())
		}
		c.anchor = nil
	}
	c.content = nil
	c.playback = nil
	c.opts.Store.ClearPlacement(c.opts.Config.Key)

	if c.state == StateNoAnchor {
		return
	}
	previous := c.state
	c.setState(StateNoAnchor)
	c.opts.Metrics.Reset(origin)
	c.logger.Info("Anchor reset", "anchor", string(c.opts.Config.Key), "origin", origin, "reason", reason, "previous", previous.String())
	c.fire(CallbackReset, &CallbackContext{Previous: previous, Source: origin, Reason: reason})
}

func (c *Controller) scheduleRestore() {
	if c.anchor != nil {
		return
	}
	rec, ok := c.opts.Store.Placement(c.opts.Config.Key)
	if !ok || !rec.Placed {
		return
	}
	c.cancelRestore()
	c.restore = time.NewTimer(c.opts.Config.RestoreGrace)
	c.restoreC = c.restore.C
	c.logger.Debug("Restoration scheduled", "anchor", string(c.opts.Config.Key), "grace", c.opts.Config.RestoreGrace)
}

func (c *Controller) cancelRestore() {
	if c.restore != nil {
		c.restore.Stop()
		c.restore = nil
	}
	c.restoreC = nil
}

// restoreFromStore re-anchors at the stored transform unless a tap placed an
// anchor meanwhile or the record was cleared.
func (c *Controller) restoreFromStore() {
	if c.anchor != nil || c.degraded {
		return
	}
	rec, ok := c.opts.Store.Placement(c.opts.Config.Key)
	if !ok || !rec.Placed {
		return
	}
	if err := c.place(rec.Transform, "restore"); err != nil {
		c.logger.Warn("Restoration failed", "anchor", string(c.opts.Config.Key), "error", err.Error())
	}
}

func (c *Controller) onSessionEvent(ev core.SessionEvent) {
	switch ev.Kind {
	case core.SessionRestarted:
		// The runtime dropped its anchors; re-derive ours from the store.
		if c.anchor == nil {
			c.scheduleRestore()
			return
		}
		if rec, ok := c.opts.Store.Placement(c.opts.Config.Key); ok && rec.Placed {
			c.anchor.Transform = rec.Transform
		}
		_ = c.surface.RemoveEntity(c.anchor.ID)
		if err := c.surface.AddEntity(c.anchor); err != nil {
			c.logger.Error("Failed to re-add anchor after session restart", "anchor", string(c.opts.Config.Key), "error", err.Error())
			return
		}
		c.logger.Info("Anchor re-added after session restart", "anchor", string(c.opts.Config.Key))
	case core.SessionFailed:
		c.failure = ev.Err
		if c.failure == nil {
			c.failure = core.ErrTrackingSessionFailure
		}
		c.fire(CallbackFailure, &CallbackContext{Err: c.failure})
	case core.SessionInterrupted:
		c.logger.Debug("Session interrupted", "anchor", string(c.opts.Config.Key), "state", c.state.String())
	}
}

func (c *Controller) setState(s State) {
	if s == c.state {
		return
	}
	previous := c.state
	c.state = s
	c.fire(CallbackStateChange, &CallbackContext{Previous: previous})
}

func (c *Controller) fire(t CallbackType, cc *CallbackContext) {
	cc.Key = c.opts.Config.Key
	cc.State = c.state
	cc.Model = c.model
	if c.anchor != nil {
		cc.Transform = c.anchor.Transform
	}
	for _, err := range c.opts.Callbacks.ExecuteCallbacks(c.baseCtx, t, cc) {
		c.logger.Warn("Callback failed", "anchor", string(c.opts.Config.Key), "error", err.Error())
	}
}

// Status returns a snapshot of the controller for display.
func (c *Controller) Status(ctx context.Context) (Status, error) {
	var st Status
	err := c.do(ctx, func() {
		st = Status{
			Key:            c.opts.Config.Key,
			State:          c.state,
			StateName:      c.state.String(),
			Placed:         c.opts.Store.IsPlaced(c.opts.Config.Key),
			Model:          c.model,
			RestorePending: c.restoreC != nil,
			Degraded:       c.degraded,
		}
		if c.failure != nil {
			st.Failure = c.failure.Error()
		}
		if c.anchor != nil {
			st.AnchorID = c.anchor.ID
			st.Transform = c.anchor.Transform
			st.Children = len(c.anchor.Children())
		}
		if c.content != nil {
			st.Content = c.content.Name
			st.Placeholder = c.content.Placeholder
		}
		if c.playback != nil && !c.playback.Stopped() {
			st.ActiveClip = c.playback.Clip.Name
		}
	})
	return st, err
}

// Close captures a final snapshot, stops the snapshotter and the loop and
// removes the anchor from the scene. The stored placement is kept so a later
// controller can restore it. A failed final capture is returned but does not
// prevent shutdown.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	snapshotting := c.snapshotting
	c.mu.Unlock()

	var err error
	if snapshotting {
		if err = c.opts.Snapshotter.CaptureNow(ctx); err != nil {
			c.logger.Warn("Final snapshot failed", "anchor", string(c.opts.Config.Key), "error", err.Error())
		}
		c.opts.Snapshotter.Stop()
	}

	close(c.stop)
	<-c.done
	// the loop has exited; loop-owned state is ours now
	c.teardown()
	c.baseCancel()
	return err
}

func (c *Controller) teardown() {
	c.cancelRestore()
	c.cancelLoad()
	c.gen++
	if c.anchor != nil {
		core.StopAnimations(c.anchor)
		_ = c.surface.RemoveEntity(c.anchor.ID)
	}
	for _, u := range c.unsubscribe {
		u()
	}
	c.unsubscribe = nil
	c.resetCh = nil
	c.sessionCh = nil
}
