// Package anchorkit provides a high-level façade over the anchoring
// subsystem: a shared placement store, a broadcast reset bus, an asset loader
// and metrics, plus per-view wiring of a session bridge and an anchor
// controller. Most applications interact with this package by:
//  1. Creating a Kit via New() (optionally overriding the in-memory defaults)
//  2. Opening one View per AR screen with Kit.Open
//  3. Forwarding taps, model changes and step navigation to the View
//  4. Calling Kit.Reset or Kit.ResetAll when content should be dropped
//
// All defaults are safe for local development and testing.
package anchorkit

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/hupe1980/anchorkit/anchor"
	"github.com/hupe1980/anchorkit/artifact"
	"github.com/hupe1980/anchorkit/asset"
	"github.com/hupe1980/anchorkit/catalog"
	"github.com/hupe1980/anchorkit/core"
	"github.com/hupe1980/anchorkit/events"
	"github.com/hupe1980/anchorkit/logging"
	"github.com/hupe1980/anchorkit/metrics"
	"github.com/hupe1980/anchorkit/placement"
	"github.com/hupe1980/anchorkit/session"
)

// ErrNoSequence is returned by step navigation on a view opened without a
// catalog item.
var ErrNoSequence = errors.New("view has no step sequence")

// Options configures the Kit instance.
type Options struct {
	// Controller configuration shared by every view (grace, offsets, cadence).
	Config anchor.Config

	// Store is shared by every view. Defaults to placement.NewInMemoryStore.
	Store core.PlacementStore

	// Source provides raw asset bytes for the default loader.
	Source core.AssetSource

	// Loader overrides the default asset.Loader built over Source.
	Loader *asset.Loader

	// Catalog maps item codes to step counts for View step navigation.
	Catalog catalog.Catalog

	// Metrics is optional; nil disables instrumentation.
	Metrics *metrics.Recorder

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Kit is the process-wide owner of shared anchoring state.
type Kit struct {
	opts   Options
	resets *events.Bus[core.ResetSignal]

	mu    sync.Mutex
	views map[*View]struct{}
}

// New creates a new Kit with optional overrides. Any unset service is
// initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *Kit {
	opts := Options{
		Config: anchor.DefaultConfig,
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Store == nil {
		opts.Store = placement.NewInMemoryStore(func(o *placement.Options) { o.Logger = opts.Logger })
	}
	if opts.Source == nil {
		opts.Source = artifact.NewInMemoryStore()
	}
	if opts.Loader == nil {
		opts.Loader = asset.New(func(o *asset.Options) {
			o.Source = opts.Source
			o.Logger = opts.Logger
			o.Metrics = opts.Metrics
		})
	}
	return &Kit{
		opts:   opts,
		resets: events.NewBus[core.ResetSignal](),
		views:  make(map[*View]struct{}),
	}
}

// Store returns the shared placement store.
func (k *Kit) Store() core.PlacementStore { return k.opts.Store }

// Loader returns the shared asset loader.
func (k *Kit) Loader() *asset.Loader { return k.opts.Loader }

// Reset asks the controller owning key to drop its anchor. Delivery is
// asynchronous.
func (k *Kit) Reset(ctx context.Context, key core.AnchorKey) error {
	if key == "" {
		return errors.New("reset key is required")
	}
	return k.resets.Publish(ctx, core.NewResetSignal(key, "reset"))
}

// ResetAll asks every controller to drop its anchor and clears the store,
// including the environment snapshot.
func (k *Kit) ResetAll(ctx context.Context) error {
	if err := k.resets.Publish(ctx, core.NewResetSignal("", "reset_all")); err != nil {
		return err
	}
	k.opts.Store.ClearAll()
	k.opts.Logger.Info("All placements cleared")
	return nil
}

// Close closes every open view and the reset bus.
func (k *Kit) Close(ctx context.Context) error {
	k.mu.Lock()
	views := make([]*View, 0, len(k.views))
	for v := range k.views {
		views = append(views, v)
	}
	k.mu.Unlock()

	var errs []error
	for _, v := range views {
		errs = append(errs, v.Close(ctx))
	}
	k.resets.Close()
	return errors.Join(errs...)
}

// ViewOptions configures a single View.
type ViewOptions struct {
	// Key is the placement key; defaults to the Kit's controller key.
	Key core.AnchorKey
	// Model is the initial model identifier. Ignored when Item is set.
	Model string
	// Item selects a catalog item; the view then starts at step 0 and Next
	// and Prev walk its models.
	Item string
	// SessionID tags placements made by this view's tracking session.
	SessionID      string
	PlaneDetection core.PlaneDetection
	// OnFrame is forwarded to the session bridge.
	OnFrame   func(ev core.SessionEvent)
	Callbacks *anchor.CallbackManager
	// DisableSnapshots turns off periodic environment capture.
	DisableSnapshots bool
}

// View is one AR screen: a session bridge and the controller that anchors
// content on it.
type View struct {
	kit        *Kit
	bridge     *session.Bridge
	controller *anchor.Controller
	seq        *catalog.Sequence

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// Open wires a bridge and a controller over surface and starts both. On a
// surface without world tracking it returns a usable, degraded view together
// with core.ErrSurfaceNotSupported.
func (k *Kit) Open(ctx context.Context, surface core.TrackingSurface, optFns ...func(o *ViewOptions)) (*View, error) {
	vo := ViewOptions{Key: k.opts.Config.Key}
	for _, fn := range optFns {
		fn(&vo)
	}

	var seq *catalog.Sequence
	if vo.Item != "" {
		if k.opts.Catalog == nil {
			return nil, fmt.Errorf("open view for %s: no catalog configured", vo.Item)
		}
		item, err := k.opts.Catalog.Item(ctx, vo.Item)
		if err != nil {
			return nil, fmt.Errorf("open view: %w", err)
		}
		seq = catalog.NewSequence(item)
		vo.Model = seq.Current()
	}

	bridge := session.New(surface, k.opts.Store, func(o *session.Options) {
		o.SessionID = vo.SessionID
		o.PlaneDetection = vo.PlaneDetection
		o.OnFrame = vo.OnFrame
		o.Logger = k.opts.Logger
		o.Metrics = k.opts.Metrics
	})

	cfg := k.opts.Config
	cfg.Key = vo.Key
	controller := anchor.New(surface, func(o *anchor.Options) {
		o.Config = cfg
		o.Store = k.opts.Store
		o.Loader = k.opts.Loader
		o.Resets = k.resets
		o.Session = bridge
		o.DisableSnapshots = vo.DisableSnapshots
		o.Callbacks = vo.Callbacks
		o.Model = vo.Model
		o.Logger = k.opts.Logger
		o.Metrics = k.opts.Metrics
	})

	vctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	v := &View{kit: k, bridge: bridge, controller: controller, seq: seq, ctx: vctx, cancel: cancel}

	// subscribe before the bridge starts pumping events
	startErr := controller.Start(ctx)
	if startErr != nil && !errors.Is(startErr, core.ErrSurfaceNotSupported) {
		_ = v.Close(ctx)
		return nil, startErr
	}
	if startErr == nil {
		if err := bridge.Start(ctx); err != nil {
			_ = v.Close(ctx)
			return nil, err
		}
	}

	k.mu.Lock()
	k.views[v] = struct{}{}
	k.mu.Unlock()

	if seq != nil {
		v.prefetch(seq.Neighbours())
	}
	return v, startErr
}

// Controller exposes the underlying controller.
func (v *View) Controller() *anchor.Controller { return v.controller }

// Bridge exposes the underlying session bridge.
func (v *View) Bridge() *session.Bridge { return v.bridge }

// Sequence returns the step sequence, or nil.
func (v *View) Sequence() *catalog.Sequence { return v.seq }

// Tap forwards a screen tap to the controller.
func (v *View) Tap(ctx context.Context, point mgl32.Vec2) (bool, error) {
	return v.controller.Tap(ctx, point)
}

// SetModel swaps the displayed model.
func (v *View) SetModel(ctx context.Context, model string) error {
	return v.controller.SetModel(ctx, model)
}

// Status reports the controller state.
func (v *View) Status(ctx context.Context) (anchor.Status, error) {
	return v.controller.Status(ctx)
}

// Next advances to the next step and swaps in its model. It reports false on
// the last step. If the swap fails the step is left unchanged.
func (v *View) Next(ctx context.Context) (bool, error) {
	return v.step(ctx, (*catalog.Sequence).Next, (*catalog.Sequence).Prev)
}

// Prev goes back one step and swaps in its model. It reports false on the
// first step. If the swap fails the step is left unchanged.
func (v *View) Prev(ctx context.Context) (bool, error) {
	return v.step(ctx, (*catalog.Sequence).Prev, (*catalog.Sequence).Next)
}

func (v *View) step(ctx context.Context, move, undo func(*catalog.Sequence) bool) (bool, error) {
	if v.seq == nil {
		return false, ErrNoSequence
	}
	if !move(v.seq) {
		return false, nil
	}
	if err := v.controller.SetModel(ctx, v.seq.Current()); err != nil {
		undo(v.seq)
		return false, err
	}
	v.prefetch(v.seq.Neighbours())
	return true, nil
}

func (v *View) prefetch(ids []string) {
	if len(ids) == 0 {
		return
	}
	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		if err := v.kit.opts.Loader.Prefetch(v.ctx, ids...); err != nil && v.ctx.Err() == nil {
			v.kit.opts.Logger.Debug("Prefetch failed", "assets", ids, "error", err.Error())
		}
	}()
}

// Close closes the controller (capturing a final snapshot) and the bridge.
// The stored placement is kept.
func (v *View) Close(ctx context.Context) error {
	var err error
	v.once.Do(func() {
		v.cancel()
		err = v.controller.Close(ctx)
		v.bridge.Close()
		v.wg.Wait()

		v.kit.mu.Lock()
		delete(v.kit.views, v)
		v.kit.mu.Unlock()
	})
	return err
}
