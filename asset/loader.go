package asset

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/hupe1980/anchorkit/artifact"
	"github.com/hupe1980/anchorkit/core"
	"github.com/hupe1980/anchorkit/logging"
	"github.com/hupe1980/anchorkit/metrics"
)

const (
	// DefaultScale is applied to every loaded model root.
	DefaultScale float32 = 0.1
	// DefaultCacheSize bounds the number of decoded manifests kept in memory.
	DefaultCacheSize = 64
	// DefaultPlaceholderSize is the edge length in metres of the placeholder box.
	DefaultPlaceholderSize float32 = 0.1
	// DefaultPlaceholderColor is the placeholder box colour.
	DefaultPlaceholderColor = "blue"
	// ManifestExt is appended to normalised ids to form source keys.
	ManifestExt = ".yaml"
	// DefaultFetchTimeout bounds one shared fetch and decode of a manifest.
	DefaultFetchTimeout = 30 * time.Second

	prefetchLimit = 4
)

// Options configures a Loader.
type Options struct {
	// Source provides raw asset bytes. Defaults to an empty in-memory store.
	Source core.AssetSource
	// Scale is the display scale applied to loaded models.
	Scale float32
	// CacheSize bounds the manifest cache.
	CacheSize int
	// FetchTimeout bounds a fetch shared by concurrent callers. A caller's
	// own cancellation only detaches that caller; the fetch keeps running
	// for the others until it completes or this timeout elapses.
	FetchTimeout time.Duration
	// PlaceholderSize and PlaceholderColor describe the fallback box.
	PlaceholderSize  float32
	PlaceholderColor string
	// Logger defaults to logging.NoOpLogger.
	Logger logging.Logger
	// Metrics is optional.
	Metrics *metrics.Recorder
	// Tracer defaults to the global otel tracer.
	Tracer trace.Tracer
}

// Loader implements core.AssetLoader.
type Loader struct {
	opts  Options
	cache *lru.Cache[string, *Manifest]
	group singleflight.Group
}

var _ core.AssetLoader = (*Loader)(nil)

// New creates a Loader with defaults applied.
func New(optFns ...func(o *Options)) *Loader {
	opts := Options{
		Scale:            DefaultScale,
		CacheSize:        DefaultCacheSize,
		FetchTimeout:     DefaultFetchTimeout,
		PlaceholderSize:  DefaultPlaceholderSize,
		PlaceholderColor: DefaultPlaceholderColor,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Source == nil {
		opts.Source = artifact.NewInMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("github.com/hupe1980/anchorkit/asset")
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.Scale <= 0 {
		opts.Scale = DefaultScale
	}
	// size is positive, so lru.New cannot fail
	cache, _ := lru.New[string, *Manifest](opts.CacheSize)
	return &Loader{opts: opts, cache: cache}
}

// NormalizeID strips directory components and a trailing .usdz or .yaml
// extension, so "models/crane3d0.usdz" and "crane3d0" name the same asset.
func NormalizeID(assetID string) string {
	id := path.Base(strings.TrimSpace(assetID))
	if id == "." || id == "/" {
		return ""
	}
	switch strings.ToLower(path.Ext(id)) {
	case ".usdz", ManifestExt:
		id = strings.TrimSuffix(id, path.Ext(id))
	}
	return id
}

// Resolve fetches, decodes and instantiates the asset. Asset failures are
// *core.AssetError values; if ctx ends first, ctx.Err() is returned as is.
func (l *Loader) Resolve(ctx context.Context, assetID string) (*core.Entity, error) {
	id := NormalizeID(assetID)
	ctx, span := l.opts.Tracer.Start(ctx, "asset.Resolve", trace.WithAttributes(attribute.String("asset.id", id)))
	defer span.End()

	start := time.Now()
	m, err := l.manifest(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if !isCallerDone(ctx, err) {
			l.opts.Metrics.AssetLoad(resultLabel(err), time.Since(start))
		}
		return nil, err
	}
	e := m.Build(id, l.opts.Scale)
	span.SetAttributes(attribute.Int("asset.clips", len(e.Clips)))
	l.opts.Metrics.AssetLoad("ok", time.Since(start))
	return e, nil
}

func (l *Loader) manifest(ctx context.Context, id string) (*Manifest, error) {
	if id == "" {
		return nil, &core.AssetError{AssetID: id, Err: fmt.Errorf("%w: empty asset id", core.ErrAssetNotFound)}
	}
	if m, ok := l.cache.Get(id); ok {
		return m, nil
	}
	// The flight outlives any single caller: joiners must not inherit the
	// cancellation of whoever started it.
	ch := l.group.DoChan(id, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.opts.FetchTimeout)
		defer cancel()
		data, err := l.opts.Source.Fetch(fctx, id+ManifestExt)
		if err != nil {
			if errors.Is(err, core.ErrArtifactNotFound) {
				return nil, &core.AssetError{AssetID: id, Err: fmt.Errorf("%w: %w", core.ErrAssetNotFound, err)}
			}
			return nil, &core.AssetError{AssetID: id, Err: err}
		}
		m, err := Decode(data)
		if err != nil {
			return nil, &core.AssetError{AssetID: id, Err: fmt.Errorf("%w: %w", core.ErrAssetParseFailure, err)}
		}
		l.cache.Add(id, m)
		return m, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*Manifest), nil
	}
}

// isCallerDone reports whether err is the caller's own cancellation rather
// than an asset failure.
func isCallerDone(ctx context.Context, err error) bool {
	var ae *core.AssetError
	return ctx.Err() != nil && !errors.As(err, &ae)
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, core.ErrAssetNotFound):
		return "not_found"
	case errors.Is(err, core.ErrAssetParseFailure):
		return "parse_failure"
	default:
		return "error"
	}
}

// Load resolves the asset and substitutes the placeholder on any failure.
// It never returns nil.
func (l *Loader) Load(ctx context.Context, assetID string) *core.Entity {
	start := time.Now()
	e, err := l.Resolve(ctx, assetID)
	if err != nil {
		if isCallerDone(ctx, err) {
			// the caller discards the result; no asset failure to report
			l.opts.Logger.Debug("Asset load abandoned", "asset_id", assetID, "error", err.Error())
			return l.Placeholder(NormalizeID(assetID))
		}
		logging.LogAssetLoad(l.opts.Logger, assetID, time.Since(start), true, err)
		return l.Placeholder(NormalizeID(assetID))
	}
	logging.LogAssetLoad(l.opts.Logger, assetID, time.Since(start), false, nil)
	return e
}

// Placeholder returns the deterministic fallback entity: a small coloured box
// without animations.
func (l *Loader) Placeholder(assetID string) *core.Entity {
	e := core.NewEntity("placeholder")
	e.AssetID = assetID
	e.Mesh = "box"
	e.Color = l.opts.PlaceholderColor
	e.Scale = l.opts.PlaceholderSize
	e.Placeholder = true
	return e
}

// Animations lists the clips found anywhere in the entity tree.
func (l *Loader) Animations(e *core.Entity) []core.AnimationClip {
	var clips []core.AnimationClip
	core.Walk(e, func(n *core.Entity) bool {
		clips = append(clips, n.Clips...)
		return true
	})
	return clips
}

// Prefetch warms the manifest cache for ids, typically the neighbouring steps
// of a sequence. Every id is attempted; the first resolution error is
// returned.
func (l *Loader) Prefetch(ctx context.Context, ids ...string) error {
	var g errgroup.Group
	g.SetLimit(prefetchLimit)
	for _, id := range ids {
		id := NormalizeID(id)
		g.Go(func() error {
			_, err := l.manifest(ctx, id)
			return err
		})
	}
	return g.Wait()
}

// Purge drops every cached manifest.
func (l *Loader) Purge() { l.cache.Purge() }
