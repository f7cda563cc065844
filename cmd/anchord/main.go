// Command anchord runs an anchoring view over a simulated tracking surface
// and exposes it over HTTP for demos and integration tests.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/anchorkit"
	"github.com/hupe1980/anchorkit/artifact"
	"github.com/hupe1980/anchorkit/asset"
	"github.com/hupe1980/anchorkit/catalog"
	"github.com/hupe1980/anchorkit/config"
	"github.com/hupe1980/anchorkit/core"
	"github.com/hupe1980/anchorkit/internal/httpapi"
	"github.com/hupe1980/anchorkit/internal/otel"
	"github.com/hupe1980/anchorkit/internal/simsurface"
	"github.com/hupe1980/anchorkit/logging"
	"github.com/hupe1980/anchorkit/metrics"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "anchord: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.NewSlogLogger(cfg.Level(), cfg.LogFormat, false).WithComponent("anchord")

	shutdownTracing, err := otel.Setup(ctx, "anchord", cfg.OTelEndpoint, cfg.OTelEnabled)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("Tracing shutdown failed", "error", err.Error())
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	src, err := artifact.Open(ctx, cfg.ArtifactConfig())
	if err != nil {
		return fmt.Errorf("open assets: %w", err)
	}
	loader := asset.New(func(o *asset.Options) {
		o.Source = src
		o.Scale = cfg.DisplayScale
		o.CacheSize = cfg.Assets.CacheSize
		o.Logger = logger.WithComponent("loader")
		o.Metrics = rec
	})

	cat, closeCatalog, err := openCatalog(ctx, cfg.Catalog)
	if err != nil {
		return err
	}
	defer closeCatalog()

	kit := anchorkit.New(func(o *anchorkit.Options) {
		o.Config.RestoreGrace = cfg.RestoreGrace
		o.Config.FallbackOffset = cfg.FallbackOffset()
		o.Config.SnapshotInterval = cfg.SnapshotInterval
		o.Config.CaptureTimeout = cfg.CaptureTimeout
		o.Source = src
		o.Loader = loader
		o.Catalog = cat
		o.Metrics = rec
		o.Logger = logger.WithComponent("controller")
	})

	// viewpoint at eye height above the origin
	camera := mgl32.Translate3D(0, 1.5, 0)
	surface := simsurface.New(func(o *simsurface.Options) {
		o.Camera = &camera
		o.Hit = simsurface.PlaneAt(0)
	})
	defer surface.Close()

	view, err := kit.Open(ctx, surface, func(o *anchorkit.ViewOptions) {
		o.Item = cfg.Catalog.Code
		o.Model = cfg.Model
		o.SessionID = cfg.SessionID
		o.PlaneDetection = core.PlaneDetectionHorizontal
	})
	if err != nil {
		return fmt.Errorf("open view: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.New(kit, view, func(o *httpapi.Options) { o.Gatherer = reg; o.Logger = logger }),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		shutdownErr := srv.Shutdown(sctx)
		return errors.Join(shutdownErr, kit.Close(sctx))
	})
	return g.Wait()
}

// openCatalog prefers SQLite when a DSN is configured, seeding it from the
// YAML file when both are set.
func openCatalog(ctx context.Context, cfg config.CatalogConfig) (catalog.Catalog, func(), error) {
	noop := func() {}
	var static *catalog.StaticCatalog
	if cfg.File != "" {
		c, err := catalog.LoadFile(cfg.File)
		if err != nil {
			return nil, noop, err
		}
		static = c
	}
	if cfg.SQLiteDSN == "" {
		if static == nil {
			return nil, noop, nil
		}
		return static, noop, nil
	}

	db, err := catalog.OpenSQLite(cfg.SQLiteDSN)
	if err != nil {
		return nil, noop, err
	}
	if static != nil {
		if err := db.Import(ctx, static); err != nil {
			_ = db.Close()
			return nil, noop, fmt.Errorf("seed catalog: %w", err)
		}
	}
	return db, func() { _ = db.Close() }, nil
}
