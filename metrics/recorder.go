// Package metrics exposes Prometheus instruments for anchor placement, asset
// resolution, environment snapshots and tracking session events.
//
// A nil *Recorder is valid and records nothing, so components can hold an
// optional recorder without branching at every call site.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "anchorkit"

// Recorder groups the collectors used across anchorkit.
type Recorder struct {
	placements    *prometheus.CounterVec
	assetLoads    *prometheus.CounterVec
	assetLatency  prometheus.Histogram
	snapshots     *prometheus.CounterVec
	snapshotBytes prometheus.Gauge
	resets        *prometheus.CounterVec
	swaps         prometheus.Counter
	sessionEvents *prometheus.CounterVec
	operations    *prometheus.HistogramVec
}

// New creates a recorder and registers its collectors with reg. A nil reg
// registers with prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &Recorder{
		placements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "placements_total",
			Help: "Anchors created, by pose source (hit, fallback, restore).",
		}, []string{"source"}),
		assetLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "asset_loads_total",
			Help: "Asset resolutions, by result (ok, not_found, parse_failure, error).",
		}, []string{"result"}),
		assetLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "asset_load_duration_seconds",
			Help:    "Time spent resolving an asset into an entity.",
			Buckets: prometheus.DefBuckets,
		}),
		snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "snapshot_captures_total",
			Help: "Environment snapshot captures, by result.",
		}, []string{"result"}),
		snapshotBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "snapshot_bytes",
			Help: "Size of the latest stored environment snapshot.",
		}),
		resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "resets_total",
			Help: "Controller resets, by origin (local, broadcast).",
		}, []string{"origin"}),
		swaps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "content_swaps_total",
			Help: "In-place content swaps on an existing anchor.",
		}),
		sessionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "session_events_total",
			Help: "Tracking session lifecycle events, by kind.",
		}, []string{"kind"}),
		operations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "operation_duration_seconds",
			Help:    "Duration of named operations, by status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "status"}),
	}
	for _, c := range []prometheus.Collector{
		r.placements, r.assetLoads, r.assetLatency, r.snapshots, r.snapshotBytes,
		r.resets, r.swaps, r.sessionEvents, r.operations,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// MustNew is New that panics on registration failure.
func MustNew(reg prometheus.Registerer) *Recorder {
	r, err := New(reg)
	if err != nil {
		panic(err)
	}
	return r
}

// Placement counts an anchor creation.
func (r *Recorder) Placement(source string) {
	if r == nil {
		return
	}
	r.placements.WithLabelValues(source).Inc()
}

// AssetLoad records an asset resolution outcome and its latency.
func (r *Recorder) AssetLoad(result string, d time.Duration) {
	if r == nil {
		return
	}
	r.assetLoads.WithLabelValues(result).Inc()
	r.assetLatency.Observe(d.Seconds())
}

// Snapshot records a capture outcome. size is ignored on failure.
func (r *Recorder) Snapshot(success bool, size int) {
	if r == nil {
		return
	}
	if !success {
		r.snapshots.WithLabelValues("error").Inc()
		return
	}
	r.snapshots.WithLabelValues("ok").Inc()
	r.snapshotBytes.Set(float64(size))
}

// Reset counts a controller reset.
func (r *Recorder) Reset(origin string) {
	if r == nil {
		return
	}
	r.resets.WithLabelValues(origin).Inc()
}

// Swap counts an in-place content swap.
func (r *Recorder) Swap() {
	if r == nil {
		return
	}
	r.swaps.Inc()
}

// SessionEvent counts a tracking lifecycle event.
func (r *Recorder) SessionEvent(kind string) {
	if r == nil {
		return
	}
	r.sessionEvents.WithLabelValues(kind).Inc()
}

// Observe records a generic operation outcome.
func (r *Recorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if r == nil || operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.operations.WithLabelValues(operation, status).Observe(duration.Seconds())
}
