package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := New(reg)
	require.NoError(t, err)

	r.Placement("hit")
	r.Placement("fallback")
	r.Placement("fallback")
	r.AssetLoad("ok", 10*time.Millisecond)
	r.AssetLoad("not_found", time.Millisecond)
	r.Snapshot(true, 128)
	r.Snapshot(false, 0)
	r.Reset("broadcast")
	r.Swap()
	r.SessionEvent("interrupted")
	r.Observe(context.Background(), "capture", true, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.placements.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.placements.WithLabelValues("fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.assetLoads.WithLabelValues("not_found")))
	assert.Equal(t, 128.0, testutil.ToFloat64(r.snapshotBytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.snapshots.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.swaps))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.resets.WithLabelValues("broadcast")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.sessionEvents.WithLabelValues("interrupted")))
}

func TestRecorder_DuplicateRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	require.Error(t, err)
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	r.Placement("hit")
	r.AssetLoad("ok", time.Second)
	r.Snapshot(true, 1)
	r.Reset("local")
	r.Swap()
	r.SessionEvent("failed")
	r.Observe(context.Background(), "x", false, 0)
}
