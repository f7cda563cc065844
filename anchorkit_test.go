package anchorkit

import (
	"context"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hupe1980/anchorkit/anchor"
	"github.com/hupe1980/anchorkit/catalog"
	"github.com/hupe1980/anchorkit/core"
	"github.com/hupe1980/anchorkit/internal/simsurface"
	"github.com/hupe1980/anchorkit/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

func craneModels() map[string]*testutil.ManifestBuilder {
	return map[string]*testutil.ManifestBuilder{
		"crane3d0": testutil.NewManifestBuilder("crane").Node("square", "plane"),
		"crane3d1": testutil.NewManifestBuilder("crane").Node("triangle", "plane").Clip("fold", "1s"),
		"crane3d2": testutil.NewManifestBuilder("crane").Node("bird", "mesh").Clip("flap", "2s"),
	}
}

func newKit(t *testing.T) *Kit {
	t.Helper()
	return newKitWithSource(t, testutil.Source(craneModels()))
}

func newKitWithSource(t *testing.T, src core.AssetSource) *Kit {
	t.Helper()
	cat, err := catalog.NewStaticCatalog(catalog.Item{Code: "crane", Name: "Crane", Steps: 3, AR: true})
	require.NoError(t, err)

	k := New(func(o *Options) {
		o.Source = src
		o.Catalog = cat
		o.Config.RestoreGrace = 20 * time.Millisecond
	})
	t.Cleanup(func() { _ = k.Close(context.Background()) })
	return k
}

func newSurface() *simsurface.Surface {
	cam := testutil.At(0, 1.5, 0)
	return simsurface.New(func(o *simsurface.Options) {
		o.Camera = &cam
		o.Hit = simsurface.PlaneAt(0)
	})
}

func waitState(t *testing.T, v *View, s anchor.State) anchor.Status {
	t.Helper()
	var st anchor.Status
	require.Eventually(t, func() bool {
		var err error
		st, err = v.Status(context.Background())
		return err == nil && st.State == s
	}, waitFor, 5*time.Millisecond, "expected state %s", s)
	return st
}

func withItem(item string) func(o *ViewOptions) {
	return func(o *ViewOptions) {
		o.Item = item
		o.DisableSnapshots = true
	}
}

func TestView_StepNavigationSwapsModels(t *testing.T) {
	ctx := context.Background()
	k := newKit(t)
	v, err := k.Open(ctx, newSurface(), withItem("crane"))
	require.NoError(t, err)

	placed, err := v.Tap(ctx, mgl32.Vec2{0.1, -0.4})
	require.NoError(t, err)
	require.True(t, placed)
	first := waitState(t, v, anchor.StateReady)
	assert.Equal(t, "crane3d0", first.Model)

	moved, err := v.Prev(ctx)
	require.NoError(t, err)
	assert.False(t, moved)

	moved, err = v.Next(ctx)
	require.NoError(t, err)
	assert.True(t, moved)
	require.Eventually(t, func() bool {
		st, _ := v.Status(ctx)
		return st.Model == "crane3d1" && st.State == anchor.StateReady
	}, waitFor, 5*time.Millisecond)

	st, err := v.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fold", st.ActiveClip)
	assert.Equal(t, first.AnchorID, st.AnchorID)
	assert.Equal(t, first.Transform, st.Transform)

	_, err = v.Next(ctx)
	require.NoError(t, err)
	assert.True(t, v.Sequence().IsLast())
	moved, err = v.Next(ctx)
	require.NoError(t, err)
	assert.False(t, moved)
}

func TestView_NoSequence(t *testing.T) {
	ctx := context.Background()
	k := newKit(t)
	v, err := k.Open(ctx, newSurface(), func(o *ViewOptions) {
		o.Model = "crane3d2"
		o.DisableSnapshots = true
	})
	require.NoError(t, err)

	_, err = v.Next(ctx)
	assert.ErrorIs(t, err, ErrNoSequence)
	assert.Nil(t, v.Sequence())
}

func TestOpen_UnknownItem(t *testing.T) {
	k := newKit(t)
	_, err := k.Open(context.Background(), newSurface(), withItem("frog"))
	assert.ErrorIs(t, err, catalog.ErrItemNotFound)
}

func TestOpen_UnsupportedSurfaceIsDegraded(t *testing.T) {
	ctx := context.Background()
	k := newKit(t)
	surface := simsurface.New(func(o *simsurface.Options) { o.Unsupported = true })

	v, err := k.Open(ctx, surface, withItem("crane"))
	require.ErrorIs(t, err, core.ErrSurfaceNotSupported)
	require.NotNil(t, v)

	st, err := v.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.Degraded)

	_, err = v.Tap(ctx, mgl32.Vec2{})
	assert.ErrorIs(t, err, core.ErrSurfaceNotSupported)
	assert.Empty(t, surface.Runs())
}

func TestKit_ResetTargetsOneKey(t *testing.T) {
	ctx := context.Background()
	k := newKit(t)
	a, err := k.Open(ctx, newSurface(), func(o *ViewOptions) {
		o.Key = "left"
		o.Model = "crane3d0"
		o.DisableSnapshots = true
	})
	require.NoError(t, err)
	b, err := k.Open(ctx, newSurface(), func(o *ViewOptions) {
		o.Key = "right"
		o.Model = "crane3d0"
		o.DisableSnapshots = true
	})
	require.NoError(t, err)

	_, err = a.Tap(ctx, mgl32.Vec2{})
	require.NoError(t, err)
	_, err = b.Tap(ctx, mgl32.Vec2{})
	require.NoError(t, err)
	waitState(t, a, anchor.StateReady)
	waitState(t, b, anchor.StateReady)

	require.NoError(t, k.Reset(ctx, "left"))
	waitState(t, a, anchor.StateNoAnchor)
	assert.False(t, k.Store().IsPlaced("left"))

	st, err := b.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, anchor.StateReady, st.State)
	assert.True(t, k.Store().IsPlaced("right"))

	assert.Error(t, k.Reset(ctx, ""))
}

func TestKit_ResetAllClearsEverything(t *testing.T) {
	ctx := context.Background()
	k := newKit(t)
	v, err := k.Open(ctx, newSurface(), withItem("crane"))
	require.NoError(t, err)
	_, err = v.Tap(ctx, mgl32.Vec2{})
	require.NoError(t, err)
	waitState(t, v, anchor.StateReady)
	k.Store().SaveSnapshot(core.EnvironmentSnapshot{Data: []byte("map")})

	require.NoError(t, k.ResetAll(ctx))

	waitState(t, v, anchor.StateNoAnchor)
	assert.False(t, k.Store().IsPlaced(core.SessionAnchorKey))
	_, ok := k.Store().Snapshot()
	assert.False(t, ok)
}

func TestView_CloseKeepsPlacementForNextView(t *testing.T) {
	ctx := context.Background()
	k := newKit(t)
	first, err := k.Open(ctx, newSurface(), withItem("crane"))
	require.NoError(t, err)
	_, err = first.Tap(ctx, mgl32.Vec2{0.3, -0.7})
	require.NoError(t, err)
	placedAt := waitState(t, first, anchor.StateReady).Transform
	require.NoError(t, first.Close(ctx))

	rec, ok := k.Store().Placement(core.SessionAnchorKey)
	require.True(t, ok)
	assert.Equal(t, placedAt, rec.Transform)

	second, err := k.Open(ctx, newSurface(), withItem("crane"))
	require.NoError(t, err)
	st := waitState(t, second, anchor.StateReady)
	assert.Equal(t, placedAt, st.Transform)
}

func TestView_NextKeepsStepWhenSwapFails(t *testing.T) {
	ctx := context.Background()
	k := newKit(t)
	v, err := k.Open(ctx, newSurface(), withItem("crane"))
	require.NoError(t, err)
	_, err = v.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, v.Sequence().Step())

	require.NoError(t, v.Controller().Close(ctx))

	moved, err := v.Next(ctx)
	assert.ErrorIs(t, err, core.ErrClosed)
	assert.False(t, moved)
	assert.Equal(t, 1, v.Sequence().Step())

	moved, err = v.Prev(ctx)
	assert.ErrorIs(t, err, core.ErrClosed)
	assert.False(t, moved)
	assert.Equal(t, 1, v.Sequence().Step())
}

func TestView_PrefetchFailureDoesNotFailNextLoad(t *testing.T) {
	ctx := context.Background()
	models := craneModels()
	// step 0 is missing; its fetch fails once released
	delete(models, "crane3d0")
	src := testutil.NewGatedSource(testutil.Source(models), "crane3d0", "crane3d2")
	t.Cleanup(func() {
		src.Release("crane3d0")
		src.Release("crane3d2")
	})
	k := newKitWithSource(t, src)

	v, err := k.Open(ctx, newSurface(), withItem("crane"))
	require.NoError(t, err)
	placed, err := v.Tap(ctx, mgl32.Vec2{0.1, -0.4})
	require.NoError(t, err)
	require.True(t, placed)
	waitState(t, v, anchor.StateLoading)

	// the swap abandons the crane3d0 load; the prefetch joins it and
	// starts crane3d2
	moved, err := v.Next(ctx)
	require.NoError(t, err)
	require.True(t, moved)
	waitFetch(t, src, "crane3d2.yaml")

	moved, err = v.Next(ctx)
	require.NoError(t, err)
	require.True(t, moved)
	waitState(t, v, anchor.StateLoading)

	src.Release("crane3d0")
	time.Sleep(20 * time.Millisecond)
	src.Release("crane3d2")

	st := waitState(t, v, anchor.StateReady)
	assert.Equal(t, "crane3d2", st.Model)
	assert.Equal(t, "flap", st.ActiveClip)
	assert.False(t, st.Placeholder)
	assert.Equal(t, 1, src.Fetches("crane3d2"))
}

func waitFetch(t *testing.T, src *testutil.GatedSource, key string) {
	t.Helper()
	timeout := time.After(waitFor)
	for {
		select {
		case k := <-src.Started():
			if k == key {
				return
			}
		case <-timeout:
			t.Fatalf("fetch of %s never started", key)
		}
	}
}
