package simsurface

import (
	"context"
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hupe1980/anchorkit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSurface_HitAndCamera(t *testing.T) {
	s := New()
	_, ok := s.HitTest(mgl32.Vec2{1, 2})
	assert.False(t, ok)
	_, ok = s.CameraPose()
	assert.False(t, ok)

	s.SetHit(PlaneAt(-1))
	pose, ok := s.HitTest(mgl32.Vec2{1, 2})
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{1, -1, 2}, core.Translation(pose))

	s.SetCamera(mgl32.Translate3D(0, 1.6, 0))
	cam, ok := s.CameraPose()
	require.True(t, ok)
	assert.InDelta(t, 1.6, cam[13], 1e-6)
}

func TestSurface_CaptureAndRun(t *testing.T) {
	s := New()
	ctx := context.Background()

	a, err := s.CaptureSnapshot(ctx)
	require.NoError(t, err)
	b, err := s.CaptureSnapshot(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, a.Data, b.Data)

	boom := errors.New("boom")
	s.FailCaptures(boom)
	_, err = s.CaptureSnapshot(ctx)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 3, s.Captures())

	anchor := core.NewAnchor(mgl32.Ident4())
	require.NoError(t, s.AddEntity(anchor))
	require.Error(t, s.AddEntity(anchor))
	require.NoError(t, s.Run(ctx, core.SessionConfig{InitialSnapshot: &b, RemoveExistingAnchors: true}))
	assert.Equal(t, 0, s.EntityCount())
	runs := s.Runs()
	require.Len(t, runs, 1)
	assert.Equal(t, b.Data, runs[0].InitialSnapshot.Data)
}

func TestSurface_EmitAfterClose(t *testing.T) {
	s := New()
	require.True(t, s.Emit(core.SessionInterrupted, nil))
	ev := <-s.Events()
	assert.Equal(t, core.SessionInterrupted, ev.Kind)

	s.Close()
	s.Close()
	assert.False(t, s.Emit(core.SessionInterrupted, nil))
	_, ok := <-s.Events()
	assert.False(t, ok)
}
