package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hupe1980/anchorkit/core"
	"github.com/hupe1980/anchorkit/internal/simsurface"
	"github.com/hupe1980/anchorkit/placement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureNow_StoresLatest(t *testing.T) {
	surface := simsurface.New()
	store := placement.NewInMemoryStore()
	store.SetCurrentSession("sess-1")
	s := New(surface, store)

	require.NoError(t, s.CaptureNow(context.Background()))
	require.NoError(t, s.CaptureNow(context.Background()))

	snap, ok := store.Snapshot()
	require.True(t, ok)
	assert.Equal(t, "worldmap-2", string(snap.Data))
	assert.Equal(t, "sess-1", snap.SessionID)
	assert.False(t, snap.CapturedAt.IsZero())
}

func TestCaptureNow_FailureKeepsPrevious(t *testing.T) {
	surface := simsurface.New()
	store := placement.NewInMemoryStore()
	s := New(surface, store)
	require.NoError(t, s.CaptureNow(context.Background()))

	surface.FailCaptures(errors.New("tracking limited"))
	err := s.CaptureNow(context.Background())
	require.ErrorIs(t, err, core.ErrSnapshotCaptureFailure)

	snap, ok := store.Snapshot()
	require.True(t, ok)
	assert.Equal(t, "worldmap-1", string(snap.Data))
}

type emptyCapturer struct{}

func (emptyCapturer) CaptureSnapshot(context.Context) (core.EnvironmentSnapshot, error) {
	return core.EnvironmentSnapshot{}, nil
}

func TestCaptureNow_EmptyMapIsFailure(t *testing.T) {
	store := placement.NewInMemoryStore()
	err := New(emptyCapturer{}, store).CaptureNow(context.Background())
	require.ErrorIs(t, err, core.ErrSnapshotCaptureFailure)
	_, ok := store.Snapshot()
	assert.False(t, ok)
}

type slowCapturer struct{}

func (slowCapturer) CaptureSnapshot(ctx context.Context) (core.EnvironmentSnapshot, error) {
	<-ctx.Done()
	return core.EnvironmentSnapshot{}, ctx.Err()
}

func TestCaptureNow_Timeout(t *testing.T) {
	s := New(slowCapturer{}, placement.NewInMemoryStore(), func(o *Options) { o.CaptureTimeout = 10 * time.Millisecond })
	err := s.CaptureNow(context.Background())
	require.ErrorIs(t, err, core.ErrSnapshotCaptureFailure)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRun_RetriesAfterFailure(t *testing.T) {
	surface := simsurface.New()
	surface.FailCaptures(errors.New("not ready"))
	store := placement.NewInMemoryStore()
	s := New(surface, store, func(o *Options) { o.Interval = 5 * time.Millisecond })

	s.Start(context.Background())
	s.Start(context.Background())
	defer s.Stop()

	require.Eventually(t, func() bool { return surface.Captures() >= 2 }, time.Second, 5*time.Millisecond)
	_, ok := store.Snapshot()
	assert.False(t, ok)

	surface.FailCaptures(nil)
	require.Eventually(t, func() bool {
		_, ok := store.Snapshot()
		return ok
	}, time.Second, 5*time.Millisecond)
}

func TestStop_HaltsTicker(t *testing.T) {
	surface := simsurface.New()
	s := New(surface, placement.NewInMemoryStore(), func(o *Options) { o.Interval = 2 * time.Millisecond })
	s.Start(context.Background())
	require.Eventually(t, func() bool { return surface.Captures() >= 1 }, time.Second, time.Millisecond)

	s.Stop()
	s.Stop()
	n := surface.Captures()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, surface.Captures())
}
