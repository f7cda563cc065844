package placement

import (
	"fmt"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hupe1980/anchorkit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Interface compliance (compile-time assertions)
var _ core.PlacementStore = (*InMemoryStore)(nil)

func TestInMemoryStore_SetPlacedAndLookup(t *testing.T) {
	s := NewInMemoryStore()
	if s.IsPlaced("k") {
		t.Fatalf("expected empty store")
	}
	if _, ok := s.Placement("k"); ok {
		t.Fatalf("absent key should not be found")
	}

	s.SetCurrentSession("sess-1")
	pose := mgl32.Translate3D(0.5, 0, -1)
	s.SetPlaced("k", pose)

	rec, ok := s.Placement("k")
	require.True(t, ok)
	assert.True(t, rec.Placed)
	assert.Equal(t, pose, rec.Transform)
	assert.Equal(t, "sess-1", rec.SessionID)
	assert.Equal(t, core.AnchorKey("k"), rec.Key)
	assert.False(t, rec.UpdatedAt.IsZero())
	assert.True(t, s.IsPlaced("k"))
}

func TestInMemoryStore_SetPlacedOverwrites(t *testing.T) {
	s := NewInMemoryStore()
	s.SetPlaced("k", mgl32.Translate3D(1, 0, 0))
	s.SetCurrentSession("sess-2")
	s.SetPlaced("k", mgl32.Translate3D(2, 0, 0))

	rec, _ := s.Placement("k")
	assert.Equal(t, mgl32.Translate3D(2, 0, 0), rec.Transform)
	assert.Equal(t, "sess-2", rec.SessionID)
	assert.Len(t, s.Keys(), 1)
}

func TestInMemoryStore_ClearPlacementIdempotent(t *testing.T) {
	s := NewInMemoryStore()
	s.SetPlaced("a", mgl32.Ident4())
	s.SetPlaced("b", mgl32.Ident4())

	s.ClearPlacement("a")
	s.ClearPlacement("a")
	s.ClearPlacement("never")

	assert.False(t, s.IsPlaced("a"))
	assert.True(t, s.IsPlaced("b"))
	assert.Equal(t, []core.AnchorKey{"b"}, s.Keys())
}

func TestInMemoryStore_ClearAllDropsSnapshot(t *testing.T) {
	s := NewInMemoryStore()
	s.SetPlaced("a", mgl32.Ident4())
	s.SaveSnapshot(core.EnvironmentSnapshot{Data: []byte("map"), ReferencePoints: 3})

	s.ClearAll()

	assert.Empty(t, s.Keys())
	_, ok := s.Snapshot()
	assert.False(t, ok)
}

func TestInMemoryStore_SnapshotOverwrite(t *testing.T) {
	s := NewInMemoryStore()
	s.SaveSnapshot(core.EnvironmentSnapshot{Data: []byte("first"), ReferencePoints: 1})
	s.SaveSnapshot(core.EnvironmentSnapshot{Data: []byte("second"), ReferencePoints: 2})

	snap, ok := s.Snapshot()
	require.True(t, ok)
	assert.Equal(t, "second", string(snap.Data))
	assert.Equal(t, 2, snap.ReferencePoints)
}

func TestInMemoryStore_SnapshotIsolation(t *testing.T) {
	s := NewInMemoryStore()
	data := []byte("map")
	s.SaveSnapshot(core.EnvironmentSnapshot{Data: data})
	// mutate original slice
	data[0] = 'X'

	out, _ := s.Snapshot()
	if string(out.Data) != "map" {
		t.Fatalf("expected stored copy, got %q", out.Data)
	}
	// mutate returned slice
	out.Data[0] = 'Y'
	out2, _ := s.Snapshot()
	if string(out2.Data) != "map" {
		t.Fatalf("expected isolation, got %q", out2.Data)
	}
}

func TestInMemoryStore_Concurrency(t *testing.T) {
	s := NewInMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := core.AnchorKey(fmt.Sprintf("k%d", i%10))
			s.SetPlaced(key, mgl32.Translate3D(float32(i), 0, 0))
			_ = s.IsPlaced(key)
			s.SaveSnapshot(core.EnvironmentSnapshot{Data: []byte{byte(i)}})
			_, _ = s.Snapshot()
			if i%7 == 0 {
				s.ClearPlacement(key)
			}
		}()
	}
	wg.Wait()
	_, ok := s.Snapshot()
	assert.True(t, ok)
	for _, k := range s.Keys() {
		rec, ok := s.Placement(k)
		require.True(t, ok)
		assert.True(t, rec.Placed)
	}
}
