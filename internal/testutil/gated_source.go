package testutil

import (
	"context"
	"sync"

	"github.com/hupe1980/anchorkit/core"
)

// GatedSource wraps an AssetSource and holds fetches of selected asset ids
// until Release is called or the fetch context ends.
type GatedSource struct {
	core.AssetSource

	mu      sync.Mutex
	gates   map[string]chan struct{}
	fetched map[string]int
	started chan string
}

// NewGatedSource gates the given asset ids (without extension).
func NewGatedSource(inner core.AssetSource, ids ...string) *GatedSource {
	g := &GatedSource{
		AssetSource: inner,
		gates:       make(map[string]chan struct{}, len(ids)),
		fetched:     make(map[string]int),
		started:     make(chan string, 64),
	}
	for _, id := range ids {
		g.gates[id+".yaml"] = make(chan struct{})
	}
	return g
}

// Fetch reports the key on Started, waits for the gate if the key is gated
// and then delegates.
func (g *GatedSource) Fetch(ctx context.Context, key string) ([]byte, error) {
	g.mu.Lock()
	gate := g.gates[key]
	g.fetched[key]++
	g.mu.Unlock()

	select {
	case g.started <- key:
	default:
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return g.AssetSource.Fetch(ctx, key)
}

// Started yields source keys as fetches begin.
func (g *GatedSource) Started() <-chan string { return g.started }

// Fetches returns how often the asset id was fetched.
func (g *GatedSource) Fetches(id string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fetched[id+".yaml"]
}

// Release opens the gate for id. Releasing twice is a no-op.
func (g *GatedSource) Release(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if gate, ok := g.gates[id+".yaml"]; ok {
		close(gate)
		delete(g.gates, id+".yaml")
	}
}
