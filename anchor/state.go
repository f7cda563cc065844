package anchor

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/hupe1980/anchorkit/core"
)

// State is the controller's position in the anchoring state machine.
type State int

const (
	// StateNoAnchor: nothing placed. Initial state and the target of every reset.
	StateNoAnchor State = iota
	// StateAnchoring: a pose was chosen and the anchor is being created.
	StateAnchoring
	// StateLoading: anchored, content load in flight.
	StateLoading
	// StateReady: anchored with the requested asset attached.
	StateReady
	// StateFallback: anchored with the placeholder attached.
	StateFallback
)

func (s State) String() string {
	switch s {
	case StateNoAnchor:
		return "no_anchor"
	case StateAnchoring:
		return "anchoring"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Anchored reports whether an anchor exists in this state.
func (s State) Anchored() bool { return s >= StateLoading }

// Status is a value snapshot of a controller for display.
type Status struct {
	Key   core.AnchorKey `json:"key"`
	State State          `json:"-"`
	// StateName mirrors State for JSON consumers.
	StateName string `json:"state"`
	// Placed is the store's view for Key.
	Placed         bool       `json:"placed"`
	Model          string     `json:"model"`
	AnchorID       string     `json:"anchor_id,omitempty"`
	Transform      mgl32.Mat4 `json:"transform"`
	Content        string     `json:"content,omitempty"`
	Children       int        `json:"children"`
	Placeholder    bool       `json:"placeholder"`
	ActiveClip     string     `json:"active_clip,omitempty"`
	RestorePending bool       `json:"restore_pending"`
	Degraded       bool       `json:"degraded"`
	Failure        string     `json:"failure,omitempty"`
}
