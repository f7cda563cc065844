package core

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// AnimationClip is a named animation embedded in a loaded asset.
type AnimationClip struct {
	Name     string        `json:"name" yaml:"name"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// PlaybackOptions controls how a clip is played.
type PlaybackOptions struct {
	// Loop repeats the clip indefinitely.
	Loop bool
	// Speed is the playback rate multiplier. 1.0 is normal speed.
	Speed float32
	// Transition is the blend-in duration from the previous pose.
	Transition time.Duration
}

// DefaultPlayback loops forever at normal speed with a half second blend.
var DefaultPlayback = PlaybackOptions{Loop: true, Speed: 1.0, Transition: 500 * time.Millisecond}

// Playback is the handle for a running clip on an entity.
type Playback struct {
	Clip      AnimationClip
	Options   PlaybackOptions
	StartedAt time.Time
	stopped   bool
}

// Stop halts the playback. Stopping twice is harmless.
func (p *Playback) Stop() { p.stopped = true }

// Stopped reports whether Stop has been called.
func (p *Playback) Stopped() bool { return p.stopped }

// Entity is a scene-graph node. Anchors are entities with a world transform
// whose children carry the displayed content. Entities are not safe for
// concurrent mutation; the owning controller mutates them from its loop only.
type Entity struct {
	ID          string
	Name        string
	AssetID     string
	Mesh        string
	Color       string
	Transform   mgl32.Mat4
	Scale       float32
	Placeholder bool
	Clips       []AnimationClip

	children []*Entity
	playing  []*Playback
}

// NewEntity creates an entity with a fresh id and identity transform.
func NewEntity(name string) *Entity {
	return &Entity{ID: NewID(), Name: name, Transform: mgl32.Ident4(), Scale: 1}
}

// NewAnchor creates an anchor entity positioned at pose in world space.
func NewAnchor(pose mgl32.Mat4) *Entity {
	e := NewEntity("anchor")
	e.Transform = pose
	return e
}

// AddChild appends c to the entity's children.
func (e *Entity) AddChild(c *Entity) { e.children = append(e.children, c) }

// RemoveChild detaches the child with the given id and reports whether it
// was present.
func (e *Entity) RemoveChild(id string) bool {
	for i, c := range e.children {
		if c.ID == id {
			e.children = append(e.children[:i], e.children[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveChildren detaches every child.
func (e *Entity) RemoveChildren() { e.children = nil }

// Children returns a copy of the child list.
func (e *Entity) Children() []*Entity {
	out := make([]*Entity, len(e.children))
	copy(out, e.children)
	return out
}

// PlayAnimation starts clip on this entity and returns its playback handle.
func (e *Entity) PlayAnimation(clip AnimationClip, opts PlaybackOptions) *Playback {
	p := &Playback{Clip: clip, Options: opts, StartedAt: time.Now()}
	e.playing = append(e.playing, p)
	return p
}

// StopAllAnimations stops every playback started on this entity.
func (e *Entity) StopAllAnimations() {
	for _, p := range e.playing {
		p.Stop()
	}
	e.playing = nil
}

// ActivePlayback returns the playbacks that have not been stopped.
func (e *Entity) ActivePlayback() []*Playback {
	var out []*Playback
	for _, p := range e.playing {
		if !p.Stopped() {
			out = append(out, p)
		}
	}
	return out
}

// Walk visits root and all descendants depth-first using an explicit stack.
// Returning false from visit skips the node's children.
func Walk(root *Entity, visit func(*Entity) bool) {
	if root == nil {
		return
	}
	stack := []*Entity{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !visit(n) {
			continue
		}
		for i := len(n.children) - 1; i >= 0; i-- {
			stack = append(stack, n.children[i])
		}
	}
}

// StopAnimations stops playback on root and every descendant.
func StopAnimations(root *Entity) {
	Walk(root, func(e *Entity) bool {
		e.StopAllAnimations()
		return true
	})
}
