package asset

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/anchorkit/core"
	"gopkg.in/yaml.v3"
)

// Manifest is the decoded form of a model asset.
//
//	name: crane
//	nodes:
//	  - name: body
//	    mesh: cube
//	    color: yellow
//	    children:
//	      - name: arm
//	        mesh: cylinder
//	animations:
//	  - name: lift
//	    duration: 2.5s
type Manifest struct {
	Name       string     `yaml:"name"`
	Nodes      []Node     `yaml:"nodes"`
	Animations []ClipSpec `yaml:"animations"`
}

// Node is one mesh node of a model.
type Node struct {
	Name     string `yaml:"name"`
	Mesh     string `yaml:"mesh"`
	Color    string `yaml:"color"`
	Children []Node `yaml:"children"`
}

// ClipSpec declares an animation clip. Duration uses time.ParseDuration syntax.
type ClipSpec struct {
	Name     string `yaml:"name"`
	Duration string `yaml:"duration"`
}

var errEmptyManifest = errors.New("manifest has no nodes")

// Decode parses manifest bytes. The returned error never wraps
// core.ErrAssetParseFailure; callers classify it.
func Decode(data []byte) (*Manifest, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyManifest
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if len(m.Nodes) == 0 {
		return nil, errEmptyManifest
	}
	for i, c := range m.Animations {
		if c.Name == "" {
			return nil, fmt.Errorf("animation %d has no name", i)
		}
		if c.Duration == "" {
			continue
		}
		if _, err := time.ParseDuration(c.Duration); err != nil {
			return nil, fmt.Errorf("animation %q: %w", c.Name, err)
		}
	}
	return &m, nil
}

// Clips returns the manifest animations as core clips.
func (m *Manifest) Clips() []core.AnimationClip {
	out := make([]core.AnimationClip, 0, len(m.Animations))
	for _, c := range m.Animations {
		d, _ := time.ParseDuration(c.Duration)
		out = append(out, core.AnimationClip{Name: c.Name, Duration: d})
	}
	return out
}

// Build instantiates a fresh entity tree for the manifest. The root carries
// the display scale and the clips; mesh nodes hang below it.
func (m *Manifest) Build(assetID string, scale float32) *core.Entity {
	name := m.Name
	if name == "" {
		name = assetID
	}
	root := core.NewEntity(name)
	root.AssetID = assetID
	root.Scale = scale
	root.Clips = m.Clips()

	type frame struct {
		parent *core.Entity
		node   Node
	}
	stack := make([]frame, 0, len(m.Nodes))
	for i := len(m.Nodes) - 1; i >= 0; i-- {
		stack = append(stack, frame{parent: root, node: m.Nodes[i]})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		e := core.NewEntity(f.node.Name)
		e.AssetID = assetID
		e.Mesh = f.node.Mesh
		e.Color = f.node.Color
		f.parent.AddChild(e)
		for i := len(f.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{parent: e, node: f.node.Children[i]})
		}
	}
	return root
}
