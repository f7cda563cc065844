package testutil

import (
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/anchorkit/artifact"
)

type node struct {
	Name     string `yaml:"name"`
	Mesh     string `yaml:"mesh,omitempty"`
	Color    string `yaml:"color,omitempty"`
	Children []node `yaml:"children,omitempty"`
}

type clip struct {
	Name     string `yaml:"name"`
	Duration string `yaml:"duration,omitempty"`
}

type manifest struct {
	Name       string `yaml:"name"`
	Nodes      []node `yaml:"nodes"`
	Animations []clip `yaml:"animations,omitempty"`
}

// ManifestBuilder provides a fluent helper for constructing model manifest
// bytes in tests.
// Example:
//
//	data := NewManifestBuilder("crane").Node("body", "cube").Clip("lift", "2s").Bytes()
type ManifestBuilder struct {
	m manifest
}

// NewManifestBuilder creates a builder for a model with the given name.
func NewManifestBuilder(name string) *ManifestBuilder {
	return &ManifestBuilder{m: manifest{Name: name}}
}

// Node appends a top-level mesh node (chainable).
func (b *ManifestBuilder) Node(name, mesh string) *ManifestBuilder {
	b.m.Nodes = append(b.m.Nodes, node{Name: name, Mesh: mesh})
	return b
}

// Child appends a child under the most recently added top-level node (chainable).
func (b *ManifestBuilder) Child(name, mesh string) *ManifestBuilder {
	if len(b.m.Nodes) == 0 {
		return b.Node(name, mesh)
	}
	last := &b.m.Nodes[len(b.m.Nodes)-1]
	last.Children = append(last.Children, node{Name: name, Mesh: mesh})
	return b
}

// Clip appends an animation clip (chainable).
func (b *ManifestBuilder) Clip(name, duration string) *ManifestBuilder {
	b.m.Animations = append(b.m.Animations, clip{Name: name, Duration: duration})
	return b
}

// Bytes renders the manifest as YAML.
func (b *ManifestBuilder) Bytes() []byte {
	out, err := yaml.Marshal(b.m)
	if err != nil {
		panic(err)
	}
	return out
}

// Source returns an in-memory asset source seeded with id -> manifest pairs.
// Keys get the manifest extension appended.
func Source(models map[string]*ManifestBuilder) *artifact.InMemoryStore {
	src := artifact.NewInMemoryStore()
	for id, b := range models {
		src.Save(id+".yaml", b.Bytes())
	}
	return src
}
