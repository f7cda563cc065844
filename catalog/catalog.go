package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

// Kind3D is the model kind used for anchored 3D content.
const Kind3D = "3d"

// ErrItemNotFound is returned for unknown item codes.
var ErrItemNotFound = errors.New("catalog item not found")

// Item is a content entry.
type Item struct {
	Code  string   `yaml:"code"`
	Name  string   `yaml:"name"`
	Steps int      `yaml:"steps"`
	Texts []string `yaml:"texts,omitempty"`
	Tags  []string `yaml:"tags,omitempty"`
	AR    bool     `yaml:"ar"`
}

// Validate checks the item can drive a sequence.
func (it Item) Validate() error {
	if it.Code == "" {
		return errors.New("item code is required")
	}
	if it.Steps <= 0 {
		return fmt.Errorf("item %s: steps must be positive", it.Code)
	}
	return nil
}

// ModelID builds the asset identifier for a step: code + kind + step.
func ModelID(code, kind string, step int) string {
	return code + kind + strconv.Itoa(step)
}

// ModelIDs lists the 3D model identifiers for every step of it.
func (it Item) ModelIDs() []string {
	ids := make([]string, it.Steps)
	for i := range ids {
		ids[i] = ModelID(it.Code, Kind3D, i)
	}
	return ids
}

// Catalog looks items up by code.
type Catalog interface {
	Item(ctx context.Context, code string) (Item, error)
	Items(ctx context.Context) ([]Item, error)
}

// StaticCatalog is an immutable in-memory catalog.
type StaticCatalog struct {
	mu    sync.RWMutex
	items map[string]Item
}

var _ Catalog = (*StaticCatalog)(nil)

// NewStaticCatalog builds a catalog from items. Later duplicates win.
func NewStaticCatalog(items ...Item) (*StaticCatalog, error) {
	c := &StaticCatalog{items: make(map[string]Item, len(items))}
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return nil, err
		}
		c.items[it.Code] = it
	}
	return c, nil
}

type catalogFile struct {
	Items []Item `yaml:"items"`
}

// ParseYAML decodes a catalog document:
//
//	items:
//	  - code: crane
//	    name: Crane
//	    steps: 12
//	    ar: true
func ParseYAML(data []byte) (*StaticCatalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return NewStaticCatalog(f.Items...)
}

// LoadFile reads a YAML catalog from path.
func LoadFile(path string) (*StaticCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseYAML(data)
}

// Item returns the item for code.
func (c *StaticCatalog) Item(_ context.Context, code string) (Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.items[code]
	if !ok {
		return Item{}, fmt.Errorf("%w: %s", ErrItemNotFound, code)
	}
	return it, nil
}

// Items returns every item sorted by code.
func (c *StaticCatalog) Items(_ context.Context) ([]Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Item, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}
