package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
items:
  - code: crane
    name: Crane
    steps: 3
    ar: true
    texts:
      - Fold in half
      - Fold the corners
      - Pull the wings
  - code: boat
    name: Boat
    steps: 2
`

func TestModelID(t *testing.T) {
	assert.Equal(t, "crane3d0", ModelID("crane", Kind3D, 0))
	assert.Equal(t, []string{"boat3d0", "boat3d1"}, Item{Code: "boat", Steps: 2}.ModelIDs())
}

func TestParseYAML(t *testing.T) {
	c, err := ParseYAML([]byte(sampleYAML))
	require.NoError(t, err)

	it, err := c.Item(context.Background(), "crane")
	require.NoError(t, err)
	assert.Equal(t, "Crane", it.Name)
	assert.Equal(t, 3, it.Steps)
	assert.True(t, it.AR)
	assert.Len(t, it.Texts, 3)

	items, err := c.Items(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "boat", items[0].Code)

	_, err = c.Item(context.Background(), "frog")
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestParseYAML_Invalid(t *testing.T) {
	_, err := ParseYAML([]byte("items:\n  - code: x\n    steps: 0\n"))
	assert.Error(t, err)

	_, err = ParseYAML([]byte("items: ["))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	c, err := LoadFile(path)
	require.NoError(t, err)
	_, err = c.Item(context.Background(), "boat")
	assert.NoError(t, err)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
