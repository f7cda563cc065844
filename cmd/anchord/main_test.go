package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/anchorkit/catalog"
	"github.com/hupe1980/anchorkit/config"
)

const catalogYAML = `
items:
  - code: crane
    name: Crane
    steps: 4
    ar: true
`

func TestOpenCatalog_None(t *testing.T) {
	cat, closeFn, err := openCatalog(context.Background(), config.CatalogConfig{})
	require.NoError(t, err)
	defer closeFn()
	assert.Nil(t, cat)
}

func TestOpenCatalog_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0o600))

	cat, closeFn, err := openCatalog(context.Background(), config.CatalogConfig{File: path})
	require.NoError(t, err)
	defer closeFn()

	_, ok := cat.(*catalog.StaticCatalog)
	assert.True(t, ok)
}

func TestOpenCatalog_SQLiteSeededFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0o600))

	cat, closeFn, err := openCatalog(context.Background(), config.CatalogConfig{
		File:      path,
		SQLiteDSN: filepath.Join(dir, "catalog.db"),
	})
	require.NoError(t, err)
	defer closeFn()

	_, ok := cat.(*catalog.SQLiteCatalog)
	require.True(t, ok)
	it, err := cat.Item(context.Background(), "crane")
	require.NoError(t, err)
	assert.Equal(t, 4, it.Steps)
}
