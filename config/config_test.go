package config

import (
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hupe1980/anchorkit/artifact"
	"github.com/hupe1980/anchorkit/core"
	"github.com/hupe1980/anchorkit/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.SnapshotInterval)
	assert.Equal(t, 2*time.Second, cfg.RestoreGrace)
	assert.Equal(t, float32(0.1), cfg.DisplayScale)
	assert.Equal(t, "memory", cfg.Assets.Driver)
	assert.Equal(t, 64, cfg.Assets.CacheSize)
	assert.Equal(t, logging.LogLevelInfo, cfg.Level())
	assert.True(t, cfg.FallbackOffset().ApproxEqual(core.DefaultFallbackOffset))
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ANCHORKIT_LOG_LEVEL", "debug")
	t.Setenv("ANCHORKIT_SNAPSHOT_INTERVAL", "5s")
	t.Setenv("ANCHORKIT_FALLBACK_FORWARD", "2")
	t.Setenv("ANCHORKIT_ASSET_DRIVER", "s3")
	t.Setenv("ANCHORKIT_ASSET_S3_BUCKET", "models")
	t.Setenv("ANCHORKIT_ASSET_S3_PATH_STYLE", "true")
	t.Setenv("ANCHORKIT_CATALOG_FILE", "catalog.yaml")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, logging.LogLevelDebug, cfg.Level())
	assert.Equal(t, 5*time.Second, cfg.SnapshotInterval)
	assert.Equal(t, mgl32.Vec3{0, -0.3, -2}, cfg.FallbackOffset())
	assert.Equal(t, "catalog.yaml", cfg.Catalog.File)

	ac := cfg.ArtifactConfig()
	assert.Equal(t, artifact.DriverS3, ac.Driver)
	assert.Equal(t, "models", ac.S3.Bucket)
	assert.True(t, ac.S3.PathStyle)
}

func TestLoad_ParseError(t *testing.T) {
	t.Setenv("ANCHORKIT_RESTORE_GRACE", "soon")
	_, err := Load()
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "parse env:"))
}

func TestValidate(t *testing.T) {
	cases := map[string]map[string]string{
		"s3 without bucket": {"ANCHORKIT_ASSET_DRIVER": "s3"},
		"unknown driver":    {"ANCHORKIT_ASSET_DRIVER": "ftp"},
		"zero interval":     {"ANCHORKIT_SNAPSHOT_INTERVAL": "0s"},
		"negative grace":    {"ANCHORKIT_RESTORE_GRACE": "-1s"},
		"zero scale":        {"ANCHORKIT_DISPLAY_SCALE": "0"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range vars {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}
