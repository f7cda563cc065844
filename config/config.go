// Package config loads anchorkit host configuration from ANCHORKIT_*
// environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/hupe1980/anchorkit/artifact"
	"github.com/hupe1980/anchorkit/artifact/s3"
	"github.com/hupe1980/anchorkit/logging"
)

// Config is the complete host configuration.
type Config struct {
	LogLevel  string `env:"ANCHORKIT_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"ANCHORKIT_LOG_FORMAT" envDefault:"json"`
	HTTPAddr  string `env:"ANCHORKIT_HTTP_ADDR" envDefault:":8080"`
	// SessionID tags placements; empty picks a random id per process.
	SessionID string `env:"ANCHORKIT_SESSION_ID"`
	// Model is the initial model when no catalog item is selected.
	Model string `env:"ANCHORKIT_MODEL"`

	SnapshotInterval time.Duration `env:"ANCHORKIT_SNAPSHOT_INTERVAL" envDefault:"30s"`
	CaptureTimeout   time.Duration `env:"ANCHORKIT_CAPTURE_TIMEOUT" envDefault:"5s"`
	RestoreGrace     time.Duration `env:"ANCHORKIT_RESTORE_GRACE" envDefault:"2s"`

	DisplayScale    float32 `env:"ANCHORKIT_DISPLAY_SCALE" envDefault:"0.1"`
	FallbackForward float32 `env:"ANCHORKIT_FALLBACK_FORWARD" envDefault:"1.0"`
	FallbackDrop    float32 `env:"ANCHORKIT_FALLBACK_DROP" envDefault:"0.3"`

	Assets  AssetConfig   `envPrefix:"ANCHORKIT_ASSET_"`
	Catalog CatalogConfig `envPrefix:"ANCHORKIT_CATALOG_"`

	OTelEndpoint string `env:"ANCHORKIT_OTEL_ENDPOINT"`
	OTelEnabled  bool   `env:"ANCHORKIT_OTEL_ENABLED" envDefault:"true"`
}

// AssetConfig selects the asset source.
type AssetConfig struct {
	Driver    string `env:"DRIVER" envDefault:"memory"`
	FSRoot    string `env:"FS_ROOT" envDefault:"./assets"`
	CacheSize int    `env:"CACHE_SIZE" envDefault:"64"`

	S3Bucket          string `env:"S3_BUCKET"`
	S3Region          string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Prefix          string `env:"S3_PREFIX"`
	S3Endpoint        string `env:"S3_ENDPOINT"`
	S3PathStyle       bool   `env:"S3_PATH_STYLE"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
}

// CatalogConfig selects the content catalog. SQLiteDSN wins over File.
type CatalogConfig struct {
	File      string `env:"FILE"`
	SQLiteDSN string `env:"SQLITE_DSN"`
	Code      string `env:"CODE"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if c.SnapshotInterval <= 0 {
		return fmt.Errorf("snapshot interval must be positive, got %s", c.SnapshotInterval)
	}
	if c.CaptureTimeout <= 0 {
		return fmt.Errorf("capture timeout must be positive, got %s", c.CaptureTimeout)
	}
	if c.RestoreGrace < 0 {
		return fmt.Errorf("restore grace must not be negative, got %s", c.RestoreGrace)
	}
	if c.DisplayScale <= 0 {
		return fmt.Errorf("display scale must be positive, got %v", c.DisplayScale)
	}
	switch artifact.Driver(c.Assets.Driver) {
	case artifact.DriverMemory, artifact.DriverFS:
	case artifact.DriverS3:
		if c.Assets.S3Bucket == "" {
			return fmt.Errorf("ANCHORKIT_ASSET_S3_BUCKET required for s3 driver")
		}
	default:
		return fmt.Errorf("unknown asset driver %q", c.Assets.Driver)
	}
	return nil
}

// FallbackOffset converts the forward/drop distances into a camera-space
// translation offset (forward is -Z, drop is -Y).
func (c Config) FallbackOffset() mgl32.Vec3 {
	return mgl32.Vec3{0, -c.FallbackDrop, -c.FallbackForward}
}

// Level returns the parsed log level.
func (c Config) Level() logging.LogLevel { return logging.ParseLevel(c.LogLevel) }

// ArtifactConfig maps the asset settings onto artifact.OpenConfig.
func (c Config) ArtifactConfig() artifact.OpenConfig {
	return artifact.OpenConfig{
		Driver: artifact.Driver(c.Assets.Driver),
		FSRoot: c.Assets.FSRoot,
		S3: s3.Config{
			Region:          c.Assets.S3Region,
			Bucket:          c.Assets.S3Bucket,
			Prefix:          c.Assets.S3Prefix,
			Endpoint:        c.Assets.S3Endpoint,
			PathStyle:       c.Assets.S3PathStyle,
			AccessKeyID:     c.Assets.S3AccessKeyID,
			SecretAccessKey: c.Assets.S3SecretAccessKey,
		},
	}
}
