package artifact

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/anchorkit/artifact/fs"
	"github.com/hupe1980/anchorkit/artifact/s3"
	"github.com/hupe1980/anchorkit/core"
)

// Driver names an asset source backend.
type Driver string

const (
	DriverMemory Driver = "memory"
	DriverFS     Driver = "fs"
	DriverS3     Driver = "s3"
)

// OpenConfig selects and configures an asset source.
type OpenConfig struct {
	Driver Driver
	FSRoot string
	S3     s3.Config
}

// Open returns the asset source named by cfg.Driver. An empty driver selects
// the in-memory store.
func Open(ctx context.Context, cfg OpenConfig) (core.AssetSource, error) {
	switch Driver(strings.ToLower(string(cfg.Driver))) {
	case "", DriverMemory:
		return NewInMemoryStore(), nil
	case DriverFS:
		return fs.New(cfg.FSRoot)
	case DriverS3:
		return s3.New(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown asset driver %q", cfg.Driver)
	}
}
