package artifact

import "github.com/hupe1980/anchorkit/core"

var (
	// ErrNotFound is returned when no artifact exists for the given key.
	ErrNotFound = core.ErrArtifactNotFound
)
