package core

import (
	"errors"
	"fmt"
)

var (
	// ErrAssetNotFound is returned when no data exists for an asset id.
	ErrAssetNotFound = errors.New("asset not found")
	// ErrAssetParseFailure is returned when asset data cannot be decoded.
	ErrAssetParseFailure = errors.New("asset parse failure")
	// ErrSurfaceNotSupported reports missing tracking capability.
	ErrSurfaceNotSupported = errors.New("tracking surface not supported")
	// ErrSnapshotCaptureFailure wraps a failed environment map capture.
	ErrSnapshotCaptureFailure = errors.New("snapshot capture failed")
	// ErrTrackingSessionFailure wraps a fatal tracking session error.
	ErrTrackingSessionFailure = errors.New("tracking session failed")
	// ErrCameraUnavailable is returned when no camera frame exists yet.
	ErrCameraUnavailable = errors.New("camera pose unavailable")
	// ErrClosed is returned by operations on a closed controller or bridge.
	ErrClosed = errors.New("closed")
	// ErrArtifactNotFound is returned by asset sources for unknown keys.
	ErrArtifactNotFound = errors.New("artifact not found")
)

// AssetError carries the asset id alongside the failure class.
type AssetError struct {
	AssetID string
	Err     error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("asset %q: %v", e.AssetID, e.Err)
}

func (e *AssetError) Unwrap() error { return e.Err }
