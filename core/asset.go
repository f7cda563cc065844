package core

import "context"

// AssetSource resolves raw asset bytes by key. Implementations should be
// thread-safe and return an error wrapping ErrArtifactNotFound for unknown keys.
type AssetSource interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// AssetLoader produces renderable entities for asset ids. Load never fails:
// it substitutes a placeholder entity when the asset cannot be resolved.
type AssetLoader interface {
	Resolve(ctx context.Context, assetID string) (*Entity, error)
	Load(ctx context.Context, assetID string) *Entity
	Animations(e *Entity) []AnimationClip
}
