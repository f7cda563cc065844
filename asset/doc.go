// Package asset resolves model identifiers into renderable entity trees.
//
// Loader.Resolve is the explicit result contract: it returns either an entity
// scaled for display or a *core.AssetError classified as core.ErrAssetNotFound
// or core.ErrAssetParseFailure. Loader.Load is the single place where that
// error is converted into the deterministic placeholder, so callers that want
// the never-empty behaviour get it without swallowing errors themselves.
//
// Raw bytes come from any core.AssetSource (see package artifact). Decoded
// manifests are cached and concurrent resolutions of the same identifier
// share one fetch.
package asset
