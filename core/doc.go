// Package core provides the foundational domain types and interfaces used by
// anchorkit. It defines the core abstractions for:
//
//   - Poses and the deterministic camera-relative fallback pose
//   - Entities (the scene-graph nodes a controller attaches to its anchor)
//   - Placement records and environment snapshots
//   - The tracking surface boundary (hit-testing, camera pose, map capture,
//     session restarts, scene mutation and lifecycle events)
//   - Pluggable asset sources and the placement store contract
//
// The package intentionally keeps implementation concerns (storage, asset
// decoding, controller orchestration) out of scope, exposing small interfaces
// so hosts can bind a real tracking runtime or a simulated one in tests.
package core
