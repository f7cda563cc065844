// Package placement contains the process-scoped Placement Store.
//
// The canonical PlacementStore interface lives in the core package so the
// controller, the session bridge and the snapshotter can share one injected
// instance without importing each other. Nothing here is written to disk:
// records and the environment snapshot live exactly as long as the process.
package placement
