// Package session bridges tracking-runtime lifecycle events into placement
// store updates and recovery actions.
//
// A Bridge starts the tracking session (seeding it with the latest stored
// environment snapshot), pumps the surface's event stream and republishes
// lifecycle events to subscribers over an explicit observer list. Anchor
// controllers subscribe to learn when tracking was restarted and their
// anchors must be re-derived from the store.
//
// Recovery policy:
//   - frame updates only reach the optional OnFrame hook
//   - interruptions are logged and republished
//   - when an interruption ends and a snapshot exists, tracking is restarted
//     from that snapshot with the previous origin and runtime anchors discarded
//   - fatal errors are recorded (see Failure) and republished; there is no
//     automatic retry
package session
