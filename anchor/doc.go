// Package anchor implements the anchor controller: the state machine that
// turns user taps into a single world anchor, loads content into it, swaps
// that content in place as the user steps through a sequence, restores the
// anchor from the placement store after a cold start and tears everything
// down on reset.
//
// State machine:
//
//	NoAnchor --tap--> Anchoring --store transform--> Loading
//	Loading --asset--> Ready
//	Loading --placeholder--> Fallback
//	Ready|Fallback --SetModel--> Loading (anchor kept)
//	any --reset--> NoAnchor
//
// Usage:
//
//	ctrl := anchor.New(surface, func(o *anchor.Options) {
//	    o.Store = store
//	    o.Resets = resetBus
//	    o.Session = bridge
//	    o.Model = "crane3d0"
//	})
//	if err := ctrl.Start(ctx); err != nil { ... }
//	defer ctrl.Close(ctx)
//	ctrl.Tap(ctx, mgl32.Vec2{x, y})
package anchor
