package anchor

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hupe1980/anchorkit/core"
)

// CallbackType defines the lifecycle points where callbacks are executed.
//
// Callbacks provide a way to hook into the controller's state machine without
// modifying it: UI layers use them to show placement status, hosts use them
// for auditing or analytics.
//
// Available callback types:
//   - Placed: an anchor was created (hit, fallback or restore)
//   - Ready/Fallback: content was attached (real asset or placeholder)
//   - Swap: the content of an existing anchor is being replaced
//   - Reset: an anchor was torn down
//   - StateChange: every state transition
//   - Failure: the tracking session reported a fatal error
//
// Callbacks run synchronously on the controller loop. They must be fast and
// must not call back into the controller; doing so deadlocks the loop.
type CallbackType string

const (
	// CallbackPlaced is triggered after an anchor is added to the scene and
	// its transform stored.
	CallbackPlaced CallbackType = "placed"

	// CallbackReady is triggered when a loaded asset is attached.
	CallbackReady CallbackType = "ready"

	// CallbackFallback is triggered when the placeholder is attached instead
	// of the requested asset.
	CallbackFallback CallbackType = "fallback"

	// CallbackSwap is triggered when the model changes on an existing anchor.
	CallbackSwap CallbackType = "swap"

	// CallbackReset is triggered after an anchor was torn down.
	CallbackReset CallbackType = "reset"

	// CallbackStateChange is triggered on every state transition.
	CallbackStateChange CallbackType = "state_change"

	// CallbackFailure is triggered when tracking fails fatally.
	CallbackFailure CallbackType = "failure"
)

// CallbackContext carries the details of one lifecycle event.
type CallbackContext struct {
	// Key is the anchor key of the controller.
	Key core.AnchorKey

	// State is the state after the transition; Previous the one before.
	State    State
	Previous State

	// Model is the current model identifier.
	Model string

	// Transform is the anchor pose, when an anchor exists.
	Transform mgl32.Mat4

	// Source names where a pose came from (hit, fallback, restore) or what
	// triggered a reset (local, broadcast).
	Source string

	// Reason is free text attached to resets.
	Reason string

	// Err is set for failures.
	Err error

	// CallbackType indicates which callback type triggered this execution.
	CallbackType CallbackType

	// Metadata provides extensible storage for custom callback data.
	Metadata map[string]any
}

// Callback defines the interface for controller lifecycle hooks.
type Callback interface {
	// Type returns the callback type this implementation handles.
	Type() CallbackType

	// Execute performs the callback logic. Returned errors are logged; they
	// never veto a transition.
	Execute(ctx context.Context, callbackCtx *CallbackContext) error
}

// FunctionCallback wraps a function as a callback implementation.
//
// Example:
//
//	cb := NewFunctionCallback(CallbackPlaced, func(ctx context.Context, c *CallbackContext) error {
//	    log.Printf("anchored %s via %s", c.Key, c.Source)
//	    return nil
//	})
type FunctionCallback struct {
	callbackType CallbackType
	fn           func(ctx context.Context, callbackCtx *CallbackContext) error
}

// NewFunctionCallback creates a new function-based callback.
func NewFunctionCallback(
	callbackType CallbackType,
	fn func(ctx context.Context, callbackCtx *CallbackContext) error,
) *FunctionCallback {
	return &FunctionCallback{
		callbackType: callbackType,
		fn:           fn,
	}
}

// Type returns the callback type this function handles.
func (c *FunctionCallback) Type() CallbackType {
	return c.callbackType
}

// Execute calls the wrapped function with the provided context.
func (c *FunctionCallback) Execute(ctx context.Context, callbackCtx *CallbackContext) error {
	return c.fn(ctx, callbackCtx)
}

// CallbackManager is a registry of callbacks keyed by type. Registration and
// execution are safe for concurrent use.
type CallbackManager struct {
	mu        sync.RWMutex
	callbacks map[CallbackType][]Callback
}

// NewCallbackManager creates an empty callback manager.
func NewCallbackManager() *CallbackManager {
	return &CallbackManager{
		callbacks: make(map[CallbackType][]Callback),
	}
}

// RegisterCallback adds a callback. Callbacks of one type run in
// registration order.
func (cm *CallbackManager) RegisterCallback(callback Callback) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	callbackType := callback.Type()
	cm.callbacks[callbackType] = append(cm.callbacks[callbackType], callback)
}

// ExecuteCallbacks runs every callback registered for callbackType and
// collects their errors. All callbacks run even if one fails.
func (cm *CallbackManager) ExecuteCallbacks(
	ctx context.Context,
	callbackType CallbackType,
	callbackCtx *CallbackContext,
) []error {
	cm.mu.RLock()
	callbacks := append([]Callback(nil), cm.callbacks[callbackType]...)
	cm.mu.RUnlock()

	callbackCtx.CallbackType = callbackType
	var errs []error
	for _, callback := range callbacks {
		if err := callback.Execute(ctx, callbackCtx); err != nil {
			errs = append(errs, fmt.Errorf("%s callback: %w", callbackType, err))
		}
	}
	return errs
}

// LoggingCallback forwards lifecycle events to a message sink.
//
// Example:
//
//	cb := NewLoggingCallback(CallbackReset, func(msg string) { log.Print(msg) })
type LoggingCallback struct {
	callbackType CallbackType
	logger       func(message string)
}

// NewLoggingCallback creates a new logging callback.
func NewLoggingCallback(callbackType CallbackType, logger func(message string)) *LoggingCallback {
	return &LoggingCallback{
		callbackType: callbackType,
		logger:       logger,
	}
}

// Type returns the callback type this logger handles.
func (c *LoggingCallback) Type() CallbackType {
	return c.callbackType
}

// Execute formats the event. Without a sink it silently succeeds.
func (c *LoggingCallback) Execute(_ context.Context, callbackCtx *CallbackContext) error {
	if c.logger != nil {
		c.logger(fmt.Sprintf("[%s] Key: %s, State: %s -> %s, Model: %s, Source: %s",
			c.callbackType, callbackCtx.Key, callbackCtx.Previous, callbackCtx.State, callbackCtx.Model, callbackCtx.Source))
	}
	return nil
}
