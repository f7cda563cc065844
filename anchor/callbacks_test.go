package anchor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallbackManager_RunsAllAndCollectsErrors(t *testing.T) {
	cm := NewCallbackManager()
	var order []string
	cm.RegisterCallback(NewFunctionCallback(CallbackReset, func(context.Context, *CallbackContext) error {
		order = append(order, "first")
		return errors.New("boom")
	}))
	cm.RegisterCallback(NewFunctionCallback(CallbackReset, func(context.Context, *CallbackContext) error {
		order = append(order, "second")
		return nil
	}))

	errs := cm.ExecuteCallbacks(context.Background(), CallbackReset, &CallbackContext{})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "reset callback")
	assert.Equal(t, []string{"first", "second"}, order)

	assert.Empty(t, cm.ExecuteCallbacks(context.Background(), CallbackPlaced, &CallbackContext{}))
}

func TestLoggingCallback(t *testing.T) {
	var msg string
	cb := NewLoggingCallback(CallbackPlaced, func(m string) { msg = m })
	assert.Equal(t, CallbackPlaced, cb.Type())

	require.NoError(t, cb.Execute(context.Background(), &CallbackContext{Key: "k", State: StateLoading, Previous: StateAnchoring, Source: "hit"}))
	assert.True(t, strings.HasPrefix(msg, "[placed]"))
	assert.Contains(t, msg, "anchoring -> loading")

	require.NoError(t, NewLoggingCallback(CallbackPlaced, nil).Execute(context.Background(), &CallbackContext{}))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "fallback", StateFallback.String())
	assert.True(t, StateReady.Anchored())
	assert.False(t, StateAnchoring.Anchored())
	assert.Equal(t, "unknown", State(42).String())
}
