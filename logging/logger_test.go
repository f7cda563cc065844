package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(level LogLevel) (*StructuredLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	cfg := DefaultLoggerConfig()
	cfg.Level = level
	cfg.Output = buf
	return NewLogger(cfg), buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		m := map[string]any{}
		require.NoError(t, json.Unmarshal(line, &m))
		out = append(out, m)
	}
	return out
}

func TestStructuredLogger_ContextAttributes(t *testing.T) {
	l, buf := newBufferLogger(LogLevelDebug)

	l.WithComponent("controller").WithKey("session_anchor").WithSession("s-1").Info("tap handled", "hit", true)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "tap handled", lines[0]["msg"])
	assert.Equal(t, "controller", lines[0]["component"])
	assert.Equal(t, "session_anchor", lines[0]["anchor_key"])
	assert.Equal(t, "s-1", lines[0]["session_id"])
	assert.Equal(t, true, lines[0]["hit"])
}

func TestStructuredLogger_WithDoesNotMutateParent(t *testing.T) {
	l, buf := newBufferLogger(LogLevelInfo)
	_ = l.WithContext("extra", 1)

	l.Info("plain")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	_, ok := lines[0]["extra"]
	assert.False(t, ok)
}

func TestStructuredLogger_LevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(LogLevelWarn)
	l.Debug("d")
	l.Info("i")
	l.Warn("w")
	l.Error("e")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "w", lines[0]["msg"])
	assert.Equal(t, "e", lines[1]["msg"])
}

func TestDomainHelpers(t *testing.T) {
	l, buf := newBufferLogger(LogLevelDebug)

	LogAssetLoad(l, "crane3d0", 10*time.Millisecond, true, errors.New("missing"))
	LogPlacement(l, "session_anchor", "hit", mgl32.Translate3D(1, 2, 3))
	LogSnapshot(l, 42, 128, time.Millisecond, nil)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 3)
	assert.Equal(t, "WARN", lines[0]["level"])
	assert.Equal(t, "crane3d0", lines[0]["asset_id"])
	assert.Equal(t, "missing", lines[0]["error"])
	assert.Equal(t, "hit", lines[1]["source"])
	assert.InDelta(t, 3.0, lines[1]["z"], 1e-6)
	assert.InDelta(t, 42.0, lines[2]["reference_points"], 0)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LogLevelWarn, ParseLevel("warning"))
	assert.Equal(t, LogLevelError, ParseLevel(" error "))
	assert.Equal(t, LogLevelInfo, ParseLevel("bogus"))
}
