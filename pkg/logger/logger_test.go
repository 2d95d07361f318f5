package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf)

	l.With(String("run_id", "r1")).Warn("ticker skipped",
		String("ticker", "XYZ"),
		Int("bars", 3),
		Float64("iv", 0.25),
		Bool("partial", true),
		Duration("took", 1500*time.Millisecond),
		Strings("stages", []string{"bars", "gkyz"}),
		Error(errors.New("boom")),
	)

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "warn", got["level"])
	assert.Equal(t, "ticker skipped", got["message"])
	assert.Equal(t, "r1", got["run_id"])
	assert.Equal(t, "XYZ", got["ticker"])
	assert.Equal(t, float64(3), got["bars"])
	assert.Equal(t, 0.25, got["iv"])
	assert.Equal(t, true, got["partial"])
	assert.Equal(t, float64(1500), got["took"])
	assert.Equal(t, []any{"bars", "gkyz"}, got["stages"])
	assert.Equal(t, "boom", got["error"])
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNopDiscards(t *testing.T) {
	assert.NotPanics(t, func() { Nop().Error("ignored", String("k", "v")) })
}

func TestNewLevelIsPerLogger(t *testing.T) {
	l, err := New(&Config{Level: "error", Output: "stderr"})
	require.NoError(t, err)
	assert.Equal(t, "error", l.zl.GetLevel().String())

	_, err = New(&Config{Format: "xml"})
	assert.Error(t, err)
}

func TestErrorFieldNil(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf).Info("ok", Error(nil))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.NotContains(t, got, "error")
}
