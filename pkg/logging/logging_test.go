package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "json", "info")
	require.NoError(t, err)

	logger.Info("loaded", "rows", 3, "run_id", "abc")
	logger.Debug("hidden")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "loaded", entry["msg"])
	assert.Equal(t, 3.0, entry["rows"])
	assert.Equal(t, "abc", entry["run_id"])
}

func TestNewLoggerText(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "TEXT", "debug")
	require.NoError(t, err)

	logger.Debug("lookup", "outcome", "resolved")
	assert.True(t, strings.Contains(buf.String(), "msg=lookup outcome=resolved"), buf.String())
}

func TestNewLoggerAutoOnBuffer(t *testing.T) {
	// a buffer is never a terminal, so auto selects JSON
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "auto", "")
	require.NoError(t, err)

	logger.Info("hello")
	assert.True(t, json.Valid(buf.Bytes()), buf.String())
	assert.False(t, IsTerminal(&buf))
}

func TestNewLoggerErrors(t *testing.T) {
	_, err := NewLogger(&bytes.Buffer{}, "xml", "info")
	assert.Error(t, err)

	_, err = NewLogger(&bytes.Buffer{}, "json", "loud")
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}
