package utils

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerTo_Production(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "production", "")

	logger.Debug("hidden")
	logger.Info("report generated", "request_id", "r-1")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "report generated", entry["msg"])
	assert.Equal(t, "r-1", entry["request_id"])
}

func TestNewLoggerTo_Development(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "development", "")

	logger.Debug("stage finished")
	assert.Contains(t, buf.String(), "msg=\"stage finished\"")
}

func TestNewLoggerTo_LevelOverride(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "development", "WARN")

	logger.Info("dropped")
	assert.Empty(t, buf.String())
	logger.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestParseLevel(t *testing.T) {
	lvl, ok := ParseLevel(" error ")
	assert.True(t, ok)
	assert.Equal(t, slog.LevelError, lvl)

	_, ok = ParseLevel("verbose")
	assert.False(t, ok)
}
