package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	apperrors "github.com/SAP-F-2025/performance-report-service/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogger(buf *bytes.Buffer) *ServiceLogger {
	handler := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return NewServiceLogger(slog.New(handler), LogConfig{Service: "test", Component: "report"})
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestServiceLogger_LogOperationLevels(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		level  string
		status string
	}{
		{"success", nil, "INFO", "success"},
		{"validation", ValidationErrors{{Field: "responses", Message: "is required"}}, "WARN", "validation_error"},
		{"configuration", apperrors.NewConfigurationError(99, "not in answer key", apperrors.ErrUnknownQuestion), "WARN", "configuration_error"},
		{"artifact", apperrors.NewArtifactError("r.pdf", errors.New("disk full")), "ERROR", "artifact_error"},
		{"internal", errors.New("boom"), "ERROR", "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			captureLogger(&buf).LogOperation(context.Background(), "evaluate", "S-001", "req-1", time.Millisecond, tt.err)

			entry := lastEntry(t, &buf)
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, tt.status, entry["status"])
			assert.Equal(t, "req-1", entry["request_id"])
		})
	}
}

func TestServiceLogger_LogRecovery(t *testing.T) {
	var buf bytes.Buffer
	captureLogger(&buf).LogRecovery(context.Background(), "generate_report", "req-9", "nil map", []byte("goroutine 1"))

	entry := lastEntry(t, &buf)
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "Panic recovered", entry["msg"])
	assert.Equal(t, "req-9", entry["request_id"])
	assert.Equal(t, "nil map", entry["panic_value"])
}
