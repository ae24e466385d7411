package config

import (
	"io"
	"log/slog"
	"testing"

	"github.com/SAP-F-2025/performance-report-service/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventConfig_GetKafkaBrokers(t *testing.T) {
	cfg := EventConfig{KafkaBrokers: "kafka-1:9092, kafka-2:9092 ,kafka-3:9092"}
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092", "kafka-3:9092"}, cfg.GetKafkaBrokers())
}

func TestEventConfig_CreateEventPublisher_Mock(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	for _, cfg := range []EventConfig{
		{Enabled: false, Publisher: "kafka"},
		{Enabled: true, Publisher: "mock"},
		{Enabled: true, Publisher: "carrier-pigeon"},
	} {
		publisher, err := cfg.CreateEventPublisher(logger)
		require.NoError(t, err)
		assert.IsType(t, &events.MockEventPublisher{}, publisher)
	}
}
