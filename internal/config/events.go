package config

import (
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/performance-report-service/internal/events"
	"github.com/ThreeDotsLabs/watermill/message"
)

// EventConfig holds configuration for report event publishing and request intake
type EventConfig struct {
	Enabled       bool   `env:"EVENTS_ENABLED" envDefault:"false"`
	Publisher     string `env:"EVENTS_PUBLISHER" envDefault:"kafka"` // kafka or mock
	KafkaBrokers  string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	RequestTopic  string `env:"REPORT_REQUEST_TOPIC" envDefault:"report.requests"`
	ReportTopic   string `env:"REPORT_EVENT_TOPIC" envDefault:"report.events"`
	ConsumerGroup string `env:"CONSUMER_GROUP" envDefault:"performance-report-service"`
}

// GetKafkaBrokers returns Kafka brokers as a slice
func (c *EventConfig) GetKafkaBrokers() []string {
	brokers := strings.Split(c.KafkaBrokers, ",")
	for i := range brokers {
		brokers[i] = strings.TrimSpace(brokers[i])
	}
	return brokers
}

// CreateEventPublisher creates an event publisher based on configuration
func (c *EventConfig) CreateEventPublisher(logger *slog.Logger) (events.EventPublisher, error) {
	if !c.Enabled {
		logger.Info("Event publishing disabled, using mock publisher")
		return events.NewMockEventPublisher(logger), nil
	}

	switch c.Publisher {
	case "kafka":
		logger.Info("Creating Kafka event publisher",
			"brokers", c.KafkaBrokers,
			"topic", c.ReportTopic)

		publisher, err := events.NewKafkaEventPublisher(events.PublisherConfig{
			KafkaBrokers: c.GetKafkaBrokers(),
			TopicName:    c.ReportTopic,
			Logger:       logger,
		})
		if err != nil {
			return nil, err
		}
		return publisher, nil
	case "mock":
		logger.Info("Using mock event publisher")
		return events.NewMockEventPublisher(logger), nil
	default:
		logger.Warn("Unknown event publisher type, falling back to mock", "publisher", c.Publisher)
		return events.NewMockEventPublisher(logger), nil
	}
}

// CreateRequestSubscriber creates the Kafka subscriber for report requests
func (c *EventConfig) CreateRequestSubscriber(logger *slog.Logger) (message.Subscriber, error) {
	logger.Info("Creating Kafka request subscriber",
		"brokers", c.KafkaBrokers,
		"topic", c.RequestTopic,
		"consumer_group", c.ConsumerGroup)

	return events.NewKafkaSubscriber(events.SubscriberConfig{
		KafkaBrokers:  c.GetKafkaBrokers(),
		ConsumerGroup: c.ConsumerGroup,
		Logger:        logger,
	})
}
