package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/performance-report-service/internal/models"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// RequestHandler processes one decoded report request
type RequestHandler func(ctx context.Context, req *models.ReportRequest) error

// RequestConsumer routes report requests from a topic to a RequestHandler.
// Every message is acked once handled; failures are reported through
// report.failed events by the handler, not by redelivery.
type RequestConsumer struct {
	router *message.Router
	handle RequestHandler
	logger *slog.Logger
}

func NewRequestConsumer(subscriber message.Subscriber, topic string, handle RequestHandler, logger *slog.Logger) (*RequestConsumer, error) {
	router, err := message.NewRouter(message.RouterConfig{}, watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create message router: %w", err)
	}
	router.AddMiddleware(middleware.Recoverer)

	c := &RequestConsumer{
		router: router,
		handle: handle,
		logger: logger,
	}
	router.AddNoPublisherHandler("report_requests", topic, subscriber, c.handleMessage)

	return c, nil
}

// Run blocks until ctx is cancelled or the consumer is closed
func (c *RequestConsumer) Run(ctx context.Context) error {
	return c.router.Run(ctx)
}

// Running is closed once the consumer is subscribed
func (c *RequestConsumer) Running() chan struct{} {
	return c.router.Running()
}

func (c *RequestConsumer) Close() error {
	return c.router.Close()
}

func (c *RequestConsumer) handleMessage(msg *message.Message) error {
	var req models.ReportRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		c.logger.Warn("Dropping malformed report request",
			"message_id", msg.UUID,
			"error", err)
		return nil
	}
	if req.RequestID == "" {
		req.RequestID = msg.UUID
	}

	c.logger.Debug("Received report request",
		"request_id", req.RequestID,
		"student_id", req.StudentID,
		"responses", len(req.Responses))

	if err := c.handle(msg.Context(), &req); err != nil {
		c.logger.Error("Report request failed",
			"request_id", req.RequestID,
			"error", err)
	}
	return nil
}
