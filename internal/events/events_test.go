package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/SAP-F-2025/performance-report-service/internal/models"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newPubSub(t *testing.T) *gochannel.GoChannel {
	t.Helper()
	pubSub := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, watermill.NopLogger{})
	t.Cleanup(func() { pubSub.Close() })
	return pubSub
}

func sampleResult() *models.ReportResult {
	return &models.ReportResult{
		RequestID:  "req-1",
		ReportFile: "reports/ada.pdf",
		Evaluation: &models.Evaluation{
			StudentID:   "s-1",
			StudentName: "Ada",
			TotalScore:  7,
			MaxScore:    15,
			Clusters: models.ClusterAssignment{
				Averages: []models.TypeAverage{
					{QuestionType: models.QuestionTypeArithmetic, MeanScore: 3.5, Tier: 0},
					{QuestionType: models.QuestionTypeGeometry, MeanScore: 1.25, Tier: 1},
				},
			},
		},
	}
}

func TestNewReportGeneratedEvent(t *testing.T) {
	event := NewReportGeneratedEvent(sampleResult(), 1500*time.Millisecond)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, EventReportGenerated, event.Type)
	assert.Equal(t, EventSource, event.Source)
	assert.Equal(t, "req-1", event.Metadata["request_id"])

	data, ok := event.Data.(ReportGeneratedEvent)
	require.True(t, ok)
	assert.Equal(t, "s-1", data.StudentID)
	assert.Equal(t, int64(1500), data.DurationMs)
	assert.Equal(t, []int{0, 1}, data.Tiers)
	assert.Equal(t, []float64{3.5, 1.25}, data.MeanScores)
}

func TestNewReportFailedEvent(t *testing.T) {
	details := map[string]interface{}{"count": 1}
	event := NewReportFailedEvent("req-2", "s-2", "validation", errors.New("responses: is required"), details)

	assert.Equal(t, EventReportFailed, event.Type)
	data, ok := event.Data.(ReportFailedEvent)
	require.True(t, ok)
	assert.Equal(t, "validation", data.ErrorKind)
	assert.Equal(t, "responses: is required", data.Reason)
	assert.Equal(t, 1, data.Details["count"])

	payload, err := json.Marshal(NewReportFailedEvent("req-3", "s-3", "internal", errors.New("boom"), nil))
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "details")
}

func TestWatermillEventPublisher_Publish(t *testing.T) {
	pubSub := newPubSub(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := pubSub.Subscribe(ctx, "report.events")
	require.NoError(t, err)

	publisher := NewWatermillEventPublisher(pubSub, "report.events", testLogger())
	event := NewReportGeneratedEvent(sampleResult(), time.Second)
	require.NoError(t, publisher.PublishReportEvent(ctx, event))

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, event.ID, msg.UUID)
		assert.Equal(t, string(EventReportGenerated), msg.Metadata.Get("event_type"))
		assert.Equal(t, "req-1", msg.Metadata.Get("request_id"))

		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
		assert.Equal(t, "report.generated", decoded["type"])
		data := decoded["data"].(map[string]interface{})
		assert.Equal(t, "reports/ada.pdf", data["report_file"])
	case <-ctx.Done():
		t.Fatal("event was not delivered")
	}
}

func TestMockEventPublisher(t *testing.T) {
	publisher := NewMockEventPublisher(testLogger())
	ctx := context.Background()

	require.NoError(t, publisher.PublishReportEvent(ctx, NewReportFailedEvent("a", "s", "reference", errors.New("x"), nil)))
	require.NoError(t, publisher.PublishReportEvent(ctx, NewReportGeneratedEvent(sampleResult(), 0)))

	events := publisher.GetPublishedEvents()
	require.Len(t, events, 2)
	assert.Equal(t, EventReportFailed, events[0].Type)
	assert.Equal(t, EventReportGenerated, events[1].Type)

	publisher.ClearEvents()
	assert.Empty(t, publisher.GetPublishedEvents())
	assert.NoError(t, publisher.Close())
}

func startConsumer(t *testing.T, pubSub *gochannel.GoChannel, handle RequestHandler) {
	t.Helper()
	consumer, err := NewRequestConsumer(pubSub, "report.requests", handle, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = consumer.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		consumer.Close()
	})

	select {
	case <-consumer.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not start")
	}
}

func TestRequestConsumer_HandlesRequests(t *testing.T) {
	pubSub := newPubSub(t)
	received := make(chan *models.ReportRequest, 2)
	startConsumer(t, pubSub, func(ctx context.Context, req *models.ReportRequest) error {
		received <- req
		return nil
	})

	withID := message.NewMessage(watermill.NewUUID(),
		[]byte(`{"request_id":"r-1","student_id":"s-1","student_name":"Ada","responses":[[1,2.5,13]]}`))
	require.NoError(t, pubSub.Publish("report.requests", withID))

	select {
	case req := <-received:
		assert.Equal(t, "r-1", req.RequestID)
		assert.Equal(t, "Ada", req.StudentName)
		require.Len(t, req.Responses, 1)
		assert.Equal(t, 1, req.Responses[0].QuestionID)
		assert.Equal(t, models.Answer("13"), req.Responses[0].Answer)
	case <-time.After(5 * time.Second):
		t.Fatal("request was not handled")
	}

	withoutID := message.NewMessage("msg-uuid",
		[]byte(`{"student_id":"s-2","student_name":"Bob","responses":[{"question_id":2,"time_spent":1,"answer":"x"}]}`))
	require.NoError(t, pubSub.Publish("report.requests", withoutID))

	select {
	case req := <-received:
		assert.Equal(t, "msg-uuid", req.RequestID)
	case <-time.After(5 * time.Second):
		t.Fatal("request was not handled")
	}
}

func TestRequestConsumer_SkipsMalformedAndFailedRequests(t *testing.T) {
	pubSub := newPubSub(t)
	received := make(chan string, 3)
	startConsumer(t, pubSub, func(ctx context.Context, req *models.ReportRequest) error {
		received <- req.RequestID
		if req.RequestID == "fails" {
			return errors.New("boom")
		}
		return nil
	})

	require.NoError(t, pubSub.Publish("report.requests", message.NewMessage("bad", []byte("{not json"))))
	require.NoError(t, pubSub.Publish("report.requests",
		message.NewMessage("m-2", []byte(`{"request_id":"fails","student_id":"s","student_name":"S","responses":[]}`))))
	require.NoError(t, pubSub.Publish("report.requests",
		message.NewMessage("m-3", []byte(`{"request_id":"ok","student_id":"s","student_name":"S","responses":[]}`))))

	var got []string
	for len(got) < 2 {
		select {
		case id := <-received:
			got = append(got, id)
		case <-time.After(5 * time.Second):
			t.Fatalf("only %d requests handled", len(got))
		}
	}
	assert.Equal(t, []string{"fails", "ok"}, got)
}
