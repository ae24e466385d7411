package events

import (
	"time"

	"github.com/SAP-F-2025/performance-report-service/internal/models"
	"github.com/google/uuid"
)

// EventType represents the kinds of report events
type EventType string

const (
	EventReportRequested EventType = "report.requested"
	EventReportGenerated EventType = "report.generated"
	EventReportFailed    EventType = "report.failed"
)

const (
	EventSource  = "performance-report-service"
	EventVersion = "1.0"
)

// ReportEvent is the envelope for every event this service publishes
type ReportEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type ReportGeneratedEvent struct {
	RequestID   string    `json:"request_id"`
	StudentID   string    `json:"student_id"`
	StudentName string    `json:"student_name"`
	ReportFile  string    `json:"report_file"`
	Workbook    string    `json:"workbook,omitempty"`
	TotalScore  int       `json:"total_score"`
	MaxScore    int       `json:"max_score"`
	DurationMs  int64     `json:"duration_ms"`
	Tiers       []int     `json:"tiers,omitempty"`
	MeanScores  []float64 `json:"mean_scores,omitempty"`
}

type ReportFailedEvent struct {
	RequestID string                 `json:"request_id"`
	StudentID string                 `json:"student_id"`
	ErrorKind string                 `json:"error_kind"`
	Reason    string                 `json:"reason"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

func newReportEvent(eventType EventType, data interface{}) *ReportEvent {
	return &ReportEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    EventSource,
		Version:   EventVersion,
		Data:      data,
	}
}

// NewReportGeneratedEvent describes a successfully published report
func NewReportGeneratedEvent(result *models.ReportResult, duration time.Duration) *ReportEvent {
	eval := result.Evaluation
	data := ReportGeneratedEvent{
		RequestID:   result.RequestID,
		StudentID:   eval.StudentID,
		StudentName: eval.StudentName,
		ReportFile:  result.ReportFile,
		Workbook:    result.Workbook,
		TotalScore:  eval.TotalScore,
		MaxScore:    eval.MaxScore,
		DurationMs:  duration.Milliseconds(),
	}
	for _, avg := range eval.Clusters.Averages {
		data.Tiers = append(data.Tiers, avg.Tier)
		data.MeanScores = append(data.MeanScores, avg.MeanScore)
	}

	event := newReportEvent(EventReportGenerated, data)
	event.Metadata = map[string]interface{}{"request_id": result.RequestID}
	return event
}

// NewReportFailedEvent describes a request that produced no report. details
// carries the structured fields of err, such as the offending question or
// reference row, and may be nil.
func NewReportFailedEvent(requestID, studentID, errorKind string, err error, details map[string]interface{}) *ReportEvent {
	event := newReportEvent(EventReportFailed, ReportFailedEvent{
		RequestID: requestID,
		StudentID: studentID,
		ErrorKind: errorKind,
		Reason:    err.Error(),
		Details:   details,
	})
	event.Metadata = map[string]interface{}{"request_id": requestID}
	return event
}
