package models

// ReportRequest asks for one student's performance report.
type ReportRequest struct {
	// RequestID is assigned by the service when empty.
	RequestID   string     `json:"request_id,omitempty" validate:"omitempty,max=64"`
	StudentID   string     `json:"student_id" validate:"required,notblank,max=64"`
	StudentName string     `json:"student_name" validate:"required,notblank,max=255"`
	Responses   []Response `json:"responses" validate:"required,min=1,dive"`
}

// ReportResult describes the artifacts published for a report request.
type ReportResult struct {
	RequestID  string      `json:"request_id"`
	ReportFile string      `json:"report_file"`
	Workbook   string      `json:"workbook,omitempty"`
	Evaluation *Evaluation `json:"evaluation"`
}
