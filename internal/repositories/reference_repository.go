package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/performance-report-service/internal/models"
	"gorm.io/gorm"
)

type ReferenceFilters struct {
	QuestionTypes []models.QuestionType `json:"question_types"`
	Limit         int                   `json:"limit"`
}

// ReferenceStats summarises the stored reference population.
type ReferenceStats struct {
	TotalRows   int64                       `json:"total_rows"`
	RowsByType  map[models.QuestionType]int `json:"rows_by_type"`
	LastUpdated time.Time                   `json:"last_updated"`
}

// ReferenceRepository reads the reference population of graded rows. The
// report pipeline only reads; CreateBatch exists to seed the table.
type ReferenceRepository interface {
	List(ctx context.Context, filters ReferenceFilters) ([]models.ReferenceRecord, error)
	Count(ctx context.Context) (int64, error)
	GetStats(ctx context.Context) (*ReferenceStats, error)

	CreateBatch(ctx context.Context, tx *gorm.DB, records []models.ReferenceRecord) error
}
