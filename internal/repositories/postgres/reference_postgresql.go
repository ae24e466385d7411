package postgres

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/SAP-F-2025/performance-report-service/internal/models"
	"github.com/SAP-F-2025/performance-report-service/internal/repositories"
	"gorm.io/gorm"
)

const referenceBatchSize = 500

type ReferencePostgreSQL struct {
	db *gorm.DB
}

func NewReferencePostgreSQL(db *gorm.DB) repositories.ReferenceRepository {
	return &ReferencePostgreSQL{db: db}
}

func (r *ReferencePostgreSQL) List(ctx context.Context, filters repositories.ReferenceFilters) ([]models.ReferenceRecord, error) {
	query := r.db.WithContext(ctx).Model(&models.ReferenceRecord{})

	if len(filters.QuestionTypes) > 0 {
		query = query.Where("question_type IN ?", filters.QuestionTypes)
	}
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}

	var records []models.ReferenceRecord
	if err := query.Order("id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list reference records: %w", err)
	}
	return records, nil
}

func (r *ReferencePostgreSQL) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ReferenceRecord{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count reference records: %w", err)
	}
	return count, nil
}

func (r *ReferencePostgreSQL) GetStats(ctx context.Context) (*repositories.ReferenceStats, error) {
	var rows []struct {
		QuestionType models.QuestionType
		Count        int
	}
	err := r.db.WithContext(ctx).Model(&models.ReferenceRecord{}).
		Select("question_type, COUNT(*) AS count").
		Group("question_type").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get reference stats: %w", err)
	}

	stats := &repositories.ReferenceStats{RowsByType: make(map[models.QuestionType]int, len(rows))}
	for _, row := range rows {
		stats.RowsByType[row.QuestionType] = row.Count
		stats.TotalRows += int64(row.Count)
	}

	var latest models.ReferenceRecord
	err = r.db.WithContext(ctx).Select("id", "created_at").
		Order("created_at DESC").Limit(1).
		Find(&latest).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get reference stats: %w", err)
	}
	if !latest.CreatedAt.IsZero() {
		stats.LastUpdated = latest.CreatedAt.UTC()
	}

	return stats, nil
}

func (r *ReferencePostgreSQL) CreateBatch(ctx context.Context, tx *gorm.DB, records []models.ReferenceRecord) error {
	if len(records) == 0 {
		return nil
	}

	// gorm writes primary keys back into the slice; keep the caller's rows intact
	rows := slices.Clone(records)
	now := time.Now().UTC()
	for i := range rows {
		rows[i].ID = 0
		if rows[i].CreatedAt.IsZero() {
			rows[i].CreatedAt = now
		}
	}

	db := r.getDB(tx)
	return db.WithContext(ctx).CreateInBatches(rows, referenceBatchSize).Error
}

func (r *ReferencePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}
