package reference

import (
	"context"
	"fmt"

	apperrors "github.com/SAP-F-2025/performance-report-service/internal/errors"
	"github.com/SAP-F-2025/performance-report-service/internal/models"
	"github.com/SAP-F-2025/performance-report-service/internal/repositories"
)

// DatabaseSource reads reference rows through a ReferenceRepository.
type DatabaseSource struct {
	repo    repositories.ReferenceRepository
	filters repositories.ReferenceFilters
}

func NewDatabaseSource(repo repositories.ReferenceRepository, filters repositories.ReferenceFilters) *DatabaseSource {
	return &DatabaseSource{repo: repo, filters: filters}
}

func (s *DatabaseSource) Name() string {
	return models.ReferenceRecord{}.TableName()
}

func (s *DatabaseSource) Load(ctx context.Context) ([]models.ReferenceRecord, error) {
	rows, err := s.repo.List(ctx, s.filters)
	if err != nil {
		return nil, &apperrors.ReferenceError{Source: s.Name(), Err: fmt.Errorf("%w: %w", apperrors.ErrReferenceDataset, err)}
	}
	return rows, nil
}
