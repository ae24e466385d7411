// Package reference loads the population of previously graded rows that every
// student is compared against.
package reference

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	apperrors "github.com/SAP-F-2025/performance-report-service/internal/errors"
	"github.com/SAP-F-2025/performance-report-service/internal/models"
)

// Source yields the raw reference rows.
type Source interface {
	Name() string
	Load(ctx context.Context) ([]models.ReferenceRecord, error)
}

// Population is a loaded, read-only reference dataset. It is safe to share
// between concurrent requests.
type Population struct {
	rows     []models.ReferenceRecord
	source   string
	snapshot string
	loadedAt time.Time
}

// Load reads a source once and freezes the result. An empty dataset is an
// error.
func Load(ctx context.Context, src Source) (*Population, error) {
	rows, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &apperrors.ReferenceError{Source: src.Name(), Err: fmt.Errorf("%w: no rows", apperrors.ErrReferenceDataset)}
	}
	for i, row := range rows {
		if row.QuestionType == "" {
			return nil, &apperrors.ReferenceError{Source: src.Name(), Row: i + 1, Column: ColumnQuestionType, Err: apperrors.ErrReferenceSchema}
		}
		if !validAccuracy(row.Accuracy) {
			return nil, &apperrors.ReferenceError{Source: src.Name(), Row: i + 1, Column: ColumnAccuracy,
				Err: fmt.Errorf("%w: accuracy %g outside 0..1", apperrors.ErrReferenceSchema, row.Accuracy)}
		}
	}

	return NewPopulation(src.Name(), rows), nil
}

// NewPopulation wraps rows that are already known to be valid. The rows are
// copied.
func NewPopulation(source string, rows []models.ReferenceRecord) *Population {
	frozen := make([]models.ReferenceRecord, len(rows))
	copy(frozen, rows)

	return &Population{
		rows:     frozen,
		source:   source,
		snapshot: fingerprint(frozen),
		loadedAt: time.Now().UTC(),
	}
}

// Rows returns the reference rows. Callers must not modify them; appending is
// safe because the slice is returned at full capacity.
func (p *Population) Rows() []models.ReferenceRecord {
	return p.rows[:len(p.rows):len(p.rows)]
}

func (p *Population) Len() int {
	return len(p.rows)
}

func (p *Population) Source() string {
	return p.source
}

// Snapshot identifies the dataset content. Two populations with equal rows
// share a snapshot id.
func (p *Population) Snapshot() string {
	return p.snapshot
}

func (p *Population) LoadedAt() time.Time {
	return p.loadedAt
}

func fingerprint(rows []models.ReferenceRecord) string {
	h := sha256.New()
	for _, r := range rows {
		fmt.Fprintf(h, "%s|%s|%d|%s|%g|%g\n", r.StudentID, r.StudentName, r.QuestionID, r.QuestionType, r.TimeSpent, r.Accuracy)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
