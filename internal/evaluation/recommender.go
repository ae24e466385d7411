package evaluation

import (
	"fmt"

	"github.com/SAP-F-2025/performance-report-service/internal/config"
	"github.com/SAP-F-2025/performance-report-service/internal/models"
)

const (
	guidanceEncouragement  = "Keep up the good work!"
	guidanceTimeManagement = "Focus on time management and practice."
	guidanceFundamentals   = "Consider reviewing fundamentals and additional practice."
	guidanceMaintenance    = "Keep practicing to maintain skills."
)

type Recommender struct {
	cfg config.EvaluationConfig
}

func NewRecommender(cfg config.EvaluationConfig) *Recommender {
	return &Recommender{cfg: cfg}
}

// Recommend emits one guidance line per summary row. Rules are checked in
// order and the first match wins:
//
//  1. Mastered >= mastered threshold
//  2. Needs Improvement > needs-improvement threshold
//  3. Struggling >= struggling threshold
//  4. anything else
//
// Rows without data get no recommendation.
func (r *Recommender) Recommend(summary models.PerformanceSummary) []models.Recommendation {
	recommendations := make([]models.Recommendation, 0, len(summary))
	for _, row := range summary {
		if row.NoData {
			continue
		}
		recommendations = append(recommendations, models.Recommendation{
			QuestionType: row.QuestionType,
			Guidance:     fmt.Sprintf("For %s, %s", row.QuestionType, r.guidance(row)),
		})
	}
	return recommendations
}

func (r *Recommender) guidance(row models.CategoryDistribution) string {
	switch {
	case row.Mastered >= r.cfg.MasteredThreshold():
		return guidanceEncouragement
	case row.NeedsImprovement > r.cfg.NeedsImprovementThreshold():
		return guidanceTimeManagement
	case row.Struggling >= r.cfg.StrugglingThreshold():
		return guidanceFundamentals
	default:
		return guidanceMaintenance
	}
}
