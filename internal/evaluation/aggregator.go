package evaluation

import (
	"cmp"
	"slices"

	"github.com/SAP-F-2025/performance-report-service/internal/config"
	"github.com/SAP-F-2025/performance-report-service/internal/models"
)

// Aggregate holds the scores and distributions of one student's graded items
// together with the dataset used for reference comparison.
type Aggregate struct {
	TotalScore int
	MaxScore   int
	TypeScores []models.TypeScore
	Summary    models.PerformanceSummary

	// Combined is the reference population followed by the student's items.
	// It is a new slice; the reference rows it was built from are untouched.
	Combined []models.ReferenceRecord
}

type Aggregator struct {
	cfg config.EvaluationConfig
}

func NewAggregator(cfg config.EvaluationConfig) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// Aggregate computes total and per-type scores and the category distribution
// of every question type observed in items.
func (a *Aggregator) Aggregate(items []models.GradedItem, reference []models.ReferenceRecord) Aggregate {
	scores := make(map[models.QuestionType]*models.TypeScore)
	counts := make(map[models.QuestionType]map[models.MasteryCategory]int)
	var observed []models.QuestionType
	total := 0

	for _, item := range items {
		total += item.Accuracy

		score, ok := scores[item.QuestionType]
		if !ok {
			score = &models.TypeScore{QuestionType: item.QuestionType}
			scores[item.QuestionType] = score
			counts[item.QuestionType] = make(map[models.MasteryCategory]int)
			observed = append(observed, item.QuestionType)
		}
		score.Score += item.Accuracy
		score.Items++
		counts[item.QuestionType][item.Category]++
	}

	sortByConfig(a.cfg, observed)

	result := Aggregate{
		TotalScore: total,
		MaxScore:   len(items),
		TypeScores: make([]models.TypeScore, 0, len(observed)),
		Summary:    make(models.PerformanceSummary, 0, len(observed)),
		Combined:   Combine(reference, items),
	}
	for _, t := range observed {
		result.TypeScores = append(result.TypeScores, *scores[t])
		result.Summary = append(result.Summary, Distribution(t, counts[t]))
	}

	return result
}

// sortByConfig orders question types as configured; unknown types go last, by
// name.
func sortByConfig(cfg config.EvaluationConfig, types []models.QuestionType) {
	slices.SortStableFunc(types, func(x, y models.QuestionType) int {
		ix, iy := cfg.TypeIndex(x), cfg.TypeIndex(y)
		switch {
		case ix >= 0 && iy >= 0:
			return cmp.Compare(ix, iy)
		case ix >= 0:
			return -1
		case iy >= 0:
			return 1
		default:
			return cmp.Compare(x, y)
		}
	})
}

// Distribution converts category counts into percentages. Categories missing
// from counts are 0%. A type without any items yields a NoData row with all
// percentages at zero instead of dividing by zero.
func Distribution(questionType models.QuestionType, counts map[models.MasteryCategory]int) models.CategoryDistribution {
	row := models.CategoryDistribution{QuestionType: questionType}
	for _, category := range models.MasteryCategories {
		row.Items += counts[category]
	}
	if row.Items == 0 {
		row.NoData = true
		return row
	}

	share := func(c models.MasteryCategory) float64 {
		return float64(counts[c]) / float64(row.Items) * 100
	}
	row.Mastered = share(models.CategoryMastered)
	row.NeedsImprovement = share(models.CategoryNeedsImprovement)
	row.Struggling = share(models.CategoryStruggling)
	return row
}

// Combine appends a student's items to a copy of the reference rows.
func Combine(reference []models.ReferenceRecord, items []models.GradedItem) []models.ReferenceRecord {
	combined := make([]models.ReferenceRecord, 0, len(reference)+len(items))
	combined = append(combined, reference...)
	for _, item := range items {
		combined = append(combined, models.ReferenceRecordFromItem(item))
	}
	return combined
}
