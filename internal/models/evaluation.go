package models

import (
	"math"
	"time"
)

// CategoryDistribution is the share of a question type's items falling into
// each mastery category, in percent. NoData marks a type without items; its
// percentages are all zero.
type CategoryDistribution struct {
	QuestionType     QuestionType `json:"question_type"`
	Items            int          `json:"items"`
	Mastered         float64      `json:"mastered"`
	NeedsImprovement float64      `json:"needs_improvement"`
	Struggling       float64      `json:"struggling"`
	NoData           bool         `json:"no_data"`
}

// Percent returns the share for a single category.
func (d CategoryDistribution) Percent(category MasteryCategory) float64 {
	switch category {
	case CategoryMastered:
		return d.Mastered
	case CategoryNeedsImprovement:
		return d.NeedsImprovement
	case CategoryStruggling:
		return d.Struggling
	default:
		return 0
	}
}

// Total is the sum over all categories; 100 for any row with data.
func (d CategoryDistribution) Total() float64 {
	return d.Mastered + d.NeedsImprovement + d.Struggling
}

// PerformanceSummary holds one distribution row per question type, in
// question type order.
type PerformanceSummary []CategoryDistribution

// Row looks up the distribution for a question type.
func (s PerformanceSummary) Row(questionType QuestionType) (CategoryDistribution, bool) {
	for _, row := range s {
		if row.QuestionType == questionType {
			return row, true
		}
	}
	return CategoryDistribution{}, false
}

// TypeScore is the number of correct answers for one question type.
type TypeScore struct {
	QuestionType QuestionType `json:"question_type"`
	Score        int          `json:"score"`
	Items        int          `json:"items"`
}

type Recommendation struct {
	QuestionType QuestionType `json:"question_type"`
	Guidance     string       `json:"guidance"`
}

// TypeAverage is the mean accuracy of a question type over the combined
// dataset, scaled to 0..5, with the tier it was grouped into.
type TypeAverage struct {
	QuestionType QuestionType `json:"question_type"`
	MeanScore    float64      `json:"mean_score"`
	Samples      int          `json:"samples"`
	Tier         int          `json:"tier"`
}

// ClusterAssignment maps question types to tiers. Tier ids carry no order;
// Centers holds each tier's mean scaled score.
type ClusterAssignment struct {
	Averages []TypeAverage `json:"averages"`
	Centers  []float64     `json:"centers"`
}

// Tier returns the tier of a question type.
func (c ClusterAssignment) Tier(questionType QuestionType) (int, bool) {
	for _, avg := range c.Averages {
		if avg.QuestionType == questionType {
			return avg.Tier, true
		}
	}
	return 0, false
}

// Partition groups question types by tier. Two assignments describe the same
// grouping when their partitions are equal, whatever the tier ids.
func (c ClusterAssignment) Partition() [][]QuestionType {
	byTier := make(map[int][]QuestionType)
	var order []int
	for _, avg := range c.Averages {
		if _, ok := byTier[avg.Tier]; !ok {
			order = append(order, avg.Tier)
		}
		byTier[avg.Tier] = append(byTier[avg.Tier], avg.QuestionType)
	}

	groups := make([][]QuestionType, 0, len(order))
	for _, tier := range order {
		groups = append(groups, byTier[tier])
	}
	return groups
}

// Evaluation is everything the pipeline computes for one student before
// rendering.
type Evaluation struct {
	StudentID       string             `json:"student_id"`
	StudentName     string             `json:"student_name"`
	Items           []GradedItem       `json:"items"`
	TotalScore      int                `json:"total_score"`
	MaxScore        int                `json:"max_score"`
	TypeScores      []TypeScore        `json:"type_scores"`
	Summary         PerformanceSummary `json:"summary"`
	Recommendations []Recommendation   `json:"recommendations"`
	Clusters        ClusterAssignment  `json:"clusters"`
	ReferenceRows   int                `json:"reference_rows"`
	EvaluatedAt     time.Time          `json:"evaluated_at"`
}

// ScoreFor returns the score recorded for a question type.
func (e *Evaluation) ScoreFor(questionType QuestionType) (TypeScore, bool) {
	for _, s := range e.TypeScores {
		if s.QuestionType == questionType {
			return s, true
		}
	}
	return TypeScore{}, false
}

// RoundPercent rounds a percentage to two decimals for display.
func RoundPercent(v float64) float64 {
	return math.Round(v*100) / 100
}
