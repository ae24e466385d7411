package evaluation

import (
	"time"

	"github.com/SAP-F-2025/performance-report-service/internal/config"
	"github.com/SAP-F-2025/performance-report-service/internal/models"
)

// Pipeline runs every evaluation stage for one student. It holds no mutable
// state and may be shared between goroutines.
type Pipeline struct {
	classifier  *Classifier
	aggregator  *Aggregator
	recommender *Recommender
	grouper     *Grouper
	now         func() time.Time
}

func NewPipeline(cfg config.EvaluationConfig) *Pipeline {
	return &Pipeline{
		classifier:  NewClassifier(cfg),
		aggregator:  NewAggregator(cfg),
		recommender: NewRecommender(cfg),
		grouper:     NewGrouper(cfg),
		now:         time.Now,
	}
}

// WithClock replaces the clock used for EvaluatedAt.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	clone := *p
	clone.now = now
	return &clone
}

// Run classifies the responses, aggregates them against the reference rows
// and derives recommendations and tiers. reference is only read.
func (p *Pipeline) Run(student Student, responses []models.Response, reference []models.ReferenceRecord) (*models.Evaluation, error) {
	items, err := p.classifier.Classify(student, responses)
	if err != nil {
		return nil, err
	}

	agg := p.aggregator.Aggregate(items, reference)

	return &models.Evaluation{
		StudentID:       student.ID,
		StudentName:     student.Name,
		Items:           items,
		TotalScore:      agg.TotalScore,
		MaxScore:        agg.MaxScore,
		TypeScores:      agg.TypeScores,
		Summary:         agg.Summary,
		Recommendations: p.recommender.Recommend(agg.Summary),
		Clusters:        p.grouper.Group(agg.Combined),
		ReferenceRows:   len(reference),
		EvaluatedAt:     p.now().UTC(),
	}, nil
}
