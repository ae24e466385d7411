package evaluation

import (
	"fmt"

	"github.com/SAP-F-2025/performance-report-service/internal/config"
	apperrors "github.com/SAP-F-2025/performance-report-service/internal/errors"
	"github.com/SAP-F-2025/performance-report-service/internal/models"
)

// Student identifies whose responses are being classified.
type Student struct {
	ID   string
	Name string
}

type Classifier struct {
	cfg    config.EvaluationConfig
	grader *Grader
}

func NewClassifier(cfg config.EvaluationConfig) *Classifier {
	return &Classifier{
		cfg:    cfg,
		grader: NewGrader(cfg.AnswerKey()),
	}
}

// Classify grades every response and assigns its question type and mastery
// category. The output has one item per response, in input order. The first
// response with an id outside the configured types or missing from the
// answer key fails the whole call.
func (c *Classifier) Classify(student Student, responses []models.Response) ([]models.GradedItem, error) {
	items := make([]models.GradedItem, 0, len(responses))

	for i, r := range responses {
		questionType, ok := c.cfg.QuestionTypeFor(r.QuestionID)
		if !ok {
			return nil, fmt.Errorf("response %d: %w", i,
				apperrors.NewConfigurationError(r.QuestionID, "question id outside configured question types", apperrors.ErrQuestionOutOfRange))
		}

		accuracy, err := c.grader.Grade(r.QuestionID, r.Answer)
		if err != nil {
			return nil, fmt.Errorf("response %d: %w", i, err)
		}

		items = append(items, models.GradedItem{
			StudentID:    student.ID,
			StudentName:  student.Name,
			QuestionID:   r.QuestionID,
			QuestionType: questionType,
			TimeSpent:    r.TimeSpent,
			Answer:       r.Answer,
			Accuracy:     accuracy,
			Category:     c.Categorize(r.TimeSpent, accuracy == 1),
		})
	}

	return items, nil
}

// Categorize applies the time threshold to a graded answer. Incorrect answers
// are Struggling regardless of time.
func (c *Classifier) Categorize(timeSpent float64, correct bool) models.MasteryCategory {
	switch {
	case correct && timeSpent <= c.cfg.TimeThreshold():
		return models.CategoryMastered
	case correct:
		return models.CategoryNeedsImprovement
	default:
		return models.CategoryStruggling
	}
}
