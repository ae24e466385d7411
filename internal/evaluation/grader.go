// Package evaluation turns raw quiz responses into graded items, summaries,
// recommendations and performance tiers. Every stage is a pure function of
// its input and the injected EvaluationConfig.
package evaluation

import (
	"github.com/SAP-F-2025/performance-report-service/internal/config"
	apperrors "github.com/SAP-F-2025/performance-report-service/internal/errors"
	"github.com/SAP-F-2025/performance-report-service/internal/models"
)

// Grader checks answers against an answer key.
type Grader struct {
	key config.AnswerKey
}

func NewGrader(key config.AnswerKey) *Grader {
	return &Grader{key: key}
}

// Grade returns 1 for a correct answer and 0 otherwise. Both sides are
// compared as numbers when both parse as floats; otherwise as trimmed,
// lower-cased strings. A question missing from the key is a configuration
// error.
func (g *Grader) Grade(questionID int, answer models.Answer) (int, error) {
	expected, ok := g.key.Expected(questionID)
	if !ok {
		return 0, apperrors.NewConfigurationError(questionID, "no expected answer in answer key", apperrors.ErrUnknownQuestion)
	}

	if matches(answer, expected) {
		return 1, nil
	}
	return 0, nil
}

func matches(answer, expected models.Answer) bool {
	got, gotNumeric := answer.Float()
	want, wantNumeric := expected.Float()
	if gotNumeric && wantNumeric {
		return got == want
	}
	return answer.Normalized() == expected.Normalized()
}
