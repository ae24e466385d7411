package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	apperrors "github.com/SAP-F-2025/performance-report-service/internal/errors"
	"github.com/SAP-F-2025/performance-report-service/internal/models"
)

// AnswerKey maps question ids to expected answers. The zero value is empty;
// use NewAnswerKey to build one. An AnswerKey is never modified after
// construction.
type AnswerKey struct {
	answers map[int]models.Answer
}

func NewAnswerKey(answers map[int]models.Answer) AnswerKey {
	copied := make(map[int]models.Answer, len(answers))
	for id, answer := range answers {
		copied[id] = answer
	}
	return AnswerKey{answers: copied}
}

// ParseAnswerKey reads a JSON object such as {"1": 9, "6": "triangle"}.
func ParseAnswerKey(data []byte) (AnswerKey, error) {
	var raw map[string]models.Answer
	if err := json.Unmarshal(data, &raw); err != nil {
		return AnswerKey{}, fmt.Errorf("%w: answer key: %v", apperrors.ErrInvalidConfig, err)
	}

	answers := make(map[int]models.Answer, len(raw))
	for k, v := range raw {
		id, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			return AnswerKey{}, fmt.Errorf("%w: answer key id %q is not an integer", apperrors.ErrInvalidConfig, k)
		}
		answers[id] = v
	}
	return NewAnswerKey(answers), nil
}

func (k AnswerKey) Expected(questionID int) (models.Answer, bool) {
	answer, ok := k.answers[questionID]
	return answer, ok
}

func (k AnswerKey) Len() int {
	return len(k.answers)
}

// IDs returns the question ids in ascending order.
func (k AnswerKey) IDs() []int {
	ids := make([]int, 0, len(k.answers))
	for id := range k.answers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// EvaluationOptions is the mutable input to NewEvaluationConfig.
type EvaluationOptions struct {
	AnswerKey                 AnswerKey
	QuestionTypes             []models.QuestionType
	QuestionsPerType          int
	TimeThreshold             float64
	TotalPossibleScore        int
	PerTypeMax                int
	MasteredThreshold         float64
	NeedsImprovementThreshold float64
	StrugglingThreshold       float64
	ClusterCount              int
	ClusterSeed               uint64
}

// EvaluationConfig holds the answer key and every threshold the pipeline
// uses. It is a read-only value: fields are reachable through accessors only,
// so a config can be shared between concurrent report requests.
type EvaluationConfig struct {
	answerKey                 AnswerKey
	questionTypes             []models.QuestionType
	questionsPerType          int
	timeThreshold             float64
	totalPossibleScore        int
	perTypeMax                int
	masteredThreshold         float64
	needsImprovementThreshold float64
	strugglingThreshold       float64
	clusterCount              int
	clusterSeed               uint64
}

// DefaultEvaluationConfig returns the standard 15 question quiz.
func DefaultEvaluationConfig() EvaluationConfig {
	cfg, err := NewEvaluationConfig(DefaultEvaluationOptions())
	if err != nil {
		panic(err)
	}
	return cfg
}

func DefaultEvaluationOptions() EvaluationOptions {
	return EvaluationOptions{
		AnswerKey: NewAnswerKey(map[int]models.Answer{
			1: models.NumericAnswer(9), 2: models.NumericAnswer(9), 3: models.NumericAnswer(4),
			4: models.NumericAnswer(9), 5: models.NumericAnswer(4),
			6: models.TextAnswer("triangle"), 7: models.TextAnswer("sphere"), 8: models.TextAnswer("square"),
			9: models.TextAnswer("cube"), 10: models.TextAnswer("cone"),
			11: models.NumericAnswer(7), 12: models.NumericAnswer(8), 13: models.NumericAnswer(8),
			14: models.NumericAnswer(9), 15: models.NumericAnswer(16),
		}),
		QuestionTypes: []models.QuestionType{
			models.QuestionTypeArithmetic,
			models.QuestionTypeGeometry,
			models.QuestionTypeNumberSequence,
		},
		QuestionsPerType:          5,
		TimeThreshold:             35,
		TotalPossibleScore:        15,
		PerTypeMax:                5,
		MasteredThreshold:         80,
		NeedsImprovementThreshold: 20,
		StrugglingThreshold:       20,
		ClusterCount:              3,
		ClusterSeed:               0,
	}
}

func NewEvaluationConfig(opts EvaluationOptions) (EvaluationConfig, error) {
	if err := opts.validate(); err != nil {
		return EvaluationConfig{}, err
	}

	return EvaluationConfig{
		answerKey:                 NewAnswerKey(opts.AnswerKey.answers),
		questionTypes:             slices.Clone(opts.QuestionTypes),
		questionsPerType:          opts.QuestionsPerType,
		timeThreshold:             opts.TimeThreshold,
		totalPossibleScore:        opts.TotalPossibleScore,
		perTypeMax:                opts.PerTypeMax,
		masteredThreshold:         opts.MasteredThreshold,
		needsImprovementThreshold: opts.NeedsImprovementThreshold,
		strugglingThreshold:       opts.StrugglingThreshold,
		clusterCount:              opts.ClusterCount,
		clusterSeed:               opts.ClusterSeed,
	}, nil
}

func (o EvaluationOptions) validate() error {
	var problems []string

	if o.AnswerKey.Len() == 0 {
		problems = append(problems, "answer key is empty")
	}
	if len(o.QuestionTypes) == 0 {
		problems = append(problems, "at least one question type is required")
	}
	seen := make(map[models.QuestionType]bool, len(o.QuestionTypes))
	for _, t := range o.QuestionTypes {
		if t == "" {
			problems = append(problems, "question type names must not be empty")
		}
		if seen[t] {
			problems = append(problems, fmt.Sprintf("duplicate question type %q", t))
		}
		seen[t] = true
	}
	if o.QuestionsPerType < 1 {
		problems = append(problems, "questions per type must be at least 1")
	}
	if o.TimeThreshold < 0 {
		problems = append(problems, "time threshold must not be negative")
	}
	if o.TotalPossibleScore < 1 || o.PerTypeMax < 1 {
		problems = append(problems, "score maxima must be positive")
	}
	for name, v := range map[string]float64{
		"mastered":          o.MasteredThreshold,
		"needs improvement": o.NeedsImprovementThreshold,
		"struggling":        o.StrugglingThreshold,
	} {
		if v < 0 || v > 100 {
			problems = append(problems, fmt.Sprintf("%s threshold must be within 0..100", name))
		}
	}
	if o.ClusterCount < 1 {
		problems = append(problems, "cluster count must be at least 1")
	}

	maxID := len(o.QuestionTypes) * o.QuestionsPerType
	for _, id := range o.AnswerKey.IDs() {
		if id < 1 || id > maxID {
			problems = append(problems, fmt.Sprintf("answer key question %d outside 1..%d", id, maxID))
		}
	}

	if len(problems) > 0 {
		slices.Sort(problems)
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func (c EvaluationConfig) AnswerKey() AnswerKey {
	return c.answerKey
}

// QuestionTypes returns a copy of the ordered question type names.
func (c EvaluationConfig) QuestionTypes() []models.QuestionType {
	return slices.Clone(c.questionTypes)
}

func (c EvaluationConfig) QuestionsPerType() int { return c.questionsPerType }
func (c EvaluationConfig) TimeThreshold() float64 { return c.timeThreshold }
func (c EvaluationConfig) TotalPossibleScore() int { return c.totalPossibleScore }
func (c EvaluationConfig) PerTypeMax() int { return c.perTypeMax }
func (c EvaluationConfig) MasteredThreshold() float64 { return c.masteredThreshold }
func (c EvaluationConfig) NeedsImprovementThreshold() float64 { return c.needsImprovementThreshold }
func (c EvaluationConfig) StrugglingThreshold() float64 { return c.strugglingThreshold }
func (c EvaluationConfig) ClusterCount() int { return c.clusterCount }
func (c EvaluationConfig) ClusterSeed() uint64 { return c.clusterSeed }

// QuestionTypeFor returns the type of a 1-based question id: ids are split
// into consecutive blocks of QuestionsPerType.
func (c EvaluationConfig) QuestionTypeFor(questionID int) (models.QuestionType, bool) {
	if questionID < 1 {
		return "", false
	}
	idx := (questionID - 1) / c.questionsPerType
	if idx >= len(c.questionTypes) {
		return "", false
	}
	return c.questionTypes[idx], true
}

// TypeIndex returns the position of a question type in the configured order,
// or -1 for a type the configuration does not know.
func (c EvaluationConfig) TypeIndex(questionType models.QuestionType) int {
	return slices.Index(c.questionTypes, questionType)
}

// Fingerprint identifies the configuration for cache keys.
func (c EvaluationConfig) Fingerprint() string {
	h := sha256.New()
	for _, id := range c.answerKey.IDs() {
		answer, _ := c.answerKey.Expected(id)
		fmt.Fprintf(h, "%d=%s;", id, answer)
	}
	fmt.Fprintf(h, "types=%v;per=%d;time=%g;total=%d;typemax=%d;m=%g;ni=%g;s=%g;k=%d;seed=%d",
		c.questionTypes, c.questionsPerType, c.timeThreshold, c.totalPossibleScore, c.perTypeMax,
		c.masteredThreshold, c.needsImprovementThreshold, c.strugglingThreshold,
		c.clusterCount, c.clusterSeed)
	return hex.EncodeToString(h.Sum(nil))[:16]
}
