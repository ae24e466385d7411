package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type QuestionType string

const (
	QuestionTypeArithmetic     QuestionType = "arithmetic"
	QuestionTypeGeometry       QuestionType = "geometry"
	QuestionTypeNumberSequence QuestionType = "number_sequence"
)

type MasteryCategory string

const (
	CategoryMastered         MasteryCategory = "Mastered"
	CategoryNeedsImprovement MasteryCategory = "Needs Improvement"
	CategoryStruggling       MasteryCategory = "Struggling"
)

// MasteryCategories lists the categories in report order.
var MasteryCategories = []MasteryCategory{
	CategoryMastered,
	CategoryNeedsImprovement,
	CategoryStruggling,
}

// Answer is a raw or expected answer. Numbers and strings are both kept in
// their textual form; the grader decides how to compare them.
type Answer string

// NumericAnswer builds an Answer from a number using the shortest exact form.
func NumericAnswer(v float64) Answer {
	return Answer(strconv.FormatFloat(v, 'f', -1, 64))
}

// TextAnswer builds an Answer from a categorical token.
func TextAnswer(s string) Answer {
	return Answer(s)
}

func (a Answer) String() string {
	return string(a)
}

// Float reports whether the answer parses as a floating point number.
// Surrounding whitespace is ignored.
func (a Answer) Float() (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(string(a)), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Normalized returns the trimmed, lower-cased token used for string comparison.
func (a Answer) Normalized() string {
	return strings.ToLower(strings.TrimSpace(string(a)))
}

// UnmarshalJSON accepts a JSON string, number, boolean or null.
func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Answer(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*a = Answer(strconv.FormatBool(b))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("answer must be a string or number: %w", err)
		}
		*a = Answer(n.String())
	}
	return nil
}

// Response is one answer submission for a single question.
type Response struct {
	QuestionID int     `json:"question_id" validate:"required,min=1"`
	TimeSpent  float64 `json:"time_spent" validate:"finite,nonneg"`
	Answer     Answer  `json:"answer"`
}

type responseObject struct {
	QuestionID int     `json:"question_id"`
	TimeSpent  float64 `json:"time_spent"`
	Answer     Answer  `json:"answer"`
}

// UnmarshalJSON accepts either an object or a [question_id, time_spent, answer] tuple.
func (r *Response) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var tuple []json.RawMessage
		if err := json.Unmarshal(data, &tuple); err != nil {
			return err
		}
		if len(tuple) != 3 {
			return fmt.Errorf("response tuple must have 3 elements, got %d", len(tuple))
		}
		var out Response
		if err := json.Unmarshal(tuple[0], &out.QuestionID); err != nil {
			return fmt.Errorf("invalid question_id: %w", err)
		}
		if err := json.Unmarshal(tuple[1], &out.TimeSpent); err != nil {
			return fmt.Errorf("invalid time_spent: %w", err)
		}
		if err := json.Unmarshal(tuple[2], &out.Answer); err != nil {
			return fmt.Errorf("invalid answer: %w", err)
		}
		*r = out
		return nil
	}

	var obj responseObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*r = Response(obj)
	return nil
}

// GradedItem is a Response with its question type, correctness and mastery
// category attached. Accuracy is 1 for a correct answer and 0 otherwise.
type GradedItem struct {
	StudentID    string          `json:"student_id"`
	StudentName  string          `json:"student_name"`
	QuestionID   int             `json:"question_id"`
	QuestionType QuestionType    `json:"question_type"`
	TimeSpent    float64         `json:"time_spent"`
	Answer       Answer          `json:"answer"`
	Accuracy     int             `json:"accuracy"`
	Category     MasteryCategory `json:"performance_category"`
}

// Correct reports whether the item was graded correct.
func (g GradedItem) Correct() bool {
	return g.Accuracy == 1
}
