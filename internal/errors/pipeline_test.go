package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestConfigurationError(t *testing.T) {
	err := NewConfigurationError(16, "no expected answer", ErrUnknownQuestion)

	if !errors.Is(err, ErrUnknownQuestion) {
		t.Errorf("Expected error to wrap ErrUnknownQuestion")
	}

	expected := "configuration error for question 16: no expected answer"
	if err.Error() != expected {
		t.Errorf("Expected '%s', got '%s'", expected, err.Error())
	}

	wrapped := fmt.Errorf("classify: %w", err)
	var ce *ConfigurationError
	if !errors.As(wrapped, &ce) || ce.QuestionID != 16 {
		t.Errorf("Expected to recover ConfigurationError for question 16")
	}
}

func TestReferenceError(t *testing.T) {
	err := &ReferenceError{
		Source: "classified_student_data.csv",
		Row:    4,
		Column: "accuracy",
		Err:    fmt.Errorf("%w: not a number", ErrReferenceSchema),
	}

	if !errors.Is(err, ErrReferenceSchema) {
		t.Errorf("Expected error to wrap ErrReferenceSchema")
	}
	if errors.Is(err, ErrUnknownQuestion) {
		t.Errorf("Reference errors must stay distinct from grading errors")
	}

	expected := `reference dataset classified_student_data.csv: row 4 column "accuracy": reference dataset has malformed schema: not a number`
	if err.Error() != expected {
		t.Errorf("Expected '%s', got '%s'", expected, err.Error())
	}
}

func TestArtifactError(t *testing.T) {
	cause := errors.New("disk full")
	err := NewArtifactError("report.pdf", cause)

	if !errors.Is(err, ErrArtifactWrite) {
		t.Errorf("Expected error to match ErrArtifactWrite")
	}
	if !errors.Is(err, cause) {
		t.Errorf("Expected error to match its cause")
	}
}
