package errors

import (
	"errors"
	"fmt"
)

var (
	// Configuration errors: the request references something the evaluation
	// configuration cannot grade.
	ErrUnknownQuestion    = errors.New("question not in answer key")
	ErrQuestionOutOfRange = errors.New("question id outside configured question types")
	ErrInvalidConfig      = errors.New("invalid evaluation configuration")

	// Reference dataset errors are fatal at load time.
	ErrReferenceDataset = errors.New("reference dataset unavailable")
	ErrReferenceSchema  = errors.New("reference dataset has malformed schema")

	// Artifact errors cover chart, report and workbook output.
	ErrArtifactWrite = errors.New("report artifact write failed")
)

// ConfigurationError reports a question the evaluation configuration cannot
// grade. It wraps ErrUnknownQuestion or ErrQuestionOutOfRange.
type ConfigurationError struct {
	QuestionID int
	Reason     string
	Err        error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error for question %d: %s", e.QuestionID, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func NewConfigurationError(questionID int, reason string, err error) *ConfigurationError {
	return &ConfigurationError{
		QuestionID: questionID,
		Reason:     reason,
		Err:        err,
	}
}

// ReferenceError reports a problem loading the reference population. Row is
// the 1-based source row (header included) or 0 when not row specific.
type ReferenceError struct {
	Source string
	Row    int
	Column string
	Err    error
}

func (e *ReferenceError) Error() string {
	switch {
	case e.Row > 0 && e.Column != "":
		return fmt.Sprintf("reference dataset %s: row %d column %q: %v", e.Source, e.Row, e.Column, e.Err)
	case e.Column != "":
		return fmt.Sprintf("reference dataset %s: column %q: %v", e.Source, e.Column, e.Err)
	default:
		return fmt.Sprintf("reference dataset %s: %v", e.Source, e.Err)
	}
}

func (e *ReferenceError) Unwrap() error {
	return e.Err
}

// ArtifactError reports a failed write of a named output artifact.
type ArtifactError struct {
	Artifact string
	Err      error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("artifact %s: %v", e.Artifact, e.Err)
}

func (e *ArtifactError) Unwrap() []error {
	return []error{ErrArtifactWrite, e.Err}
}

func NewArtifactError(artifact string, err error) *ArtifactError {
	return &ArtifactError{Artifact: artifact, Err: err}
}
