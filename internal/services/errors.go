package services

import (
	"errors"

	apperrors "github.com/SAP-F-2025/performance-report-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	ErrValidationFailed = errors.New("validation failed")
	ErrReferenceMissing = errors.New("reference population not loaded")
	ErrPipelinePanic    = errors.New("report pipeline panicked")

	ErrUnknownQuestion    = apperrors.ErrUnknownQuestion
	ErrQuestionOutOfRange = apperrors.ErrQuestionOutOfRange
	ErrReferenceDataset   = apperrors.ErrReferenceDataset
	ErrReferenceSchema    = apperrors.ErrReferenceSchema
	ErrArtifactWrite      = apperrors.ErrArtifactWrite
)

// ===== CUSTOM ERROR TYPES =====

// Use shared error types from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors
type ConfigurationError = apperrors.ConfigurationError
type ReferenceError = apperrors.ReferenceError
type ArtifactError = apperrors.ArtifactError

// Error kinds reported in logs, metrics and report.failed events.
const (
	KindValidation    = "validation"
	KindConfiguration = "configuration"
	KindReference     = "reference"
	KindArtifact      = "artifact"
	KindInternal      = "internal"
)

// ===== ERROR HELPERS =====

// IsValidation checks if error represents a rejected request
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsConfiguration checks if error names a question the configuration cannot grade
func IsConfiguration(err error) bool {
	var ce *apperrors.ConfigurationError
	return errors.As(err, &ce) ||
		errors.Is(err, apperrors.ErrUnknownQuestion) ||
		errors.Is(err, apperrors.ErrQuestionOutOfRange)
}

// IsReference checks if error comes from loading the reference population
func IsReference(err error) bool {
	return errors.Is(err, ErrReferenceMissing) ||
		errors.Is(err, apperrors.ErrReferenceDataset) ||
		errors.Is(err, apperrors.ErrReferenceSchema)
}

// IsArtifact checks if error is a failed report or workbook write
func IsArtifact(err error) bool {
	return errors.Is(err, apperrors.ErrArtifactWrite)
}

// ErrorKind classifies err for logs, metrics and failure events
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsValidation(err):
		return KindValidation
	case IsConfiguration(err):
		return KindConfiguration
	case IsReference(err):
		return KindReference
	case IsArtifact(err):
		return KindArtifact
	default:
		return KindInternal
	}
}
