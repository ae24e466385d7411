package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	apperrors "github.com/SAP-F-2025/performance-report-service/internal/errors"
)

// ServiceLogger provides structured logging for service layer operations
type ServiceLogger struct {
	logger *slog.Logger
	config LogConfig
}

type LogConfig struct {
	Service     string
	Component   string
	EnableDebug bool
}

func NewServiceLogger(logger *slog.Logger, config LogConfig) *ServiceLogger {
	return &ServiceLogger{
		logger: logger.With("service", config.Service, "component", config.Component),
		config: config,
	}
}

// ===== OPERATION LOGGING =====

func (l *ServiceLogger) LogOperation(ctx context.Context, operation, studentID, requestID string, duration time.Duration, err error) {
	level := slog.LevelInfo
	status := "success"

	if err != nil {
		level = slog.LevelError
		status = "error"

		// Caller mistakes are warnings, environment failures are errors
		switch ErrorKind(err) {
		case KindValidation:
			level = slog.LevelWarn
			status = "validation_error"
		case KindConfiguration:
			level = slog.LevelWarn
			status = "configuration_error"
		case KindReference:
			status = "reference_error"
		case KindArtifact:
			status = "artifact_error"
		}
	}

	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("student_id", studentID),
		slog.String("request_id", requestID),
		slog.String("status", status),
		slog.Duration("duration", duration),
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))

		var validationErr apperrors.ValidationErrors
		var configErr *apperrors.ConfigurationError
		var artifactErr *apperrors.ArtifactError
		if errors.As(err, &validationErr) {
			attrs = append(attrs, slog.Int("validation_errors_count", len(validationErr)))
		} else if errors.As(err, &configErr) {
			attrs = append(attrs, slog.Int("question_id", configErr.QuestionID))
		} else if errors.As(err, &artifactErr) {
			attrs = append(attrs, slog.String("artifact", artifactErr.Artifact))
		}

		if pc, file, line, ok := runtime.Caller(2); ok {
			if fn := runtime.FuncForPC(pc); fn != nil {
				attrs = append(attrs,
					slog.String("caller_func", fn.Name()),
					slog.String("caller_file", file),
					slog.Int("caller_line", line),
				)
			}
		}
	}

	l.logger.LogAttrs(ctx, level, fmt.Sprintf("%s operation %s", operation, status), attrs...)
}

func (l *ServiceLogger) LogValidationError(ctx context.Context, operation, requestID string, validationErrors ValidationErrors) {
	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("request_id", requestID),
		slog.Int("error_count", len(validationErrors)),
	}

	for i, err := range validationErrors {
		if i < 5 { // Limit to first 5 errors to avoid log spam
			attrs = append(attrs, slog.Group(fmt.Sprintf("error_%d", i+1),
				slog.String("field", err.Field),
				slog.String("message", err.Message),
				slog.Any("value", err.Value),
			))
		}
	}

	l.logger.LogAttrs(ctx, slog.LevelWarn, "Validation failed", attrs...)
}

// LogStage records how long a single pipeline stage took
func (l *ServiceLogger) LogStage(ctx context.Context, requestID, stage string, duration time.Duration) {
	if !l.config.EnableDebug {
		return
	}
	l.logger.LogAttrs(ctx, slog.LevelDebug, "Pipeline stage finished",
		slog.String("request_id", requestID),
		slog.String("stage", stage),
		slog.Duration("duration", duration),
	)
}

func (l *ServiceLogger) LogRecovery(ctx context.Context, operation, requestID string, recovered interface{}, stack []byte) {
	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("request_id", requestID),
		slog.Any("panic_value", recovered),
		slog.String("stack_trace", string(stack)),
	}

	l.logger.LogAttrs(ctx, slog.LevelError, "Panic recovered", attrs...)
}

// ===== MIDDLEWARE AND HELPERS =====

// ContextualLogger wraps operations with automatic logging
type ContextualLogger struct {
	logger    *ServiceLogger
	operation string
	studentID string
	requestID string
	startTime time.Time
	ctx       context.Context
}

func (l *ServiceLogger) WithOperation(ctx context.Context, operation, studentID, requestID string) *ContextualLogger {
	return &ContextualLogger{
		logger:    l,
		operation: operation,
		studentID: studentID,
		requestID: requestID,
		startTime: time.Now(),
		ctx:       ctx,
	}
}

func (cl *ContextualLogger) LogResult(err error) time.Duration {
	duration := time.Since(cl.startTime)
	cl.logger.LogOperation(cl.ctx, cl.operation, cl.studentID, cl.requestID, duration, err)

	var validationErrors ValidationErrors
	if errors.As(err, &validationErrors) {
		cl.logger.LogValidationError(cl.ctx, cl.operation, cl.requestID, validationErrors)
	}
	return duration
}

// ===== ERROR FORMATTING HELPERS =====

func FormatError(err error) map[string]interface{} {
	if err == nil {
		return nil
	}

	result := map[string]interface{}{
		"message": err.Error(),
		"type":    ErrorKind(err),
	}

	var validationErrs ValidationErrors
	var configErr *ConfigurationError
	var referenceErr *ReferenceError
	var artifactErr *ArtifactError

	switch {
	case errors.As(err, &validationErrs):
		result["count"] = len(validationErrs)

		fields := make([]map[string]interface{}, len(validationErrs))
		for i, validationErr := range validationErrs {
			fields[i] = map[string]interface{}{
				"field":   validationErr.Field,
				"message": validationErr.Message,
				"value":   validationErr.Value,
			}
		}
		result["errors"] = fields

	case errors.As(err, &configErr):
		result["question_id"] = configErr.QuestionID
		result["reason"] = configErr.Reason

	case errors.As(err, &referenceErr):
		result["source"] = referenceErr.Source
		if referenceErr.Row > 0 {
			result["row"] = referenceErr.Row
		}
		if referenceErr.Column != "" {
			result["column"] = referenceErr.Column
		}

	case errors.As(err, &artifactErr):
		result["artifact"] = artifactErr.Artifact
	}

	return result
}
