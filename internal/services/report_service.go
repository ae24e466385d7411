package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/SAP-F-2025/performance-report-service/internal/cache"
	"github.com/SAP-F-2025/performance-report-service/internal/config"
	"github.com/SAP-F-2025/performance-report-service/internal/evaluation"
	"github.com/SAP-F-2025/performance-report-service/internal/events"
	"github.com/SAP-F-2025/performance-report-service/internal/models"
	"github.com/SAP-F-2025/performance-report-service/internal/reference"
	"github.com/SAP-F-2025/performance-report-service/internal/report"
	"github.com/SAP-F-2025/performance-report-service/internal/validator"
	"github.com/google/uuid"
)

// ReportService turns one student's responses into an evaluation and, on
// request, a published PDF report.
type ReportService interface {
	// Evaluate runs the pipeline without producing any file.
	Evaluate(ctx context.Context, req *models.ReportRequest) (*models.Evaluation, error)
	// GenerateReport evaluates the request and publishes the report artifacts.
	GenerateReport(ctx context.Context, req *models.ReportRequest) (*models.ReportResult, error)
}

// EvaluationKeyPrefix starts every cached evaluation key. Deleting
// EvaluationKeyPrefix+"*" drops all cached evaluations.
const EvaluationKeyPrefix = "evaluation:"

type ReportServiceOptions struct {
	OutputDir      string
	ExportWorkbook bool
	CacheTTL       time.Duration
}

type reportService struct {
	cfg        config.EvaluationConfig
	population *reference.Population
	pipeline   *evaluation.Pipeline
	renderer   *report.Renderer
	workbook   *report.WorkbookWriter
	validator  *validator.Validator
	cache      cache.CacheService
	publisher  events.EventPublisher
	metrics    *Metrics
	logger     *slog.Logger
	svcLogger  *ServiceLogger
	opts       ReportServiceOptions
}

// NewReportService wires the pipeline stages. cache and metrics may be nil.
func NewReportService(
	cfg config.EvaluationConfig,
	population *reference.Population,
	cacheService cache.CacheService,
	eventPublisher events.EventPublisher,
	metrics *Metrics,
	logger *slog.Logger,
	opts ReportServiceOptions,
) ReportService {
	return &reportService{
		cfg:        cfg,
		population: population,
		pipeline:   evaluation.NewPipeline(cfg),
		renderer:   report.NewRenderer(cfg),
		workbook:   report.NewWorkbookWriter(cfg),
		validator:  validator.New(),
		cache:      cacheService,
		publisher:  eventPublisher,
		metrics:    metrics,
		logger:     logger,
		svcLogger: NewServiceLogger(logger, LogConfig{
			Service:     "performance-report-service",
			Component:   "report",
			EnableDebug: true,
		}),
		opts: opts,
	}
}

// ===== EVALUATION =====

func (s *reportService) Evaluate(ctx context.Context, req *models.ReportRequest) (*models.Evaluation, error) {
	studentID, requestID := requestKeys(req)
	op := s.svcLogger.WithOperation(ctx, "evaluate", studentID, requestID)

	eval, err := s.evaluate(ctx, req)
	duration := op.LogResult(err)
	s.metrics.observeRun("evaluate", duration.Seconds(), err)
	return eval, err
}

func (s *reportService) evaluate(ctx context.Context, req *models.ReportRequest) (*models.Evaluation, error) {
	if err := s.validator.ValidateReportRequest(req); err != nil {
		return nil, err
	}
	if s.population == nil {
		return nil, ErrReferenceMissing
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key, err := s.cacheKey(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint request: %w", err)
	}

	if s.cache != nil {
		var cached models.Evaluation
		err := s.cache.Get(ctx, key, &cached)
		switch {
		case err == nil:
			s.metrics.observeCache(true)
			s.logger.Debug("Evaluation served from cache", "request_id", req.RequestID, "key", key)
			return &cached, nil
		case errors.Is(err, cache.ErrCacheMiss):
			s.metrics.observeCache(false)
		case errors.Is(err, cache.ErrCacheCorrupt):
			s.metrics.observeCache(false)
			s.logger.Warn("Dropping undecodable cached evaluation", "key", key, "error", err)
			if delErr := s.cache.Delete(ctx, key); delErr != nil {
				s.logger.Warn("Failed to delete cached evaluation", "key", key, "error", delErr)
			}
		default:
			s.logger.Warn("Evaluation cache lookup failed", "key", key, "error", err)
		}
	}

	start := time.Now()
	eval, err := s.pipeline.Run(
		evaluation.Student{ID: req.StudentID, Name: req.StudentName},
		req.Responses,
		s.population.Rows(),
	)
	if err != nil {
		return nil, err
	}
	s.svcLogger.LogStage(ctx, req.RequestID, "pipeline", time.Since(start))
	s.metrics.observeItems(eval.Items)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, eval, s.opts.CacheTTL); err != nil {
			s.logger.Warn("Failed to cache evaluation", "key", key, "error", err)
		}
	}
	return eval, nil
}

// cacheKey identifies an evaluation by everything that can change its
// numbers: configuration, reference population and the request itself. The
// request id is excluded so retries share the entry.
func (s *reportService) cacheKey(req *models.ReportRequest) (string, error) {
	payload, err := json.Marshal(struct {
		StudentID   string            `json:"student_id"`
		StudentName string            `json:"student_name"`
		Responses   []models.Response `json:"responses"`
	}{req.StudentID, req.StudentName, req.Responses})
	if err != nil {
		return "", err
	}

	h := sha256.New()
	io.WriteString(h, s.cfg.Fingerprint())
	h.Write([]byte{0})
	io.WriteString(h, s.population.Snapshot())
	h.Write([]byte{0})
	h.Write(payload)
	return EvaluationKeyPrefix + hex.EncodeToString(h.Sum(nil)), nil
}

// ===== REPORT GENERATION =====

func (s *reportService) GenerateReport(ctx context.Context, req *models.ReportRequest) (*models.ReportResult, error) {
	if req != nil && req.RequestID == "" {
		clone := *req
		clone.RequestID = uuid.NewString()
		req = &clone
	}
	studentID, requestID := requestKeys(req)
	op := s.svcLogger.WithOperation(ctx, "generate_report", studentID, requestID)

	result, err := s.recoverGenerate(ctx, req, requestID)
	duration := op.LogResult(err)
	s.metrics.observeRun("generate_report", duration.Seconds(), err)

	var event *events.ReportEvent
	if err != nil {
		event = events.NewReportFailedEvent(requestID, studentID, ErrorKind(err), err, FormatError(err))
	} else {
		event = events.NewReportGeneratedEvent(result, duration)
	}
	if s.publisher != nil {
		if pubErr := s.publisher.PublishReportEvent(ctx, event); pubErr != nil {
			s.logger.Error("Failed to publish report event",
				"request_id", requestID,
				"event_type", event.Type,
				"error", pubErr)
		}
	}

	return result, err
}

// recoverGenerate turns a panic in any stage into an internal error.
func (s *reportService) recoverGenerate(ctx context.Context, req *models.ReportRequest, requestID string) (result *models.ReportResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.svcLogger.LogRecovery(ctx, "generate_report", requestID, r, debug.Stack())
			result, err = nil, fmt.Errorf("%w: %v", ErrPipelinePanic, r)
		}
	}()
	return s.generate(ctx, req)
}

func (s *reportService) generate(ctx context.Context, req *models.ReportRequest) (*models.ReportResult, error) {
	eval, err := s.evaluate(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	charts, chartErr := report.BuildCharts(req.RequestID, eval)
	defer charts.Release()
	if chartErr != nil {
		s.logger.Warn("Chart rendering failed, report uses fallback text",
			"request_id", req.RequestID,
			"error", chartErr)
	}
	s.svcLogger.LogStage(ctx, req.RequestID, "charts", time.Since(start))

	base := "report-" + uuid.NewString()

	start = time.Now()
	pdfPath, err := report.Publish(s.opts.OutputDir, base+".pdf", func(w io.Writer) error {
		return s.renderer.Render(w, eval, charts)
	})
	if err != nil {
		return nil, err
	}
	s.svcLogger.LogStage(ctx, req.RequestID, "render", time.Since(start))

	result := &models.ReportResult{
		RequestID:  req.RequestID,
		ReportFile: pdfPath,
		Evaluation: eval,
	}

	if s.opts.ExportWorkbook {
		workbookPath, err := report.Publish(s.opts.OutputDir, base+".xlsx", func(w io.Writer) error {
			return s.workbook.Write(w, eval)
		})
		if err != nil {
			if rmErr := report.Unpublish(pdfPath); rmErr != nil {
				s.logger.Warn("Failed to remove report after workbook failure", "path", pdfPath, "error", rmErr)
			}
			return nil, err
		}
		result.Workbook = workbookPath
	}

	return result, nil
}

func requestKeys(req *models.ReportRequest) (studentID, requestID string) {
	if req == nil {
		return "", ""
	}
	return req.StudentID, req.RequestID
}
