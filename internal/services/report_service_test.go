package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/SAP-F-2025/performance-report-service/internal/cache"
	"github.com/SAP-F-2025/performance-report-service/internal/config"
	apperrors "github.com/SAP-F-2025/performance-report-service/internal/errors"
	"github.com/SAP-F-2025/performance-report-service/internal/events"
	"github.com/SAP-F-2025/performance-report-service/internal/models"
	"github.com/SAP-F-2025/performance-report-service/internal/reference"
	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPopulation() *reference.Population {
	var rows []models.ReferenceRecord
	accuracies := map[models.QuestionType][]float64{
		models.QuestionTypeArithmetic:     {1, 1, 1, 0},
		models.QuestionTypeGeometry:       {0, 0, 1, 0},
		models.QuestionTypeNumberSequence: {1, 0, 1, 0},
	}
	for qt, values := range accuracies {
		for i, acc := range values {
			rows = append(rows, models.ReferenceRecord{
				StudentID:    "ref",
				QuestionID:   i + 1,
				QuestionType: qt,
				TimeSpent:    3,
				Accuracy:     acc,
			})
		}
	}
	return reference.NewPopulation("test", rows)
}

func validRequest() *models.ReportRequest {
	return &models.ReportRequest{
		RequestID:   "req-1",
		StudentID:   "S-001",
		StudentName: "Ada",
		Responses: []models.Response{
			{QuestionID: 1, TimeSpent: 2, Answer: "9"},
			{QuestionID: 2, TimeSpent: 8, Answer: "9"},
			{QuestionID: 6, TimeSpent: 3, Answer: "triangle"},
			{QuestionID: 7, TimeSpent: 4, Answer: "cube"},
			{QuestionID: 11, TimeSpent: 6, Answer: "7"},
			{QuestionID: 15, TimeSpent: 9, Answer: "15"},
		},
	}
}

type fixture struct {
	service   ReportService
	publisher *events.MockEventPublisher
	metrics   *Metrics
	outputDir string
}

func newFixture(t *testing.T, cacheService cache.CacheService, opts ReportServiceOptions) *fixture {
	t.Helper()
	if opts.OutputDir == "" {
		opts.OutputDir = t.TempDir()
	}
	publisher := events.NewMockEventPublisher(testLogger())
	metrics := NewMetrics(prometheus.NewRegistry())
	service := NewReportService(config.DefaultEvaluationConfig(), testPopulation(), cacheService, publisher, metrics, testLogger(), opts)
	return &fixture{service: service, publisher: publisher, metrics: metrics, outputDir: opts.OutputDir}
}

func (f *fixture) failedEvent(t *testing.T) events.ReportFailedEvent {
	t.Helper()
	published := f.publisher.GetPublishedEvents()
	require.Len(t, published, 1)
	require.Equal(t, events.EventReportFailed, published[0].Type)
	data, ok := published[0].Data.(events.ReportFailedEvent)
	require.True(t, ok)
	return data
}

func TestGenerateReport_PublishesArtifacts(t *testing.T) {
	f := newFixture(t, nil, ReportServiceOptions{ExportWorkbook: true})

	result, err := f.service.GenerateReport(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, "req-1", result.RequestID)
	assert.Equal(t, f.outputDir, filepath.Dir(result.ReportFile))
	assert.True(t, strings.HasSuffix(result.ReportFile, ".pdf"))
	assert.True(t, strings.HasSuffix(result.Workbook, ".xlsx"))

	pdf, err := os.ReadFile(result.ReportFile)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdf), "%PDF"))
	_, err = os.Stat(result.Workbook)
	require.NoError(t, err)

	entries, err := os.ReadDir(f.outputDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temporary files are left behind")

	assert.Equal(t, 4, result.Evaluation.TotalScore)
	assert.Len(t, result.Evaluation.Items, 6)

	published := f.publisher.GetPublishedEvents()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventReportGenerated, published[0].Type)
	data := published[0].Data.(events.ReportGeneratedEvent)
	assert.Equal(t, result.ReportFile, data.ReportFile)
	assert.Equal(t, "S-001", data.StudentID)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.runs.WithLabelValues("success")))
	graded := 0.0
	for _, category := range models.MasteryCategories {
		graded += testutil.ToFloat64(f.metrics.graded.WithLabelValues(string(category)))
	}
	assert.Equal(t, 6.0, graded)
}

func TestGenerateReport_AssignsRequestID(t *testing.T) {
	f := newFixture(t, nil, ReportServiceOptions{})
	req := validRequest()
	req.RequestID = ""

	result, err := f.service.GenerateReport(context.Background(), req)
	require.NoError(t, err)

	assert.NotEmpty(t, result.RequestID)
	assert.Empty(t, req.RequestID, "caller's request is not modified")
	assert.Empty(t, result.Workbook)
}

func TestGenerateReport_ValidationFailure(t *testing.T) {
	f := newFixture(t, nil, ReportServiceOptions{})
	req := validRequest()
	req.Responses = nil

	_, err := f.service.GenerateReport(context.Background(), req)
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	assert.Equal(t, KindValidation, f.failedEvent(t).ErrorKind)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.runs.WithLabelValues(KindValidation)))

	entries, err := os.ReadDir(f.outputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGenerateReport_NilRequest(t *testing.T) {
	f := newFixture(t, nil, ReportServiceOptions{})

	_, err := f.service.GenerateReport(context.Background(), nil)
	assert.True(t, IsValidation(err))
}

func TestGenerateReport_ConfigurationFailure(t *testing.T) {
	f := newFixture(t, nil, ReportServiceOptions{})
	req := validRequest()
	req.Responses = append(req.Responses, models.Response{QuestionID: 99, TimeSpent: 1, Answer: "1"})

	_, err := f.service.GenerateReport(context.Background(), req)
	require.Error(t, err)
	assert.True(t, IsConfiguration(err))

	var configErr *apperrors.ConfigurationError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, 99, configErr.QuestionID)

	failed := f.failedEvent(t)
	assert.Equal(t, KindConfiguration, failed.ErrorKind)
	assert.Equal(t, 99, failed.Details["question_id"])
}

func TestGenerateReport_ArtifactFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	f := newFixture(t, nil, ReportServiceOptions{OutputDir: blocker})

	_, err := f.service.GenerateReport(context.Background(), validRequest())
	require.Error(t, err)
	assert.True(t, IsArtifact(err))
	assert.Equal(t, KindArtifact, f.failedEvent(t).ErrorKind)
}

func TestGenerateReport_CancelledContext(t *testing.T) {
	f := newFixture(t, nil, ReportServiceOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.service.GenerateReport(ctx, validRequest())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, KindInternal, f.failedEvent(t).ErrorKind)
}

func TestEvaluate_MissingPopulation(t *testing.T) {
	service := NewReportService(config.DefaultEvaluationConfig(), nil, nil, nil, nil, testLogger(), ReportServiceOptions{})

	_, err := service.Evaluate(context.Background(), validRequest())
	assert.ErrorIs(t, err, ErrReferenceMissing)
	assert.Equal(t, KindReference, ErrorKind(err))
}

func TestEvaluate_UsesCache(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })
	f := newFixture(t, cache.NewRedisCache(client, "test:", testLogger()), ReportServiceOptions{CacheTTL: time.Minute})
	ctx := context.Background()

	first, err := f.service.Evaluate(ctx, validRequest())
	require.NoError(t, err)

	retry := validRequest()
	retry.RequestID = "req-2"
	second, err := f.service.Evaluate(ctx, retry)
	require.NoError(t, err)

	assert.Equal(t, first.TotalScore, second.TotalScore)
	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, first.Clusters, second.Clusters)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.cache.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.cache.WithLabelValues("hit")))

	changed := validRequest()
	changed.Responses[0].Answer = "8"
	third, err := f.service.Evaluate(ctx, changed)
	require.NoError(t, err)
	assert.Equal(t, first.TotalScore-1, third.TotalScore)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.cache.WithLabelValues("miss")))
}

func TestEvaluate_CacheUnavailable(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })
	f := newFixture(t, cache.NewRedisCache(client, "test:", testLogger()), ReportServiceOptions{CacheTTL: time.Minute})
	server.Close()

	eval, err := f.service.Evaluate(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, 4, eval.TotalScore)
}

func TestEvaluate_DropsCorruptCacheEntry(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })
	f := newFixture(t, cache.NewRedisCache(client, "test:", testLogger()), ReportServiceOptions{CacheTTL: time.Minute})

	key, err := f.service.(*reportService).cacheKey(validRequest())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, EvaluationKeyPrefix))
	require.NoError(t, server.Set("test:"+key, "{truncated"))

	eval, err := f.service.Evaluate(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, 4, eval.TotalScore)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.cache.WithLabelValues("miss")))

	stored, err := server.Get("test:" + key)
	require.NoError(t, err)
	assert.Contains(t, stored, `"total_score"`)
}

// panickingCache fails every lookup with a panic.
type panickingCache struct {
	cache.CacheService
}

func (panickingCache) Get(context.Context, string, interface{}) error {
	panic("cache exploded")
}

func TestGenerateReport_RecoversPanic(t *testing.T) {
	f := newFixture(t, panickingCache{}, ReportServiceOptions{})

	result, err := f.service.GenerateReport(context.Background(), validRequest())
	assert.Nil(t, result)
	require.ErrorIs(t, err, ErrPipelinePanic)
	assert.ErrorContains(t, err, "cache exploded")

	failed := f.failedEvent(t)
	assert.Equal(t, KindInternal, failed.ErrorKind)
	assert.Equal(t, "req-1", failed.RequestID)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.runs.WithLabelValues(KindInternal)))
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind string
	}{
		{"nil", nil, ""},
		{"validation", ValidationErrors{{Field: "student_id", Message: "is required"}}, KindValidation},
		{"configuration", apperrors.NewConfigurationError(4, "not in answer key", apperrors.ErrUnknownQuestion), KindConfiguration},
		{"reference schema", &apperrors.ReferenceError{Source: "x.csv", Row: 3, Column: "accuracy", Err: apperrors.ErrReferenceSchema}, KindReference},
		{"artifact", apperrors.NewArtifactError("r.pdf", errors.New("disk full")), KindArtifact},
		{"other", errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, ErrorKind(tt.err))
		})
	}
}

func TestFormatError(t *testing.T) {
	assert.Nil(t, FormatError(nil))

	formatted := FormatError(&apperrors.ReferenceError{Source: "x.csv", Row: 3, Column: "accuracy", Err: apperrors.ErrReferenceSchema})
	assert.Equal(t, KindReference, formatted["type"])
	assert.Equal(t, 3, formatted["row"])
	assert.Equal(t, "accuracy", formatted["column"])

	formatted = FormatError(ValidationErrors{{Field: "responses", Message: "is required"}})
	assert.Equal(t, KindValidation, formatted["type"])
	assert.Equal(t, 1, formatted["count"])
}
