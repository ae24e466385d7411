package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/SAP-F-2025/performance-report-service/internal/cache"
	"github.com/SAP-F-2025/performance-report-service/internal/config"
	"github.com/SAP-F-2025/performance-report-service/internal/events"
	"github.com/SAP-F-2025/performance-report-service/internal/models"
	"github.com/SAP-F-2025/performance-report-service/internal/reference"
	"github.com/SAP-F-2025/performance-report-service/internal/repositories"
	"github.com/SAP-F-2025/performance-report-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/performance-report-service/internal/services"
	"github.com/SAP-F-2025/performance-report-service/internal/utils"
	"github.com/SAP-F-2025/performance-report-service/pkg"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// app holds the process-wide dependencies a command needs. Everything opened
// through it is released by close.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *gorm.DB
	closers []func() error
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if path, _ := cmd.Flags().GetString("reference"); path != "" {
		cfg.ReferenceSource = "file"
		cfg.ReferencePath = path
	}

	logger := utils.NewLogger(cfg.Environment, cfg.LogLevel)
	return &app{cfg: cfg, logger: logger}, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("Failed to release resource", "error", err)
		}
	}
	a.closers = nil
}

func (a *app) database() (*gorm.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := pkg.InitDatabase(a.cfg)
	if err != nil {
		return nil, err
	}
	if err := pkg.MigrateReference(db); err != nil {
		return nil, err
	}
	a.db = db
	a.closers = append(a.closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
	return db, nil
}

func (a *app) referenceRepository() (repositories.ReferenceRepository, error) {
	db, err := a.database()
	if err != nil {
		return nil, err
	}
	return postgres.NewReferencePostgreSQL(db), nil
}

func (a *app) population(ctx context.Context) (*reference.Population, error) {
	var src reference.Source
	switch a.cfg.ReferenceSource {
	case "database":
		repo, err := a.referenceRepository()
		if err != nil {
			return nil, err
		}
		src = reference.NewDatabaseSource(repo, repositories.ReferenceFilters{
			QuestionTypes: a.cfg.Evaluation.QuestionTypes(),
		})
	default:
		src = reference.NewFileSource(a.cfg.ReferencePath)
	}

	population, err := reference.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	a.logger.Info("Reference population loaded",
		"source", population.Source(),
		"rows", population.Len(),
		"snapshot", population.Snapshot())
	return population, nil
}

func (a *app) cache(ctx context.Context) cache.CacheService {
	if a.cfg.RedisURL == "" {
		return nil
	}
	client, err := pkg.NewRedisClient(ctx, a.cfg)
	if err != nil {
		a.logger.Warn("Evaluation cache disabled", "error", err)
		return nil
	}
	a.closers = append(a.closers, client.Close)
	return cache.NewRedisCache(client, "reportsvc:", a.logger)
}

func (a *app) publisher() (events.EventPublisher, error) {
	publisher, err := a.cfg.Events.CreateEventPublisher(a.logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, publisher.Close)
	return publisher, nil
}

func (a *app) reportService(ctx context.Context, reg prometheus.Registerer) (services.ReportService, error) {
	population, err := a.population(ctx)
	if err != nil {
		return nil, err
	}
	publisher, err := a.publisher()
	if err != nil {
		return nil, err
	}

	return services.NewReportService(
		a.cfg.Evaluation,
		population,
		a.cache(ctx),
		publisher,
		services.NewMetrics(reg),
		a.logger,
		services.ReportServiceOptions{
			OutputDir:      a.cfg.OutputDir,
			ExportWorkbook: a.cfg.ExportWorkbook,
			CacheTTL:       a.cfg.CacheTTL,
		},
	), nil
}

func readRequest(path string) (*models.ReportRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read request: %w", err)
	}
	var req models.ReportRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, errors.Join(services.ErrValidationFailed, fmt.Errorf("%s: %w", path, err))
	}
	return &req, nil
}
