package pkg

import (
	"fmt"
	"time"

	"github.com/SAP-F-2025/performance-report-service/internal/config"
	"github.com/SAP-F-2025/performance-report-service/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDatabase(cfg *config.Config) (*gorm.DB, error) {
	logLevel := logger.Warn
	if cfg.IsProduction() {
		logLevel = logger.Error
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access database pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Workers * 2)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}

// MigrateReference creates or updates the reference_records table.
func MigrateReference(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.ReferenceRecord{}); err != nil {
		return fmt.Errorf("failed to migrate reference records: %w", err)
	}
	return nil
}
