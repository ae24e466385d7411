package cli

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/SAP-F-2025/performance-report-service/internal/cache"
	"github.com/SAP-F-2025/performance-report-service/internal/models"
	"github.com/SAP-F-2025/performance-report-service/internal/reference"
	"github.com/SAP-F-2025/performance-report-service/internal/repositories/postgres"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestImportReference(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ReferenceRecord{}))
	repo := postgres.NewReferencePostgreSQL(db)

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	evalCache := cache.NewRedisCache(client, "reportsvc:", quiet)

	ctx := context.Background()
	require.NoError(t, evalCache.Set(ctx, "evaluation:abc", map[string]int{"total_score": 3}, time.Minute))
	require.NoError(t, evalCache.Set(ctx, "session:xyz", "keep", time.Minute))

	population := reference.NewPopulation("reference.csv", []models.ReferenceRecord{
		{QuestionType: models.QuestionTypeArithmetic, Accuracy: 1},
		{QuestionType: models.QuestionTypeGeometry, Accuracy: 0},
	})

	stored, err := importReference(ctx, db, repo, evalCache, population, quiet)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored)
	assert.False(t, server.Exists("reportsvc:evaluation:abc"))
	assert.True(t, server.Exists("reportsvc:session:xyz"))

	stored, err = importReference(ctx, db, repo, nil, population, quiet)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stored)
}
