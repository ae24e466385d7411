package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/performance-report-service/internal/cache"
	"github.com/SAP-F-2025/performance-report-service/internal/reference"
	"github.com/SAP-F-2025/performance-report-service/internal/repositories"
	"github.com/SAP-F-2025/performance-report-service/internal/services"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newReferenceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reference",
		Short: "Manage the reference population stored in the database",
	}
	cmd.AddCommand(newReferenceImportCommand())
	cmd.AddCommand(newReferenceStatsCommand())
	return cmd
}

func newReferenceImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Load a CSV or Excel reference file into the reference_records table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			population, err := reference.Load(cmd.Context(), reference.NewFileSource(args[0]))
			if err != nil {
				return err
			}

			db, err := a.database()
			if err != nil {
				return err
			}
			repo, err := a.referenceRepository()
			if err != nil {
				return err
			}

			stored, err := importReference(cmd.Context(), db, repo, a.cache(cmd.Context()), population, a.logger)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "imported %d rows from %s (%d rows stored)\n", population.Len(), args[0], stored)
			return nil
		},
	}
}

// importReference appends the population to the reference table and returns
// the stored row count afterwards. Cached evaluations were computed against the
// previous rows, so they are dropped when a cache is configured.
func importReference(
	ctx context.Context,
	db *gorm.DB,
	repo repositories.ReferenceRepository,
	cacheService cache.CacheService,
	population *reference.Population,
	logger *slog.Logger,
) (int64, error) {
	before, err := repo.Count(ctx)
	if err != nil {
		return 0, err
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return repo.CreateBatch(ctx, tx, population.Rows())
	})
	if err != nil {
		return 0, err
	}

	stored, err := repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	logger.Info("Reference rows imported",
		"source", population.Source(),
		"rows", population.Len(),
		"previous", before,
		"stored", stored)

	if cacheService != nil {
		if err := cacheService.DeletePattern(ctx, services.EvaluationKeyPrefix+"*"); err != nil {
			logger.Warn("Failed to drop cached evaluations", "error", err)
		}
	}
	return stored, nil
}

func newReferenceStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print row counts of the stored reference population",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			repo, err := a.referenceRepository()
			if err != nil {
				return err
			}
			stats, err := repo.GetStats(cmd.Context())
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		},
	}
}
