package cli

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/performance-report-service/internal/models"
	"github.com/SAP-F-2025/performance-report-service/internal/services"
	"github.com/SAP-F-2025/performance-report-service/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newGenerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate REQUEST.json...",
		Short: "Generate PDF reports for one or more request files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runGenerate,
	}
	cmd.Flags().String("output-dir", "", "Directory reports are published to (overrides OUTPUT_DIR)")
	cmd.Flags().Bool("workbook", false, "Also export an Excel workbook per report")
	cmd.Flags().Int("workers", 0, "Reports generated in parallel (overrides WORKERS)")
	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if dir, _ := cmd.Flags().GetString("output-dir"); dir != "" {
		a.cfg.OutputDir = dir
	}
	if workbook, _ := cmd.Flags().GetBool("workbook"); workbook {
		a.cfg.ExportWorkbook = true
	}
	if workers, _ := cmd.Flags().GetInt("workers"); workers > 0 {
		a.cfg.Workers = workers
	}

	ctx := cmd.Context()
	svc, err := a.reportService(ctx, prometheus.NewRegistry())
	if err != nil {
		return err
	}

	results := worker.Run(ctx, a.cfg.Workers, args, func(ctx context.Context, path string) (*models.ReportResult, error) {
		req, err := readRequest(path)
		if err != nil {
			return nil, err
		}
		return svc.GenerateReport(ctx, req)
	})

	out := cmd.OutOrStdout()
	failed := 0
	for _, result := range results {
		if result.Err != nil {
			failed++
			fmt.Fprintf(out, "%s: FAILED (%s): %v\n", result.JobID, services.ErrorKind(result.Err), result.Err)
			continue
		}
		fmt.Fprintf(out, "%s: %s\n", result.JobID, result.Output.ReportFile)
		if result.Output.Workbook != "" {
			fmt.Fprintf(out, "%s: %s\n", result.JobID, result.Output.Workbook)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d reports failed", failed, len(results))
	}
	return nil
}
