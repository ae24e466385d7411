package report

import (
	"fmt"
	"io"

	"github.com/SAP-F-2025/performance-report-service/internal/config"
	"github.com/SAP-F-2025/performance-report-service/internal/models"
	"github.com/xuri/excelize/v2"
)

const (
	SheetScores       = "Scores"
	SheetResponses    = "Responses"
	SheetDistribution = "Distribution"
	SheetClusters     = "Clusters"
)

// WorkbookWriter exports an evaluation as a spreadsheet with one sheet per
// table of the report.
type WorkbookWriter struct {
	totalPossible int
	perTypeMax    int
}

func NewWorkbookWriter(cfg config.EvaluationConfig) *WorkbookWriter {
	return &WorkbookWriter{
		totalPossible: cfg.TotalPossibleScore(),
		perTypeMax:    cfg.PerTypeMax(),
	}
}

func (ww *WorkbookWriter) Write(w io.Writer, eval *models.Evaluation) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetScores); err != nil {
		return fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	scores := [][]interface{}{{"Question Type", "Score Obtained", "Total Score"}}
	for _, s := range eval.TypeScores {
		scores = append(scores, []interface{}{DisplayName(s.QuestionType), s.Score, ww.perTypeMax})
	}
	scores = append(scores, []interface{}{"Overall", eval.TotalScore, ww.totalPossible})

	responses := [][]interface{}{{"Question ID", "Question Type", "Answer", "Time Spent", "Accuracy", "Performance Category"}}
	for _, item := range eval.Items {
		responses = append(responses, []interface{}{
			item.QuestionID, string(item.QuestionType), item.Answer.String(), item.TimeSpent, item.Accuracy, string(item.Category),
		})
	}

	distribution := [][]interface{}{{"Question Type", "Mastered %", "Needs Improvement %", "Struggling %", "Recommendation"}}
	guidance := make(map[models.QuestionType]string, len(eval.Recommendations))
	for _, rec := range eval.Recommendations {
		guidance[rec.QuestionType] = rec.Guidance
	}
	for _, row := range eval.Summary {
		distribution = append(distribution, []interface{}{
			DisplayName(row.QuestionType),
			models.RoundPercent(row.Mastered),
			models.RoundPercent(row.NeedsImprovement),
			models.RoundPercent(row.Struggling),
			guidance[row.QuestionType],
		})
	}

	clusters := [][]interface{}{{"Question Type", "Average Score (Out of 5)", "Samples", "Cluster"}}
	for _, avg := range eval.Clusters.Averages {
		clusters = append(clusters, []interface{}{
			DisplayName(avg.QuestionType), avg.MeanScore, avg.Samples, fmt.Sprintf("Cluster %d", avg.Tier+1),
		})
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for _, sheet := range []struct {
		name string
		rows [][]interface{}
	}{
		{SheetScores, scores},
		{SheetResponses, responses},
		{SheetDistribution, distribution},
		{SheetClusters, clusters},
	} {
		if sheet.name != SheetScores {
			if _, err := f.NewSheet(sheet.name); err != nil {
				return fmt.Errorf("failed to create Excel sheet: %w", err)
			}
		}
		if err := writeRows(f, sheet.name, sheet.rows, headerStyle); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}

	if len(rows) > 0 {
		last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return fmt.Errorf("failed to style %s header: %w", sheet, err)
		}
	}
	return nil
}
