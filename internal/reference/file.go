package reference

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	apperrors "github.com/SAP-F-2025/performance-report-service/internal/errors"
	"github.com/SAP-F-2025/performance-report-service/internal/models"
	"github.com/xuri/excelize/v2"
)

// Column names recognised in reference files. Matching ignores case and
// surrounding whitespace.
const (
	ColumnStudentID           = "student_id"
	ColumnStudentName         = "student_name"
	ColumnQuestionID          = "question_id"
	ColumnQuestionType        = "question_type"
	ColumnTimeSpent           = "time_spent"
	ColumnAccuracy            = "accuracy"
	ColumnPerformanceCategory = "performance_category"
)

var requiredColumns = []string{ColumnQuestionType, ColumnAccuracy}

// FileSource reads reference rows from a .csv or .xlsx file. Spreadsheets are
// read from their first sheet.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string {
	return s.path
}

func (s *FileSource) Load(ctx context.Context) ([]models.ReferenceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		table [][]string
		err   error
	)
	switch ext := strings.ToLower(filepath.Ext(s.path)); ext {
	case ".csv":
		table, err = s.readCSV()
	case ".xlsx", ".xlsm":
		table, err = s.readExcel()
	default:
		return nil, s.fail(0, "", fmt.Errorf("%w: unsupported file type %q", apperrors.ErrReferenceDataset, ext))
	}
	if err != nil {
		return nil, err
	}

	return s.parseTable(table)
}

func (s *FileSource) readCSV() ([][]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, s.openError(err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return nil, s.fail(parseErr.Line, "", fmt.Errorf("%w: %v", apperrors.ErrReferenceSchema, parseErr.Err))
		}
		return nil, s.fail(0, "", fmt.Errorf("%w: %v", apperrors.ErrReferenceDataset, err))
	}
	return records, nil
}

func (s *FileSource) readExcel() ([][]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, s.openError(err)
	}
	defer f.Close()

	return s.readWorkbook(f)
}

func (s *FileSource) readWorkbook(r io.Reader) ([][]string, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, s.fail(0, "", fmt.Errorf("%w: %v", apperrors.ErrReferenceDataset, err))
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, s.fail(0, "", fmt.Errorf("%w: workbook has no sheets", apperrors.ErrReferenceDataset))
	}

	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, s.fail(0, "", fmt.Errorf("%w: %v", apperrors.ErrReferenceDataset, err))
	}
	return rows, nil
}

// parseTable maps a header row plus data rows to records. Any malformed row
// fails the whole load.
func (s *FileSource) parseTable(table [][]string) ([]models.ReferenceRecord, error) {
	if len(table) == 0 {
		return nil, s.fail(0, "", fmt.Errorf("%w: file is empty", apperrors.ErrReferenceDataset))
	}

	headerMap := make(map[string]int, len(table[0]))
	for i, header := range table[0] {
		headerMap[strings.ToLower(strings.TrimSpace(header))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := headerMap[col]; !ok {
			return nil, s.fail(0, col, fmt.Errorf("%w: missing required column", apperrors.ErrReferenceSchema))
		}
	}

	records := make([]models.ReferenceRecord, 0, len(table)-1)
	for i, row := range table[1:] {
		if isBlank(row) {
			continue
		}
		record, err := s.parseRow(row, headerMap, i+2)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *FileSource) parseRow(row []string, headerMap map[string]int, rowNum int) (models.ReferenceRecord, error) {
	getColumn := func(name string) string {
		if index, exists := headerMap[name]; exists && index < len(row) {
			return strings.TrimSpace(row[index])
		}
		return ""
	}

	record := models.ReferenceRecord{
		StudentID:           getColumn(ColumnStudentID),
		StudentName:         getColumn(ColumnStudentName),
		QuestionType:        models.QuestionType(strings.ToLower(getColumn(ColumnQuestionType))),
		PerformanceCategory: models.MasteryCategory(getColumn(ColumnPerformanceCategory)),
	}
	if record.QuestionType == "" {
		return record, s.fail(rowNum, ColumnQuestionType, fmt.Errorf("%w: required field", apperrors.ErrReferenceSchema))
	}

	accuracy, err := strconv.ParseFloat(getColumn(ColumnAccuracy), 64)
	if err != nil {
		return record, s.fail(rowNum, ColumnAccuracy, fmt.Errorf("%w: %q is not a number", apperrors.ErrReferenceSchema, getColumn(ColumnAccuracy)))
	}
	if !validAccuracy(accuracy) {
		return record, s.fail(rowNum, ColumnAccuracy, fmt.Errorf("%w: accuracy %g outside 0..1", apperrors.ErrReferenceSchema, accuracy))
	}
	record.Accuracy = accuracy

	if v := getColumn(ColumnQuestionID); v != "" {
		id, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return record, s.fail(rowNum, ColumnQuestionID, fmt.Errorf("%w: %q is not a number", apperrors.ErrReferenceSchema, v))
		}
		record.QuestionID = int(id)
	}
	if v := getColumn(ColumnTimeSpent); v != "" {
		spent, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return record, s.fail(rowNum, ColumnTimeSpent, fmt.Errorf("%w: %q is not a number", apperrors.ErrReferenceSchema, v))
		}
		record.TimeSpent = spent
	}

	return record, nil
}

func (s *FileSource) openError(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return s.fail(0, "", fmt.Errorf("%w: file not found", apperrors.ErrReferenceDataset))
	}
	return s.fail(0, "", fmt.Errorf("%w: %v", apperrors.ErrReferenceDataset, err))
}

func (s *FileSource) fail(row int, column string, err error) error {
	return &apperrors.ReferenceError{Source: s.path, Row: row, Column: column, Err: err}
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// validAccuracy rejects NaN and infinities along with values outside 0..1.
func validAccuracy(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0 && v <= 1
}
