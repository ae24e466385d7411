package report

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/SAP-F-2025/performance-report-service/internal/config"
	"github.com/SAP-F-2025/performance-report-service/internal/models"
	"github.com/go-pdf/fpdf"
)

const (
	pageMargin   = 72.0
	fontFamily   = "Times"
	footerOffset = 0.75 * 72
	footerLayout = "January 02, 2006 03:04 PM"

	chartBoxWidth  = 3 * 72.0
	chartBoxHeight = 2 * 72.0
	chartPadding   = 6.0

	reportTitle       = "Performance Report"
	sectionScores     = "Scores by Question Type:"
	sectionAdvice     = "Recommendations"
	sectionCharts     = "Performance Visualizations:"
	chartsMissingText = "Graphs not found."
	closingText       = "The visualizations provided above offer a detailed overview of your child's performance. " +
		"These insights will help you better understand key areas of strength and opportunities for improvement. " +
		"Thank you for your attention."
)

var (
	headerFill = [3]int{0x4F, 0x81, 0xBD}
	bodyFill   = [3]int{0xDC, 0xE6, 0xF1}
)

// Renderer lays out the PDF report.
type Renderer struct {
	totalPossible int
	perTypeMax    int
	compress      bool
	now           func() time.Time
}

func NewRenderer(cfg config.EvaluationConfig) *Renderer {
	return &Renderer{
		totalPossible: cfg.TotalPossibleScore(),
		perTypeMax:    cfg.PerTypeMax(),
		compress:      true,
		now:           time.Now,
	}
}

// WithClock replaces the clock used for the footer timestamp.
func (r *Renderer) WithClock(now func() time.Time) *Renderer {
	clone := *r
	clone.now = now
	return &clone
}

// Render writes the report for eval to w. When charts is incomplete the
// visualisation section is replaced with a short notice. The chart images are
// released once the document is built, whether or not it succeeds.
func (r *Renderer) Render(w io.Writer, eval *models.Evaluation, charts *Charts) error {
	defer charts.Release()
	generatedAt := r.now()

	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetCompression(r.compress)
	pdf.SetTitle(reportTitle, false)
	pdf.SetCreator("performance-report-service", false)
	pdf.SetSubject(fmt.Sprintf("%s (%s)", eval.StudentName, eval.StudentID), true)
	pdf.SetCreationDate(generatedAt)

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	footer := "Generated by AI - " + generatedAt.Format(footerLayout)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-footerOffset)
		pdf.SetFont(fontFamily, "", 10)
		pdf.SetTextColor(0, 0, 0)
		pdf.CellFormat(0, 10, footer, "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	r.title(pdf)
	r.totals(pdf, eval)
	r.scoreTable(pdf, eval)
	r.recommendations(pdf, tr, eval.Recommendations)
	r.visualisations(pdf, charts)

	if pdf.Err() {
		return fmt.Errorf("build report: %w", pdf.Error())
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func (r *Renderer) title(pdf *fpdf.Fpdf) {
	pdf.SetFont(fontFamily, "B", 18)
	pdf.CellFormat(0, 22, reportTitle, "", 1, "C", false, 0, "")
	pdf.Ln(20)
}

func (r *Renderer) totals(pdf *fpdf.Fpdf, eval *models.Evaluation) {
	labelled := func(label, value string) {
		pdf.SetFont(fontFamily, "B", 12)
		pdf.Write(15, label+" ")
		pdf.SetFont(fontFamily, "", 12)
		pdf.Write(15, value)
		pdf.Ln(15)
	}
	labelled("Obtained Marks:", strconv.Itoa(eval.TotalScore))
	labelled("Out of:", strconv.Itoa(r.totalPossible))
	pdf.Ln(12)
}

func (r *Renderer) subtitle(pdf *fpdf.Fpdf, text string) {
	pdf.Ln(20)
	pdf.SetFont(fontFamily, "B", 14)
	pdf.CellFormat(0, 16, text, "", 1, "L", false, 0, "")
	pdf.Ln(10)
}

// scoreTable draws the per-type score table with an Overall row.
func (r *Renderer) scoreTable(pdf *fpdf.Fpdf, eval *models.Evaluation) {
	r.subtitle(pdf, sectionScores)

	const colWidth, rowHeight = 2 * 72.0, 20.0
	left, _, _, _ := pdf.GetMargins()
	pageWidth, _ := pdf.GetPageSize()
	x := left + (pageWidth-2*left-3*colWidth)/2

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(1)

	pdf.SetX(x)
	pdf.SetFont(fontFamily, "", 12)
	pdf.SetFillColor(headerFill[0], headerFill[1], headerFill[2])
	pdf.SetTextColor(255, 255, 255)
	for _, h := range []string{"Question Type", "Score Obtained", "Total Score"} {
		pdf.CellFormat(colWidth, rowHeight+6, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFillColor(bodyFill[0], bodyFill[1], bodyFill[2])
	pdf.SetTextColor(0, 0, 0)
	row := func(cells ...string) {
		pdf.SetX(x)
		for _, c := range cells {
			pdf.CellFormat(colWidth, rowHeight, c, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	}
	for _, s := range eval.TypeScores {
		row(DisplayName(s.QuestionType), strconv.Itoa(s.Score), strconv.Itoa(r.perTypeMax))
	}
	row("Overall", strconv.Itoa(eval.TotalScore), strconv.Itoa(r.totalPossible))

	pdf.Ln(12)
}

func (r *Renderer) recommendations(pdf *fpdf.Fpdf, tr func(string) string, recs []models.Recommendation) {
	if len(recs) == 0 {
		return
	}
	r.subtitle(pdf, sectionAdvice)

	left, _, right, _ := pdf.GetMargins()
	pageWidth, _ := pdf.GetPageSize()
	pdf.SetFont(fontFamily, "", 12)
	for _, rec := range recs {
		pdf.SetX(left + 20)
		pdf.MultiCell(pageWidth-left-right-20, 15, tr("• "+rec.Guidance), "", "L", false)
		pdf.Ln(5)
	}
	pdf.Ln(12)
}

// visualisations places both charts side by side inside a bordered box,
// followed by the closing paragraph.
func (r *Renderer) visualisations(pdf *fpdf.Fpdf, charts *Charts) {
	if !charts.Complete() {
		pdf.SetFont(fontFamily, "", 12)
		pdf.MultiCell(0, 15, chartsMissingText, "", "L", false)
		pdf.Ln(12)
		return
	}

	boxWidth := 2 * (chartBoxWidth + 2*chartPadding)
	boxHeight := chartBoxHeight + 2*chartPadding
	_, pageHeight := pdf.GetPageSize()
	// section title, box and closing text must start on the same page
	if pdf.GetY()+60+boxHeight > pageHeight-pageMargin {
		pdf.AddPage()
	}

	r.subtitle(pdf, sectionCharts)
	pdf.Ln(12)

	left, _, _, _ := pdf.GetMargins()
	pageWidth, _ := pdf.GetPageSize()
	x := left + (pageWidth-2*left-boxWidth)/2
	y := pdf.GetY()

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(1)
	pdf.Rect(x, y, boxWidth, boxHeight, "D")

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	for i, c := range []*Chart{charts.TimeSpent, charts.Clusters} {
		pdf.RegisterImageOptionsReader(c.Name, opts, bytes.NewReader(c.PNG))
		cellX := x + float64(i)*(chartBoxWidth+2*chartPadding) + chartPadding
		pdf.ImageOptions(c.Name, cellX, y+chartPadding, chartBoxWidth, chartBoxHeight, false, opts, 0, "")
	}

	pdf.SetY(y + boxHeight + 12)
	pdf.SetFont(fontFamily, "", 10)
	pdf.MultiCell(0, 15, closingText, "", "L", false)
	pdf.Ln(12)
}
