// Package report turns an evaluation into its published artifacts: chart
// images, the PDF report and the optional spreadsheet export.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/SAP-F-2025/performance-report-service/internal/models"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	chartWidth  = 900
	chartHeight = 600

	clusterChartTitle = "Average Student Performance"
	clusterChartYAxis = "Average Score Obtained (Out of 5)"
	timeChartYAxis    = "Time Spent (seconds)"
)

// palette follows the usual ten colour categorical scheme.
var palette = []drawing.Color{
	drawing.ColorFromHex("1f77b4"),
	drawing.ColorFromHex("ff7f0e"),
	drawing.ColorFromHex("2ca02c"),
	drawing.ColorFromHex("d62728"),
	drawing.ColorFromHex("9467bd"),
	drawing.ColorFromHex("8c564b"),
	drawing.ColorFromHex("e377c2"),
	drawing.ColorFromHex("7f7f7f"),
	drawing.ColorFromHex("bcbd22"),
	drawing.ColorFromHex("17becf"),
}

func paletteColor(i int) drawing.Color {
	return palette[i%len(palette)]
}

// Chart is a rendered PNG held in memory. Charts belong to a single request
// and are never written to shared locations.
type Chart struct {
	Name   string
	PNG    []byte
	Width  int
	Height int
}

// Charts holds the two report visualisations.
type Charts struct {
	TimeSpent *Chart
	Clusters  *Chart
}

// Complete reports whether both charts are available.
func (c *Charts) Complete() bool {
	return c != nil &&
		c.TimeSpent != nil && len(c.TimeSpent.PNG) > 0 &&
		c.Clusters != nil && len(c.Clusters.PNG) > 0
}

// Release drops the image data once the document has been built.
func (c *Charts) Release() {
	if c == nil {
		return
	}
	if c.TimeSpent != nil {
		c.TimeSpent.PNG = nil
	}
	if c.Clusters != nil {
		c.Clusters.PNG = nil
	}
}

// BuildCharts renders both charts for an evaluation. A chart that fails to
// render is left nil and its error is joined into the returned error, so the
// caller can still build a report with the fallback text.
func BuildCharts(prefix string, eval *models.Evaluation) (*Charts, error) {
	charts := &Charts{}

	timeSpent, timeErr := TimeSpentChart(prefix+"-time", eval.StudentName, eval.Items)
	if timeErr == nil {
		charts.TimeSpent = timeSpent
	}
	clusters, clusterErr := ClusterChart(prefix+"-clusters", eval.Clusters)
	if clusterErr == nil {
		charts.Clusters = clusters
	}

	return charts, errors.Join(timeErr, clusterErr)
}

// TimeSpentChart draws one bar per graded item, ordered by question id and
// coloured by question type.
func TimeSpentChart(name, studentName string, items []models.GradedItem) (*Chart, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("time spent chart: no graded items")
	}

	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b models.GradedItem) int {
		return a.QuestionID - b.QuestionID
	})

	typeColor := make(map[models.QuestionType]drawing.Color)
	longest := 0.0
	bars := make([]chart.Value, 0, len(sorted))
	for _, item := range sorted {
		color, ok := typeColor[item.QuestionType]
		if !ok {
			color = paletteColor(len(typeColor))
			typeColor[item.QuestionType] = color
		}
		longest = max(longest, item.TimeSpent)
		bars = append(bars, chart.Value{
			Label: strconv.Itoa(item.QuestionID),
			Value: item.TimeSpent,
			Style: chart.Style{FillColor: color.WithAlpha(180), StrokeColor: color},
		})
	}

	graph := chart.BarChart{
		Title:      fmt.Sprintf("Time Spent on Each Question by %s", studentName),
		Width:      chartWidth,
		Height:     chartHeight,
		BarWidth:   barWidth(len(bars)),
		Background: chart.Style{Padding: chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20}},
		YAxis: chart.YAxis{
			Name:  timeChartYAxis,
			Range: &chart.ContinuousRange{Min: 0, Max: axisMax(longest)},
		},
		Bars: bars,
	}

	return render(name, graph)
}

// ClusterChart draws each question type's mean score labelled with its
// 1-based cluster number.
func ClusterChart(name string, clusters models.ClusterAssignment) (*Chart, error) {
	if len(clusters.Averages) == 0 {
		return nil, fmt.Errorf("cluster chart: no question type averages")
	}

	top := 5.0
	bars := make([]chart.Value, 0, len(clusters.Averages))
	for _, avg := range clusters.Averages {
		top = max(top, avg.MeanScore)
		color := paletteColor(avg.Tier)
		bars = append(bars, chart.Value{
			Label: fmt.Sprintf("%s (Cluster %d)", DisplayName(avg.QuestionType), avg.Tier+1),
			Value: avg.MeanScore,
			Style: chart.Style{FillColor: color, StrokeColor: color},
		})
	}

	graph := chart.BarChart{
		Title:      clusterChartTitle,
		Width:      chartWidth,
		Height:     chartHeight,
		BarWidth:   barWidth(len(bars)),
		Background: chart.Style{Padding: chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20}},
		YAxis: chart.YAxis{
			Name:  clusterChartYAxis,
			Range: &chart.ContinuousRange{Min: 0, Max: top},
		},
		Bars: bars,
	}

	return render(name, graph)
}

func render(name string, graph chart.BarChart) (*Chart, error) {
	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return &Chart{Name: name, PNG: buf.Bytes(), Width: graph.Width, Height: graph.Height}, nil
}

func barWidth(bars int) int {
	return max(12, min(120, (chartWidth-120)/(bars*2)))
}

func axisMax(longest float64) float64 {
	if longest <= 0 {
		return 1
	}
	return longest * 1.1
}

// DisplayName capitalises a question type the way it is shown in reports:
// "number_sequence" becomes "Number_sequence".
func DisplayName(t models.QuestionType) string {
	s := string(t)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
