package plot

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/KaramelBytes/edaboard/internal/analysis"
)

// MissingBar draws the number of present values per column.
func MissingBar(w io.Writer, counts []analysis.MissingCount, size Size) error {
	if len(counts) == 0 {
		return ErrNoData
	}
	bars := make([]chart.Value, len(counts))
	for i, c := range counts {
		bars[i] = chart.Value{
			Label: shortLabel(c.Column, 14),
			Value: float64(c.Present),
			Style: chart.Style{FillColor: colorAt(0), StrokeColor: colorAt(0)},
		}
	}
	return renderBars(w, "Present values per column", bars, size)
}

// Histogram draws binned counts of one column.
func Histogram(w io.Writer, column string, bins []analysis.Bin, size Size) error {
	if len(bins) == 0 {
		return ErrNoData
	}
	bars := make([]chart.Value, len(bins))
	every := int(math.Ceil(float64(len(bins)) / 10))
	for i, b := range bins {
		label := ""
		if i%every == 0 {
			label = fmt.Sprintf("%.3g", b.Start)
		}
		bars[i] = chart.Value{
			Label: label,
			Value: float64(b.Count),
			Style: chart.Style{FillColor: colorAt(0), StrokeColor: colorAt(0).WithAlpha(200)},
		}
	}
	return renderBars(w, Title(column), bars, size)
}

func renderBars(w io.Writer, title string, bars []chart.Value, size Size) error {
	size = size.orDefault()
	max := 0.0
	for _, b := range bars {
		max = math.Max(max, b.Value)
	}
	if max == 0 {
		max = 1
	}
	width := (size.Width - 120) / len(bars)
	if width < 2 {
		width = 2
	}
	spacing := width / 5
	width -= spacing
	bc := chart.BarChart{
		Title:      title,
		Width:      size.Width,
		Height:     size.Height,
		BarWidth:   width,
		BarSpacing: spacing,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10}},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: max},
		},
		Bars: bars,
	}
	if err := bc.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render bar chart: %w", err)
	}
	return nil
}

func shortLabel(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
