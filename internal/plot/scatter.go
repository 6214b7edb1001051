package plot

import (
	"fmt"
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/KaramelBytes/edaboard/internal/analysis"
)

// Scatter draws one dot series per colour group with a legend.
func Scatter(w io.Writer, x, y string, groups []analysis.ScatterGroup, size Size) error {
	size = size.orDefault()
	var series []chart.Series
	xmin, xmax := math.Inf(1), math.Inf(-1)
	ymin, ymax := math.Inf(1), math.Inf(-1)
	for i, g := range groups {
		if len(g.Points) == 0 {
			continue
		}
		xs := make([]float64, len(g.Points))
		ys := make([]float64, len(g.Points))
		for j, p := range g.Points {
			xs[j], ys[j] = p.X, p.Y
			xmin, xmax = math.Min(xmin, p.X), math.Max(xmax, p.X)
			ymin, ymax = math.Min(ymin, p.Y), math.Max(ymax, p.Y)
		}
		series = append(series, chart.ContinuousSeries{
			Name:    g.Label,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    4,
				DotColor:    colorAt(i),
			},
		})
	}
	if len(series) == 0 {
		return ErrNoData
	}
	xr := paddedRange(xmin, xmax)
	yr := paddedRange(ymin, ymax)
	ch := chart.Chart{
		Title:  fmt.Sprintf("%s vs %s", Title(x), Title(y)),
		Width:  size.Width,
		Height: size.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis:  chart.XAxis{Name: Title(x), Range: &xr},
		YAxis:  chart.YAxis{Name: Title(y), Range: &yr},
		Series: series,
	}
	if len(series) > 1 || groups[0].Label != analysis.SingleGroupLabel {
		ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	}
	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render scatter: %w", err)
	}
	return nil
}

// paddedRange widens a degenerate range so go-chart can scale it.
func paddedRange(lo, hi float64) chart.ContinuousRange {
	if lo == hi {
		return chart.ContinuousRange{Min: lo - 0.5, Max: hi + 0.5}
	}
	pad := (hi - lo) * 0.05
	return chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}
