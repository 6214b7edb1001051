package analysis

import (
	"fmt"
	"math"

	"github.com/KaramelBytes/edaboard/internal/dataset"
)

// MissingCount is the missing-value tally of one column.
type MissingCount struct {
	Column  string `json:"column"`
	Missing int    `json:"missing"`
	Present int    `json:"present"`
}

// MissingCounts tallies missing values for every column in table order.
func MissingCounts(t *dataset.Table) []MissingCount {
	out := make([]MissingCount, 0, len(t.Columns()))
	for _, c := range t.Columns() {
		m := c.MissingCount()
		out = append(out, MissingCount{Column: c.Name, Missing: m, Present: c.Len() - m})
	}
	return out
}

// MissingByColumn is MissingCounts keyed by column name.
func MissingByColumn(t *dataset.Table) map[string]int {
	out := make(map[string]int, len(t.Columns()))
	for _, mc := range MissingCounts(t) {
		out[mc.Column] = mc.Missing
	}
	return out
}

// Bin is one histogram bucket covering [Start, End); the last bucket is closed.
type Bin struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Count int     `json:"count"`
}

// HistogramBins splits the non-missing values of a numeric column into binCount
// equal-width buckets between its minimum and maximum.
func HistogramBins(t *dataset.Table, name string, binCount int) ([]Bin, error) {
	if binCount <= 0 {
		return nil, ErrInvalidBins
	}
	col, ok := t.Column(name)
	if !ok {
		return nil, fmt.Errorf("histogram %q: %w", name, ErrUnknownColumn)
	}
	if !col.Type.Numeric() {
		return nil, fmt.Errorf("histogram %q: %w", name, ErrNotNumeric)
	}
	vals := col.Values()
	if len(vals) == 0 {
		return nil, fmt.Errorf("histogram %q: %w", name, ErrNoValues)
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		return []Bin{{Start: lo - 0.5, End: hi + 0.5, Count: len(vals)}}, nil
	}
	width := (hi - lo) / float64(binCount)
	bins := make([]Bin, binCount)
	for i := range bins {
		bins[i].Start = lo + float64(i)*width
		bins[i].End = lo + float64(i+1)*width
	}
	bins[binCount-1].End = hi
	for _, v := range vals {
		idx := int((v - lo) / width)
		if idx >= binCount {
			idx = binCount - 1
		}
		bins[idx].Count++
	}
	return bins, nil
}

// SingleGroupLabel labels scatter points when no colour column is selected.
const SingleGroupLabel = "all"

// MissingLabel labels scatter points whose colour value is missing.
const MissingLabel = "(missing)"

// ScatterPoint is one plotted row.
type ScatterPoint struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Label string  `json:"label"`
}

// ScatterGroup holds the points sharing a colour label.
type ScatterGroup struct {
	Label  string         `json:"label"`
	Points []ScatterPoint `json:"points"`
}

// ScatterSeries pairs the x and y values of each row, dropping rows where either is
// missing. When color is non-empty each point is labelled with that column's value.
func ScatterSeries(t *dataset.Table, x, y, color string) ([]ScatterPoint, error) {
	xc, err := numericColumn(t, x)
	if err != nil {
		return nil, fmt.Errorf("scatter x: %w", err)
	}
	yc, err := numericColumn(t, y)
	if err != nil {
		return nil, fmt.Errorf("scatter y: %w", err)
	}
	var cc *dataset.Column
	if color != "" {
		c, ok := t.Column(color)
		if !ok {
			return nil, fmt.Errorf("scatter color %q: %w", color, ErrUnknownColumn)
		}
		cc = c
	}
	out := make([]ScatterPoint, 0, t.Rows())
	for i := 0; i < t.Rows(); i++ {
		xv, okx := xc.Float(i)
		yv, oky := yc.Float(i)
		if !okx || !oky {
			continue
		}
		label := SingleGroupLabel
		if cc != nil {
			label = colorLabel(cc, i)
		}
		out = append(out, ScatterPoint{X: xv, Y: yv, Label: label})
	}
	return out, nil
}

// GroupScatter groups points by label in order of first appearance.
func GroupScatter(points []ScatterPoint) []ScatterGroup {
	idx := map[string]int{}
	var groups []ScatterGroup
	for _, p := range points {
		i, ok := idx[p.Label]
		if !ok {
			i = len(groups)
			idx[p.Label] = i
			groups = append(groups, ScatterGroup{Label: p.Label})
		}
		groups[i].Points = append(groups[i].Points, p)
	}
	return groups
}

func colorLabel(c *dataset.Column, i int) string {
	if c.IsMissing(i) {
		return MissingLabel
	}
	return c.Key(i)
}

func numericColumn(t *dataset.Table, name string) (*dataset.Column, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownColumn)
	}
	if !c.Type.Numeric() {
		return nil, fmt.Errorf("%q: %w", name, ErrNotNumeric)
	}
	return c, nil
}
