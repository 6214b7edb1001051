package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/KaramelBytes/edaboard/internal/dataset"
)

// ColumnStats is the descriptive summary of one continuous column.
type ColumnStats struct {
	Column  string  `json:"column"`
	Count   int     `json:"count"`
	Missing int     `json:"missing"`
	Mean    float64 `json:"mean"`
	Std     float64 `json:"std"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	P25     float64 `json:"p25"`
	P50     float64 `json:"p50"`
	P75     float64 `json:"p75"`
}

// MissingRatio returns Missing as a fraction of all rows.
func (s ColumnStats) MissingRatio() float64 {
	total := s.Count + s.Missing
	if total == 0 {
		return 0
	}
	return float64(s.Missing) / float64(total)
}

// DescribeColumn summarises a continuous column. Categorical names return ErrNotContinuous.
func DescribeColumn(t *dataset.Table, cls Classification, name string) (ColumnStats, error) {
	col, ok := t.Column(name)
	if !ok {
		return ColumnStats{}, fmt.Errorf("describe %q: %w", name, ErrUnknownColumn)
	}
	if !cls.IsContinuous(name) {
		return ColumnStats{}, fmt.Errorf("describe %q: %w", name, ErrNotContinuous)
	}
	if !col.Type.Numeric() {
		return ColumnStats{}, fmt.Errorf("describe %q: %w", name, ErrNotNumeric)
	}
	vals := col.Values()
	if len(vals) == 0 {
		return ColumnStats{}, fmt.Errorf("describe %q: %w", name, ErrNoValues)
	}
	s := describeValues(vals)
	s.Column = col.Name
	s.Missing = col.Len() - len(vals)
	return s, nil
}

// DescribeAll summarises every continuous column in classification order.
func DescribeAll(t *dataset.Table, cls Classification) ([]ColumnStats, error) {
	out := make([]ColumnStats, 0, len(cls.Continuous))
	for _, name := range cls.Continuous {
		s, err := DescribeColumn(t, cls, name)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func describeValues(vals []float64) ColumnStats {
	s := ColumnStats{Count: len(vals), Min: math.Inf(1), Max: math.Inf(-1)}
	// Welford update
	var mean, m2 float64
	for i, x := range vals {
		delta := x - mean
		mean += delta / float64(i+1)
		m2 += delta * (x - mean)
		if x < s.Min {
			s.Min = x
		}
		if x > s.Max {
			s.Max = x
		}
	}
	s.Mean = mean
	if len(vals) > 1 {
		s.Std = math.Sqrt(m2 / float64(len(vals)-1))
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	s.P25 = quantile(sorted, 0.25)
	s.P50 = quantile(sorted, 0.5)
	s.P75 = quantile(sorted, 0.75)
	return s
}

// quantile uses linear interpolation between closest ranks of sorted values.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
