package analysis

import "errors"

// Options controls the heuristics used when exploring a table.
type Options struct {
	// MaxCategoricalUnique is the inclusive distinct-value ceiling under which a column
	// is treated as categorical.
	MaxCategoricalUnique int
	// HistogramBins is the default number of histogram bins.
	HistogramBins int
	// TopPairs limits how many correlation pairs the text report lists.
	TopPairs int
}

// DefaultOptions returns the stock thresholds: 25 distinct values, 50 bins, 10 pairs.
func DefaultOptions() Options {
	return Options{
		MaxCategoricalUnique: 25,
		HistogramBins:        50,
		TopPairs:             10,
	}
}

var (
	// ErrUnknownColumn is returned when a column name does not resolve in the table.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrNotContinuous is returned when a continuous-only operation gets another column.
	ErrNotContinuous = errors.New("column is not continuous")
	// ErrNotCategorical is returned when a colour column is not categorical.
	ErrNotCategorical = errors.New("column is not categorical")
	// ErrNotNumeric is returned when numeric values are requested from a text column.
	ErrNotNumeric = errors.New("column is not numeric")
	// ErrNoContinuousColumns means there is no continuous feature to select by default.
	ErrNoContinuousColumns = errors.New("dataset has no continuous columns")
	// ErrNotEnoughContinuous means fewer than two continuous features exist for a scatter plot.
	ErrNotEnoughContinuous = errors.New("dataset needs at least two continuous columns")
	// ErrNoValues is returned when a column has no non-missing values to summarise.
	ErrNoValues = errors.New("column has no values")
	// ErrInvalidBins is returned for a non-positive bin count.
	ErrInvalidBins = errors.New("bin count must be positive")
)
