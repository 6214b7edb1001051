// Package session keeps uploaded tables in memory and serves the derived summaries
// shown by the dashboard.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/KaramelBytes/edaboard/internal/analysis"
	"github.com/KaramelBytes/edaboard/internal/dataset"
)

// Session is one uploaded dataset. The table never changes after creation, so derived
// values are cached.
type Session struct {
	ID             string
	Name           string
	LoadedAt       time.Time
	Table          *dataset.Table
	Classification analysis.Classification

	opt analysis.Options

	overviewOnce sync.Once
	overview     analysis.Overview

	corrOnce sync.Once
	corr     *analysis.CorrMatrix
	corrErr  error

	mu       sync.Mutex
	lastSeen time.Time
}

// New classifies t and wraps it in a session.
func New(id string, t *dataset.Table, opt analysis.Options, now time.Time) *Session {
	if opt.MaxCategoricalUnique <= 0 {
		opt.MaxCategoricalUnique = analysis.DefaultOptions().MaxCategoricalUnique
	}
	if opt.HistogramBins <= 0 {
		opt.HistogramBins = analysis.DefaultOptions().HistogramBins
	}
	return &Session{
		ID:             id,
		Name:           t.Name,
		LoadedAt:       now,
		Table:          t,
		Classification: analysis.Classify(t, opt.MaxCategoricalUnique),
		opt:            opt,
		lastSeen:       now,
	}
}

// Options returns the thresholds the session was created with.
func (s *Session) Options() analysis.Options { return s.opt }

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// LastSeen reports when the session was last read through the store.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) Overview() analysis.Overview {
	s.overviewOnce.Do(func() {
		s.overview = analysis.BuildOverview(s.Table, s.Classification)
	})
	return s.overview
}

func (s *Session) Describe(column string) (analysis.ColumnStats, error) {
	return analysis.DescribeColumn(s.Table, s.Classification, column)
}

func (s *Session) DescribeAll() ([]analysis.ColumnStats, error) {
	return analysis.DescribeAll(s.Table, s.Classification)
}

// DefaultFeature is the column preselected on the column statistics tab.
func (s *Session) DefaultFeature() (string, error) {
	return analysis.FirstContinuous(s.Classification)
}

// DefaultAxes are the columns preselected on the relationship tab.
func (s *Session) DefaultAxes() (x, y string, err error) {
	return analysis.DefaultAxes(s.Classification)
}

// Correlation returns the matrix over all continuous columns.
func (s *Session) Correlation() (*analysis.CorrMatrix, error) {
	s.corrOnce.Do(func() {
		s.corr, s.corrErr = analysis.CorrelationMatrix(s.Table, s.Classification.Continuous)
	})
	return s.corr, s.corrErr
}

func (s *Session) Missing() []analysis.MissingCount {
	return analysis.MissingCounts(s.Table)
}

// Histogram bins a continuous column. bins <= 0 uses the session default.
func (s *Session) Histogram(column string, bins int) ([]analysis.Bin, error) {
	if !s.Classification.IsContinuous(column) {
		if _, ok := s.Table.Column(column); !ok {
			return nil, fmt.Errorf("histogram %q: %w", column, analysis.ErrUnknownColumn)
		}
		return nil, fmt.Errorf("histogram %q: %w", column, analysis.ErrNotContinuous)
	}
	if bins <= 0 {
		bins = s.opt.HistogramBins
	}
	return analysis.HistogramBins(s.Table, column, bins)
}

// Scatter returns the grouped scatter series of two continuous columns, coloured by an
// optional categorical column.
func (s *Session) Scatter(x, y, color string) ([]analysis.ScatterGroup, error) {
	for _, c := range []string{x, y} {
		if err := s.requireKind(c, analysis.Continuous); err != nil {
			return nil, fmt.Errorf("scatter: %w", err)
		}
	}
	if color != "" {
		if err := s.requireKind(color, analysis.Categorical); err != nil {
			return nil, fmt.Errorf("scatter: %w", err)
		}
	}
	pts, err := analysis.ScatterSeries(s.Table, x, y, color)
	if err != nil {
		return nil, err
	}
	return analysis.GroupScatter(pts), nil
}

// Report builds the full text report for the session's table.
func (s *Session) Report() (*analysis.Report, error) {
	return analysis.BuildReport(s.Table, s.opt)
}

func (s *Session) requireKind(name string, want analysis.Kind) error {
	k, ok := s.Classification.Kind(name)
	if !ok {
		return fmt.Errorf("%q: %w", name, analysis.ErrUnknownColumn)
	}
	if k == want {
		return nil
	}
	if want == analysis.Continuous {
		return fmt.Errorf("%q: %w", name, analysis.ErrNotContinuous)
	}
	return fmt.Errorf("%q: %w", name, analysis.ErrNotCategorical)
}
