package analysis

import (
	"strconv"
	"strings"

	"github.com/KaramelBytes/edaboard/internal/dataset"
)

// Overview holds the dataset-level metrics shown on the first tab.
type Overview struct {
	Rows        int      `json:"rows"`
	Duplicates  int      `json:"duplicates"`
	Features    int      `json:"features"`
	Categorical []string `json:"categorical"`
	Continuous  []string `json:"continuous"`
}

// BuildOverview derives row, duplicate and feature counts and copies the classification.
func BuildOverview(t *dataset.Table, cls Classification) Overview {
	return Overview{
		Rows:        t.Rows(),
		Duplicates:  DuplicateRows(t),
		Features:    len(t.Columns()),
		Categorical: append([]string{}, cls.Categorical...),
		Continuous:  append([]string{}, cls.Continuous...),
	}
}

// DuplicateRows returns the number of rows that repeat an earlier row value-for-value
// across every column.
func DuplicateRows(t *dataset.Table) int {
	cols := t.Columns()
	seen := make(map[string]struct{}, t.Rows())
	var b strings.Builder
	for i := 0; i < t.Rows(); i++ {
		b.Reset()
		for _, c := range cols {
			// length-prefixed so no cell text can forge a separator
			k := c.Key(i)
			b.WriteString(strconv.Itoa(len(k)))
			b.WriteByte(':')
			b.WriteString(k)
		}
		seen[b.String()] = struct{}{}
	}
	return t.Rows() - len(seen)
}

// FirstContinuous returns the default feature for the column statistics tab.
func FirstContinuous(cls Classification) (string, error) {
	if len(cls.Continuous) == 0 {
		return "", ErrNoContinuousColumns
	}
	return cls.Continuous[0], nil
}

// DefaultAxes returns the default x and y features for the relationship tab.
func DefaultAxes(cls Classification) (x, y string, err error) {
	if len(cls.Continuous) < 2 {
		return "", "", ErrNotEnoughContinuous
	}
	return cls.Continuous[0], cls.Continuous[1], nil
}
