package analysis

import (
	"strings"

	"github.com/KaramelBytes/edaboard/internal/dataset"
)

// Kind is the role a column plays in the dashboard.
type Kind string

const (
	Categorical Kind = "categorical"
	Continuous  Kind = "continuous"
)

// Classification partitions the (trimmed) column names of a table. Every name appears
// in exactly one of the two lists, in table order.
type Classification struct {
	Continuous  []string `json:"continuous"`
	Categorical []string `json:"categorical"`
}

// Kind returns the role of name, ignoring surrounding whitespace.
func (c Classification) Kind(name string) (Kind, bool) {
	name = strings.TrimSpace(name)
	for _, n := range c.Continuous {
		if n == name {
			return Continuous, true
		}
	}
	for _, n := range c.Categorical {
		if n == name {
			return Categorical, true
		}
	}
	return "", false
}

// IsContinuous reports whether name was classified as continuous.
func (c Classification) IsContinuous(name string) bool {
	k, ok := c.Kind(name)
	return ok && k == Continuous
}

// IsCategorical reports whether name was classified as categorical.
func (c Classification) IsCategorical(name string) bool {
	k, ok := c.Kind(name)
	return ok && k == Categorical
}

// Classify splits the columns of t into continuous and categorical. A column is
// categorical when it holds at most maxUnique distinct values (missing counts as one
// value) or when its declared type is textual.
func Classify(t *dataset.Table, maxUnique int) Classification {
	cls := Classification{Continuous: []string{}, Categorical: []string{}}
	for _, col := range t.Columns() {
		name := strings.TrimSpace(col.Name)
		if ClassifyColumn(col, maxUnique) == Categorical {
			cls.Categorical = append(cls.Categorical, name)
		} else {
			cls.Continuous = append(cls.Continuous, name)
		}
	}
	return cls
}

// ClassifyColumn applies the categorical/continuous rule to a single column.
func ClassifyColumn(col *dataset.Column, maxUnique int) Kind {
	if col.Type.Textual() || DistinctCount(col, maxUnique+1) <= maxUnique {
		return Categorical
	}
	return Continuous
}

// DistinctCount counts distinct values in col, stopping once limit is reached.
// A limit <= 0 counts everything.
func DistinctCount(col *dataset.Column, limit int) int {
	seen := make(map[string]struct{})
	for i := 0; i < col.Len(); i++ {
		seen[col.Key(i)] = struct{}{}
		if limit > 0 && len(seen) >= limit {
			break
		}
	}
	return len(seen)
}
