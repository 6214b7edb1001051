package analysis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/edaboard/internal/dataset"
)

// Report bundles everything the dashboard shows for one table.
type Report struct {
	Name           string         `json:"name"`
	Overview       Overview       `json:"overview"`
	Classification Classification `json:"classification"`
	Describe       []ColumnStats  `json:"describe"`
	Corr           *CorrMatrix    `json:"correlation,omitempty"`
	TopPairs       []PairCorr     `json:"top_pairs,omitempty"`
	Missing        []MissingCount `json:"missing"`
	Samples        [][]string     `json:"samples,omitempty"`
	Columns        []string       `json:"columns"`
	Warnings       []string       `json:"warnings,omitempty"`
}

// BuildReport runs the classifier and every summary over t.
func BuildReport(t *dataset.Table, opt Options) (*Report, error) {
	if opt.MaxCategoricalUnique <= 0 {
		opt.MaxCategoricalUnique = DefaultOptions().MaxCategoricalUnique
	}
	if opt.TopPairs <= 0 {
		opt.TopPairs = DefaultOptions().TopPairs
	}
	cls := Classify(t, opt.MaxCategoricalUnique)
	r := &Report{
		Name:           t.Name,
		Overview:       BuildOverview(t, cls),
		Classification: cls,
		Missing:        MissingCounts(t),
		Columns:        t.Names(),
	}
	for _, name := range cls.Continuous {
		s, err := DescribeColumn(t, cls, name)
		switch {
		case err == nil:
			r.Describe = append(r.Describe, s)
		case errors.Is(err, ErrNoValues):
			r.Warnings = append(r.Warnings, fmt.Sprintf("column %s has no non-missing values", safeName(name)))
		default:
			return nil, fmt.Errorf("build report: %w", err)
		}
	}
	if len(cls.Continuous) == 0 {
		r.Warnings = append(r.Warnings, "no continuous columns; column statistics and scatter plots are unavailable")
	} else if len(cls.Continuous) == 1 {
		r.Warnings = append(r.Warnings, "only one continuous column; scatter plots need two")
	}
	if len(cls.Continuous) >= 2 {
		corr, err := CorrelationMatrix(t, cls.Continuous)
		if err != nil {
			return nil, fmt.Errorf("build report: %w", err)
		}
		r.Corr = corr
		r.TopPairs = corr.TopPairs(opt.TopPairs)
	}
	if r.Overview.Duplicates > 0 {
		r.Warnings = append(r.Warnings, fmt.Sprintf("%d duplicate rows", r.Overview.Duplicates))
	}
	n := t.Rows()
	if n > 5 {
		n = 5
	}
	for i := 0; i < n; i++ {
		r.Samples = append(r.Samples, t.Row(i))
	}
	return r, nil
}

// Markdown renders a compact text report.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET OVERVIEW]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Overview.Rows))
	b.WriteString(fmt.Sprintf("Duplicates: %d\n", r.Overview.Duplicates))
	b.WriteString(fmt.Sprintf("Features: %d\n\n", r.Overview.Features))

	b.WriteString("[COLUMNS]\n")
	b.WriteString(fmt.Sprintf("Categorical (%d): %s\n", len(r.Classification.Categorical), joinNames(r.Classification.Categorical)))
	b.WriteString(fmt.Sprintf("Continuous (%d): %s\n", len(r.Classification.Continuous), joinNames(r.Classification.Continuous)))

	if len(r.Describe) > 0 {
		b.WriteString("\n[CONTINUOUS FEATURES]\n")
		for _, s := range r.Describe {
			b.WriteString(fmt.Sprintf("- %s: count %d, missing %d (%.1f%%) | mean %.4g, std %.4g | min %.4g, 25%% %.4g, 50%% %.4g, 75%% %.4g, max %.4g\n",
				safeName(s.Column), s.Count, s.Missing, s.MissingRatio()*100, s.Mean, s.Std, s.Min, s.P25, s.P50, s.P75, s.Max))
		}
	}

	hasMissing := false
	for _, m := range r.Missing {
		if m.Missing > 0 {
			hasMissing = true
			break
		}
	}
	b.WriteString("\n[MISSING VALUES]\n")
	if !hasMissing {
		b.WriteString("- none\n")
	}
	for _, m := range r.Missing {
		if m.Missing == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("- %s: %d of %d\n", safeName(m.Column), m.Missing, m.Missing+m.Present))
	}

	if len(r.TopPairs) > 0 {
		b.WriteString("\n[CORRELATIONS]\n")
		for _, p := range r.TopPairs {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", p.A, p.B, p.R))
		}
	}

	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD]\n")
		b.WriteString("| ")
		for i, c := range r.Columns {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeVal(safeName(c)))
		}
		b.WriteString(" |\n| ")
		for i := range r.Columns {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for _, row := range r.Samples {
			b.WriteString("| ")
			for i := range r.Columns {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := ""
				if i < len(row) {
					val = row[i]
				}
				if len(val) > 80 {
					val = val[:77] + "..."
				}
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func joinNames(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = safeName(n)
	}
	return strings.Join(out, ", ")
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
