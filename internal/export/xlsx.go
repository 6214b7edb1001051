// Package export writes session summaries to spreadsheet workbooks.
package export

import (
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/edaboard/internal/analysis"
	"github.com/KaramelBytes/edaboard/internal/session"
)

// Sheet names in workbook order.
const (
	SheetOverview    = "Overview"
	SheetDescribe    = "Describe"
	SheetCorrelation = "Correlation"
	SheetMissing     = "Missing"
)

// WriteWorkbook writes the overview, describe table, correlation matrix and missing
// counts of s as an XLSX workbook.
func WriteWorkbook(w io.Writer, s *session.Session) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close workbook: %w", cerr)
		}
	}()
	if err := f.SetSheetName("Sheet1", SheetOverview); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetDescribe, SheetCorrelation, SheetMissing} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("add sheet %s: %w", name, err)
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	wb := &book{f: f, header: bold}

	if err := wb.overview(s); err != nil {
		return err
	}
	if err := wb.describe(s); err != nil {
		return err
	}
	if err := wb.correlation(s); err != nil {
		return err
	}
	if err := wb.missing(s); err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

type book struct {
	f      *excelize.File
	header int
}

func (b *book) row(sheet string, r int, vals ...interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, r)
	if err != nil {
		return err
	}
	if err := b.f.SetSheetRow(sheet, cell, &vals); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, r, err)
	}
	return nil
}

func (b *book) headerRow(sheet string, r int, vals ...interface{}) error {
	if err := b.row(sheet, r, vals...); err != nil {
		return err
	}
	first, _ := excelize.CoordinatesToCellName(1, r)
	last, _ := excelize.CoordinatesToCellName(len(vals), r)
	return b.f.SetCellStyle(sheet, first, last, b.header)
}

func (b *book) overview(s *session.Session) error {
	ov := s.Overview()
	rows := [][]interface{}{
		{"File", s.Name},
		{"Rows", ov.Rows},
		{"Duplicates", ov.Duplicates},
		{"Features", ov.Features},
		{"Categorical", len(ov.Categorical)},
		{"Continuous", len(ov.Continuous)},
	}
	if err := b.headerRow(SheetOverview, 1, "Metric", "Value"); err != nil {
		return err
	}
	for i, r := range rows {
		if err := b.row(SheetOverview, i+2, r...); err != nil {
			return err
		}
	}
	next := len(rows) + 3
	if err := b.headerRow(SheetOverview, next, "Column", "Kind"); err != nil {
		return err
	}
	for _, name := range s.Table.Names() {
		next++
		kind, _ := s.Classification.Kind(name)
		if err := b.row(SheetOverview, next, name, string(kind)); err != nil {
			return err
		}
	}
	return b.f.SetColWidth(SheetOverview, "A", "B", 18)
}

func (b *book) describe(s *session.Session) error {
	if err := b.headerRow(SheetDescribe, 1, "Column", "Count", "Missing", "Mean", "Std", "Min", "25%", "50%", "75%", "Max"); err != nil {
		return err
	}
	r := 2
	for _, name := range s.Classification.Continuous {
		st, err := s.Describe(name)
		if errors.Is(err, analysis.ErrNoValues) {
			continue
		}
		if err != nil {
			return fmt.Errorf("describe %s: %w", name, err)
		}
		if err := b.row(SheetDescribe, r, st.Column, st.Count, st.Missing, st.Mean, st.Std, st.Min, st.P25, st.P50, st.P75, st.Max); err != nil {
			return err
		}
		r++
	}
	return nil
}

func (b *book) correlation(s *session.Session) error {
	m, err := s.Correlation()
	if err != nil {
		return fmt.Errorf("correlation: %w", err)
	}
	head := make([]interface{}, 0, len(m.Columns)+1)
	head = append(head, "")
	for _, c := range m.Columns {
		head = append(head, c)
	}
	if err := b.headerRow(SheetCorrelation, 1, head...); err != nil {
		return err
	}
	for i, c := range m.Columns {
		vals := make([]interface{}, 0, len(m.Columns)+1)
		vals = append(vals, c)
		for _, v := range m.Values[i] {
			if math.IsNaN(v) {
				vals = append(vals, nil)
				continue
			}
			vals = append(vals, v)
		}
		if err := b.row(SheetCorrelation, i+2, vals...); err != nil {
			return err
		}
	}
	return nil
}

func (b *book) missing(s *session.Session) error {
	if err := b.headerRow(SheetMissing, 1, "Column", "Missing", "Present"); err != nil {
		return err
	}
	for i, mc := range s.Missing() {
		if err := b.row(SheetMissing, i+2, mc.Column, mc.Missing, mc.Present); err != nil {
			return err
		}
	}
	return nil
}

// FileName derives the workbook name from the uploaded file name.
func FileName(source string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "dataset"
	}
	return base + "_eda.xlsx"
}
