package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/edaboard/internal/analysis"
	"github.com/KaramelBytes/edaboard/internal/dataset"
	"github.com/KaramelBytes/edaboard/internal/session"
)

func TestWriteWorkbookSheets(t *testing.T) {
	in := strings.Join([]string{
		"x,y,group",
		"1,2,a",
		"2,4.5,b",
		"3,,a",
		"4,8,b",
	}, "\n")
	tbl, err := dataset.Load(strings.NewReader(in), dataset.DefaultOptions())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	tbl.Name = "small.csv"
	// a threshold of 1 keeps the short numeric columns continuous
	s := session.New("s1", tbl, analysis.Options{MaxCategoricalUnique: 1}, time.Now())
	if len(s.Classification.Continuous) != 2 {
		t.Fatalf("continuous = %v", s.Classification.Continuous)
	}

	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, s); err != nil {
		t.Fatalf("WriteWorkbook: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	got := strings.Join(f.GetSheetList(), ",")
	if got != "Overview,Describe,Correlation,Missing" {
		t.Fatalf("sheets = %s", got)
	}
	rows, err := f.GetRows(SheetOverview)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if rows[1][0] != "File" || rows[1][1] != "small.csv" || rows[2][1] != "4" {
		t.Fatalf("overview rows = %v", rows[:3])
	}
	desc, _ := f.GetRows(SheetDescribe)
	if len(desc) != 3 || desc[2][0] != "y" || desc[2][2] != "1" {
		t.Fatalf("describe rows = %v", desc)
	}
	corr, _ := f.GetRows(SheetCorrelation)
	if len(corr) != 3 || corr[0][1] != "x" || corr[1][1] != "1" {
		t.Fatalf("correlation rows = %v", corr)
	}
	miss, _ := f.GetRows(SheetMissing)
	if len(miss) != 4 || miss[2][1] != "1" {
		t.Fatalf("missing rows = %v", miss)
	}
}

func TestFileName(t *testing.T) {
	cases := map[string]string{
		"iris.csv":      "iris_eda.xlsx",
		"dir/sales.tsv": "sales_eda.xlsx",
		"":              "dataset_eda.xlsx",
		"noext":         "noext_eda.xlsx",
	}
	for in, want := range cases {
		if got := FileName(in); got != want {
			t.Fatalf("FileName(%q) = %q, want %q", in, got, want)
		}
	}
}
