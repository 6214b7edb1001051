package plot

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"math"
	"testing"

	"github.com/KaramelBytes/edaboard/internal/analysis"
)

func decodeSize(t *testing.T, b []byte) (int, int) {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func TestHeatmapRendersPNG(t *testing.T) {
	m := &analysis.CorrMatrix{
		Columns: []string{"alpha", "beta", "gamma"},
		Values: [][]float64{
			{1, 0.5, math.NaN()},
			{0.5, 1, -0.25},
			{math.NaN(), -0.25, 1},
		},
	}
	var buf bytes.Buffer
	if err := Heatmap(&buf, m, Size{Width: 640, Height: 480}); err != nil {
		t.Fatalf("heatmap: %v", err)
	}
	if w, h := decodeSize(t, buf.Bytes()); w != 640 || h != 480 {
		t.Fatalf("size = %dx%d", w, h)
	}
	if err := Heatmap(&buf, &analysis.CorrMatrix{}, Size{}); !errors.Is(err, ErrNoData) {
		t.Fatalf("empty matrix err = %v", err)
	}
}

func TestHeatmapGrowsForWideMatrix(t *testing.T) {
	const n = 60
	m := &analysis.CorrMatrix{Columns: make([]string, n), Values: make([][]float64, n)}
	for i := 0; i < n; i++ {
		m.Columns[i] = fmt.Sprintf("col%02d", i)
		m.Values[i] = make([]float64, n)
		for j := range m.Values[i] {
			m.Values[i][j] = 1 / float64(1+abs(i-j))
		}
	}
	var buf bytes.Buffer
	if err := Heatmap(&buf, m, Size{}); err != nil {
		t.Fatalf("heatmap: %v", err)
	}
	w, h := decodeSize(t, buf.Bytes())
	if w < n*minHeatmapCell || h < n*minHeatmapCell {
		t.Fatalf("size = %dx%d, want room for %d cells of %dpx", w, h, n, minHeatmapCell)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func TestBlueAtEndpoints(t *testing.T) {
	if blueAt(0) != blues[0] || blueAt(1) != blues[len(blues)-1] {
		t.Fatalf("endpoints = %v %v", blueAt(0), blueAt(1))
	}
	mid := blueAt(0.5)
	if mid != blues[4] {
		t.Fatalf("mid = %v, want %v", mid, blues[4])
	}
}

func TestMissingBarAndHistogram(t *testing.T) {
	var buf bytes.Buffer
	counts := []analysis.MissingCount{{Column: "a", Missing: 2, Present: 8}, {Column: "b", Missing: 0, Present: 10}}
	if err := MissingBar(&buf, counts, Size{}); err != nil {
		t.Fatalf("missing bar: %v", err)
	}
	if w, h := decodeSize(t, buf.Bytes()); w != DefaultSize.Width || h != DefaultSize.Height {
		t.Fatalf("size = %dx%d", w, h)
	}

	buf.Reset()
	bins := []analysis.Bin{{Start: 0, End: 1, Count: 3}, {Start: 1, End: 2, Count: 0}, {Start: 2, End: 3, Count: 5}}
	if err := Histogram(&buf, "price", bins, Size{Width: 400, Height: 300}); err != nil {
		t.Fatalf("histogram: %v", err)
	}
	if w, _ := decodeSize(t, buf.Bytes()); w != 400 {
		t.Fatalf("width = %d", w)
	}
	if err := Histogram(&buf, "price", nil, Size{}); !errors.Is(err, ErrNoData) {
		t.Fatalf("empty bins err = %v", err)
	}
}

func TestScatterRendersGroups(t *testing.T) {
	groups := []analysis.ScatterGroup{
		{Label: "a", Points: []analysis.ScatterPoint{{X: 1, Y: 2, Label: "a"}, {X: 2, Y: 3, Label: "a"}}},
		{Label: "b", Points: []analysis.ScatterPoint{{X: 3, Y: 1, Label: "b"}}},
	}
	var buf bytes.Buffer
	if err := Scatter(&buf, "sepal_length", "sepal_width", groups, Size{}); err != nil {
		t.Fatalf("scatter: %v", err)
	}
	decodeSize(t, buf.Bytes())

	buf.Reset()
	single := []analysis.ScatterGroup{{Label: analysis.SingleGroupLabel, Points: []analysis.ScatterPoint{{X: 1, Y: 1}}}}
	if err := Scatter(&buf, "x", "y", single, Size{}); err != nil {
		t.Fatalf("single point scatter: %v", err)
	}
	if err := Scatter(&buf, "x", "y", nil, Size{}); !errors.Is(err, ErrNoData) {
		t.Fatalf("empty scatter err = %v", err)
	}
}

func TestTitle(t *testing.T) {
	cases := map[string]string{
		"sepal_length": "Sepal_length",
		"PetalWidth":   "Petalwidth",
		" age ":        "Age",
		"":             "",
	}
	for in, want := range cases {
		if got := Title(in); got != want {
			t.Fatalf("Title(%q) = %q, want %q", in, got, want)
		}
	}
}
