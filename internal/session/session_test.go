package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/edaboard/internal/analysis"
	"github.com/KaramelBytes/edaboard/internal/dataset"
)

func irisLike(t *testing.T) *dataset.Table {
	t.Helper()
	lines := []string{"sepal_length,sepal_width,species"}
	species := []string{"setosa", "versicolor", "virginica"}
	for i := 0; i < 60; i++ {
		lines = append(lines, fmt.Sprintf("%.1f,%.2f,%s", 4.0+float64(i)*0.1, 2.0+float64(i%31)*0.05, species[i%3]))
	}
	tbl, err := dataset.Load(strings.NewReader(strings.Join(lines, "\n")), dataset.DefaultOptions())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	tbl.Name = "iris.csv"
	return tbl
}

func TestSessionDefaultsAndSummaries(t *testing.T) {
	s := New("id-1", irisLike(t), analysis.DefaultOptions(), time.Now())
	if s.Name != "iris.csv" {
		t.Fatalf("name = %q", s.Name)
	}
	f, err := s.DefaultFeature()
	if err != nil || f != "sepal_length" {
		t.Fatalf("default feature = %q, %v", f, err)
	}
	x, y, err := s.DefaultAxes()
	if err != nil || x != "sepal_length" || y != "sepal_width" {
		t.Fatalf("axes = %s,%s,%v", x, y, err)
	}
	if ov := s.Overview(); ov.Rows != 60 || ov.Features != 3 {
		t.Fatalf("overview = %+v", ov)
	}
	m1, err := s.Correlation()
	if err != nil {
		t.Fatalf("corr: %v", err)
	}
	m2, _ := s.Correlation()
	if m1 != m2 {
		t.Fatalf("correlation not cached")
	}
	bins, err := s.Histogram("sepal_length", 0)
	if err != nil || len(bins) != analysis.DefaultOptions().HistogramBins {
		t.Fatalf("histogram = %d bins, %v", len(bins), err)
	}
	groups, err := s.Scatter("sepal_length", "sepal_width", "species")
	if err != nil || len(groups) != 3 {
		t.Fatalf("scatter groups = %d, %v", len(groups), err)
	}
}

func TestSessionScatterValidatesKinds(t *testing.T) {
	s := New("id-1", irisLike(t), analysis.DefaultOptions(), time.Now())
	if _, err := s.Scatter("species", "sepal_width", ""); !errors.Is(err, analysis.ErrNotContinuous) {
		t.Fatalf("categorical x err = %v", err)
	}
	if _, err := s.Scatter("sepal_length", "sepal_width", "sepal_length"); !errors.Is(err, analysis.ErrNotCategorical) {
		t.Fatalf("continuous color err = %v", err)
	}
	if _, err := s.Scatter("sepal_length", "nope", ""); !errors.Is(err, analysis.ErrUnknownColumn) {
		t.Fatalf("unknown y err = %v", err)
	}
	if _, err := s.Histogram("species", 10); !errors.Is(err, analysis.ErrNotContinuous) {
		t.Fatalf("categorical histogram err = %v", err)
	}
}

func TestStoreLifecycle(t *testing.T) {
	st := NewStore(analysis.DefaultOptions(), time.Hour, nil)
	s := st.Create(irisLike(t))
	if st.Len() != 1 {
		t.Fatalf("len = %d", st.Len())
	}
	got, err := st.Get(s.ID)
	if err != nil || got != s {
		t.Fatalf("get = %v, %v", got, err)
	}
	r, err := st.Replace(s.ID, irisLike(t))
	if err != nil || r.ID != s.ID || r == s {
		t.Fatalf("replace = %v, %v", r, err)
	}
	if _, err := st.Replace("missing", irisLike(t)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("replace unknown err = %v", err)
	}
	if err := st.Delete(s.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := st.Get(s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get after delete err = %v", err)
	}
	if err := st.Delete(s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete err = %v", err)
	}
}

func TestStoreExpire(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	st := NewStore(analysis.DefaultOptions(), 10*time.Minute, nil)
	st.now = func() time.Time { return base }
	idle := st.Create(irisLike(t))
	busy := st.Create(irisLike(t))

	st.now = func() time.Time { return base.Add(8 * time.Minute) }
	if _, err := st.Get(busy.ID); err != nil {
		t.Fatalf("get: %v", err)
	}
	if n := st.Expire(base.Add(12 * time.Minute)); n != 1 {
		t.Fatalf("expired = %d, want 1", n)
	}
	if _, err := st.Get(idle.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("idle session survived")
	}
	if _, err := st.Get(busy.ID); err != nil {
		t.Fatalf("busy session expired: %v", err)
	}
}

func TestStoreRunStopsOnCancel(t *testing.T) {
	st := NewStore(analysis.DefaultOptions(), time.Minute, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- st.Run(ctx, 5*time.Millisecond) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
