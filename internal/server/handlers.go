package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/KaramelBytes/edaboard/internal/analysis"
	"github.com/KaramelBytes/edaboard/internal/dataset"
	"github.com/KaramelBytes/edaboard/internal/export"
	"github.com/KaramelBytes/edaboard/internal/plot"
	"github.com/KaramelBytes/edaboard/internal/session"
)

type ctxKey int

const sessionKey ctxKey = iota

// DefaultColumn selects the default feature in /columns/{column}.
const DefaultColumn = "_default"

// SessionSummary is returned after an upload.
type SessionSummary struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	LoadedAt time.Time         `json:"loaded_at"`
	Rows     int               `json:"rows"`
	Columns  []string          `json:"columns"`
	Overview analysis.Overview `json:"overview"`
}

func summarize(s *session.Session) SessionSummary {
	return SessionSummary{
		ID:       s.ID,
		Name:     s.Name,
		LoadedAt: s.LoadedAt,
		Rows:     s.Table.Rows(),
		Columns:  s.Table.Names(),
		Overview: s.Overview(),
	}
}

// OverviewResponse backs the dataset tab.
type OverviewResponse struct {
	Name           string                  `json:"name"`
	Overview       analysis.Overview       `json:"overview"`
	Classification analysis.Classification `json:"classification"`
	DefaultFeature string                  `json:"default_feature,omitempty"`
	DefaultX       string                  `json:"default_x,omitempty"`
	DefaultY       string                  `json:"default_y,omitempty"`
}

// RowsResponse is one page of raw rows.
type RowsResponse struct {
	Offset  int        `json:"offset"`
	Limit   int        `json:"limit"`
	Total   int        `json:"total"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// HistogramResponse carries bins of one column.
type HistogramResponse struct {
	Column string         `json:"column"`
	Bins   []analysis.Bin `json:"bins"`
}

// ScatterResponse carries the grouped scatter series.
type ScatterResponse struct {
	X      string                  `json:"x"`
	Y      string                  `json:"y"`
	Color  string                  `json:"color,omitempty"`
	Groups []analysis.ScatterGroup `json:"groups"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{"status": "ok", "sessions": s.store.Len()})
}

// readUpload parses the multipart "file" field into a table.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*dataset.Table, error) {
	if s.cfg.Dataset.MaxBytes > 0 {
		// leave room for multipart framing around the file itself
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Dataset.MaxBytes+1<<20)
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: multipart field \"file\" is required", errValidation)
	}
	defer f.Close()
	opt := s.cfg.Dataset
	if opt.Delimiter == 0 {
		opt.Delimiter = dataset.DelimiterFor(hdr.Filename)
	}
	t, err := dataset.Load(f, opt)
	if err != nil {
		return nil, err
	}
	t.Name = hdr.Filename
	return t, nil
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	t, err := s.readUpload(w, r)
	if err != nil {
		s.metrics.Upload("rejected")
		s.writeProblem(w, r, err)
		return
	}
	sess := s.store.Create(t)
	s.metrics.Upload("accepted")
	w.Header().Set("Location", "/api/sessions/"+sess.ID)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, summarize(sess))
}

func (s *Server) handleReplace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, err := s.readUpload(w, r)
	if err != nil {
		s.metrics.Upload("rejected")
		s.writeProblem(w, r, err)
		return
	}
	sess, err := s.store.Replace(id, t)
	if err != nil {
		s.writeProblem(w, r, err)
		return
	}
	s.metrics.Upload("accepted")
	render.JSON(w, r, summarize(sess))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(chi.URLParam(r, "id")); err != nil {
		s.writeProblem(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// sessionCtx resolves {id} and stores the session in the request context.
func (s *Server) sessionCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// writes resolve the session themselves
		if r.Method == http.MethodPut || r.Method == http.MethodDelete {
			next.ServeHTTP(w, r)
			return
		}
		sess, err := s.store.Get(chi.URLParam(r, "id"))
		if err != nil {
			s.writeProblem(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, sess)))
	})
}

func sessionFrom(r *http.Request) *session.Session {
	return r.Context().Value(sessionKey).(*session.Session)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	resp := OverviewResponse{
		Name:           sess.Name,
		Overview:       sess.Overview(),
		Classification: sess.Classification,
	}
	if f, err := sess.DefaultFeature(); err == nil {
		resp.DefaultFeature = f
	}
	if x, y, err := sess.DefaultAxes(); err == nil {
		resp.DefaultX, resp.DefaultY = x, y
	}
	render.JSON(w, r, resp)
}

func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	q := rowsQuery{Limit: 100}
	if err := s.bindQuery(r, &q); err != nil {
		s.writeProblem(w, r, err)
		return
	}
	total := sess.Table.Rows()
	start := q.Offset
	if start > total {
		start = total
	}
	end := start + q.Limit
	if end > total {
		end = total
	}
	rows := make([][]string, 0, end-start)
	for i := start; i < end; i++ {
		rows = append(rows, sess.Table.Row(i))
	}
	render.JSON(w, r, RowsResponse{Offset: q.Offset, Limit: q.Limit, Total: total, Columns: sess.Table.Names(), Rows: rows})
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	stats, err := sessionFrom(r).DescribeAll()
	if err != nil {
		s.writeProblem(w, r, err)
		return
	}
	render.JSON(w, r, stats)
}

func (s *Server) handleColumn(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	name := chi.URLParam(r, "column")
	if name == DefaultColumn {
		f, err := sess.DefaultFeature()
		if err != nil {
			s.writeProblem(w, r, err)
			return
		}
		name = f
	}
	st, err := sess.Describe(name)
	if err != nil {
		s.writeProblem(w, r, err)
		return
	}
	render.JSON(w, r, st)
}

func (s *Server) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	m, err := sessionFrom(r).Correlation()
	if err != nil {
		s.writeProblem(w, r, err)
		return
	}
	render.JSON(w, r, m)
}

func (s *Server) handleMissing(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, sessionFrom(r).Missing())
}

func (s *Server) histogram(r *http.Request) (*HistogramResponse, error) {
	sess := sessionFrom(r)
	var q histogramQuery
	if err := s.bindQuery(r, &q); err != nil {
		return nil, err
	}
	if q.Bins > s.cfg.MaxHistogramBins {
		return nil, fmt.Errorf("%w: bins must be at most %d", errValidation, s.cfg.MaxHistogramBins)
	}
	if q.Column == "" {
		f, err := sess.DefaultFeature()
		if err != nil {
			return nil, err
		}
		q.Column = f
	}
	bins, err := sess.Histogram(q.Column, q.Bins)
	if err != nil {
		return nil, err
	}
	return &HistogramResponse{Column: q.Column, Bins: bins}, nil
}

func (s *Server) handleHistogram(w http.ResponseWriter, r *http.Request) {
	resp, err := s.histogram(r)
	if err != nil {
		s.writeProblem(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}

func (s *Server) scatter(r *http.Request) (*ScatterResponse, error) {
	sess := sessionFrom(r)
	var q scatterQuery
	if err := s.bindQuery(r, &q); err != nil {
		return nil, err
	}
	if (q.X == "") != (q.Y == "") {
		return nil, fmt.Errorf("%w: x and y must be given together", errValidation)
	}
	if q.X == "" {
		x, y, err := sess.DefaultAxes()
		if err != nil {
			return nil, err
		}
		q.X, q.Y = x, y
	}
	groups, err := sess.Scatter(q.X, q.Y, q.Color)
	if err != nil {
		return nil, err
	}
	return &ScatterResponse{X: q.X, Y: q.Y, Color: q.Color, Groups: groups}, nil
}

func (s *Server) handleScatter(w http.ResponseWriter, r *http.Request) {
	resp, err := s.scatter(r)
	if err != nil {
		s.writeProblem(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	var buf bytes.Buffer
	var err error
	switch kind := chi.URLParam(r, "kind"); kind {
	case "correlation":
		var m *analysis.CorrMatrix
		if m, err = sess.Correlation(); err == nil {
			err = plot.Heatmap(&buf, m, s.cfg.ChartSize)
		}
	case "missing":
		err = plot.MissingBar(&buf, sess.Missing(), s.cfg.ChartSize)
	case "histogram":
		var h *HistogramResponse
		if h, err = s.histogram(r); err == nil {
			err = plot.Histogram(&buf, h.Column, h.Bins, s.cfg.ChartSize)
		}
	case "scatter":
		var sc *ScatterResponse
		if sc, err = s.scatter(r); err == nil {
			err = plot.Scatter(&buf, sc.X, sc.Y, sc.Groups, s.cfg.ChartSize)
		}
	default:
		render.Render(w, r, NewProblem(http.StatusNotFound, TypeNotFound, "Chart Not Found", "unknown chart "+kind, r.URL.Path))
		return
	}
	if err != nil {
		s.writeProblem(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes()) //nolint:errcheck
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, sess); err != nil {
		s.writeProblem(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(sess.Name)))
	w.Write(buf.Bytes()) //nolint:errcheck
}
