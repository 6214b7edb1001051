package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/edaboard/internal/analysis"
	"github.com/KaramelBytes/edaboard/internal/dataset"
	"github.com/KaramelBytes/edaboard/internal/session"
)

func testServer(t *testing.T, mutate ...func(*Config)) (*Server, *session.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := session.NewStore(analysis.DefaultOptions(), time.Hour, logger)
	cfg := Config{
		Dataset:          dataset.DefaultOptions(),
		MaxHistogramBins: 100,
		UploadRate:       100,
		UploadBurst:      100,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	return New(cfg, store, logger), store
}

func peopleCSV() string {
	var b strings.Builder
	b.WriteString("age,income,country\n")
	countries := []string{"FR", "DE", "US", "JP", "BR"}
	for i := 0; i < 100; i++ {
		fmt.Fprintf(&b, "%d,%d,%s\n", 18+i%80, 1000+i*37, countries[i%5])
	}
	return b.String()
}

func uploadRequest(t *testing.T, method, url, name, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(method, url, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func createSession(t *testing.T, s *Server, content string) SessionSummary {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, uploadRequest(t, http.MethodPost, "/api/sessions", "people.csv", content))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sum SessionSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	return sum
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	assert.Equal(t, ContentTypeProblem, rec.Header().Get("Content-Type"))
	var p map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func TestUploadAndOverview(t *testing.T) {
	s, store := testServer(t)
	sum := createSession(t, s, peopleCSV())
	assert.Equal(t, "people.csv", sum.Name)
	assert.Equal(t, 100, sum.Rows)
	assert.Equal(t, 1, store.Len())

	rec := get(t, s, "/api/sessions/"+sum.ID+"/overview")
	require.Equal(t, http.StatusOK, rec.Code)
	var ov OverviewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ov))
	assert.Equal(t, []string{"age", "income"}, ov.Classification.Continuous)
	assert.Equal(t, []string{"country"}, ov.Classification.Categorical)
	assert.Equal(t, "age", ov.DefaultFeature)
	assert.Equal(t, "income", ov.DefaultY)
	assert.Equal(t, 3, ov.Overview.Features)
}

func TestUploadParseFailure(t *testing.T) {
	s, _ := testServer(t)
	for name, content := range map[string]string{
		"empty":  "",
		"ragged": "a,b\n1,2,3\n",
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, uploadRequest(t, http.MethodPost, "/api/sessions", "bad.csv", content))
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			p := decodeProblem(t, rec)
			assert.Equal(t, "cannot parse file", p["detail"])
			assert.Equal(t, TypeParse, p["type"])
		})
	}
}

func TestUploadRequiresFileField(t *testing.T) {
	s, _ := testServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader("a,b\n1,2\n"))
	req.Header.Set("Content-Type", "text/csv")
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestColumnEndpoint(t *testing.T) {
	s, _ := testServer(t)
	sum := createSession(t, s, peopleCSV())
	base := "/api/sessions/" + sum.ID

	tests := []struct {
		name   string
		path   string
		status int
		typ    string
	}{
		{"default", base + "/columns/_default", http.StatusOK, ""},
		{"continuous", base + "/columns/income", http.StatusOK, ""},
		{"categorical", base + "/columns/country", http.StatusConflict, TypeSelection},
		{"unknown", base + "/columns/nope", http.StatusNotFound, TypeNotFound},
		{"unknown session", "/api/sessions/missing/columns/age", http.StatusNotFound, TypeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, s, tt.path)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.typ != "" {
				assert.Equal(t, tt.typ, decodeProblem(t, rec)["type"])
				return
			}
			var st analysis.ColumnStats
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
			assert.Equal(t, 100, st.Count+st.Missing)
		})
	}
}

func TestNoContinuousColumnsIsSelectionError(t *testing.T) {
	s, _ := testServer(t)
	sum := createSession(t, s, "a,b\nx,y\nz,w\n")
	rec := get(t, s, "/api/sessions/"+sum.ID+"/columns/_default")
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = get(t, s, "/api/sessions/"+sum.ID+"/scatter")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCorrelationMissingAndRows(t *testing.T) {
	s, _ := testServer(t)
	sum := createSession(t, s, peopleCSV())
	base := "/api/sessions/" + sum.ID

	rec := get(t, s, base+"/correlation")
	require.Equal(t, http.StatusOK, rec.Code)
	var corr struct {
		Columns []string    `json:"columns"`
		Values  [][]float64 `json:"values"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &corr))
	assert.Equal(t, []string{"age", "income"}, corr.Columns)
	assert.Equal(t, 1.0, corr.Values[0][0])
	assert.Equal(t, corr.Values[0][1], corr.Values[1][0])

	rec = get(t, s, base+"/missing")
	require.Equal(t, http.StatusOK, rec.Code)
	var missing []analysis.MissingCount
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &missing))
	assert.Len(t, missing, 3)

	rec = get(t, s, base+"/rows?offset=95&limit=10")
	require.Equal(t, http.StatusOK, rec.Code)
	var page RowsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 100, page.Total)
	assert.Len(t, page.Rows, 5)

	rec = get(t, s, base+"/rows?limit=0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = get(t, s, base+"/rows?offset=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistogramAndScatter(t *testing.T) {
	s, _ := testServer(t)
	sum := createSession(t, s, peopleCSV())
	base := "/api/sessions/" + sum.ID

	rec := get(t, s, base+"/histogram?column=age&bins=8")
	require.Equal(t, http.StatusOK, rec.Code)
	var h HistogramResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.Len(t, h.Bins, 8)

	assert.Equal(t, http.StatusBadRequest, get(t, s, base+"/histogram?column=age&bins=1000").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, base+"/histogram?bins=-1").Code)

	rec = get(t, s, base+"/scatter?x=age&y=income&color=country")
	require.Equal(t, http.StatusOK, rec.Code)
	var sc ScatterResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sc))
	assert.Len(t, sc.Groups, 5)

	assert.Equal(t, http.StatusBadRequest, get(t, s, base+"/scatter?x=age").Code)
	assert.Equal(t, http.StatusConflict, get(t, s, base+"/scatter?x=age&y=income&color=age").Code)
}

func TestChartsRenderPNG(t *testing.T) {
	s, _ := testServer(t)
	sum := createSession(t, s, peopleCSV())
	for _, kind := range []string{"correlation", "missing", "histogram", "scatter"} {
		t.Run(kind, func(t *testing.T) {
			rec := get(t, s, "/api/sessions/"+sum.ID+"/charts/"+kind+".png")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
			assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
		})
	}
	rec := get(t, s, "/api/sessions/"+sum.ID+"/charts/pie.png")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Chart Not Found", decodeProblem(t, rec)["title"])
}

func TestCorrelationChartWideTable(t *testing.T) {
	const cols, rows = 60, 30
	var b strings.Builder
	for j := 0; j < cols; j++ {
		if j > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "feature_%02d", j)
	}
	b.WriteByte('\n')
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if j > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(&b, "%d", (i*(j+3))%97+j)
		}
		b.WriteByte('\n')
	}
	s, _ := testServer(t)
	sum := createSession(t, s, b.String())
	require.Len(t, sum.Overview.Continuous, cols)

	rec := get(t, s, "/api/sessions/"+sum.ID+"/charts/correlation.png")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

func TestProblemRenderUsesProblemMediaType(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/sessions/x/overview", nil)
	p := NewProblem(http.StatusConflict, TypeSelection, "Invalid Selection", "pick another column", req.URL.Path).
		WithExtension("trace_id", "req-1")

	require.NoError(t, render.Render(rec, req, p))
	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeProblem(t, rec)
	assert.Equal(t, TypeSelection, body["type"])
	assert.Equal(t, "req-1", body["trace_id"])
	assert.EqualValues(t, http.StatusConflict, body["status"])

	// plain payloads keep chi's JSON responder
	rec = httptest.NewRecorder()
	render.Respond(rec, req, map[string]string{"status": "ok"})
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestExportWorkbook(t *testing.T) {
	s, _ := testServer(t)
	sum := createSession(t, s, peopleCSV())
	rec := get(t, s, "/api/sessions/"+sum.ID+"/export.xlsx")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "people_eda.xlsx")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
}

func TestReplaceAndDelete(t *testing.T) {
	s, store := testServer(t)
	sum := createSession(t, s, peopleCSV())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, uploadRequest(t, http.MethodPut, "/api/sessions/"+sum.ID, "small.csv", "x,y\n1,2\n3,4\n"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var replaced SessionSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &replaced))
	assert.Equal(t, sum.ID, replaced.ID)
	assert.Equal(t, 2, replaced.Rows)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/sessions/"+sum.ID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, http.StatusNotFound, get(t, s, "/api/sessions/"+sum.ID+"/overview").Code)
}

func TestUploadRateLimited(t *testing.T) {
	s, _ := testServer(t, func(c *Config) {
		c.UploadRate = 0.001
		c.UploadBurst = 1
	})
	createSession(t, s, peopleCSV())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, uploadRequest(t, http.MethodPost, "/api/sessions", "people.csv", peopleCSV()))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, TypeRateLimit, decodeProblem(t, rec)["type"])
}

func TestHealthIndexAndMetrics(t *testing.T) {
	s, _ := testServer(t)
	createSession(t, s, peopleCSV())

	rec := get(t, s, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","sessions":1}`, rec.Body.String())

	rec = get(t, s, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Column statistics")

	rec = get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "edaboard_uploads_total")
	assert.Contains(t, body, `route="/api/sessions`)
	assert.Contains(t, body, "edaboard_sessions 1")
}

func TestServeShutsDownOnCancel(t *testing.T) {
	s, _ := testServer(t, func(c *Config) { c.SweepInterval = 10 * time.Millisecond })
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	res, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
