package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/KaramelBytes/edaboard/internal/analysis"
	"github.com/KaramelBytes/edaboard/internal/dataset"
	"github.com/KaramelBytes/edaboard/internal/plot"
	"github.com/KaramelBytes/edaboard/internal/session"
)

// Problem types.
const (
	TypeParse      = "/errors/cannot-parse-file"
	TypeNotFound   = "/errors/not-found"
	TypeSelection  = "/errors/selection"
	TypeValidation = "/errors/validation"
	TypeTooLarge   = "/errors/payload-too-large"
	TypeRateLimit  = "/errors/rate-limit-exceeded"
	TypeInternal   = "/errors/internal"
)

// ContentTypeProblem is the media type of problem documents.
const ContentTypeProblem = "application/problem+json"

// Problem is an RFC 7807 problem document.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	Extensions map[string]interface{} `json:"-"`
}

// NewProblem creates a problem document for path.
func NewProblem(status int, typ, title, detail, instance string) *Problem {
	return &Problem{Type: typ, Title: title, Status: status, Detail: detail, Instance: instance}
}

// WithExtension adds a non-standard member to the document.
func (p *Problem) WithExtension(key string, value interface{}) *Problem {
	if p.Extensions == nil {
		p.Extensions = make(map[string]interface{})
	}
	p.Extensions[key] = value
	return p
}

// Render implements render.Renderer.
func (p *Problem) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, p.Status)
	return nil
}

// MarshalJSON flattens extensions into the top-level object.
func (p *Problem) MarshalJSON() ([]byte, error) {
	data := make(map[string]interface{}, 5+len(p.Extensions))
	for k, v := range p.Extensions {
		data[k] = v
	}
	data["type"] = p.Type
	data["title"] = p.Title
	data["status"] = p.Status
	if p.Detail != "" {
		data["detail"] = p.Detail
	}
	if p.Instance != "" {
		data["instance"] = p.Instance
	}
	return json.Marshal(data)
}

// problemFor maps domain errors onto HTTP problems.
func problemFor(err error, r *http.Request) *Problem {
	path := r.URL.Path
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, dataset.ErrParse):
		return NewProblem(http.StatusUnprocessableEntity, TypeParse, "Unprocessable Entity", dataset.ErrParse.Error(), path).
			WithExtension("reason", err.Error())
	case errors.As(err, &tooLarge):
		return NewProblem(http.StatusRequestEntityTooLarge, TypeTooLarge, "Payload Too Large", err.Error(), path).
			WithExtension("max_bytes", tooLarge.Limit)
	case errors.Is(err, session.ErrNotFound):
		return NewProblem(http.StatusNotFound, TypeNotFound, "Session Not Found", err.Error(), path)
	case errors.Is(err, analysis.ErrUnknownColumn):
		return NewProblem(http.StatusNotFound, TypeNotFound, "Column Not Found", err.Error(), path)
	case errors.Is(err, analysis.ErrNotContinuous),
		errors.Is(err, analysis.ErrNotCategorical),
		errors.Is(err, analysis.ErrNotNumeric),
		errors.Is(err, analysis.ErrNoContinuousColumns),
		errors.Is(err, analysis.ErrNotEnoughContinuous),
		errors.Is(err, analysis.ErrNoValues),
		errors.Is(err, plot.ErrNoData):
		return NewProblem(http.StatusConflict, TypeSelection, "Invalid Selection", err.Error(), path)
	case errors.Is(err, analysis.ErrInvalidBins), errors.Is(err, errValidation):
		return NewProblem(http.StatusBadRequest, TypeValidation, "Validation Failed", err.Error(), path)
	default:
		return NewProblem(http.StatusInternalServerError, TypeInternal, "Internal Server Error", "the request could not be completed", path)
	}
}

// writeProblem logs err and responds with its problem document.
func (s *Server) writeProblem(w http.ResponseWriter, r *http.Request, err error) {
	p := problemFor(err, r)
	reqID := middleware.GetReqID(r.Context())
	if reqID != "" {
		p.WithExtension("trace_id", reqID)
	}
	level := slog.LevelWarn
	if p.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(r.Context(), level, "request failed",
		"error", err.Error(),
		"status", p.Status,
		"request_id", reqID,
		"method", r.Method,
		"path", r.URL.Path,
	)
	render.Render(w, r, p) //nolint:errcheck
}

func init() {
	render.Respond = respond
}

// respond writes problems as application/problem+json and leaves every other value
// to chi's default responder.
func respond(w http.ResponseWriter, r *http.Request, v interface{}) {
	p, ok := v.(*Problem)
	if !ok {
		render.DefaultResponder(w, r, v)
		return
	}
	body, err := json.Marshal(p)
	if err != nil {
		http.Error(w, p.Title, p.Status)
		return
	}
	status := p.Status
	if st, ok := r.Context().Value(render.StatusCtxKey).(int); ok {
		status = st
	}
	w.Header().Set("Content-Type", ContentTypeProblem)
	w.WriteHeader(status)
	w.Write(append(body, '\n')) //nolint:errcheck
}
