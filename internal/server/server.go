// Package server exposes sessions over HTTP: a JSON API, PNG charts and the embedded
// single-page dashboard.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/edaboard/internal/dataset"
	"github.com/KaramelBytes/edaboard/internal/plot"
	"github.com/KaramelBytes/edaboard/internal/session"
)

//go:embed web
var webFS embed.FS

// Config controls the HTTP layer.
type Config struct {
	Addr             string
	Dataset          dataset.Options
	MaxHistogramBins int
	UploadRate       float64
	UploadBurst      int
	ChartSize        plot.Size
	SweepInterval    time.Duration
	ShutdownTimeout  time.Duration
}

// Server wires the session store to the router.
type Server struct {
	cfg      Config
	store    *session.Store
	logger   *slog.Logger
	metrics  *Metrics
	validate *validator.Validate
	limiter  *RateLimiter
	router   chi.Router
}

// New builds the router. The store is shared with the caller.
func New(cfg Config, store *session.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxHistogramBins <= 0 {
		cfg.MaxHistogramBins = 500
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	logger = logger.With("component", "http")
	s := &Server{
		cfg:      cfg,
		store:    store,
		logger:   logger,
		metrics:  NewMetrics(store.Len),
		validate: newValidator(),
		limiter:  NewRateLimiter(cfg.UploadRate, cfg.UploadBurst, logger),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.Middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.Render(w, r, NewProblem(http.StatusNotFound, TypeNotFound, "Not Found", "no route for "+r.URL.Path, r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		render.Render(w, r, NewProblem(http.StatusMethodNotAllowed, TypeValidation, "Method Not Allowed", r.Method+" is not supported here", r.URL.Path))
	})

	static, _ := fs.Sub(webFS, "web")
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, static, "index.html")
	})
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api/sessions", func(r chi.Router) {
		r.With(s.limiter.Handler).Post("/", s.handleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Use(s.sessionCtx)
			r.With(s.limiter.Handler).Put("/", s.handleReplace)
			r.Delete("/", s.handleDelete)
			r.Get("/overview", s.handleOverview)
			r.Get("/rows", s.handleRows)
			r.Get("/describe", s.handleDescribe)
			r.Get("/columns/{column}", s.handleColumn)
			r.Get("/correlation", s.handleCorrelation)
			r.Get("/missing", s.handleMissing)
			r.Get("/histogram", s.handleHistogram)
			r.Get("/scatter", s.handleScatter)
			r.Get("/charts/{kind}.png", s.handleChart)
			r.Get("/export.xlsx", s.handleExport)
		})
	})
	return r
}

// Run serves until ctx is cancelled, sweeping idle sessions alongside, then shuts the
// listener down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return s.store.Run(gctx, s.cfg.SweepInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http: %w", err)
		}
		return nil
	})
	return g.Wait()
}
