package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"

	"github.com/titanic-mlops/titanic-survival/pkg/mlmodel"
	"github.com/titanic-mlops/titanic-survival/pkg/mlmodel/pipeline"
	"github.com/titanic-mlops/titanic-survival/pkg/predictor"
)

// Server provides the inference HTTP API
type Server struct {
	predictor  *predictor.Predictor
	port       string
	router     *chi.Mux
	metrics    *Metrics
	logger     *slog.Logger
	httpServer *http.Server
}

// Options configures optional server dependencies
type Options struct {
	// Service enables the /v1/runs endpoints
	Service *mlmodel.Service
	// BatchWorkers bounds the goroutines scoring one batch request
	BatchWorkers int
	Logger       *slog.Logger
}

// NewServer creates a new API server. p may be nil when no model is
// available yet; prediction endpoints then answer 503 and /ready fails.
func NewServer(p *predictor.Predictor, port string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		predictor: p,
		port:      port,
		router:    chi.NewRouter(),
		metrics:   NewMetrics(),
		logger:    logger.With("component", "api"),
	}

	s.registerRoutes(opts)
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// registerRoutes sets up the HTTP routes
func (s *Server) registerRoutes(opts Options) {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", s.metrics.Handler())

	var batch *predictor.BatchPredictor
	if s.predictor != nil {
		batch = predictor.NewBatchPredictor(s.predictor, opts.BatchWorkers)
	}
	predictions := NewPredictionHandler(batch, s.metrics, s.logger)
	mlModels := NewMLModelHandler(opts.Service, s.predictor)

	r.Route("/v1", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Post("/prediction", predictions.HandlePrediction)
		r.Post("/batch_prediction", predictions.HandleBatchPrediction)
		r.Get("/model", mlModels.HandleModel)
		r.Get("/runs", mlModels.HandleListRuns)
		r.Get("/runs/{id}", mlModels.HandleGetRun)
		r.Delete("/runs/{id}", mlModels.HandleDeleteRun)
	})
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.logger.Info("starting API server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "healthy"})
}

// handleReady reports whether a model is loaded
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	var model *pipeline.Pipeline
	if s.predictor != nil {
		model = s.predictor.Model()
	}
	if model == nil {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, map[string]string{"status": "not ready", "error": "model not loaded"})
		return
	}
	render.JSON(w, r, map[string]string{"status": "ready", "model": model.Name})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
