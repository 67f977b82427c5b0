// Package api serves the recommendation engine and market exploration over
// HTTP using chi.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sells-group/gapscout/internal/market"
	"github.com/sells-group/gapscout/internal/metrics"
	"github.com/sells-group/gapscout/internal/recommend"
	"github.com/sells-group/gapscout/internal/store"
	"github.com/sells-group/gapscout/internal/survival"
)

const queryTimeout = 10 * time.Second

// Deps are the collaborators a Server routes to. Assessor may be nil when no
// survival model is configured.
type Deps struct {
	Snapshot    *store.Snapshot
	Engine      *recommend.Engine
	Explorer    *market.Explorer
	Assessor    *survival.Assessor
	CORSOrigins []string
}

// Server holds the HTTP handlers.
type Server struct {
	deps Deps
	log  *zap.Logger
}

// NewServer creates a Server.
func NewServer(deps Deps) *Server {
	return &Server{deps: deps, log: zap.L().With(zap.String("component", "api"))}
}

// Router builds the chi router with the global middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	origins := s.deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(s.requestMetrics)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/meta", func(r chi.Router) {
		r.Get("/cuisines", s.handleCuisines)
		r.Get("/model", s.handleModel)
	})

	r.Get("/opportunities", s.handleOpportunities)
	r.Get("/opportunity/{zip}", s.handleOpportunity)
	r.Get("/search", s.handleSearch)
	r.Get("/weakspots", s.handleWeakspots)
	r.Get("/recommendations", s.handleRecommendations)
	r.Post("/predict", s.handlePredict)

	return r
}

// requestMetrics records count and latency per route pattern.
func (s *Server) requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RecordAPIRequest(r.Method, route, status, time.Since(start))
		s.log.Debug("api: request served",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
		)
	})
}

// ListenAndServe runs the router on addr until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("api: starting server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("api: shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
