package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/unemployment-dashboard/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dashboard is the view model the HTTP surface renders.
type Dashboard interface {
	Dataset(ctx context.Context) (*domain.Dataset, error)
	Options(ctx context.Context) (domain.Options, error)
	Filtered(ctx context.Context, sel domain.Selection) (*domain.Dataset, error)
	RenderView(ctx context.Context, name string, sel domain.Selection) (*domain.View, error)
}

// Options tunes the middleware chain.
type Options struct {
	RateLimitRPS float64 // per client; 0 disables limiting
}

// Server exposes the dashboard UI, its chart and data endpoints, and the
// health, readiness and metrics routes.
type Server struct {
	httpServer *http.Server
	dash       Dashboard
	logger     *slog.Logger
}

// NewServer wires the routes and middleware.
func NewServer(addr string, dash Dashboard, ready sharedobs.ReadinessChecker, logger *slog.Logger, opts Options) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
			ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
		},
		dash:   dash,
		logger: logger,
	}

	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("GET /charts/trend.svg", s.handleChart(viewTrend))
	mux.HandleFunc("GET /charts/state-means.svg", s.handleChart(viewStateMeans))
	mux.HandleFunc("GET /charts/geo.svg", s.handleChart(viewGeo))
	mux.HandleFunc("GET /api/view", s.handleAPIView)
	mux.HandleFunc("GET /api/options", s.handleAPIOptions)
	mux.HandleFunc("GET /export.xlsx", s.handleExport)
	mux.HandleFunc("GET /debug/dataset", s.handleDebug)

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	var handler http.Handler = mux
	handler = compression(handler)
	if opts.RateLimitRPS > 0 {
		handler = newRateLimiter(opts.RateLimitRPS, clockwork.NewRealClock()).middleware(handler)
	}
	handler = securityHeaders(handler)
	handler = requestLogging(logger)(handler)
	s.httpServer.Handler = handler

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
