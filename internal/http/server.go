// Package http serves the hostel JSON API.
package http

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"hostel/internal/analytics"
	"hostel/internal/cache"
	"hostel/internal/log"
	"hostel/internal/metrics"
	"hostel/internal/middleware/ratelimit"
	"hostel/internal/middleware/security"
	"hostel/internal/middleware/trace"
	"hostel/internal/services"
)

// Options tunes a Server. Zero values fall back to defaults.
type Options struct {
	Logger             *log.Logger
	Metrics            *metrics.Metrics
	CacheTTL           time.Duration
	CacheSize          int
	RateLimitPerMinute int
	// Ready reports whether backing services are reachable.
	Ready func(ctx context.Context) error
	Now   func() time.Time
}

// Server is the hostel JSON API.
type Server struct {
	http.Server
	svc     *services.PropertyService
	logger  *log.Logger
	metrics *metrics.Metrics
	ready   func(ctx context.Context) error
	now     func() time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector

	dashboards   *cache.Loader[analytics.DashboardSummary]
	reports      *cache.Loader[analytics.AnalyticsReport]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware for svc.
func NewServer(addr string, svc *services.PropertyService, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 128
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Ready == nil {
		opts.Ready = func(context.Context) error { return nil }
	}

	dashCache := cache.NewLRUCache[analytics.DashboardSummary](opts.CacheSize, opts.CacheTTL)
	reportCache := cache.NewLRUCache[analytics.AnalyticsReport](opts.CacheSize, opts.CacheTTL)

	s := &Server{
		svc:          svc,
		logger:       opts.Logger.WithComponent(log.ComponentHTTP),
		metrics:      opts.Metrics,
		ready:        opts.Ready,
		now:          opts.Now,
		limiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:     security.NewDetector(opts.Logger),
		dashboards:   cache.NewLoader[analytics.DashboardSummary](dashCache),
		reports:      cache.NewLoader[analytics.AnalyticsReport](reportCache),
		cacheManager: cache.NewManager(opts.Logger),
	}
	s.cacheManager.Register(dashCache)
	s.cacheManager.Register(reportCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	svc.OnChange(s.invalidateViews)

	mux := http.NewServeMux()
	s.routes(mux)

	traceMW := trace.NewMiddleware(opts.Logger, s.detector.ExtractClientIP, s.observe)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.limiter.Middleware(s.detector.ExtractClientIP, ratelimit.MutatingOnly, s.onRateLimit)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           traceMW.Middleware(headers.Middleware(s.detector.Middleware(limit(mux)))),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("GET /dashboard", s.handleDashboard)
	mux.HandleFunc("GET /analytics", s.handleAnalytics)

	mux.HandleFunc("GET /rooms", s.handleListRooms)
	mux.HandleFunc("POST /rooms", s.handleCreateRoom)
	mux.HandleFunc("PUT /rooms/{id}", s.handleUpdateRoom)
	mux.HandleFunc("DELETE /rooms/{id}", s.handleDeleteRoom)

	mux.HandleFunc("GET /tenants", s.handleListTenants)
	mux.HandleFunc("POST /tenants", s.handleCreateTenant)
	mux.HandleFunc("PUT /tenants/{id}", s.handleUpdateTenant)
	mux.HandleFunc("DELETE /tenants/{id}", s.handleDeleteTenant)
	mux.HandleFunc("GET /tenants/{id}/payments/{month}", s.handleResolvePayment)
	mux.HandleFunc("PUT /tenants/{id}/payments/{month}/status", s.handleSetPaymentStatus)
	mux.HandleFunc("PUT /tenants/{id}/payments/{month}/remarks", s.handleSetPaymentRemarks)

	mux.HandleFunc("GET /payments", s.handlePaymentSheet)
	mux.HandleFunc("POST /payments", s.handleCreatePayment)
	mux.HandleFunc("GET /payments/export", s.handleExportPayments)
	mux.HandleFunc("PUT /payments/{id}", s.handleUpdatePayment)
	mux.HandleFunc("DELETE /payments/{id}", s.handleDeletePayment)

	mux.HandleFunc("/", s.handleNotFound)
}

// Shutdown stops background routines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) invalidateViews() {
	s.dashboards.Invalidate()
	s.reports.Invalidate()
}

func (s *Server) observe(r *http.Request, status int, d time.Duration) {
	route := r.Pattern
	if route == "" || route == "/" {
		route = "unmatched"
	}
	s.metrics.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
	s.metrics.HTTPDurationMs.WithLabelValues(route).Observe(float64(d.Microseconds()) / 1000)
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded, try again later"})
}
