// Package http exposes the filter panels of authenticated sessions as a
// JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"budgetfilter/internal/amqp"
	"budgetfilter/internal/dimension"
	"budgetfilter/internal/filter"
	"budgetfilter/internal/log"
	"budgetfilter/internal/middleware/ratelimit"
	"budgetfilter/internal/middleware/security"
	"budgetfilter/internal/middleware/trace"
	"budgetfilter/internal/options"
	"budgetfilter/internal/session"
)

// Config wires a Server.
type Config struct {
	Addr     string
	Registry *dimension.Registry
	// Renderer defaults to filter.VerbatimRenderer.
	Renderer filter.Renderer
	Options  options.Source
	Sessions session.Store
	// Ready reports backend readiness for /readyz; nil means always ready.
	Ready func(ctx context.Context) error
	// Publisher, when set, receives every compiled criteria.
	Publisher amqp.Publisher
	Logger    *log.Logger

	RequestsPerMinute int
}

type Server struct {
	http.Server

	registry *dimension.Registry
	options  options.Source
	sessions session.Store
	ready    func(ctx context.Context) error
	logger   *log.Logger
	panels   *panelRegistry
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	stopOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config) *Server {
	registry := cfg.Registry
	if registry == nil {
		registry = dimension.Default()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	ready := cfg.Ready
	if ready == nil {
		ready = func(context.Context) error { return nil }
	}

	s := &Server{
		registry: registry,
		options:  cfg.Options,
		sessions: cfg.Sessions,
		ready:    ready,
		logger:   logger,
		panels:   newPanelRegistry(registry, cfg.Renderer, cfg.Publisher, logger),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.RequestsPerMinute,
		}),
		detector: security.NewDetector(),
		tracer:   trace.NewMiddleware(),
	}

	// Panels die with their session.
	if hooked, ok := cfg.Sessions.(interface{ OnRevoke(func(session.Session)) }); ok {
		hooked.OnRevoke(func(sess session.Session) { s.panels.drop(sess.ID) })
	}

	mux := http.NewServeMux()
	protected := session.RequireSession(cfg.Sessions, s.unauthorized)
	guard := func(h http.HandlerFunc) http.Handler { return protected(h) }

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/sessions", s.handleIssueSession)
	mux.Handle("DELETE /api/sessions", guard(s.handleRevokeSession))

	mux.Handle("GET /api/dimensions", guard(s.handleDimensions))
	mux.Handle("GET /api/dimensions/{field}/options", guard(s.handleOptions))

	mux.Handle("GET /api/filters", guard(s.handleFilters))
	mux.Handle("PUT /api/filters/{field}", guard(s.handleSetFilter))
	mux.Handle("DELETE /api/filters", guard(s.handleClearFilters))

	mux.Handle("GET /api/criteria", guard(s.handleCriteria))
	mux.Handle("GET /api/criteria/preview", guard(s.handlePreview))

	mux.HandleFunc("/", s.handleNotFound)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// middleware wraps h, outermost first: tracing, request logging, security
// headers, probe detection, rate limiting of mutations.
func (s *Server) middleware(h http.Handler) http.Handler {
	h = s.limiter.Middleware(s.detector.ExtractClientIP, ratelimit.Mutating, s.rateLimited)(h)
	h = s.detectSuspicious(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = log.RequestMiddleware(s.logger, trace.RequestID, s.detector.ExtractClientIP)(h)
	return s.tracer.Middleware(h)
}

func (s *Server) detectSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				log.FieldPath, r.URL.Path)
		}
		next.ServeHTTP(w, r)
	})
}

// ActivePanels returns the number of live filter panels.
func (s *Server) ActivePanels() int {
	return s.panels.len()
}

// Shutdown stops background routines and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
