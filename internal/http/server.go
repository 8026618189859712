package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"expenses/internal/log"
	"expenses/internal/middleware/ratelimit"
	"expenses/internal/middleware/security"
	"expenses/internal/middleware/trace"
	"expenses/internal/services"
)

const apiPrefix = "/api/v1"

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the HTTP surface.
type Options struct {
	Addr               string
	CORSOrigin         string
	ImportMaxBytes     int64
	RateLimitPerMinute int
	SecureCookies      bool
	TrustedProxies     []string
}

// Dependencies are the services the handlers call.
type Dependencies struct {
	Expenses *services.ExpenseService
	Auth     *services.AuthService
	Activity *services.ActivityService
	Health   Pinger
	Logger   *log.Logger
}

type Server struct {
	http.Server
	opts     Options
	expenses *services.ExpenseService
	auth     *services.AuthService
	activity *services.ActivityService
	health   Pinger
	logger   *log.Logger

	rateLimiter  *ratelimit.Limiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options, deps Dependencies) *Server {
	if opts.ImportMaxBytes <= 0 {
		opts.ImportMaxBytes = 5 << 20
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}

	s := &Server{
		opts:     opts,
		expenses: deps.Expenses,
		auth:     deps.Auth,
		activity: deps.Activity,
		health:   deps.Health,
		logger:   logger.WithComponent(log.ComponentHTTP),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST "+apiPrefix+"/users/register", s.handleRegister)
	mux.HandleFunc("POST "+apiPrefix+"/users/login", s.handleLogin)
	mux.HandleFunc("GET "+apiPrefix+"/users/logout", s.requireAuth(s.handleLogout))
	mux.HandleFunc("GET "+apiPrefix+"/users/me", s.requireAuth(s.handleMe))

	mux.HandleFunc("POST "+apiPrefix+"/expenses", s.requireAuth(s.handleCreateExpense))
	mux.HandleFunc("GET "+apiPrefix+"/expenses", s.requireAuth(s.handleListExpenses))
	mux.HandleFunc("GET "+apiPrefix+"/expenses/statistics", s.requireAuth(s.handleStatistics))
	mux.HandleFunc("GET "+apiPrefix+"/expenses/summary", s.requireAuth(s.handleSummary))
	mux.HandleFunc("GET "+apiPrefix+"/expenses/export", s.requireAuth(s.handleExport))
	mux.HandleFunc("GET "+apiPrefix+"/expenses/activity", s.requireAuth(s.handleActivity))
	mux.HandleFunc("PATCH "+apiPrefix+"/expenses/{id}", s.requireAuth(s.handleUpdateExpense))
	mux.HandleFunc("DELETE "+apiPrefix+"/expenses/{id}", s.requireAuth(s.handleDeleteExpense))
	mux.HandleFunc("POST "+apiPrefix+"/expenses/bulk-upload", s.requireAuth(s.handleBulkUpload))
	mux.HandleFunc("POST "+apiPrefix+"/expenses/bulk-delete", s.requireAuth(s.handleBulkDelete))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("Route not found").Write(w)
	})

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			s.logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}

	var h http.Handler = mux
	h = s.rateLimiter.Middleware(detector.ExtractClientIP, s.onRateLimit)(h)
	h = security.CORS(security.DefaultCORSConfig(opts.CORSOrigin))(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = detector.Middleware(logger)(h)
	h = trace.NewMiddleware(logger, detector.ExtractClientIP).Middleware(h)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).
		WarnContext(r.Context(), "Rate limit exceeded", log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
}

// Shutdown stops background routines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady checks the store within a short deadline.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
