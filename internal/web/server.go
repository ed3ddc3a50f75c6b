// Package web provides the HTTP server and handlers for the enrollment form
// and the admin panel.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/matricula/internal/api"
	"github.com/JonMunkholm/matricula/internal/audit"
	"github.com/JonMunkholm/matricula/internal/config"
	"github.com/JonMunkholm/matricula/internal/enrollment"
	"github.com/JonMunkholm/matricula/internal/export"
	"github.com/JonMunkholm/matricula/internal/metrics"
	"github.com/JonMunkholm/matricula/internal/notify"
	"github.com/JonMunkholm/matricula/internal/session"
	"github.com/JonMunkholm/matricula/internal/submission"
	"github.com/JonMunkholm/matricula/internal/web/middleware"
)

const loginPath = "/admin/login"

// HealthCheck is a named dependency check served by /healthz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps are the collaborators the server wires into its handlers.
type Deps struct {
	API      *api.Client
	Sessions session.Store
	Audit    audit.Recorder
	// Metrics may be nil to disable instrumentation.
	Metrics *metrics.Metrics
	// Guard is shared with main so shutdown can wait for submissions.
	Guard  *submission.InFlight
	Health []HealthCheck
}

// Server is the HTTP server for the enrollment application.
type Server struct {
	cfg      *config.Config
	api      *api.Client
	sessions session.Store
	audit    audit.Recorder
	metrics  *metrics.Metrics
	guard    *submission.InFlight
	health   []HealthCheck

	states  *stateRegistry
	policy  enrollment.DocumentPolicy
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	xlsx    *export.XLSXExporter
	now     func() time.Time
	general *rateLimiter
	submits *rateLimiter

	router *chi.Mux
	server *http.Server
}

// NewServer creates a new Server instance.
func NewServer(cfg *config.Config, deps Deps) *Server {
	guard := deps.Guard
	if guard == nil {
		guard = submission.NewInFlight()
	}
	recorder := deps.Audit
	if recorder == nil {
		recorder = audit.NewMemoryRecorder(cfg.Audit.MemoryCapacity)
	}

	s := &Server{
		cfg:      cfg,
		api:      deps.API,
		sessions: deps.Sessions,
		audit:    recorder,
		metrics:  deps.Metrics,
		guard:    guard,
		health:   deps.Health,
		policy: enrollment.DocumentPolicy{
			MaxSize:           cfg.Upload.MaxFileSize,
			AllowedExtensions: cfg.Upload.AllowedExtensions,
		},
		csv:     export.NewCSVExporter(';', true),
		pdf:     export.NewPDFExporter(),
		xlsx:    export.NewXLSXExporter("Estudantes"),
		now:     time.Now,
		general: newRateLimiter(cfg.Rate.RequestsPerMinute, time.Minute),
		submits: newRateLimiter(cfg.Rate.SubmitLimit, time.Minute),
		router:  chi.NewRouter(),
	}
	s.states = newStateRegistry(cfg.Session.IdleTimeout, func() *notify.Presenter {
		return notify.NewPresenter(notify.WithDuration(cfg.Notify.Duration))
	})

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(chimw.Recoverer)

	// Security hardening
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	if s.metrics != nil && s.cfg.Metrics.Enabled {
		s.router.Handle(s.cfg.Metrics.Path, s.metrics.Handler())
	}

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Session(s.sessions, middleware.SessionConfig{
			CookieName: s.cfg.Session.CookieName,
			Secure:     s.cfg.Session.CookieSecure,
			TTL:        s.cfg.Session.TTL,
		}))
		r.Use(middleware.Logger)
		if s.metrics != nil {
			r.Use(s.metrics.Middleware)
		}
		r.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
		if s.cfg.Rate.Enabled {
			r.Use(s.general.middleware)
		}

		// Public enrollment form
		r.Get("/", s.handleEnrollPage)
		r.With(s.limitSubmits).Post("/enroll", s.handleEnroll)
		r.Post("/enroll/reset", s.handleEnrollReset)
		r.Post("/notification/dismiss", s.handleDismiss)

		// Admin authentication
		r.Get(loginPath, s.handleLoginPage)
		r.With(s.limitSubmits).Post(loginPath, s.handleLogin)
		r.With(s.limitSubmits).Post("/admin/signup", s.handleSignup)
		r.Post("/admin/logout", s.handleLogout)

		// Admin panel
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(loginPath))

			r.Get("/admin", s.handleAdmin)
			r.Get("/admin/export.csv", s.handleExportCSV)
			r.Get("/admin/export.pdf", s.handleExportPDF)
			r.Get("/admin/export.xlsx", s.handleExportXLSX)
			r.Get("/admin/audit", s.handleAuditLog)

			r.Get("/admin/students/new", s.handleCreatePage)
			r.Post("/admin/students", s.handleCreateStudent)
			r.Get("/admin/students/{id}", s.handleStudentDetails)
			r.Get("/admin/students/{id}/edit", s.handleEditPage)
			r.Post("/admin/students/{id}", s.handleUpdateStudent)
			r.Get("/admin/students/{id}/delete", s.handleDeletePage)
			r.Post("/admin/students/{id}/delete", s.handleDeleteStudent)
			r.Post("/admin/students/{id}/approve", s.handleApproveStudent)
		})
	})
}

func (s *Server) limitSubmits(next http.Handler) http.Handler {
	if !s.cfg.Rate.Enabled {
		return next
	}
	return s.submits.middleware(next)
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// RunSweeper drops idle page state, stale rate limit entries and, for the
// in-memory backend, expired sessions. It blocks until ctx is cancelled.
func (s *Server) RunSweeper(ctx context.Context) {
	jobs := []sweeper{s.states.sweep, s.general.sweep, s.submits.sweep}
	if mem, ok := s.sessions.(*session.MemoryStore); ok {
		jobs = append(jobs, mem.Sweep)
	}
	startSweeper(ctx, "web", s.cfg.Session.SweepInterval, jobs...)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Prevent MIME type sniffing
			w.Header().Set("X-Content-Type-Options", "nosniff")

			// Prevent clickjacking
			w.Header().Set("X-Frame-Options", "DENY")

			// Pages inline their styles and the notification timer script.
			// Stored documents may be served by the API on another origin.
			if enableCSP {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https: http:; frame-ancestors 'none'")
			}

			// Control referrer information
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			next.ServeHTTP(w, r)
		})
	}
}

// rateLimiter implements a fixed window rate limiter per client IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // requests per window
	window   time.Duration // time window
	now      func() time.Time
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// newRateLimiter creates a rate limiter with the specified rate per window.
// Stale visitors are dropped by sweep.
func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		now:      time.Now,
	}
}

// sweep removes visitors idle for two windows.
func (rl *rateLimiter) sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for ip, v := range rl.visitors {
		if rl.now().Sub(v.lastReset) > rl.window*2 {
			delete(rl.visitors, ip)
			removed++
		}
	}
	return removed
}

// allow checks if the request should be allowed and consumes a token if so.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, exists := rl.visitors[ip]
	if !exists || now.Sub(v.lastReset) > rl.window {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: now}
		return rl.rate > 0
	}

	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

// middleware returns an HTTP middleware that rate limits by client IP.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(middleware.ClientIP(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	slog.Warn("http error", "status", status, "message", message, "path", r.URL.Path)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":%q}`, message)
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
