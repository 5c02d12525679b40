// Package web provides the HTTP server, pages and JSON API for the
// registration form and admin dashboard.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/creative-hub/internal/config"
	"github.com/JonMunkholm/creative-hub/internal/core"
	mw "github.com/JonMunkholm/creative-hub/internal/web/middleware"
)

//go:embed static
var staticFiles embed.FS

// Server is the HTTP server for the hub.
type Server struct {
	service *core.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
	pages   *pageSet
	admins  *mw.AdminSessions

	limiters []*rateLimiter
}

// NewServer creates a new Server instance.
func NewServer(service *core.Service, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
		pages:   mustParsePages(),
		admins:  mw.NewAdminSessions(cfg.Admin.SessionTTL),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	}

	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(s.rateLimit(s.newLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	submit := func(next http.Handler) http.Handler { return next }
	if s.cfg.Rate.Enabled {
		submit = s.rateLimit(s.newLimiter(s.cfg.Rate.SubmitLimit, time.Minute))
	}

	s.router.Get("/healthz", s.handleHealth)

	// Pages
	s.router.Get("/", s.handleHome)
	s.router.Route("/register", func(r chi.Router) {
		r.Get("/", s.handleRegisterPage)
		r.With(submit).Post("/next", s.handleRegisterNext)
		r.Post("/back", s.handleRegisterBack)
		r.Post("/reset", s.handleRegisterReset)
	})

	s.router.Route("/admin", func(r chi.Router) {
		r.Get("/", s.handleAdminPage)
		r.With(submit).Post("/login", s.handleAdminLogin)
		r.Post("/logout", s.handleAdminLogout)

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAdmin(s.admins, &s.cfg.Security, http.HandlerFunc(s.handleAdminDenied)))
			r.Post("/registrations/{id}/delete", s.handleAdminDelete)
			r.Post("/registrations/delete-all", s.handleAdminDeleteAll)
			r.Get("/export/{format}", s.handleAdminExport)
		})
	})

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/options", s.handleOptions)
		r.Get("/registrations/count", s.handleCountRegistrations)
		r.Get("/registrations/check-mobile", s.handleCheckMobile)
		r.With(submit).Post("/registrations", s.handleCreateRegistration)

		r.Post("/forms", s.handleCreateForm)
		r.Get("/forms/{id}", s.handleGetForm)
		r.With(submit).Post("/forms/{id}/next", s.handleFormNext)
		r.Post("/forms/{id}/back", s.handleFormBack)
		r.Delete("/forms/{id}", s.handleDeleteForm)

		r.Group(func(r chi.Router) {
			r.Use(mw.APIKeyAuth(&s.cfg.Security))
			r.Use(mw.RequireAdmin(s.admins, &s.cfg.Security, http.HandlerFunc(s.handleAdminDenied)))

			r.Get("/registrations", s.handleListRegistrations)
			r.Delete("/registrations", s.handleDeleteAllRegistrations)
			r.Post("/registrations/delete", s.handleDeleteRegistrations)
			r.Delete("/registrations/{id}", s.handleDeleteRegistration)
			r.Get("/summary", s.handleSummary)
			r.Get("/export/{format}", s.handleExport)
			r.Get("/export-status", s.handleExportStatus)
			r.Get("/audit-log", s.handleAuditLog)
		})
	})

	s.router.NotFound(s.handleNotFound)
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
	for _, l := range s.limiters {
		l.stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(csp bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if csp {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self'; img-src 'self' data:; form-action 'self'")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimiter implements a simple token bucket rate limiter per IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // requests per window
	window   time.Duration // time window
	done     chan struct{}
	once     sync.Once
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// newLimiter creates a rate limiter owned by s; Shutdown stops its cleanup loop.
func (s *Server) newLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		done:     make(chan struct{}),
	}
	go rl.cleanup()
	s.limiters = append(s.limiters, rl)
	return rl
}

// cleanup removes stale visitor entries every minute.
func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, v := range rl.visitors {
				if time.Since(v.lastReset) > rl.window*2 {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.once.Do(func() { close(rl.done) })
}

// allow checks if the request should be allowed and consumes a token if so.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		rl.visitors[ip] = &visitor{
			tokens:    rl.rate - 1,
			lastReset: time.Now(),
		}
		return true
	}

	if time.Since(v.lastReset) > rl.window {
		v.tokens = rl.rate - 1
		v.lastReset = time.Now()
		return true
	}

	if v.tokens <= 0 {
		return false
	}

	v.tokens--
	return true
}

// rateLimit returns middleware that rejects clients over rl's budget.
func (s *Server) rateLimit(rl *rateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.allow(clientIP(r)) {
				w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
				s.respondError(w, r, errRateLimited, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP returns the host part of RemoteAddr, already rewritten by
// TrustedRealIP for proxied requests.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// writeJSON encodes v as JSON with the given status.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
