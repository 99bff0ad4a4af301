package http

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"veraz/internal/auth"
	"veraz/internal/cache"
	"veraz/internal/log"
	"veraz/internal/middleware/ratelimit"
	"veraz/internal/middleware/security"
	"veraz/internal/middleware/trace"
	"veraz/internal/services"
	appweb "veraz/web"
)

// ReadinessCheck is a dependency probed by /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type ServerOptions struct {
	Addr      string
	Dashboard *services.DashboardService
	Auth      *auth.Service
	Sessions  *auth.Sessions
	Limiter   *ratelimit.Limiter // optional, defaults to 60 requests per minute
	Snapshots *cache.Snapshots   // optional, reported by /metrics
	Checks    []ReadinessCheck
	Logger    *log.Logger
}

type Server struct {
	http.Server
	templates *template.Template

	dashboard *services.DashboardService
	auth      *auth.Service
	sessions  *auth.Sessions
	snapshots *cache.Snapshots
	checks    []ReadinessCheck

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	logger     *log.Logger
	events     *log.StructuredLogger
	appMetrics *appMetrics
}

type appMetrics struct {
	uptime        time.Time
	queries       int64
	queryFailures int64
	exports       int64
	logins        int64
	loginFailures int64
}

var templateFuncs = template.FuncMap{
	"width": func(pct float64) string {
		return strconv.FormatFloat(pct, 'f', 2, 64) + "%"
	},
}

// NewServer parses templates, mounts routes and builds the middleware chain.
func NewServer(opts ServerOptions) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	limiter := opts.Limiter
	if limiter == nil {
		limiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	}
	detector := security.NewDetector(logger)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		templates:        t,
		dashboard:        opts.Dashboard,
		auth:             opts.Auth,
		sessions:         opts.Sessions,
		snapshots:        opts.Snapshots,
		checks:           opts.Checks,
		rateLimiter:      limiter,
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(detector.ExtractClientIP, logger),
		logger:           logger,
		events:           log.NewStructuredLogger(logger),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}

	mux := http.NewServeMux()

	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static files: %w", err)
	}
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(
		http.StripPrefix("/static/", http.FileServer(http.FS(static)))))

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.Handle("POST /login", s.limited(http.HandlerFunc(s.handleLogin)))
	mux.HandleFunc("POST /logout", s.handleLogout)

	mux.Handle("GET /dashboard", s.protected(http.HandlerFunc(s.handleDashboard)))
	mux.Handle("POST /ui/query", s.protected(s.limited(http.HandlerFunc(s.handleQuery))))
	mux.Handle("GET /api/query", s.protected(s.limited(http.HandlerFunc(s.handleAPIQuery))))
	mux.Handle("GET /export", s.protected(s.limited(http.HandlerFunc(s.handleExport))))

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.chain(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// chain wraps the mux, outermost first: tracing, request logger, security
// headers, scanner detection.
func (s *Server) chain(h http.Handler) http.Handler {
	h = s.securityDetector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = log.RequestIDMiddleware(trace.RequestIDFromRequest)(h)
	h = log.Middleware(s.logger)(h)
	return s.traceMiddleware.Middleware(h)
}

func (s *Server) protected(h http.Handler) http.Handler {
	return security.NoStore(s.sessions.Middleware(h))
}

func (s *Server) limited(h http.Handler) http.Handler {
	return s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimited)(h)
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldPath, r.URL.Path,
		log.FieldComponent, log.ComponentRateLimit)
	AlertResponse(http.StatusTooManyRequests, "warning",
		"Demasiadas consultas. Espere unos instantes e intente nuevamente.").Write(w)
}

// RateLimiter exposes the limiter so its idle clients can be swept.
func (s *Server) RateLimiter() *ratelimit.Limiter {
	return s.rateLimiter
}

// render executes a template into a buffer so a failing template never
// leaves a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.events.LogError(r.Context(), "Template execution failed", err,
			log.ComponentTemplate, log.OpRender, log.NewFields().WithRequestID(trace.GetRequestID(r.Context())))
		http.Error(w, "Error interno", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
