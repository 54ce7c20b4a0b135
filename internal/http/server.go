// Package http serves the fintrack web UI and JSON API.
package http

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"fintrack/internal/auth"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
	appweb "fintrack/web"
)

// SessionCookieName holds the signed session token.
const SessionCookieName = "fintrack_session"

type Options struct {
	Addr               string
	CookieSecure       bool
	RateLimitPerMinute int
	TrustedProxies     []string
	Logger             *log.Logger
	Metrics            *metrics.Metrics
	// TemplatesFS and StaticFS default to the embedded web assets.
	TemplatesFS fs.FS
	StaticFS    fs.FS
}

// Services are the collaborators behind the handlers.
type Services struct {
	Users        *auth.PasswordAuthenticator
	Sessions     *auth.SessionManager
	Transactions *services.TransactionService
	Reports      *services.ReportService
	Planning     *services.PlanningService
	Activity     *services.ActivityService
	Categories   []string
	// Readiness reports whether backing stores answer; nil means always ready.
	Readiness func(context.Context) error
}

type Server struct {
	http.Server
	router   *mux.Router
	renderer *renderer
	svc      Services
	guard    *auth.Guard
	limiter  *ratelimit.Limiter
	detector *security.Detector
	metrics  *metrics.Metrics
	logger   *log.Logger

	categories   []string
	cookieSecure bool
	startedAt    time.Time
	now          func() time.Time
	shutdownOnce sync.Once
}

// NewServer wires middleware and routes. Templates are parsed up front so a
// broken template fails startup rather than the first request.
func NewServer(opts Options, svc Services) (*Server, error) {
	if opts.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.TemplatesFS == nil {
		opts.TemplatesFS = appweb.TemplatesFS
	}
	if opts.StaticFS == nil {
		sub, err := fs.Sub(appweb.StaticFS, "static")
		if err != nil {
			return nil, fmt.Errorf("mount static assets: %w", err)
		}
		opts.StaticFS = sub
	}

	rend, err := newRenderer(opts.TemplatesFS)
	if err != nil {
		return nil, err
	}

	m := opts.Metrics
	s := &Server{
		router:   mux.NewRouter(),
		renderer: rend,
		svc:      svc,
		guard:    auth.NewGuard(svc.Sessions),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
			Methods:           []string{http.MethodPost, http.MethodDelete},
		}),
		detector:     security.NewDetector(m.SuspiciousRequests.Inc),
		metrics:      m,
		logger:       opts.Logger.WithComponent(log.ComponentHTTP),
		categories:   svc.Categories,
		cookieSecure: opts.CookieSecure,
		startedAt:    time.Now(),
		now:          time.Now,
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}
	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.routes(opts.StaticFS)
	return s, nil
}

func (s *Server) routes(static fs.FS) {
	r := s.router
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	// Middleware registered with Use runs after route matching, which is
	// what lets trace label metrics with the route template.
	r.Use(
		trace.NewMiddleware(s.logger, s.detector.ExtractClientIP, s.metrics).Middleware,
		headers.Middleware,
		s.detector.Middleware,
		s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited),
		security.NoStore,
		s.sessionMiddleware,
	)
	r.NotFoundHandler = headers.Middleware(http.HandlerFunc(s.handleNotFound))

	r.PathPrefix("/static/").Handler(security.StaticAssetMiddleware(3600)(
		http.StripPrefix("/static/", http.FileServer(http.FS(static)))))

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/register", s.handleRegisterForm).Methods(http.MethodGet)
	r.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/login", s.handleLoginForm).Methods(http.MethodGet)
	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)

	r.HandleFunc("/", s.handleDashboard).Methods(http.MethodGet)

	r.HandleFunc("/transactions/new", s.handleTransactionForm).Methods(http.MethodGet)
	r.HandleFunc("/add_transaction", s.handleTransactionForm).Methods(http.MethodGet)
	r.HandleFunc("/transactions", s.handleCreateTransaction).Methods(http.MethodPost)
	r.HandleFunc("/add_transaction", s.handleCreateTransaction).Methods(http.MethodPost)
	r.HandleFunc("/transactions/{id:[0-9]+}/delete", s.handleDeleteTransaction).Methods(http.MethodPost)
	r.HandleFunc("/transactions/{id:[0-9]+}", s.handleDeleteTransaction).Methods(http.MethodDelete)

	r.HandleFunc("/goals", s.handleGoals).Methods(http.MethodGet)
	r.HandleFunc("/goals", s.handleCreateGoal).Methods(http.MethodPost)
	r.HandleFunc("/goals/{id:[0-9]+}/contribute", s.handleContribute).Methods(http.MethodPost)
	r.HandleFunc("/goals/{id:[0-9]+}/delete", s.handleDeleteGoal).Methods(http.MethodPost)
	r.HandleFunc("/budgets", s.handleSetBudget).Methods(http.MethodPost)
	r.HandleFunc("/budgets/{id:[0-9]+}/delete", s.handleDeleteBudget).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/chart_data", s.handleChartData).Methods(http.MethodGet)
	api.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet)
	api.HandleFunc("/trend", s.handleTrend).Methods(http.MethodGet)
	api.HandleFunc("/activity", s.handleActivity).Methods(http.MethodGet)
}

// Shutdown stops background goroutines and drains connections.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.metrics.RateLimited.Inc()
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldComponent, log.ComponentRateLimit,
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	if isAPIRequest(r) {
		writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}
	http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if isAPIRequest(r) {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}
	http.NotFound(w, r)
}
