package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/cache"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/i18n"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/log"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/metrics"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/middleware/ratelimit"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/middleware/security"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/middleware/trace"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/services"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/session"
	appweb "github.com/Marcelo-Code/asistentePersonalAhorro/web"
)

const (
	readHeaderTimeout = 10 * time.Second
	// strategies can take several retried model calls
	writeTimeout      = 90 * time.Second
	idleTimeout       = 2 * time.Minute
	janitorInterval   = 5 * time.Minute
	staticAssetMaxAge = 3600
)

// Deps are the collaborators of the dashboard.
type Deps struct {
	Sessions   *session.Manager
	Expenses   *services.ExpenseService
	Strategies *services.StrategyService
	Translator *i18n.Translator
	// Metrics is optional; /metrics is only mounted when set.
	Metrics *metrics.Registry
	Logger  *log.Logger

	RateLimitPerMinute int
	// StrategiesEnabled hides the button when no model is configured.
	StrategiesEnabled bool
}

type Server struct {
	http.Server
	templates *template.Template

	sessions   *session.Manager
	expenses   *services.ExpenseService
	strategies *services.StrategyService
	tr         *i18n.Translator
	metrics    *metrics.Registry
	logger     *log.Logger

	detector *security.Detector
	limiter  *ratelimit.Limiter
	janitor  *cache.Manager

	strategiesEnabled bool
	started           time.Time
	now               func() time.Time
	shutdownOnce      sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, d Deps) (*Server, error) {
	if d.Sessions == nil || d.Expenses == nil || d.Strategies == nil {
		return nil, errors.New("sessions, expenses and strategies are required")
	}
	if d.Translator == nil {
		d.Translator = i18n.MustNew()
	}
	if d.Logger == nil {
		d.Logger = log.Discard()
	}
	logger := d.Logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: readHeaderTimeout,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       idleTimeout,
		},
		sessions:          d.Sessions,
		expenses:          d.Expenses,
		strategies:        d.Strategies,
		tr:                d.Translator,
		metrics:           d.Metrics,
		logger:            logger,
		detector:          security.NewDetector(d.Logger),
		limiter:           ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: d.RateLimitPerMinute}),
		strategiesEnabled: d.StrategiesEnabled,
		started:           time.Now(),
		now:               time.Now,
	}

	t, err := template.New("").Funcs(s.funcs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	s.templates = t

	s.janitor = cache.NewManager(func(removed int) {
		s.logger.Debug("Idle rate limit clients dropped", log.FieldRecords, removed)
	})
	s.janitor.Register(s.limiter)
	s.janitor.StartCleanup(janitorInterval)

	router, err := s.routes()
	if err != nil {
		return nil, err
	}
	s.Handler = router
	return s, nil
}

func (s *Server) routes() (*mux.Router, error) {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError(s.tr.T(s.requestLanguage(r), "err_not_found")).Write(w)
	})

	tracer := trace.NewMiddleware(s.logger, s.detector.ExtractClientIP, s.observe)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	r.Use(tracer.Middleware, headers.Middleware, s.detector.Middleware)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	r.PathPrefix("/static/").Handler(security.StaticAssetMiddleware(staticAssetMaxAge)(static)).Methods(http.MethodGet)

	app := r.NewRoute().Subrouter()
	app.Use(s.limiter.Middleware(s.detector.ExtractClientIP, s.rateLimited), s.withSession)

	app.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	app.HandleFunc("/language", s.handleLanguage).Methods(http.MethodPost)
	app.HandleFunc("/profile", s.handleProfile).Methods(http.MethodPost)
	app.HandleFunc("/expenses", s.handleCreateExpense).Methods(http.MethodPost)
	app.HandleFunc("/ui/expenses", s.handleExpensesFor).Methods(http.MethodGet)
	app.HandleFunc("/ui/strategies", s.handleStrategies).Methods(http.MethodGet)
	app.HandleFunc("/api/charts/pareto", s.handleParetoChart).Methods(http.MethodGet)
	app.HandleFunc("/api/charts/categories", s.handleCategoryChart).Methods(http.MethodGet)

	return r, nil
}

// observe feeds the HTTP request counter, labelled by route template.
func (s *Server) observe(r *http.Request, code int, _ time.Duration) {
	if s.metrics == nil {
		return
	}
	route := "unmatched"
	if cur := mux.CurrentRoute(r); cur != nil {
		if tpl, err := cur.GetPathTemplate(); err == nil {
			route = tpl
		}
	}
	s.metrics.ObserveHTTP(route, r.Method, code)
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, s.tr.T(s.requestLanguage(r), "err_rate_limited")).Write(w)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.janitor.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
