package adapthttp

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"foodtracker/internal/app"
	"foodtracker/internal/domain"
	"foodtracker/internal/metrics"
)

//go:embed templates/*.html assets/*
var embedded embed.FS

// OIDCConfig holds the single sign-on client. Enabled is false when SSO is
// not configured.
type OIDCConfig struct {
	Enabled      bool
	OAuth2Config *oauth2.Config
	Provider     *oidc.Provider
}

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	catalog *app.CatalogService
	search  *app.SearchService
	totals  *app.TotalsService
	authSvc *app.AuthService

	staticDir     string
	oidcConfig    OIDCConfig
	log           *zap.Logger
	metrics       *metrics.Metrics
	metricsPath   string
	healthCheck   func(ctx context.Context) error
	sessionTTL    time.Duration
	secureCookies bool
	maxUpload     int64
	disableAuth   bool

	pages *template.Template
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.log = l.Named("http") }
}

// WithMetrics records request metrics and serves them on path.
func WithMetrics(m *metrics.Metrics, path string) Option {
	return func(s *Server) {
		s.metrics = m
		if path != "" {
			s.metricsPath = path
		}
	}
}

// WithOIDC enables the SSO endpoints.
func WithOIDC(cfg OIDCConfig) Option {
	return func(s *Server) { s.oidcConfig = cfg }
}

// WithHealthCheck makes /api/health report the result of check.
func WithHealthCheck(check func(ctx context.Context) error) Option {
	return func(s *Server) { s.healthCheck = check }
}

// WithSessionTTL sets the session cookie lifetime.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Server) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithSecureCookies marks every cookie Secure.
func WithSecureCookies(secure bool) Option {
	return func(s *Server) { s.secureCookies = secure }
}

// WithMaxUploadBytes caps the add-product request body.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// New creates a Server wired to the given application services.
func New(catalog *app.CatalogService, search *app.SearchService, totals *app.TotalsService, authSvc *app.AuthService, staticDir string, opts ...Option) *Server {
	s := &Server{
		catalog:     catalog,
		search:      search,
		totals:      totals,
		authSvc:     authSvc,
		staticDir:   staticDir,
		log:         zap.NewNop(),
		metricsPath: "/metrics",
		sessionTTL:  app.DefaultSessionTTL,
		maxUpload:   10 << 20,
		pages:       parsePages(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithoutAuth disables authentication (for testing).
func (s *Server) WithoutAuth() *Server {
	s.disableAuth = true
	return s
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Public API.
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/config", s.handleConfig)
	mux.HandleFunc("POST /api/login", s.handleAPILogin)
	mux.HandleFunc("POST /api/logout", s.handleAPILogout)
	mux.HandleFunc("POST /api/setup", s.handleSetupUser)
	mux.HandleFunc("GET /api/auth/sso/login", s.handleSSOLogin)
	mux.HandleFunc("GET /api/auth/sso/callback", s.handleSSOCallback)

	// Protected API.
	mux.Handle("GET /api/products", s.authMiddleware(http.HandlerFunc(s.handleListProducts)))
	mux.Handle("GET /api/products/{id}", s.authMiddleware(http.HandlerFunc(s.handleGetProduct)))
	mux.Handle("DELETE /api/products/{id}", s.authMiddleware(http.HandlerFunc(s.handleDeleteProductAPI)))
	mux.Handle("GET /api/search", s.authMiddleware(http.HandlerFunc(s.handleSearchAPI)))
	mux.Handle("GET /api/totals", s.authMiddleware(http.HandlerFunc(s.handleTotals)))

	// Pages.
	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLoginForm)
	mux.HandleFunc("GET /logout", s.handleLogoutPage)
	mux.Handle("GET /{$}", s.pageAuth(http.HandlerFunc(s.handleIndex)))
	mux.Handle("POST /search", s.pageAuth(http.HandlerFunc(s.handleSearchForm)))
	mux.Handle("POST /add_product", s.pageAuth(http.HandlerFunc(s.handleAddProduct)))
	mux.Handle("POST /delete_product/{id}", s.pageAuth(http.HandlerFunc(s.handleDeleteProduct)))

	mux.Handle("GET /static/", http.StripPrefix("/static/", s.staticFiles()))

	if s.metrics != nil {
		mux.Handle("GET "+s.metricsPath, s.metrics.Handler())
	}

	return withNoCache(s.loggingMiddleware(s.metricsMiddleware(mux)))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.healthCheck != nil {
		if err := s.healthCheck(r.Context()); err != nil {
			s.requestLog(r).Error("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// userFromContext returns the authenticated user, or nil when auth is
// disabled.
func userFromContext(ctx context.Context) *domain.User {
	u, _ := ctx.Value(userContextKey).(*domain.User)
	return u
}
