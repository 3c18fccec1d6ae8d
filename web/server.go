// ABOUTME: ReasonSketch HTTP server: input page, analysis API, live graph sessions, and headless rendering behind one chi router.
// ABOUTME: Sessions stream frames over websockets; pages and SVG are gzip-compressed; metrics are served for Prometheus.
package web

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"

	"github.com/2389-research/reasonsketch/layout"
	"github.com/2389-research/reasonsketch/reasoning"
	"github.com/2389-research/reasonsketch/render"
)

// Analyzer produces an analysis for free-form reasoning text.
type Analyzer interface {
	Analyze(ctx context.Context, text string, mode reasoning.Mode) (*reasoning.AnalysisResponse, error)
}

// ServerConfig holds the configuration for the web server.
type ServerConfig struct {
	Addr string // listen address (default: "127.0.0.1:2389")

	// Analyzer answers POST /api/analyze. When nil, only stored analyses
	// (POST /api/sessions) can be explored.
	Analyzer       Analyzer
	AnalyzeTimeout time.Duration

	Layout         layout.Config
	MaxSessions    int
	SessionTTL     time.Duration
	RenderCacheTTL time.Duration
	AllowedOrigins []string
	Logger         *zap.Logger
}

func (c *ServerConfig) defaults() {
	if c.Addr == "" {
		c.Addr = "127.0.0.1:2389"
	}
	if c.AnalyzeTimeout <= 0 {
		c.AnalyzeTimeout = 2 * time.Minute
	}
	if c.Layout == (layout.Config{}) {
		c.Layout = layout.DefaultConfig()
	}
	if c.MaxSessions <= 0 {
		c.MaxSessions = 100
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = time.Hour
	}
	if c.RenderCacheTTL <= 0 {
		c.RenderCacheTTL = 10 * time.Minute
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// Server is the ReasonSketch HTTP server.
type Server struct {
	cfg       ServerConfig
	store     *Store
	templates *TemplateEngine
	metrics   *Metrics
	renders   *render.Cache
	router    chi.Router
	logger    *zap.Logger
	upgrader  websocket.Upgrader
}

// NewServer creates a Server with every route configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	cfg.defaults()
	if err := cfg.Layout.Validate(); err != nil {
		return nil, fmt.Errorf("layout config: %w", err)
	}

	tmpl, err := NewTemplateEngine()
	if err != nil {
		return nil, fmt.Errorf("initializing templates: %w", err)
	}

	s := &Server{
		cfg:       cfg,
		store:     NewStore(cfg.MaxSessions, cfg.SessionTTL),
		templates: tmpl,
		metrics:   NewMetrics("reasonsketch"),
		renders:   render.NewCache(nil, cfg.RenderCacheTTL),
		logger:    cfg.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 32 * 1024,
		},
	}
	s.store.onChange = func(n int) { s.metrics.Sessions.Set(float64(n)) }

	router, err := s.buildRouter()
	if err != nil {
		return nil, err
	}
	s.router = router
	return s, nil
}

// ServeHTTP delegates to the chi router, satisfying http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// OpenSession starts a session on a stored analysis, as POST /api/sessions
// does, and returns it.
func (s *Server) OpenSession(resp *reasoning.AnalysisResponse, input string, mode reasoning.Mode) *Session {
	return s.newSession(resp, input, mode)
}

// Store exposes the session store.
func (s *Server) Store() *Store { return s.store }

// Close stops every session's layout.
func (s *Server) Close() {
	s.store.CloseAll()
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
// and closes every session.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	stopCleanup := s.store.StartCleanup(time.Minute)
	defer stopCleanup()
	defer s.Close()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("listening",
		zap.String("component", "web"),
		zap.String("addr", s.cfg.Addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func gzipped(next http.Handler) http.Handler {
	return gzhttp.GzipHandler(next)
}

// buildRouter constructs the chi router with all routes and middleware.
func (s *Server) buildRouter() (chi.Router, error) {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))
	r.Use(s.metrics.Middleware)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	staticFS, err := fs.Sub(StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static assets: %w", err)
	}

	r.Group(func(r chi.Router) {
		r.Use(gzipped)
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
		r.Get("/", s.handleHome)
		r.Get("/sessions/{id}", s.handleSessionPage)
		r.Get("/sessions/{id}/graph.svg", s.handleGraphSVG)
		r.Get("/sessions/{id}/panel", s.handlePanel)
	})

	r.Post("/sessions/{id}/events", s.handleEvents)
	r.Get("/sessions/{id}/selection", s.handleSelection)
	r.Get("/sessions/{id}/ws", s.handleWS)
	r.Delete("/sessions/{id}", s.handleDeleteSession)

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
		r.Get("/providers", s.handleProviders)
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/sessions", s.handleCreateSession)
		r.With(gzipped).Post("/render", s.handleRender)
	})

	return r, nil
}
