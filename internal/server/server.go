package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nippo-signage/go/internal/config"
	"github.com/nippo-signage/go/internal/logger"
	"github.com/nippo-signage/go/internal/signage"
)

// Server is the signage HTTP server. It renders uploaded daily reports and
// picks up configuration edits without a restart.
type Server struct {
	httpServer *http.Server
	configMgr  *config.Manager
	logger     *slog.Logger
	now        func() time.Time

	// current holds the active configuration and the composer built from it.
	current atomic.Pointer[runtimeState]

	mu      sync.RWMutex
	running bool
}

type runtimeState struct {
	cfg      *config.Config
	composer *signage.Composer
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: server.host from settings)
	Host string
	// Port is the port to listen on (default: server.port from settings)
	Port int
	// ConfigManager, when set, supplies settings and swaps the composer on edits.
	ConfigManager *config.Manager
	// Settings is used when no ConfigManager is given (default: config.DefaultConfig)
	Settings *config.Config
	// Logger defaults to the "server" module logger.
	Logger *slog.Logger
	// Now supplies the date for "today" labels (default: time.Now)
	Now func() time.Time
}

// Endpoint is one HTTP route.
type Endpoint interface {
	Route() (method, path string, handler http.HandlerFunc)
}

// New builds the composer for the initial settings and routes the endpoints.
// It fails only when the composer cannot be built.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger("server")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	settings := cfg.Settings
	if cfg.ConfigManager != nil {
		settings = cfg.ConfigManager.Get()
	}
	if settings == nil {
		settings = config.DefaultConfig()
	}
	if cfg.Host == "" {
		cfg.Host = settings.Server.Host
	}
	if cfg.Port == 0 {
		cfg.Port = settings.Server.Port
	}

	s := &Server{
		configMgr: cfg.ConfigManager,
		logger:    cfg.Logger,
		now:       cfg.Now,
	}
	if err := s.apply(settings); err != nil {
		return nil, err
	}

	if cfg.ConfigManager != nil {
		cfg.ConfigManager.OnChange(func(c *config.Config) {
			if err := s.apply(c); err != nil {
				s.logger.Error("config change rejected", "error", err)
				return
			}
			s.logger.Info("composer reloaded from config")
		})
	}

	mux := http.NewServeMux()
	for _, ep := range s.endpoints() {
		method, path, handler := ep.Route()
		mux.HandleFunc(method+" "+path, handler)
	}

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:      s.withLogging(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

func (s *Server) endpoints() []Endpoint {
	return []Endpoint{
		&HealthEndpoint{},
		&RowsEndpoint{s: s},
		&RenderEndpoint{s: s},
	}
}

// apply builds a composer for c and makes both active.
func (s *Server) apply(c *config.Config) error {
	composer, err := c.NewComposer()
	if err != nil {
		return fmt.Errorf("failed to build composer: %w", err)
	}
	for _, m := range composer.Assets.Missing {
		s.logger.Warn("rendering with fallback asset", "asset", m.Asset, "path", m.Path)
	}
	s.current.Store(&runtimeState{cfg: c, composer: composer})
	return nil
}

func (s *Server) state() *runtimeState { return s.current.Load() }

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start serves until ctx is cancelled or the listener fails. A cancelled
// context is a clean stop and returns nil.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if s.configMgr != nil {
		s.configMgr.WatchConfig()
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			s.setNotRunning()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown drains in-flight renders for up to 30 seconds.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withLogging logs one line per request.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}
