package server

import (
	"context"
	"crypto/tls"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/accelerated-industries/warden/internal/auth"
	"github.com/accelerated-industries/warden/internal/board"
	"github.com/accelerated-industries/warden/internal/catalog"
	"github.com/accelerated-industries/warden/internal/config"
	"github.com/accelerated-industries/warden/internal/guard"
	"github.com/accelerated-industries/warden/internal/logging"
)

const (
	component       = "server"
	shutdownTimeout = 20 * time.Second
)

//go:embed views
var views embed.FS

// Searcher looks products up by name
type Searcher interface {
	Search(ctx context.Context, q string) ([]catalog.Product, error)
}

// Deps are the collaborators the handlers use
type Deps struct {
	Auth       *auth.AuthManager
	Sessions   *auth.SessionManager
	ClientKeys *auth.ClientKeyResolver
	Catalog    Searcher
	Board      *board.Board
	Logger     *logging.Logger
}

// Server represents the HTTP server
type Server struct {
	auth       *auth.AuthManager
	sessions   *auth.SessionManager
	clientKeys *auth.ClientKeyResolver
	catalog    Searcher
	board      *board.Board
	logger     *logging.Logger
	renderer   *guard.Renderer
	config     config.ServerConfig
	handler    http.Handler
}

// NewServer creates the server and builds its routes
func NewServer(cfg config.ServerConfig, deps Deps) (*Server, error) {
	fsys, err := fs.Sub(views, "views")
	if err != nil {
		return nil, err
	}
	renderer, err := guard.NewRenderer(fsys)
	if err != nil {
		return nil, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	s := &Server{
		auth:       deps.Auth,
		sessions:   deps.Sessions,
		clientKeys: deps.ClientKeys,
		catalog:    deps.Catalog,
		board:      deps.Board,
		logger:     logger,
		renderer:   renderer,
		config:     cfg,
	}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the fully wrapped router
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(guard.SecureHeaders)
	r.Use(guard.CSRF(s.sessions.CSRFToken, http.HandlerFunc(s.csrfRejected)))

	r.Get("/", s.handleHome)
	r.Get("/login", s.handleLoginForm)
	r.Post("/login", s.handleLogin)
	r.Get("/logout", s.handleLogout)
	r.Get("/search", s.handleSearch)
	r.Get("/comment", s.handleComments)
	r.Post("/comment", s.handleComment)
	r.Get("/echo", s.handleEcho)

	// Diagnostics are never exposed
	r.HandleFunc("/debug", s.notFound)
	r.HandleFunc("/debug/*", s.notFound)

	r.NotFound(s.notFound)
	r.MethodNotAllowed(s.methodNotAllowed)

	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.ListenAddress,
		Handler:           s.handler,
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       60 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}
	if s.config.TLS.Enabled() {
		srv.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(component, "startup", map[string]interface{}{
			"address": srv.Addr,
			"tls":     s.config.TLS.Enabled(),
		})

		var err error
		if s.config.TLS.Enabled() {
			err = srv.ListenAndServeTLS(s.config.TLS.CertFile, s.config.TLS.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server exit: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info(component, "shutdown", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server exit: %w", err)
	}
	return nil
}
