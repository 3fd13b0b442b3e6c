// Package server provides the openskills HTTP API. It serves the skill
// catalog, the files and archive of each skill directory, and prompt-based
// skill recommendations.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gobwas/glob"
	"github.com/gorilla/mux"
	"github.com/openskills/openskills/pkg/catalog"
	"github.com/openskills/openskills/pkg/logger"
	"github.com/openskills/openskills/pkg/presenter"
	"github.com/openskills/openskills/pkg/recommend"
	"github.com/openskills/openskills/pkg/skillfs"
	"github.com/pkg/errors"
)

// SkillFiles reads skill directories.
type SkillFiles interface {
	ListFiles(ctx context.Context, id string) ([]skillfs.FileEntry, error)
	BuildArchive(ctx context.Context, id string) ([]byte, error)
}

// Recommender picks the skill best matching a prompt.
type Recommender interface {
	Recommend(ctx context.Context, prompt string) (*recommend.Recommendation, error)
}

// Server represents the HTTP API server
type Server struct {
	router      *mux.Router
	handler     http.Handler
	config      *ServerConfig
	server      *http.Server
	catalog     catalog.Repository
	files       SkillFiles
	recommender Recommender
	origins     []glob.Glob
	anyOrigin   bool
}

// ServerConfig holds the configuration for the HTTP server
type ServerConfig struct {
	Host string
	Port int
	// CORSOrigins are glob patterns matched against the Origin header.
	CORSOrigins []string
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Host == "" {
		return errors.New("host cannot be empty")
	}

	if c.Port < 1 || c.Port > 65535 {
		return errors.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	for _, pattern := range c.CORSOrigins {
		if _, err := glob.Compile(pattern); err != nil {
			return errors.Wrapf(err, "invalid CORS origin pattern %q", pattern)
		}
	}

	return nil
}

// Address returns the host:port the server listens on.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NewServer creates a new HTTP API server
func NewServer(config *ServerConfig, repo catalog.Repository, files SkillFiles, recommender Recommender) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid server configuration")
	}

	s := &Server{
		router:      mux.NewRouter(),
		config:      config,
		catalog:     repo,
		files:       files,
		recommender: recommender,
	}

	for _, pattern := range config.CORSOrigins {
		if pattern == "*" {
			s.anyOrigin = true
			continue
		}
		s.origins = append(s.origins, glob.MustCompile(pattern))
	}

	s.setupRoutes()

	return s, nil
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/skills", s.handleListSkills).Methods(http.MethodGet)
	api.HandleFunc("/skills/facets", s.handleFacets).Methods(http.MethodGet)
	api.HandleFunc("/skills/{id}", s.handleGetSkill).Methods(http.MethodGet)
	api.HandleFunc("/skills/{id}/files", s.handleListFiles).Methods(http.MethodGet)
	api.HandleFunc("/skills/{id}/tree", s.handleFileTree).Methods(http.MethodGet)
	api.HandleFunc("/download/{id}", s.handleDownload).Methods(http.MethodGet)
	api.HandleFunc("/recommend-skill", s.handleRecommend).Methods(http.MethodPost)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.tracingMiddleware)

	// CORS wraps the router so preflight requests are answered before
	// method matching rejects them.
	s.handler = s.corsMiddleware(s.router)
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	address := s.config.Address()

	s.server = &http.Server{
		Addr:              address,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return logger.WithLogger(context.Background(), logger.G(ctx))
		},
	}

	presenter.Info(fmt.Sprintf("Starting openskills server on http://%s", address))

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok {
			return errors.Wrap(err, "server failed")
		}
		return nil
	}

	logger.G(ctx).Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// Stop closes the listener immediately.
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

// Close closes the server and releases resources
func (s *Server) Close() error {
	return s.Stop()
}
