// Package webui provides a read-only HTTP API over the skill registry:
// the catalog index, per-skill score and token reports, and SVG badges.
package webui

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/jingkaihe/skillreg/pkg/badges"
	"github.com/jingkaihe/skillreg/pkg/index"
	"github.com/jingkaihe/skillreg/pkg/logger"
	"github.com/jingkaihe/skillreg/pkg/presenter"
	"github.com/pkg/errors"
)

// Server represents the registry API server
type Server struct {
	router   *mux.Router
	registry Registry
	config   *ServerConfig
	server   *http.Server
}

// ServerConfig holds the configuration for the web server
type ServerConfig struct {
	Host string
	Port int
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Host == "" {
		return errors.New("host cannot be empty")
	}

	if c.Port < 1 || c.Port > 65535 {
		return errors.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	return nil
}

// NewServer creates a new registry API server
func NewServer(config *ServerConfig, registry Registry) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid server configuration")
	}
	if registry == nil {
		return nil, errors.New("registry is required")
	}

	s := &Server{
		router:   mux.NewRouter(),
		registry: registry,
		config:   config,
	}
	s.setupRoutes()

	return s, nil
}

// Handler returns the routed handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all the HTTP routes
func (s *Server) setupRoutes() {
	// Routes live on the root router so a wrong method yields 405, a
	// PathPrefix subrouter reports it as 404.
	s.router.HandleFunc("/api/skills", s.handleListSkills).Methods("GET")
	s.router.HandleFunc("/api/skills/{name}", s.handleGetSkillScore).Methods("GET")
	s.router.HandleFunc("/api/skills/{name}/tokens", s.handleGetSkillTokens).Methods("GET")

	s.router.HandleFunc("/badges/{name}.svg", s.handleBadge).Methods("GET")
	s.router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")

	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.corsMiddleware)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: 200}
		next.ServeHTTP(rw, r)

		logger.G(r.Context()).WithFields(map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration":    time.Since(start),
			"remote_addr": r.RemoteAddr,
		}).Info("HTTP request")
	})
}

// corsMiddleware allows read-only cross origin access
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// handleListSkills handles GET /api/skills. The optional category and badge
// query parameters filter the index.
func (s *Server) handleListSkills(w http.ResponseWriter, r *http.Request) {
	idx, err := s.registry.List(r.Context())
	if err != nil {
		s.writeErrorResponse(r.Context(), w, http.StatusInternalServerError, "failed to list skills", err)
		return
	}

	query := r.URL.Query()
	category, badge := query.Get("category"), query.Get("badge")
	if category != "" || badge != "" {
		filtered := make([]index.Entry, 0, len(idx.Skills))
		for _, e := range idx.Skills {
			if category != "" && e.Category != category && !strings.HasPrefix(e.Category, category+"/") {
				continue
			}
			if badge != "" && !strings.EqualFold(string(e.Badge), badge) {
				continue
			}
			filtered = append(filtered, e)
		}
		idx.Skills = filtered
		idx.Count = len(filtered)
	}

	s.writeJSONResponse(r.Context(), w, idx)
}

// handleGetSkillScore handles GET /api/skills/{name}
func (s *Server) handleGetSkillScore(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	report, err := s.registry.Score(r.Context(), name)
	if err != nil {
		s.writeLookupError(r.Context(), w, name, err)
		return
	}
	s.writeJSONResponse(r.Context(), w, report)
}

// handleGetSkillTokens handles GET /api/skills/{name}/tokens
func (s *Server) handleGetSkillTokens(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	report, err := s.registry.Tokens(r.Context(), name)
	if err != nil {
		s.writeLookupError(r.Context(), w, name, err)
		return
	}
	s.writeJSONResponse(r.Context(), w, report)
}

// handleBadge handles GET /badges/{name}.svg
func (s *Server) handleBadge(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	report, err := s.registry.Score(r.Context(), name)
	if err != nil {
		s.writeLookupError(r.Context(), w, name, err)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(badges.ForReport(report))
}

func (s *Server) writeLookupError(ctx context.Context, w http.ResponseWriter, name string, err error) {
	if errors.Is(err, ErrSkillNotFound) {
		s.writeErrorResponse(ctx, w, http.StatusNotFound, fmt.Sprintf("skill '%s' not found", name), nil)
		return
	}
	s.writeErrorResponse(ctx, w, http.StatusInternalServerError, "failed to score skill", err)
}

// writeJSONResponse writes a JSON response
func (s *Server) writeJSONResponse(ctx context.Context, w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.G(ctx).WithError(err).Error("failed to encode JSON response")
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// writeErrorResponse writes an error response
func (s *Server) writeErrorResponse(ctx context.Context, w http.ResponseWriter, statusCode int, message string, err error) {
	if err != nil {
		logger.G(ctx).WithError(err).Error(message)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := map[string]any{
		"error":   message,
		"status":  statusCode,
		"success": false,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.G(ctx).WithError(err).Error("failed to encode error response")
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:              address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	presenter.Info(fmt.Sprintf("Starting registry API on http://%s", address))

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.G(ctx).WithError(err).Error("Web server error")
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// Close stops the web server immediately
func (s *Server) Close() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}
