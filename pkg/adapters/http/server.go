// Package http exposes the wizard over a JSON API described by the embedded
// OpenAPI document, with server-sent events for session updates.
package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/fixpath/internal/logging"
	"github.com/aretw0/fixpath/pkg/adapters/edge"
	"github.com/aretw0/fixpath/pkg/observability"
	"github.com/aretw0/fixpath/pkg/ports"
	"github.com/aretw0/fixpath/pkg/session"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
)

// Server implements the HTTP surface of the portal.
type Server struct {
	manager        *session.Manager
	tickets        ports.TicketService
	metrics        *observability.Metrics
	streams        *StreamManager
	spec           *openapi3.T
	logger         *slog.Logger
	version        string
	minDescription int
}

// Option configures a Server.
type Option func(*Server)

// WithTickets enables the submit and media routes and mounts the ticket
// backend under /tickets.
func WithTickets(svc ports.TicketService) Option {
	return func(s *Server) {
		s.tickets = svc
	}
}

// WithMetrics serves m at /metrics and counts searches.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithStreams sets the stream manager backing /events. It should also be
// registered as a session observer so diffs reach the subscribers.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.streams = sm
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithVersion sets the build version reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithMinDescription overrides the description length enforced on submit.
func WithMinDescription(n int) Option {
	return func(s *Server) {
		s.minDescription = n
	}
}

// NewServer creates a server for the sessions of manager.
func NewServer(manager *session.Manager, opts ...Option) (*Server, error) {
	if manager == nil {
		return nil, fmt.Errorf("http: session manager is required")
	}
	spec, err := LoadSpec()
	if err != nil {
		return nil, err
	}
	s := &Server{
		manager: manager,
		spec:    spec,
		logger:  logging.NewNop(),
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.streams == nil {
		s.streams = NewStreamManager(s.logger)
	}
	return s, nil
}

// Streams returns the stream manager backing /events.
func (s *Server) Streams() *StreamManager {
	return s.streams
}

// Handler builds the router.
func (s *Server) Handler() (http.Handler, error) {
	validate, err := validateRequests(s.spec)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(enableCORS)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(Spec())
	})
	r.Get("/docs", s.handleDocs)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(validate)

		r.Get("/health", s.handleHealth)
		r.Get("/info", s.handleInfo)
		r.Get("/tree", s.handleTree)
		r.Get("/search", s.handleSearch)
		r.Get("/events", s.handleEvents)

		r.Post("/sessions", s.handleStart)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/select", s.handleSelect)
			r.Post("/navigate", s.handleNavigate)
			r.Post("/video", s.handleVideo)
			r.Post("/back", s.handleBack)
			r.Delete("/notices/{notice}", s.handleDismissNotice)
			r.Post("/submit", s.handleSubmit)
			r.Post("/media", s.handleMedia)
		})

		if s.tickets != nil {
			edge.NewHandler(s.tickets, s.logger).Mount(r)
		}
	})

	return r, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	tree := s.manager.Engine().Tree()
	writeJSON(w, http.StatusOK, map[string]any{
		"app":          "fixpath",
		"version":      s.version,
		"api_version":  s.spec.Info.Version,
		"tree_id":      tree.ID,
		"tree_version": tree.Version,
		"nodes":        tree.Len(),
	})
}

func (s *Server) handleTree(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.Engine().Tree())
}

func (s *Server) handleDocs(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = w.Write([]byte(docsHTML))
}

const docsHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Fixpath API Documentation</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
<script>
  window.onload = () => {
    window.ui = SwaggerUIBundle({ url: '/openapi.yaml', dom_id: '#swagger-ui' });
  };
</script>
</body>
</html>`

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept-Language")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
