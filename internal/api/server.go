// Package api is the HTTP surface: the storage and enhancement
// collaborator endpoints and hosted editing sessions.
package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/inkwell/internal/blobstore"
	"github.com/dgallion1/inkwell/internal/config"
	"github.com/dgallion1/inkwell/internal/enhance"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for inkwell.
type Server struct {
	router   chi.Router
	enhancer *enhance.Service
	store    blobstore.Store
	sessions *registry
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server. enhancer may be nil,
// in which case enhancement endpoints answer 503.
func NewServer(enhancer *enhance.Service, store blobstore.Store, log *slog.Logger, cfg config.Config) *Server {
	if store == nil {
		store = blobstore.Placeholder{}
	}
	s := &Server{
		enhancer: enhancer,
		store:    store,
		sessions: newRegistry(cfg.SessionTTL, log),
		log:      log,
		cfg:      cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close ends every hosted session.
func (s *Server) Close() {
	s.sessions.closeAll()
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	if local, ok := s.store.(*blobstore.LocalStore); ok {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(local.Dir()))))
	}

	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/upload", s.handleUpload)
		r.Post("/api/ai", s.handleEnhance)
		r.Get("/api/stats/llm", s.handleLLMStats)

		r.Route("/api/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Post("/import", s.handleImportSession)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDeleteSession)
				r.Get("/document", s.handleGetDocument)
				r.Post("/commands", s.handleCommand)
				r.Post("/selection", s.handleSelection)
				r.Post("/link", s.handleLink)
				r.Post("/image", s.handleSessionImage)
				r.Post("/enhance", s.handleSessionEnhance)
			})
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
