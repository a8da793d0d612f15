package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/journalkit/mnemo/internal/engine"
	"github.com/journalkit/mnemo/internal/store"
)

// Server is the mnemo HTTP API server.
type Server struct {
	db      *store.DB
	engine  *engine.Engine
	log     *log.Logger
	router  chi.Router
	version string
	started time.Time
}

// New creates a new Server around the given engine. A nil logger discards
// output.
func New(eng *engine.Engine, logger *log.Logger, version string) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Server{
		db:      eng.DB(),
		engine:  eng,
		log:     logger,
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/owners/{ownerID}", func(r chi.Router) {
			r.Post("/memories/extract", s.handleExtract)
			r.Get("/memories", s.handleListMemories)
			r.Get("/memories/relevant", s.handleRelevant)
			r.Get("/memories/insights", s.handleInsights)
			r.Post("/memories/format", s.handleFormat)
			r.Post("/memories/correct", s.handleCorrect)
			r.Post("/memories/{memoryID}/deactivate", s.handleDeactivate)
			r.Post("/memories/{memoryID}/sensitive", s.handleSensitive)

			r.Post("/sessions/process", s.handleProcessSession)

			r.Post("/snapshots", s.handleCreateSnapshot)
			r.Get("/snapshots", s.handleListSnapshots)
			r.Get("/stats", s.handleStats)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.db.Path,
	})
}
