// Package server assembles the HTTP API and the live selection socket.
package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pimkit/pimkit/internal/catalog"
	"github.com/pimkit/pimkit/internal/event"
	"github.com/pimkit/pimkit/internal/render"
	"github.com/pimkit/pimkit/internal/selection"
)

// Config holds server configuration.
type Config struct {
	Addr            string
	DefaultLanguage string
	Service         *catalog.Service
	Sessions        *selection.Manager
	History         *event.History
}

// Server carries handler dependencies.
type Server struct {
	svc      *catalog.Service
	registry *render.Registry
	sessions *selection.Manager
	history  *event.History
	lang     string
}

// New builds a server around a catalogue service.
func New(cfg Config) *Server {
	lang := cfg.DefaultLanguage
	if lang == "" {
		lang = "en"
	}
	sessions := cfg.Sessions
	if sessions == nil {
		sessions = selection.NewManager(2*time.Hour, 30*time.Minute)
	}
	return &Server{
		svc:      cfg.Service,
		registry: render.Builtin(),
		sessions: sessions,
		history:  cfg.History,
		lang:     lang,
	}
}

// Router registers all routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/attribute-types", s.listAttributeTypes)
		r.Get("/events", s.listEvents)

		r.Route("/attributes", func(r chi.Router) {
			r.Get("/", s.listDefinitions)
			r.Post("/", s.saveDefinition)
			r.Post("/lint", s.lintDefinition)
			r.Get("/{code}", s.getDefinition)
			r.Delete("/{code}", s.deleteDefinition)
			r.Post("/{code}/rules", s.editDefinitionRule)
			r.Post("/{code}/validate", s.validateValue)
			r.Post("/{code}/render", s.renderValue)
			r.Post("/{code}/table", s.editTable)
		})

		r.Route("/association-rules", func(r chi.Router) {
			r.Get("/", s.listRules)
			r.Post("/", s.saveRule)
			r.Get("/{code}", s.getRule)
			r.Delete("/{code}", s.deleteRule)
		})

		r.Route("/relationship-types", func(r chi.Router) {
			r.Get("/", s.listRelationshipTypes)
			r.Post("/", s.saveRelationshipType)
			r.Get("/{code}", s.getRelationshipType)
		})

		r.Route("/relationships", func(r chi.Router) {
			r.Get("/", s.listRelationships)
			r.Post("/", s.createRelationships)
			r.Get("/{id}", s.getRelationship)
			r.Delete("/{id}", s.deleteRelationship)
			r.Post("/{id}/status", s.changeRelationshipStatus)
		})

		r.Route("/entities", func(r chi.Router) {
			r.Get("/", s.searchEntities)
			r.Post("/", s.saveEntity)
			r.Get("/{id}", s.getEntity)
			r.Delete("/{id}", s.deleteEntity)
			r.Get("/{id}/associations/{rule}", s.associationMetadata)
		})
	})

	r.Get("/ws/selection", s.serveSelection)

	return r
}

// Run starts the HTTP server and shuts it down when ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	// Expire idle selection sessions in the background.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sessions.Cleanup()
			}
		}
	}()

	log.Printf("listening on %s", addr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
