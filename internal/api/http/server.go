package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	appNotify "github.com/home-hub/home-hub/internal/application/notify"
	appOrchestrator "github.com/home-hub/home-hub/internal/application/orchestrator"
	appSkills "github.com/home-hub/home-hub/internal/application/skills"
	"github.com/home-hub/home-hub/internal/domain/agent"
	"github.com/home-hub/home-hub/internal/domain/skill"
	"github.com/home-hub/home-hub/internal/infrastructure/blob"
	"github.com/home-hub/home-hub/internal/infrastructure/hub"
	"github.com/home-hub/home-hub/internal/infrastructure/jsonstore"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	orchestratorSvc *appOrchestrator.Service
	skillSvc        *appSkills.Service
	notifySvc       *appNotify.Service
	settings        *jsonstore.SettingsStore
	artifacts       *jsonstore.ArtifactStore
	uploads         *blob.Store
	eventHub        *hub.Hub
	logger          zerolog.Logger
}

func NewServer(
	orchestratorSvc *appOrchestrator.Service,
	skillSvc *appSkills.Service,
	notifySvc *appNotify.Service,
	settings *jsonstore.SettingsStore,
	artifacts *jsonstore.ArtifactStore,
	uploads *blob.Store,
	eventHub *hub.Hub,
	logger zerolog.Logger,
) *Server {
	return &Server{
		orchestratorSvc: orchestratorSvc,
		skillSvc:        skillSvc,
		notifySvc:       notifySvc,
		settings:        settings,
		artifacts:       artifacts,
		uploads:         uploads,
		eventHub:        eventHub,
		logger:          logger.With().Str("component", "http").Logger(),
	}
}

// Router builds the HTTP router. The push channel endpoint is mounted
// outside the timeout middleware so long-lived connections survive.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/ws", s.wsEndpoint)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Route("/api", func(r chi.Router) {
			r.Route("/agents", func(r chi.Router) {
				r.Post("/", s.spawnAgent)
				r.Get("/", s.listAgents)
				r.Post("/cleanup", s.cleanupAgents)
				r.Get("/{agentId}", s.getAgent)
				r.Delete("/{agentId}", s.deleteAgent)
				r.Post("/{agentId}/interrupt", s.interruptAgent)
				r.Get("/{agentId}/artifacts", s.listAgentArtifacts)
			})

			r.Route("/skills", func(r chi.Router) {
				r.Get("/", s.listSkills)
				r.Post("/", s.createSkill)
				r.Get("/tags", s.listSkillTags)
				r.Get("/{skillId}", s.getSkill)
				r.Put("/{skillId}", s.updateSkill)
				r.Delete("/{skillId}", s.deleteSkill)
			})

			r.Route("/settings", func(r chi.Router) {
				r.Get("/", s.getSettings)
				r.Post("/", s.updateSettings)
				r.Get("/schema", s.getSettingsSchema)
			})

			r.Post("/upload", s.uploadFile)
			r.Get("/uploads/{uploadId}", s.downloadFile)
			r.Get("/artifacts/{artifactId}", s.getArtifact)
			r.Get("/health", s.health)
		})
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"active_agents": len(activeOnly(s.orchestratorSvc.List())),
		"observers":     s.eventHub.SubscriberCount(),
		"push_breaker":  s.notifySvc.State().String(),
	})
}

func activeOnly(all []*agent.Agent) []*agent.Agent {
	out := make([]*agent.Agent, 0, len(all))
	for _, a := range all {
		if a.IsActive() {
			out = append(out, a)
		}
	}
	return out
}

// Helpers

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

// respondServiceError maps domain sentinel errors onto HTTP statuses.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, agent.ErrValidation):
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
	case errors.Is(err, agent.ErrCapacityExceeded):
		respondError(w, http.StatusTooManyRequests, "CAPACITY_EXCEEDED", err.Error())
	case errors.Is(err, agent.ErrNotFound), errors.Is(err, skill.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, agent.ErrStillRunning):
		respondError(w, http.StatusConflict, "STILL_RUNNING", err.Error())
	case errors.Is(err, agent.ErrNotInterruptible):
		respondError(w, http.StatusConflict, "NOT_INTERRUPTIBLE", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

func parseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	val := chi.URLParam(r, key)
	return uuid.Parse(val)
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
