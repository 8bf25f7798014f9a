package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/home-hub/home-hub/internal/application/orchestrator"
	"github.com/home-hub/home-hub/internal/domain/agent"
	"github.com/home-hub/home-hub/internal/infrastructure/jsonstore"
)

type spawnAgentRequest struct {
	AgentType string          `json:"agent_type"`
	Goal      string          `json:"goal"`
	Context   json.RawMessage `json:"context,omitempty"`
	Workspace string          `json:"workspace,omitempty"`
	SkillIDs  []string        `json:"skill_ids,omitempty"`
}

func (s *Server) spawnAgent(w http.ResponseWriter, r *http.Request) {
	var req spawnAgentRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}

	id, err := s.orchestratorSvc.Spawn(orchestrator.SpawnRequest{
		AgentType: req.AgentType,
		Goal:      req.Goal,
		Context:   req.Context,
		Workspace: req.Workspace,
		SkillIDs:  req.SkillIDs,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	rec, err := s.orchestratorSvc.Status(id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, rec)
}

func (s *Server) listAgents(w http.ResponseWriter, r *http.Request) {
	all := s.orchestratorSvc.List()
	if st := r.URL.Query().Get("status"); st != "" {
		filtered := make([]*agent.Agent, 0, len(all))
		for _, a := range all {
			if string(a.Status) == st {
				filtered = append(filtered, a)
			}
		}
		all = filtered
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"agents": all, "count": len(all)})
}

func (s *Server) getAgent(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "agentId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid agentId")
		return
	}
	rec, err := s.orchestratorSvc.Status(id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) deleteAgent(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "agentId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid agentId")
		return
	}
	if err := s.orchestratorSvc.Delete(id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"agent_id": id, "deleted": true})
}

func (s *Server) interruptAgent(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "agentId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid agentId")
		return
	}
	if err := s.orchestratorSvc.Interrupt(id); err != nil {
		respondServiceError(w, err)
		return
	}
	rec, err := s.orchestratorSvc.Status(id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) listAgentArtifacts(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "agentId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid agentId")
		return
	}
	refs, err := s.orchestratorSvc.Artifacts(id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	artifacts := make([]*jsonstore.Artifact, 0, len(refs))
	for _, ref := range refs {
		art, err := s.artifacts.Get(ref)
		if err != nil {
			s.logger.Warn().Err(err).Str("artifact_id", ref).Msg("artifact listed but unreadable")
			continue
		}
		artifacts = append(artifacts, art)
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"agent_id": id, "artifacts": artifacts})
}

func (s *Server) cleanupAgents(w http.ResponseWriter, r *http.Request) {
	removed := s.orchestratorSvc.Cleanup()
	respondJSON(w, http.StatusOK, map[string]interface{}{"removed": removed})
}
