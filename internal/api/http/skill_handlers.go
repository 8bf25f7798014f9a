package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/home-hub/home-hub/internal/application/skills"
)

func (s *Server) listSkills(w http.ResponseWriter, r *http.Request) {
	tag := r.URL.Query().Get("tag")
	query := r.URL.Query().Get("q")
	out, err := s.skillSvc.List(tag, query)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"skills": out})
}

func (s *Server) listSkillTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.skillSvc.Tags()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if tags == nil {
		tags = []string{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"tags": tags})
}

func (s *Server) getSkill(w http.ResponseWriter, r *http.Request) {
	sk, err := s.skillSvc.Get(chi.URLParam(r, "skillId"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sk)
}

func (s *Server) createSkill(w http.ResponseWriter, r *http.Request) {
	var req skills.CreateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	sk, err := s.skillSvc.Create(req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, sk)
}

func (s *Server) updateSkill(w http.ResponseWriter, r *http.Request) {
	var req skills.CreateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	sk, err := s.skillSvc.Update(chi.URLParam(r, "skillId"), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sk)
}

func (s *Server) deleteSkill(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "skillId")
	if err := s.skillSvc.Delete(id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"skill_id": id, "deleted": true})
}
