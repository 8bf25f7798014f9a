package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/home-hub/home-hub/internal/infrastructure/blob"
	"github.com/home-hub/home-hub/internal/infrastructure/jsonstore"
)

const maxUploadBytes = 50 << 20 // 50 MiB

func (s *Server) uploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "multipart field 'file' is required")
		return
	}
	defer file.Close()

	id, err := s.uploads.Put(header.Filename, file)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"upload_id": id,
		"filename":  header.Filename,
	})
}

func (s *Server) downloadFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uploadId")
	rc, filename, err := s.uploads.Open(id)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "upload not found")
			return
		}
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	_, _ = io.Copy(w, rc)
}

func (s *Server) getArtifact(w http.ResponseWriter, r *http.Request) {
	art, err := s.artifacts.Get(chi.URLParam(r, "artifactId"))
	if err != nil {
		if errors.Is(err, jsonstore.ErrArtifactNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "artifact not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, art)
}
