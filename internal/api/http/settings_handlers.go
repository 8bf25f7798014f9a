package httpapi

import (
	"net/http"
	"strings"

	"github.com/home-hub/home-hub/internal/infrastructure/jsonstore"
)

// Keys whose values never leave the server in clear text.
var secretKeyMarkers = []string{"key", "token", "secret", "password"}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	doc, err := s.settings.Load()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, maskSecrets(doc))
}

func (s *Server) updateSettings(w http.ResponseWriter, r *http.Request) {
	var partial map[string]interface{}
	if err := decodeBody(r, &partial); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	doc, err := s.settings.Update(partial)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, maskSecrets(doc))
}

// getSettingsSchema returns the default document shape so clients can
// render an editor without hardcoding the key layout.
func (s *Server) getSettingsSchema(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"defaults":       jsonstore.DefaultSettings(),
		"secret_markers": secretKeyMarkers,
	})
}

func isSecretKey(key string) bool {
	lower := strings.ToLower(key)
	for _, marker := range secretKeyMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// maskSecrets replaces secret-looking leaf values with a placeholder.
// The input is not modified.
func maskSecrets(doc map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for key, val := range doc {
		switch v := val.(type) {
		case map[string]interface{}:
			out[key] = maskSecrets(v)
		case string:
			if isSecretKey(key) && v != "" {
				out[key] = "********"
			} else {
				out[key] = v
			}
		default:
			out[key] = val
		}
	}
	return out
}
