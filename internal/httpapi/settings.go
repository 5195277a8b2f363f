package httpapi

import (
	"net/http"

	"github.com/wirechat/wirechat/internal/auth"
	"github.com/wirechat/wirechat/internal/store"
)

func (s *Server) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.Store.Settings(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// UpdateSettings replaces the caller's settings wholesale.
func (s *Server) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req store.Settings
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	switch req.LastSeenVisibility {
	case store.VisibilityEveryone, store.VisibilityApproxOnly, store.VisibilityNobody:
	default:
		writeError(w, http.StatusBadRequest, "last_seen_visibility must be everyone, approx_only or nobody")
		return
	}
	if req.Theme == "" {
		req.Theme = "light"
	}
	if req.Language == "" {
		req.Language = "en"
	}

	settings, err := s.Store.UpdateSettings(r.Context(), auth.UserID(r.Context()), req)
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
