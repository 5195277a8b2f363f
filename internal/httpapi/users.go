package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wirechat/wirechat/internal/auth"
)

func (s *Server) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid user id")
		return
	}
	u, err := s.Store.UserByID(r.Context(), id)
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.renderUser(r.Context(), u))
}

func (s *Server) GetUserByUsername(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		writeError(w, http.StatusBadRequest, "Username is required")
		return
	}
	u, err := s.Store.UserByUsername(r.Context(), username)
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.renderUser(r.Context(), u))
}

func (s *Server) SearchUsers(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := parseLimit(r.URL.Query().Get("limit"), 20, 50)

	users, err := s.Store.SearchUsers(r.Context(), q, limit)
	if err != nil {
		storeError(w, r, err)
		return
	}
	out := make([]userJSON, 0, len(users))
	for i := range users {
		out = append(out, s.renderUser(r.Context(), &users[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

type updateUserReq struct {
	DisplayName *string `json:"display_name"`
	Bio         *string `json:"bio"`
	Username    *string `json:"username"`
}

// UpdateUser edits a profile. Only the user themselves or a server admin.
func (s *Server) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid user id")
		return
	}
	if id != auth.UserID(r.Context()) && !auth.IsAdmin(r.Context()) {
		writeError(w, http.StatusForbidden, "Cannot edit another user's profile")
		return
	}

	var req updateUserReq
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Username != nil && !usernameRe.MatchString(*req.Username) {
		writeError(w, http.StatusBadRequest, "Username must be 3-32 characters (letters, digits, underscore)")
		return
	}

	u, err := s.Store.UpdateUser(r.Context(), id, req.DisplayName, req.Bio, req.Username)
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.renderUser(r.Context(), u))
}

type setAvatarReq struct {
	FileID int64 `json:"file_id"`
}

// SetMyAvatar points the caller's avatar at a previously uploaded file.
func (s *Server) SetMyAvatar(w http.ResponseWriter, r *http.Request) {
	var req setAvatarReq
	if err := decode(r, &req); err != nil || req.FileID <= 0 {
		writeError(w, http.StatusBadRequest, "file_id is required")
		return
	}
	userID := auth.UserID(r.Context())

	f, err := s.Store.FileByID(r.Context(), req.FileID)
	if err != nil {
		storeError(w, r, err)
		return
	}
	if f.OwnerID != userID {
		writeError(w, http.StatusForbidden, "File belongs to another user")
		return
	}
	if err := s.Store.SetUserAvatar(r.Context(), userID, f.ID); err != nil {
		storeError(w, r, err)
		return
	}

	url, err := s.Objects.PresignGet(r.Context(), f.Bucket, f.ObjectKey, "")
	if err != nil {
		writeError(w, http.StatusBadGateway, "Object storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"avatar_url": url})
}
