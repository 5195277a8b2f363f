package httpapi

import (
	"net/http"
	"regexp"

	"github.com/wirechat/wirechat/internal/auth"
)

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)

type registerReq struct {
	Username    string  `json:"username"`
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	DisplayName *string `json:"display_name"`
}

// Register creates an account. 409 on username collision.
func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if !usernameRe.MatchString(req.Username) {
		writeError(w, http.StatusBadRequest, "Username must be 3-32 characters (letters, digits, underscore)")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	u, err := s.Store.CreateUser(r.Context(), req.Username, req.Email, hash, req.DisplayName)
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": u.ID, "username": u.Username})
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login verifies credentials and returns a token pair. Bad username and bad
// password are indistinguishable on purpose.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := decode(r, &req); err != nil || req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	creds, err := s.Store.CredentialsByUsername(r.Context(), req.Username)
	if err != nil {
		// Burn a comparison anyway so missing users cost the same as wrong
		// passwords.
		auth.CheckPassword("$2a$10$invalidinvalidinvalidinvalidinvalidinvalid", req.Password)
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if !auth.CheckPassword(creds.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if creds.IsBlocked {
		writeError(w, http.StatusForbidden, "Account is blocked")
		return
	}
	if !creds.IsActive {
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	pair, err := s.Auth.IssuePair(creds.UserID, creds.IsAdmin)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges a refresh token for a fresh pair.
func (s *Server) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshReq
	if err := decode(r, &req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	claims, err := s.Auth.VerifyRefresh(req.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}

	pair, err := s.Auth.IssuePair(claims.UserID, claims.IsAdmin)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// Me returns the caller's profile.
func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	u, err := s.Store.UserByID(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.renderUser(r.Context(), u))
}
