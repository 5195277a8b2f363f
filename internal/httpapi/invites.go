package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wirechat/wirechat/internal/auth"
	"github.com/wirechat/wirechat/internal/broker"
	"github.com/wirechat/wirechat/internal/events"
	"github.com/wirechat/wirechat/internal/store"
)

// CreateInvite mints an invite link token. Group and channel managers only;
// direct chats never grow.
func (s *Server) CreateInvite(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid chat id")
		return
	}
	userID := auth.UserID(r.Context())
	if !s.requireMember(w, r, chatID, userID) {
		return
	}
	allowed, err := s.Authz.CanInvite(r.Context(), chatID, userID)
	if err != nil {
		storeError(w, r, err)
		return
	}
	if !allowed {
		writeError(w, http.StatusForbidden, "Only owner or admins of a group or channel can create invites")
		return
	}

	inv, err := s.Store.CreateInvite(r.Context(), chatID, userID)
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

// ListInvites returns the chat's active invites, managers only.
func (s *Server) ListInvites(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid chat id")
		return
	}
	userID := auth.UserID(r.Context())
	if !s.requireMember(w, r, chatID, userID) {
		return
	}
	allowed, err := s.Authz.CanInvite(r.Context(), chatID, userID)
	if err != nil {
		storeError(w, r, err)
		return
	}
	if !allowed {
		writeError(w, http.StatusForbidden, "Only owner or admins can list invites")
		return
	}

	invites, err := s.Store.ListInvites(r.Context(), chatID)
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, invites)
}

// RevokeInvite permanently disables an invite token.
func (s *Server) RevokeInvite(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	userID := auth.UserID(r.Context())

	inv, err := s.Store.InviteByToken(r.Context(), token)
	if err != nil {
		storeError(w, r, err)
		return
	}
	allowed, err := s.Authz.CanInvite(r.Context(), inv.ChatID, userID)
	if err != nil {
		storeError(w, r, err)
		return
	}
	if !allowed {
		writeError(w, http.StatusForbidden, "Only owner or admins can revoke invites")
		return
	}

	if err := s.Store.RevokeInvite(r.Context(), token); err != nil {
		storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PreviewInvite shows the chat behind an invite before joining. Revoked
// invites answer 410.
func (s *Server) PreviewInvite(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	preview, err := s.Store.InvitePreviewByToken(r.Context(), token)
	if err != nil {
		storeError(w, r, err)
		return
	}
	if preview.Revoked {
		writeError(w, http.StatusGone, "Invite has been revoked")
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// JoinByInvite adds the caller to the chat behind a live invite.
func (s *Server) JoinByInvite(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	userID := auth.UserID(r.Context())

	inv, err := s.Store.InviteByToken(r.Context(), token)
	if err != nil {
		storeError(w, r, err)
		return
	}
	if inv.RevokedAt != nil {
		writeError(w, http.StatusGone, "Invite has been revoked")
		return
	}

	if err := s.Store.AddMember(r.Context(), inv.ChatID, userID, store.RoleMember); err != nil {
		storeError(w, r, err)
		return
	}

	chat, err := s.Store.ChatByID(r.Context(), inv.ChatID)
	if err != nil {
		storeError(w, r, err)
		return
	}

	username := ""
	if u, err := s.Store.UserByID(r.Context(), userID); err == nil {
		username = u.Username
	}
	title := ""
	if chat.Title != nil {
		title = *chat.Title
	}

	// Existing members see the join; the joiner's own sessions get the chat.
	s.Broker.Publish(r.Context(), broker.ChatChannel(inv.ChatID),
		events.ChatMemberJoined(inv.ChatID, userID, username))
	s.Broker.Publish(r.Context(), broker.UserChannel(userID),
		events.ChatCreated(inv.ChatID, title))

	writeJSON(w, http.StatusOK, s.renderChat(r.Context(), chat))
}
