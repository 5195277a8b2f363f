package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/wirechat/wirechat/internal/auth"
	"github.com/wirechat/wirechat/internal/broker"
	"github.com/wirechat/wirechat/internal/events"
	"github.com/wirechat/wirechat/internal/store"
)

type createChatReq struct {
	Type        store.ChatType `json:"type"`
	Name        *string        `json:"name"`
	Title       *string        `json:"title"`
	Description *string        `json:"description"`
	PublicName  *string        `json:"public_name"`
	MemberIDs   []int64        `json:"member_ids"`
}

// CreateChat creates a direct, group or channel chat. Direct chats are
// deduplicated: a second POST for the same pair returns the existing chat
// with 200.
func (s *Server) CreateChat(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req createChatReq
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	switch req.Type {
	case store.ChatDirect:
		if len(req.MemberIDs) != 1 {
			writeError(w, http.StatusBadRequest, "Direct chat needs exactly one member id")
			return
		}
		if existing, err := s.Store.FindDirectChat(r.Context(), userID, req.MemberIDs[0]); err == nil {
			writeJSON(w, http.StatusOK, s.renderChat(r.Context(), existing))
			return
		} else if !errors.Is(err, store.ErrNotFound) {
			storeError(w, r, err)
			return
		}
	case store.ChatGroup, store.ChatChannel:
	default:
		writeError(w, http.StatusBadRequest, "type must be direct, group or channel")
		return
	}

	chat, err := s.Store.CreateChat(r.Context(), store.CreateChatParams{
		Type:        req.Type,
		Name:        req.Name,
		Title:       req.Title,
		Description: req.Description,
		PublicName:  req.PublicName,
		OwnerID:     userID,
		MemberIDs:   req.MemberIDs,
	})
	if err != nil {
		storeError(w, r, err)
		return
	}

	// Let the other members' live sessions pick up the new chat.
	title := ""
	if chat.Title != nil {
		title = *chat.Title
	}
	for _, uid := range req.MemberIDs {
		if uid != userID {
			s.Broker.Publish(r.Context(), broker.UserChannel(uid), events.ChatCreated(chat.ID, title))
		}
	}

	writeJSON(w, http.StatusCreated, s.renderChat(r.Context(), chat))
}

// ListChats returns the caller's sidebar.
func (s *Server) ListChats(w http.ResponseWriter, r *http.Request) {
	rows, err := s.Store.ListChats(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.renderChatSummaries(r.Context(), rows))
}

type chatDetailJSON struct {
	chatJSON
	Members []store.Member `json:"members"`
}

// GetChat returns the chat and its member list, members only.
func (s *Server) GetChat(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid chat id")
		return
	}
	userID := auth.UserID(r.Context())
	if !s.requireMember(w, r, chatID, userID) {
		return
	}

	chat, err := s.Store.ChatByID(r.Context(), chatID)
	if err != nil {
		storeError(w, r, err)
		return
	}
	members, err := s.Store.ChatMembers(r.Context(), chatID)
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chatDetailJSON{
		chatJSON: s.renderChat(r.Context(), chat),
		Members:  members,
	})
}

// GetChatByPublicName resolves a channel/group by its public handle.
func (s *Server) GetChatByPublicName(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "Public name is required")
		return
	}
	chat, err := s.Store.ChatByPublicName(r.Context(), name)
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.renderChat(r.Context(), chat))
}

type updateChatReq struct {
	Name        *string `json:"name"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	PublicName  *string `json:"public_name"`
}

// UpdateChat patches chat metadata, owner/admin only.
func (s *Server) UpdateChat(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid chat id")
		return
	}
	userID := auth.UserID(r.Context())
	if !s.requireMember(w, r, chatID, userID) {
		return
	}
	allowed, err := s.Authz.CanManageChat(r.Context(), chatID, userID)
	if err != nil {
		storeError(w, r, err)
		return
	}
	if !allowed {
		writeError(w, http.StatusForbidden, "Only owner or admins can edit the chat")
		return
	}

	var req updateChatReq
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	chat, err := s.Store.UpdateChat(r.Context(), chatID, store.UpdateChatParams{
		Name:        req.Name,
		Title:       req.Title,
		Description: req.Description,
		PublicName:  req.PublicName,
	})
	if err != nil {
		storeError(w, r, err)
		return
	}

	changed := map[string]any{}
	if req.Name != nil {
		changed["name"] = *req.Name
	}
	if req.Title != nil {
		changed["title"] = *req.Title
	}
	if req.Description != nil {
		changed["description"] = *req.Description
	}
	if req.PublicName != nil {
		changed["public_name"] = *req.PublicName
	}
	s.Broker.Publish(r.Context(), broker.ChatChannel(chatID), events.ChatUpdated(chatID, changed))

	writeJSON(w, http.StatusOK, s.renderChat(r.Context(), chat))
}

// SetChatAvatar points the chat avatar at an uploaded file, owner/admin only.
func (s *Server) SetChatAvatar(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid chat id")
		return
	}
	userID := auth.UserID(r.Context())
	if !s.requireMember(w, r, chatID, userID) {
		return
	}
	allowed, err := s.Authz.CanManageChat(r.Context(), chatID, userID)
	if err != nil {
		storeError(w, r, err)
		return
	}
	if !allowed {
		writeError(w, http.StatusForbidden, "Only owner or admins can edit the chat")
		return
	}

	var req setAvatarReq
	if err := decode(r, &req); err != nil || req.FileID <= 0 {
		writeError(w, http.StatusBadRequest, "file_id is required")
		return
	}
	f, err := s.Store.FileByID(r.Context(), req.FileID)
	if err != nil {
		storeError(w, r, err)
		return
	}
	if err := s.Store.SetChatAvatar(r.Context(), chatID, f.ID); err != nil {
		storeError(w, r, err)
		return
	}

	url, err := s.Objects.PresignGet(r.Context(), f.Bucket, f.ObjectKey, "")
	if err != nil {
		writeError(w, http.StatusBadGateway, "Object storage unavailable")
		return
	}
	s.Broker.Publish(r.Context(), broker.ChatChannel(chatID),
		events.ChatUpdated(chatID, map[string]any{"avatar_url": url}))
	writeJSON(w, http.StatusOK, map[string]string{"avatar_url": url})
}

// DeleteChat removes the chat and everything under it, owner/admin only.
func (s *Server) DeleteChat(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid chat id")
		return
	}
	userID := auth.UserID(r.Context())
	if !s.requireMember(w, r, chatID, userID) {
		return
	}
	allowed, err := s.Authz.CanManageChat(r.Context(), chatID, userID)
	if err != nil {
		storeError(w, r, err)
		return
	}
	if !allowed {
		writeError(w, http.StatusForbidden, "Only owner or admins can delete the chat")
		return
	}

	if err := s.Store.DeleteChat(r.Context(), chatID); err != nil {
		storeError(w, r, err)
		return
	}
	s.Broker.Publish(r.Context(), broker.ChatChannel(chatID), events.ChatDeleted(chatID, userID))
	w.WriteHeader(http.StatusNoContent)
}

// LeaveChat removes the caller's own membership. Owners cannot leave their
// chat; they delete it instead.
func (s *Server) LeaveChat(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid chat id")
		return
	}
	userID := auth.UserID(r.Context())

	role, err := s.Store.Membership(r.Context(), chatID, userID)
	if err != nil {
		storeError(w, r, err)
		return
	}
	if role == store.RoleOwner {
		writeError(w, http.StatusBadRequest, "Owner cannot leave; delete the chat instead")
		return
	}

	if err := s.Store.RemoveMember(r.Context(), chatID, userID); err != nil {
		storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// setMemberRole backs the promote/demote endpoints.
func (s *Server) setMemberRole(w http.ResponseWriter, r *http.Request, role store.Role) {
	chatID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid chat id")
		return
	}
	targetID, ok := pathID(r, "uid")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid user id")
		return
	}
	userID := auth.UserID(r.Context())
	if !s.requireMember(w, r, chatID, userID) {
		return
	}
	allowed, err := s.Authz.CanManageChat(r.Context(), chatID, userID)
	if err != nil {
		storeError(w, r, err)
		return
	}
	if !allowed {
		writeError(w, http.StatusForbidden, "Only owner or admins can change roles")
		return
	}

	targetRole, err := s.Store.Membership(r.Context(), chatID, targetID)
	if err != nil {
		storeError(w, r, err)
		return
	}
	if targetRole == store.RoleOwner {
		writeError(w, http.StatusBadRequest, "Cannot change the owner's role")
		return
	}

	if err := s.Store.SetMemberRole(r.Context(), chatID, targetID, role); err != nil {
		storeError(w, r, err)
		return
	}
	log.Ctx(r.Context()).Info().
		Int64("chat_id", chatID).Int64("user_id", targetID).Str("role", string(role)).
		Msg("member role changed")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) PromoteMember(w http.ResponseWriter, r *http.Request) {
	s.setMemberRole(w, r, store.RoleAdmin)
}

func (s *Server) DemoteMember(w http.ResponseWriter, r *http.Request) {
	s.setMemberRole(w, r, store.RoleMember)
}
