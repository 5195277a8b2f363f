package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/wirechat/wirechat/internal/auth"
	"github.com/wirechat/wirechat/internal/broker"
	"github.com/wirechat/wirechat/internal/events"
)

// PinMessage makes a message the chat's single active pin, owner/admin only.
func (s *Server) PinMessage(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid chat id")
		return
	}
	messageID, ok := pathID(r, "mid")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid message id")
		return
	}
	userID := auth.UserID(r.Context())
	if !s.requireMember(w, r, chatID, userID) {
		return
	}
	allowed, err := s.Authz.CanPin(r.Context(), chatID, userID)
	if err != nil {
		storeError(w, r, err)
		return
	}
	if !allowed {
		writeError(w, http.StatusForbidden, "Only owner or admins can pin messages in a channel")
		return
	}

	msg, err := s.Store.MessageMeta(r.Context(), messageID)
	if err != nil {
		storeError(w, r, err)
		return
	}
	if msg.ChatID != chatID || msg.IsDeleted {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	if err := s.Store.PinMessage(r.Context(), chatID, messageID, userID); err != nil {
		storeError(w, r, err)
		return
	}

	// Ship the enriched row along so clients render the pin banner without a
	// follow-up fetch.
	var enriched json.RawMessage
	if em, err := s.Store.EnrichedMessage(r.Context(), chatID, userID, messageID); err == nil {
		enriched, _ = json.Marshal(s.renderMessage(r.Context(), em))
	}
	s.Broker.Publish(r.Context(), broker.ChatChannel(chatID),
		events.MessagePinned(chatID, messageID, userID, enriched))
	w.WriteHeader(http.StatusNoContent)
}

// UnpinMessage clears the chat's active pin, owner/admin only.
func (s *Server) UnpinMessage(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid chat id")
		return
	}
	userID := auth.UserID(r.Context())
	if !s.requireMember(w, r, chatID, userID) {
		return
	}
	allowed, err := s.Authz.CanPin(r.Context(), chatID, userID)
	if err != nil {
		storeError(w, r, err)
		return
	}
	if !allowed {
		writeError(w, http.StatusForbidden, "Only owner or admins can unpin messages in a channel")
		return
	}

	messageID, err := s.Store.UnpinMessage(r.Context(), chatID)
	if err != nil {
		storeError(w, r, err)
		return
	}
	s.Broker.Publish(r.Context(), broker.ChatChannel(chatID),
		events.MessageUnpinned(chatID, messageID))
	w.WriteHeader(http.StatusNoContent)
}

// PinnedMessage returns the chat's active pin as an enriched message.
func (s *Server) PinnedMessage(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid chat id")
		return
	}
	userID := auth.UserID(r.Context())
	if !s.requireMember(w, r, chatID, userID) {
		return
	}

	pin, err := s.Store.ActivePin(r.Context(), chatID)
	if err != nil {
		storeError(w, r, err)
		return
	}
	em, err := s.Store.EnrichedMessage(r.Context(), chatID, userID, pin.MessageID)
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"pinned_by": pin.PinnedBy,
		"pinned_at": pin.PinnedAt,
		"message":   s.renderMessage(r.Context(), em),
	})
}
