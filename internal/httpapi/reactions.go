package httpapi

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/wirechat/wirechat/internal/auth"
	"github.com/wirechat/wirechat/internal/broker"
	"github.com/wirechat/wirechat/internal/events"
)

type reactionReq struct {
	Emoji string `json:"emoji"`
}

// ToggleReaction adds or removes the caller's reaction. Posting the same
// emoji twice cancels out.
func (s *Server) ToggleReaction(w http.ResponseWriter, r *http.Request) {
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
	var req reactionReq
	if err := decode(r, &req); err != nil || req.Emoji == "" || utf8.RuneCountInString(req.Emoji) > 16 {
		writeError(w, http.StatusBadRequest, "emoji is required")
		return
	}

	userID := auth.UserID(r.Context())
	if !s.requireMember(w, r, chatID, userID) {
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

	added, err := s.Store.ToggleReaction(r.Context(), messageID, userID, req.Emoji)
	if err != nil {
		storeError(w, r, err)
		return
	}
	action := "removed"
	if added {
		action = "added"
	}

	s.Broker.Publish(r.Context(), broker.ChatChannel(chatID),
		events.Reaction(chatID, messageID, userID, req.Emoji, action))
	writeJSON(w, http.StatusOK, map[string]string{"action": action})
}

// ListReactions returns grouped reactions for a batch of message ids.
func (s *Server) ListReactions(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid chat id")
		return
	}
	userID := auth.UserID(r.Context())
	if !s.requireMember(w, r, chatID, userID) {
		return
	}

	raw := strings.Split(r.URL.Query().Get("message_ids"), ",")
	var ids []int64
	for _, part := range raw {
		if id := parseID(strings.TrimSpace(part)); id > 0 {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 || len(ids) > 200 {
		writeError(w, http.StatusBadRequest, "message_ids must list 1-200 ids")
		return
	}

	groups, err := s.Store.ReactionsByMessageIDs(r.Context(), userID, ids)
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}
