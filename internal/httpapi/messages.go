package httpapi

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/wirechat/wirechat/internal/auth"
	"github.com/wirechat/wirechat/internal/broker"
	"github.com/wirechat/wirechat/internal/events"
	"github.com/wirechat/wirechat/internal/store"
)

type sendMessageReq struct {
	Content         *string `json:"content"`
	MessageType     string  `json:"message_type"`
	FileID          *int64  `json:"file_id"`
	StickerID       *int64  `json:"sticker_id"`
	DurationSeconds *int    `json:"duration_seconds"`
	ReplyTo         *int64  `json:"reply_to_message_id"`
}

func (r sendMessageReq) validate() string {
	switch r.MessageType {
	case store.MsgText:
		if r.Content == nil || strings.TrimSpace(*r.Content) == "" {
			return "content is required for text messages"
		}
	case store.MsgFile:
		if r.FileID == nil {
			return "file_id is required for file messages"
		}
	case store.MsgVoice:
		if r.FileID == nil {
			return "file_id is required for voice messages"
		}
		if r.DurationSeconds == nil || *r.DurationSeconds <= 0 {
			return "duration_seconds is required for voice messages"
		}
	case store.MsgSticker:
		if r.StickerID == nil {
			return "sticker_id is required for sticker messages"
		}
	default:
		return "message_type must be text, file, voice or sticker"
	}
	return ""
}

// SendMessage posts into a chat: authorize, persist, publish.
func (s *Server) SendMessage(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid chat id")
		return
	}
	userID := auth.UserID(r.Context())

	var req sendMessageReq
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.MessageType == "" {
		req.MessageType = store.MsgText
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if !s.requireMember(w, r, chatID, userID) {
		return
	}
	allowed, err := s.Authz.CanPost(r.Context(), chatID, userID)
	if err != nil {
		storeError(w, r, err)
		return
	}
	if !allowed {
		writeError(w, http.StatusForbidden, "Only owner or admins can post in a channel")
		return
	}

	id, createdAt, err := s.Store.InsertMessage(r.Context(), store.InsertMessageParams{
		ChatID:    chatID,
		SenderID:  userID,
		Content:   req.Content,
		Type:      req.MessageType,
		FileID:    req.FileID,
		StickerID: req.StickerID,
		Duration:  req.DurationSeconds,
		ReplyTo:   req.ReplyTo,
	})
	if err != nil {
		storeError(w, r, err)
		return
	}

	// Sidebar ordering and the sender's own unread count, best effort.
	if err := s.Store.TouchChatUpdatedAt(r.Context(), chatID); err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Int64("chat_id", chatID).Msg("chat touch failed")
	}
	if err := s.Store.AdvanceReadCursor(r.Context(), userID, chatID, id); err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Int64("chat_id", chatID).Msg("sender cursor advance failed")
	}

	s.Broker.Publish(r.Context(), broker.ChatChannel(chatID),
		events.Message(id, chatID, userID, req.Content, req.MessageType, createdAt, req.ReplyTo))

	em, err := s.Store.EnrichedMessage(r.Context(), chatID, userID, id)
	if err != nil {
		// The row exists; fall back to the bare essentials.
		writeJSON(w, http.StatusCreated, map[string]any{"id": id, "chat_id": chatID, "created_at": createdAt})
		return
	}
	writeJSON(w, http.StatusCreated, s.renderMessage(r.Context(), em))
}

// ListMessages pages chat history, always ascending by id in the response.
func (s *Server) ListMessages(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid chat id")
		return
	}
	userID := auth.UserID(r.Context())
	if !s.requireMember(w, r, chatID, userID) {
		return
	}

	q := r.URL.Query()
	page := store.Page{
		AfterID:  parseID(q.Get("after_id")),
		BeforeID: parseID(q.Get("before")),
		Limit:    parseLimit(q.Get("limit"), 50, 100),
	}

	msgs, err := s.Store.EnrichedMessages(r.Context(), chatID, userID, page)
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.renderMessages(r.Context(), msgs))
}

type editMessageReq struct {
	Content string `json:"content"`
}

// EditMessage lets the sender rewrite their own text message.
func (s *Server) EditMessage(w http.ResponseWriter, r *http.Request) {
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
	var req editMessageReq
	if err := decode(r, &req); err != nil || strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "content is required")
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
	if msg.ChatID != chatID {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if !s.Authz.CanEdit(r.Context(), userID, msg) {
		writeError(w, http.StatusForbidden, "Only the sender can edit a text message")
		return
	}

	updatedAt, err := s.Store.UpdateMessageContent(r.Context(), messageID, req.Content)
	if err != nil {
		storeError(w, r, err)
		return
	}

	s.Broker.Publish(r.Context(), broker.ChatChannel(chatID),
		events.MessageUpdated(chatID, messageID, req.Content, updatedAt))
	writeJSON(w, http.StatusOK, map[string]any{
		"message_id": messageID,
		"content":    req.Content,
		"updated_at": updatedAt,
	})
}

type deleteMessageReq struct {
	ForEveryone bool `json:"for_everyone"`
}

// DeleteMessage removes a message for everyone (sender or chat staff, within
// the delete window) or just hides it from the caller.
func (s *Server) DeleteMessage(w http.ResponseWriter, r *http.Request) {
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
	var req deleteMessageReq
	// Missing body means delete-for-me.
	_ = decode(r, &req)

	userID := auth.UserID(r.Context())
	if !s.requireMember(w, r, chatID, userID) {
		return
	}

	msg, err := s.Store.MessageMeta(r.Context(), messageID)
	if err != nil {
		storeError(w, r, err)
		return
	}
	if msg.ChatID != chatID {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	if !req.ForEveryone {
		if err := s.Store.DeleteMessageForUser(r.Context(), userID, messageID); err != nil {
			storeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	allowed, err := s.Authz.CanDeleteForEveryone(r.Context(), userID, msg)
	if err != nil {
		storeError(w, r, err)
		return
	}
	if !allowed {
		writeError(w, http.StatusForbidden, "Messages can be deleted for everyone within 48 hours, by the sender or chat staff")
		return
	}

	if err := s.Store.SoftDeleteMessage(r.Context(), messageID); err != nil {
		storeError(w, r, err)
		return
	}
	s.Broker.Publish(r.Context(), broker.ChatChannel(chatID),
		events.MessageDeleted(chatID, messageID, userID))
	w.WriteHeader(http.StatusNoContent)
}

// SearchMessages does a substring search over the chat's text messages.
func (s *Server) SearchMessages(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid chat id")
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	userID := auth.UserID(r.Context())
	if !s.requireMember(w, r, chatID, userID) {
		return
	}

	limit := parseLimit(r.URL.Query().Get("limit"), 20, 50)
	beforeID := parseID(r.URL.Query().Get("before_id"))

	msgs, err := s.Store.SearchMessages(r.Context(), chatID, userID, q, limit, beforeID)
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.renderMessages(r.Context(), msgs))
}

type forwardReq struct {
	FromChatID int64   `json:"from_chat_id"`
	MessageIDs []int64 `json:"message_ids"`
}

// ForwardMessages copies messages into the target chat, preserving the
// original author attribution. One message event is published per copy.
func (s *Server) ForwardMessages(w http.ResponseWriter, r *http.Request) {
	targetID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid chat id")
		return
	}
	var req forwardReq
	if err := decode(r, &req); err != nil || req.FromChatID <= 0 || len(req.MessageIDs) == 0 {
		writeError(w, http.StatusBadRequest, "from_chat_id and message_ids are required")
		return
	}
	if len(req.MessageIDs) > 100 {
		writeError(w, http.StatusBadRequest, "At most 100 messages per forward")
		return
	}

	userID := auth.UserID(r.Context())
	if !s.requireMember(w, r, req.FromChatID, userID) {
		return
	}
	if !s.requireMember(w, r, targetID, userID) {
		return
	}
	allowed, err := s.Authz.CanPost(r.Context(), targetID, userID)
	if err != nil {
		storeError(w, r, err)
		return
	}
	if !allowed {
		writeError(w, http.StatusForbidden, "Only owner or admins can post in a channel")
		return
	}

	originals, err := s.Store.MessagesByIDs(r.Context(), req.FromChatID, userID, req.MessageIDs)
	if err != nil {
		storeError(w, r, err)
		return
	}

	created := make([]messageJSON, 0, len(originals))
	for i := range originals {
		orig := &originals[i]

		// An already-forwarded message keeps its original attribution.
		origin := orig.Forwarded
		if origin == nil {
			name := orig.SenderDisplayName
			origin = &store.ForwardOrigin{
				ChatID:      &orig.ChatID,
				MessageID:   &orig.ID,
				UserID:      &orig.SenderID,
				DisplayName: &name,
			}
		}

		id, createdAt, err := s.Store.InsertMessage(r.Context(), store.InsertMessageParams{
			ChatID:    targetID,
			SenderID:  userID,
			Content:   orig.Content,
			Type:      orig.Type,
			FileID:    orig.FileID,
			StickerID: orig.StickerID,
			Duration:  orig.Duration,
			Forwarded: origin,
		})
		if err != nil {
			storeError(w, r, err)
			return
		}

		s.Broker.Publish(r.Context(), broker.ChatChannel(targetID),
			events.Message(id, targetID, userID, orig.Content, orig.Type, createdAt, nil))

		if em, err := s.Store.EnrichedMessage(r.Context(), targetID, userID, id); err == nil {
			created = append(created, s.renderMessage(r.Context(), em))
		}
	}

	if err := s.Store.TouchChatUpdatedAt(r.Context(), targetID); err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Int64("chat_id", targetID).Msg("chat touch failed")
	}
	writeJSON(w, http.StatusCreated, created)
}
