// Package events builds the JSON envelopes delivered over WebSocket
// connections. Every envelope carries a "type" discriminator; the producer
// builds the envelope and sessions only write bytes.
package events

import (
	"encoding/json"
	"time"
)

// Envelope type discriminators.
const (
	TypeMessage         = "message"
	TypeMessageUpdated  = "message_updated"
	TypeMessageDeleted  = "message_deleted"
	TypeMessagePinned   = "message_pinned"
	TypeMessageUnpinned = "message_unpinned"
	TypeReaction        = "reaction"
	TypeReadReceipt     = "read_receipt"
	TypeChatMemberJoined = "chat_member_joined"
	TypeChatCreated     = "chat_created"
	TypeChatUpdated     = "chat_updated"
	TypeChatDeleted     = "chat_deleted"
	TypeTyping          = "typing"
	TypePresence        = "presence"

	TypeAuthOK     = "auth_ok"
	TypeSubscribed = "subscribed"
	TypePong       = "pong"
	TypeError      = "error"
)

// marshal cannot fail for the envelope types below; the signature stays
// infallible so producers can fire-and-forget.
func marshal(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

// Message is published on chat:<id> after a successful insert.
func Message(id, chatID, senderID int64, content *string, messageType string, createdAt time.Time, replyTo *int64) []byte {
	return marshal(struct {
		Type      string    `json:"type"`
		ID        int64     `json:"id"`
		ChatID    int64     `json:"chat_id"`
		SenderID  int64     `json:"sender_id"`
		Content   *string   `json:"content"`
		MsgType   string    `json:"message_type"`
		CreatedAt time.Time `json:"created_at"`
		ReplyTo   *int64    `json:"reply_to_message_id,omitempty"`
	}{TypeMessage, id, chatID, senderID, content, messageType, createdAt, replyTo})
}

func MessageUpdated(chatID, messageID int64, content string, updatedAt time.Time) []byte {
	return marshal(struct {
		Type      string    `json:"type"`
		ChatID    int64     `json:"chat_id"`
		MessageID int64     `json:"message_id"`
		Content   string    `json:"content"`
		UpdatedAt time.Time `json:"updated_at"`
	}{TypeMessageUpdated, chatID, messageID, content, updatedAt})
}

func MessageDeleted(chatID, messageID, deletedBy int64) []byte {
	return marshal(struct {
		Type        string `json:"type"`
		ChatID      int64  `json:"chat_id"`
		MessageID   int64  `json:"message_id"`
		DeletedBy   int64  `json:"deleted_by"`
		ForEveryone bool   `json:"for_everyone"`
	}{TypeMessageDeleted, chatID, messageID, deletedBy, true})
}

// MessagePinned carries the enriched message row so clients can render the
// pin banner without a follow-up fetch.
func MessagePinned(chatID, messageID, pinnedBy int64, enriched json.RawMessage) []byte {
	return marshal(struct {
		Type      string          `json:"type"`
		ChatID    int64           `json:"chat_id"`
		MessageID int64           `json:"message_id"`
		PinnedBy  int64           `json:"pinned_by"`
		Message   json.RawMessage `json:"message,omitempty"`
	}{TypeMessagePinned, chatID, messageID, pinnedBy, enriched})
}

func MessageUnpinned(chatID, messageID int64) []byte {
	return marshal(struct {
		Type      string `json:"type"`
		ChatID    int64  `json:"chat_id"`
		MessageID int64  `json:"message_id"`
	}{TypeMessageUnpinned, chatID, messageID})
}

func Reaction(chatID, messageID, userID int64, emoji, action string) []byte {
	return marshal(struct {
		Type      string `json:"type"`
		ChatID    int64  `json:"chat_id"`
		MessageID int64  `json:"message_id"`
		UserID    int64  `json:"user_id"`
		Emoji     string `json:"emoji"`
		Action    string `json:"action"`
	}{TypeReaction, chatID, messageID, userID, emoji, action})
}

func ReadReceipt(chatID, userID, lastReadMsgID int64) []byte {
	return marshal(struct {
		Type          string `json:"type"`
		ChatID        int64  `json:"chat_id"`
		UserID        int64  `json:"user_id"`
		LastReadMsgID int64  `json:"last_read_msg_id"`
	}{TypeReadReceipt, chatID, userID, lastReadMsgID})
}

func ChatMemberJoined(chatID, userID int64, username string) []byte {
	return marshal(struct {
		Type     string `json:"type"`
		ChatID   int64  `json:"chat_id"`
		UserID   int64  `json:"user_id"`
		Username string `json:"username"`
	}{TypeChatMemberJoined, chatID, userID, username})
}

// ChatCreated is published on the joiner's user channel so every one of
// their sessions picks up the new chat.
func ChatCreated(chatID int64, title string) []byte {
	return marshal(struct {
		Type   string `json:"type"`
		ChatID int64  `json:"chat_id"`
		Title  string `json:"title,omitempty"`
	}{TypeChatCreated, chatID, title})
}

// ChatUpdated carries only the changed fields.
func ChatUpdated(chatID int64, changed map[string]any) []byte {
	body := map[string]any{"type": TypeChatUpdated, "chat_id": chatID}
	for k, v := range changed {
		body[k] = v
	}
	return marshal(body)
}

func ChatDeleted(chatID, deletedBy int64) []byte {
	return marshal(struct {
		Type      string `json:"type"`
		ChatID    int64  `json:"chat_id"`
		DeletedBy int64  `json:"deleted_by"`
	}{TypeChatDeleted, chatID, deletedBy})
}

func Typing(chatID, userID int64, username string) []byte {
	return marshal(struct {
		Type     string `json:"type"`
		ChatID   int64  `json:"chat_id"`
		UserID   int64  `json:"user_id"`
		Username string `json:"username,omitempty"`
	}{TypeTyping, chatID, userID, username})
}

// PresenceFull is the unfiltered presence envelope: admins, the user's own
// sessions, and everyone when visibility is "everyone".
func PresenceFull(userID int64, username, status string) []byte {
	return marshal(struct {
		Type     string `json:"type"`
		UserID   int64  `json:"user_id"`
		Username string `json:"username,omitempty"`
		Status   string `json:"status"`
	}{TypePresence, userID, username, status})
}

// PresenceApprox replaces the status with a coarse last-seen bucket for
// viewers the target's privacy setting restricts.
func PresenceApprox(userID int64, username, bucket string) []byte {
	return marshal(struct {
		Type     string `json:"type"`
		UserID   int64  `json:"user_id"`
		Username string `json:"username,omitempty"`
		Privacy  string `json:"privacy"`
		Bucket   string `json:"last_seen_bucket"`
	}{TypePresence, userID, username, "approx_only", bucket})
}

func AuthOK(userID int64) []byte {
	return marshal(struct {
		Type   string `json:"type"`
		UserID int64  `json:"user_id"`
	}{TypeAuthOK, userID})
}

func Subscribed(chatID int64) []byte {
	return marshal(struct {
		Type   string `json:"type"`
		ChatID int64  `json:"chat_id"`
	}{TypeSubscribed, chatID})
}

func Pong() []byte {
	return marshal(struct {
		Type string `json:"type"`
	}{TypePong})
}

func Error(message string) []byte {
	return marshal(struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}{TypeError, message})
}
