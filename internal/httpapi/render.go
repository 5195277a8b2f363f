package httpapi

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wirechat/wirechat/internal/store"
)

// messageJSON is the wire shape of an enriched message: core fields plus
// sender profile and pre-signed URLs for every object reference.
type messageJSON struct {
	ID                int64                `json:"id"`
	ChatID            int64                `json:"chat_id"`
	SenderID          int64                `json:"sender_id"`
	Content           *string              `json:"content"`
	MessageType       string               `json:"message_type"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         *time.Time           `json:"updated_at,omitempty"`
	IsEdited          bool                 `json:"is_edited"`
	DurationSeconds   *int                 `json:"duration_seconds,omitempty"`
	SenderUsername    string               `json:"sender_username"`
	SenderDisplayName string               `json:"sender_display_name"`
	SenderAvatarURL   *string              `json:"sender_avatar_url,omitempty"`
	StickerLabel      *string              `json:"sticker_label,omitempty"`
	StickerURL        *string              `json:"sticker_url,omitempty"`
	FileURL           *string              `json:"file_url,omitempty"`
	ReplyTo           *store.ReplyPreview  `json:"reply_to,omitempty"`
	ForwardedFrom     *store.ForwardOrigin `json:"forwarded_from,omitempty"`
}

// presign turns an object reference into a URL, nil on failure (the message
// still renders, just without the link).
func (s *Server) presign(ctx context.Context, ref *store.ObjectRef, fileName string) *string {
	if ref == nil {
		return nil
	}
	u, err := s.Objects.PresignGet(ctx, ref.Bucket, ref.Key, fileName)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("key", ref.Key).Msg("presign failed")
		return nil
	}
	return &u
}

func (s *Server) renderMessage(ctx context.Context, em *store.EnrichedMessage) messageJSON {
	return messageJSON{
		ID:                em.ID,
		ChatID:            em.ChatID,
		SenderID:          em.SenderID,
		Content:           em.Content,
		MessageType:       em.Type,
		CreatedAt:         em.CreatedAt,
		UpdatedAt:         em.UpdatedAt,
		IsEdited:          em.IsEdited,
		DurationSeconds:   em.Duration,
		SenderUsername:    em.SenderUsername,
		SenderDisplayName: em.SenderDisplayName,
		SenderAvatarURL:   s.presign(ctx, em.SenderAvatar, ""),
		StickerLabel:      em.StickerLabel,
		StickerURL:        s.presign(ctx, em.Sticker, ""),
		FileURL:           s.presign(ctx, em.Attachment, ""),
		ReplyTo:           em.ReplyTo,
		ForwardedFrom:     em.Forwarded,
	}
}

func (s *Server) renderMessages(ctx context.Context, ems []store.EnrichedMessage) []messageJSON {
	out := make([]messageJSON, 0, len(ems))
	for i := range ems {
		out = append(out, s.renderMessage(ctx, &ems[i]))
	}
	return out
}

// userJSON decorates a profile with the avatar URL.
type userJSON struct {
	store.User
	AvatarURL *string `json:"avatar_url,omitempty"`
}

func (s *Server) renderUser(ctx context.Context, u *store.User) userJSON {
	out := userJSON{User: *u}
	if u.AvatarBucket != nil && u.AvatarKey != nil {
		out.AvatarURL = s.presign(ctx, &store.ObjectRef{Bucket: *u.AvatarBucket, Key: *u.AvatarKey}, "")
	}
	return out
}

// chatJSON decorates a chat with its avatar URL.
type chatJSON struct {
	store.Chat
	AvatarURL *string `json:"avatar_url,omitempty"`
}

func (s *Server) renderChat(ctx context.Context, c *store.Chat) chatJSON {
	out := chatJSON{Chat: *c}
	if c.AvatarBucket != nil && c.AvatarKey != nil {
		out.AvatarURL = s.presign(ctx, &store.ObjectRef{Bucket: *c.AvatarBucket, Key: *c.AvatarKey}, "")
	}
	return out
}

// chatSummaryJSON is one sidebar row.
type chatSummaryJSON struct {
	store.ChatSummary
	AvatarURL *string `json:"avatar_url,omitempty"`
}

func (s *Server) renderChatSummaries(ctx context.Context, rows []store.ChatSummary) []chatSummaryJSON {
	out := make([]chatSummaryJSON, 0, len(rows))
	for i := range rows {
		row := chatSummaryJSON{ChatSummary: rows[i]}
		if rows[i].AvatarBucket != nil && rows[i].AvatarKey != nil {
			row.AvatarURL = s.presign(ctx, &store.ObjectRef{Bucket: *rows[i].AvatarBucket, Key: *rows[i].AvatarKey}, "")
		}
		out = append(out, row)
	}
	return out
}
