package store

import (
	"context"
	"time"
)

// InsertMessageParams carries everything a message row can hold. Optional
// references are nil when absent.
type InsertMessageParams struct {
	ChatID    int64
	SenderID  int64
	Content   *string
	Type      string
	FileID    *int64
	StickerID *int64
	Duration  *int
	ReplyTo   *int64
	Forwarded *ForwardOrigin
}

// InsertMessage is an atomic single-row insert returning the generated id
// and timestamp. Missing chat/file/sticker/reply references surface as
// ErrForeignKey. Callers follow up with TouchChatUpdatedAt and
// AdvanceReadCursor for the sender, both best-effort.
func (s *Store) InsertMessage(ctx context.Context, p InsertMessageParams) (int64, time.Time, error) {
	var (
		id        int64
		createdAt time.Time
		fwd       ForwardOrigin
	)
	if p.Forwarded != nil {
		fwd = *p.Forwarded
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO messages (
			chat_id, sender_id, content, message_type, file_id, sticker_id,
			duration_seconds, reply_to_message_id,
			forwarded_from_chat_id, forwarded_from_message_id,
			forwarded_from_user_id, forwarded_from_display_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at`,
		p.ChatID, p.SenderID, p.Content, p.Type, p.FileID, p.StickerID,
		p.Duration, p.ReplyTo,
		fwd.ChatID, fwd.MessageID, fwd.UserID, fwd.DisplayName).
		Scan(&id, &createdAt)
	if err != nil {
		return 0, time.Time{}, mapErr(err)
	}
	return id, createdAt, nil
}

// MessageMeta fetches the core row regardless of soft-delete state; the
// authorization predicates need sender, type, age and deletion flags.
func (s *Store) MessageMeta(ctx context.Context, id int64) (*Message, error) {
	var m Message
	err := s.pool.QueryRow(ctx, `
		SELECT id, chat_id, sender_id, content, message_type, created_at,
		       updated_at, is_edited, is_deleted, reply_to_message_id,
		       file_id, sticker_id, duration_seconds
		FROM messages WHERE id = $1`, id).
		Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Content, &m.Type, &m.CreatedAt,
			&m.UpdatedAt, &m.IsEdited, &m.IsDeleted, &m.ReplyTo,
			&m.FileID, &m.StickerID, &m.Duration)
	if err != nil {
		return nil, mapErr(err)
	}
	return &m, nil
}

// The enriched SELECT shared by history, search, pinned-message and the
// single-row fetch. Joins sender profile + avatar, sticker, attachment and
// the reply-to preview.
const enrichedSelect = `
	SELECT m.id, m.chat_id, m.sender_id, m.content, m.message_type,
	       m.created_at, m.updated_at, m.is_edited,
	       m.file_id, m.sticker_id, m.duration_seconds,
	       m.forwarded_from_chat_id, m.forwarded_from_message_id,
	       m.forwarded_from_user_id, m.forwarded_from_display_name,
	       u.username AS sender_username,
	       COALESCE(u.display_name, u.username) AS sender_display_name,
	       av.bucket AS sender_avatar_bucket, av.object_key AS sender_avatar_key,
	       st.label AS sticker_label,
	       sf.bucket AS sticker_bucket, sf.object_key AS sticker_key,
	       att.bucket AS att_bucket, att.object_key AS att_key,
	       rm.id AS reply_id, rm.content AS reply_content,
	       rm.message_type AS reply_type,
	       COALESCE(ru.display_name, ru.username) AS reply_sender
	FROM messages m
	JOIN users u ON u.id = m.sender_id
	LEFT JOIN files av ON av.id = u.avatar_file_id
	LEFT JOIN stickers st ON st.id = m.sticker_id
	LEFT JOIN files sf ON sf.id = st.file_id
	LEFT JOIN files att ON att.id = m.file_id
	LEFT JOIN messages rm ON rm.id = m.reply_to_message_id AND NOT rm.is_deleted
	LEFT JOIN users ru ON ru.id = rm.sender_id`

// visibleFilter hides globally soft-deleted rows and rows the viewer
// deleted for themselves. $1 = chat id, $2 = viewer id.
const visibleFilter = `
	m.chat_id = $1 AND NOT m.is_deleted
	AND NOT EXISTS (SELECT 1 FROM message_deletions md
	                WHERE md.message_id = m.id AND md.user_id = $2)`

func scanEnriched(row interface{ Scan(...any) error }) (*EnrichedMessage, error) {
	var (
		em          EnrichedMessage
		fwd         ForwardOrigin
		avB, avK    *string
		stB, stK    *string
		attB, attK  *string
		replyID     *int64
		replyBody   *string
		replyType   *string
		replySender *string
	)
	err := row.Scan(&em.ID, &em.ChatID, &em.SenderID, &em.Content, &em.Type,
		&em.CreatedAt, &em.UpdatedAt, &em.IsEdited,
		&em.FileID, &em.StickerID, &em.Duration,
		&fwd.ChatID, &fwd.MessageID, &fwd.UserID, &fwd.DisplayName,
		&em.SenderUsername, &em.SenderDisplayName,
		&avB, &avK, &em.StickerLabel, &stB, &stK, &attB, &attK,
		&replyID, &replyBody, &replyType, &replySender)
	if err != nil {
		return nil, mapErr(err)
	}
	if avB != nil && avK != nil {
		em.SenderAvatar = &ObjectRef{Bucket: *avB, Key: *avK}
	}
	if stB != nil && stK != nil {
		em.Sticker = &ObjectRef{Bucket: *stB, Key: *stK}
	}
	if attB != nil && attK != nil {
		em.Attachment = &ObjectRef{Bucket: *attB, Key: *attK}
	}
	if replyID != nil {
		rt := MsgText
		if replyType != nil {
			rt = *replyType
		}
		sender := ""
		if replySender != nil {
			sender = *replySender
		}
		em.ReplyTo = &ReplyPreview{MessageID: *replyID, Content: replyBody, Type: rt, SenderName: sender}
	}
	if fwd.ChatID != nil || fwd.MessageID != nil || fwd.UserID != nil || fwd.DisplayName != nil {
		em.Forwarded = &fwd
	}
	return &em, nil
}

func collectEnriched(ctx context.Context, s *Store, sql string, args ...any) ([]EnrichedMessage, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []EnrichedMessage
	for rows.Next() {
		em, err := scanEnriched(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *em)
	}
	return out, mapErr(rows.Err())
}

// EnrichedMessages pages history for a viewer. AfterID returns rows with
// id > AfterID ascending; BeforeID (and the default window) selects the
// newest rows descending and reverses them so the response is always
// ascending by id.
func (s *Store) EnrichedMessages(ctx context.Context, chatID, viewerID int64, p Page) ([]EnrichedMessage, error) {
	switch {
	case p.AfterID > 0:
		return collectEnriched(ctx, s, enrichedSelect+`
			WHERE `+visibleFilter+` AND m.id > $3
			ORDER BY m.id ASC LIMIT $4`,
			chatID, viewerID, p.AfterID, p.Limit)
	case p.BeforeID > 0:
		return collectEnriched(ctx, s, `SELECT * FROM (`+enrichedSelect+`
			WHERE `+visibleFilter+` AND m.id < $3
			ORDER BY m.id DESC LIMIT $4) newest
			ORDER BY newest.id ASC`,
			chatID, viewerID, p.BeforeID, p.Limit)
	default:
		return collectEnriched(ctx, s, `SELECT * FROM (`+enrichedSelect+`
			WHERE `+visibleFilter+`
			ORDER BY m.id DESC LIMIT $3) newest
			ORDER BY newest.id ASC`,
			chatID, viewerID, p.Limit)
	}
}

// EnrichedMessage fetches one visible row for the viewer.
func (s *Store) EnrichedMessage(ctx context.Context, chatID, viewerID, messageID int64) (*EnrichedMessage, error) {
	return scanEnriched(s.pool.QueryRow(ctx, enrichedSelect+`
		WHERE `+visibleFilter+` AND m.id = $3`,
		chatID, viewerID, messageID))
}

// SearchMessages runs a case-insensitive substring match over text messages,
// newest first, with an optional before-id cursor.
func (s *Store) SearchMessages(ctx context.Context, chatID, viewerID int64, q string, limit int, beforeID int64) ([]EnrichedMessage, error) {
	if beforeID <= 0 {
		beforeID = int64(1) << 62
	}
	return collectEnriched(ctx, s, enrichedSelect+`
		WHERE `+visibleFilter+`
		  AND m.message_type = 'text'
		  AND m.content ILIKE '%' || $3 || '%'
		  AND m.id < $4
		ORDER BY m.id DESC LIMIT $5`,
		chatID, viewerID, q, beforeID, limit)
}

// MessagesByIDs fetches originals for the forward operation with a single
// IN-query, visible rows only.
func (s *Store) MessagesByIDs(ctx context.Context, chatID, viewerID int64, ids []int64) ([]EnrichedMessage, error) {
	return collectEnriched(ctx, s, enrichedSelect+`
		WHERE `+visibleFilter+` AND m.id = ANY($3::bigint[])
		ORDER BY m.id ASC`,
		chatID, viewerID, ids)
}

// UpdateMessageContent edits a text message in place and marks it edited.
func (s *Store) UpdateMessageContent(ctx context.Context, id int64, content string) (time.Time, error) {
	var updatedAt time.Time
	err := s.pool.QueryRow(ctx, `
		UPDATE messages SET content = $2, is_edited = true, updated_at = NOW()
		WHERE id = $1 AND NOT is_deleted
		RETURNING updated_at`, id, content).Scan(&updatedAt)
	if err != nil {
		return time.Time{}, mapErr(err)
	}
	return updatedAt, nil
}

// SoftDeleteMessage hides a message from everyone.
func (s *Store) SoftDeleteMessage(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE messages SET is_deleted = true, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMessageForUser hides a message from one viewer only.
func (s *Store) DeleteMessageForUser(ctx context.Context, userID, messageID int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO message_deletions (user_id, message_id) VALUES ($1, $2)
		ON CONFLICT (user_id, message_id) DO NOTHING`, userID, messageID)
	return mapErr(err)
}
