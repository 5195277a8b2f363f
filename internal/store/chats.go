package store

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const chatColumns = `
	c.id, c.type, c.name, c.title, c.description, c.public_name, c.owner_id,
	c.avatar_file_id, af.bucket, af.object_key, c.created_at, c.updated_at`

const chatFrom = `
	FROM chats c
	LEFT JOIN files af ON af.id = c.avatar_file_id`

func scanChat(row interface{ Scan(...any) error }) (*Chat, error) {
	var c Chat
	err := row.Scan(&c.ID, &c.Type, &c.Name, &c.Title, &c.Description,
		&c.PublicName, &c.OwnerID, &c.AvatarFileID, &c.AvatarBucket,
		&c.AvatarKey, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

// CreateChatParams describes a new chat and its initial member set. The
// owner is always added with RoleOwner; MemberIDs get RoleMember.
type CreateChatParams struct {
	Type        ChatType
	Name        *string
	Title       *string
	Description *string
	PublicName  *string
	OwnerID     int64
	MemberIDs   []int64
}

// CreateChat inserts the chat and memberships in one transaction.
// public_name collisions surface as ErrConflict, unknown member ids as
// ErrForeignKey.
func (s *Store) CreateChat(ctx context.Context, p CreateChatParams) (*Chat, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, mapErr(err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO chats (type, name, title, description, public_name, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		p.Type, p.Name, p.Title, p.Description, p.PublicName, p.OwnerID).Scan(&id)
	if err != nil {
		return nil, mapErr(err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO chat_members (chat_id, user_id, role) VALUES ($1, $2, 'owner')`,
		id, p.OwnerID); err != nil {
		return nil, mapErr(err)
	}
	for _, uid := range p.MemberIDs {
		if uid == p.OwnerID {
			continue
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO chat_members (chat_id, user_id, role) VALUES ($1, $2, 'member')
			ON CONFLICT (chat_id, user_id) DO NOTHING`,
			id, uid); err != nil {
			return nil, mapErr(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, mapErr(err)
	}
	return s.ChatByID(ctx, id)
}

// FindDirectChat returns the existing direct chat between two users, if any,
// so DM creation stays idempotent.
func (s *Store) FindDirectChat(ctx context.Context, a, b int64) (*Chat, error) {
	return scanChat(s.pool.QueryRow(ctx, `
		SELECT `+chatColumns+chatFrom+`
		WHERE c.type = 'direct'
		  AND EXISTS (SELECT 1 FROM chat_members WHERE chat_id = c.id AND user_id = $1)
		  AND EXISTS (SELECT 1 FROM chat_members WHERE chat_id = c.id AND user_id = $2)
		  AND (SELECT COUNT(*) FROM chat_members WHERE chat_id = c.id) = CASE WHEN $1 = $2 THEN 1 ELSE 2 END
		LIMIT 1`, a, b))
}

func (s *Store) ChatByID(ctx context.Context, id int64) (*Chat, error) {
	return scanChat(s.pool.QueryRow(ctx,
		`SELECT `+chatColumns+chatFrom+` WHERE c.id = $1`, id))
}

func (s *Store) ChatByPublicName(ctx context.Context, publicName string) (*Chat, error) {
	return scanChat(s.pool.QueryRow(ctx,
		`SELECT `+chatColumns+chatFrom+` WHERE c.public_name = $1`, publicName))
}

// ListChats returns the viewer's sidebar: every chat they belong to with the
// newest-message preview, unread count and per-viewer flags, newest first
// (sidebar-pinned chats sort above the rest).
func (s *Store) ListChats(ctx context.Context, userID int64) ([]ChatSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+chatColumns+`,
		       cm.role,
		       lm.content, lm.message_type, lm.created_at,
		       COALESCE(uc.is_favorite, false),
		       COALESCE(uc.is_archived, false),
		       COALESCE(uc.is_pinned, false),
		       uc.muted_until,
		       (SELECT COUNT(*) FROM chat_members m2 WHERE m2.chat_id = c.id),
		       (SELECT COUNT(*) FROM messages um
		        WHERE um.chat_id = c.id AND NOT um.is_deleted
		          AND um.id > COALESCE(rc.last_read_msg_id, 0)
		          AND um.sender_id <> $1
		          AND NOT EXISTS (SELECT 1 FROM message_deletions md
		                          WHERE md.message_id = um.id AND md.user_id = $1))
		FROM chats c
		LEFT JOIN files af ON af.id = c.avatar_file_id
		JOIN chat_members cm ON cm.chat_id = c.id AND cm.user_id = $1
		LEFT JOIN user_chat_state uc ON uc.chat_id = c.id AND uc.user_id = $1
		LEFT JOIN read_cursors rc ON rc.chat_id = c.id AND rc.user_id = $1
		LEFT JOIN LATERAL (
			SELECT m.content, m.message_type, m.created_at
			FROM messages m
			WHERE m.chat_id = c.id AND NOT m.is_deleted
			ORDER BY m.id DESC LIMIT 1
		) lm ON true
		ORDER BY COALESCE(uc.is_pinned, false) DESC,
		         COALESCE(lm.created_at, c.updated_at) DESC`, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []ChatSummary
	for rows.Next() {
		var cs ChatSummary
		err := rows.Scan(&cs.ID, &cs.Type, &cs.Name, &cs.Title, &cs.Description,
			&cs.PublicName, &cs.OwnerID, &cs.AvatarFileID, &cs.AvatarBucket,
			&cs.AvatarKey, &cs.CreatedAt, &cs.UpdatedAt,
			&cs.Role, &cs.LastPreview, &cs.LastType, &cs.LastAt,
			&cs.IsFavorite, &cs.IsArchived, &cs.IsPinned, &cs.MutedUntil,
			&cs.MemberCount, &cs.UnreadCount)
		if err != nil {
			return nil, mapErr(err)
		}
		out = append(out, cs)
	}
	return out, mapErr(rows.Err())
}

// UpdateChatParams: nil fields are untouched.
type UpdateChatParams struct {
	Name        *string
	Title       *string
	Description *string
	PublicName  *string
}

func (s *Store) UpdateChat(ctx context.Context, id int64, p UpdateChatParams) (*Chat, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE chats SET
			name        = COALESCE($2, name),
			title       = COALESCE($3, title),
			description = COALESCE($4, description),
			public_name = COALESCE($5, public_name),
			updated_at  = NOW()
		WHERE id = $1`,
		id, p.Name, p.Title, p.Description, p.PublicName)
	if err != nil {
		return nil, mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.ChatByID(ctx, id)
}

func (s *Store) SetChatAvatar(ctx context.Context, chatID, fileID int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE chats SET avatar_file_id = $2, updated_at = NOW() WHERE id = $1`,
		chatID, fileID)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteChat cascade-deletes members and messages (enforced by the schema).
func (s *Store) DeleteChat(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM chats WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchChatUpdatedAt bumps the sidebar sort key. Fire-and-forget: callers
// log failures and move on.
func (s *Store) TouchChatUpdatedAt(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE chats SET updated_at = NOW() WHERE id = $1`, id)
	return mapErr(err)
}
