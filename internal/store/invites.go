package store

import (
	"context"

	"github.com/google/uuid"
)

// CreateInvite mints an opaque invite token for a chat.
func (s *Store) CreateInvite(ctx context.Context, chatID, createdBy int64) (*Invite, error) {
	token := uuid.NewString()
	var inv Invite
	err := s.pool.QueryRow(ctx, `
		INSERT INTO chat_invites (token, chat_id, created_by)
		VALUES ($1, $2, $3)
		RETURNING token, chat_id, created_by, created_at, revoked_at`,
		token, chatID, createdBy).
		Scan(&inv.Token, &inv.ChatID, &inv.CreatedBy, &inv.CreatedAt, &inv.RevokedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &inv, nil
}

func (s *Store) ListInvites(ctx context.Context, chatID int64) ([]Invite, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT token, chat_id, created_by, created_at, revoked_at
		FROM chat_invites
		WHERE chat_id = $1 AND revoked_at IS NULL
		ORDER BY created_at DESC`, chatID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []Invite
	for rows.Next() {
		var inv Invite
		if err := rows.Scan(&inv.Token, &inv.ChatID, &inv.CreatedBy, &inv.CreatedAt, &inv.RevokedAt); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, inv)
	}
	return out, mapErr(rows.Err())
}

// InviteByToken fetches an invite regardless of revocation; the handler
// distinguishes 404 from 410.
func (s *Store) InviteByToken(ctx context.Context, token string) (*Invite, error) {
	var inv Invite
	err := s.pool.QueryRow(ctx, `
		SELECT token, chat_id, created_by, created_at, revoked_at
		FROM chat_invites WHERE token = $1`, token).
		Scan(&inv.Token, &inv.ChatID, &inv.CreatedBy, &inv.CreatedAt, &inv.RevokedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &inv, nil
}

// InvitePreview is what an invitee sees before deciding to join.
func (s *Store) InvitePreviewByToken(ctx context.Context, token string) (*InvitePreview, error) {
	inv, err := s.InviteByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	var p InvitePreview
	err = s.pool.QueryRow(ctx, `
		SELECT c.id, c.title, c.type,
		       (SELECT COUNT(*) FROM chat_members WHERE chat_id = c.id)
		FROM chats c WHERE c.id = $1`, inv.ChatID).
		Scan(&p.ChatID, &p.Title, &p.Type, &p.MemberCount)
	if err != nil {
		return nil, mapErr(err)
	}
	p.Revoked = inv.RevokedAt != nil
	return &p, nil
}

// RevokeInvite is one-way: active → revoked.
func (s *Store) RevokeInvite(ctx context.Context, token string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE chat_invites SET revoked_at = NOW()
		WHERE token = $1 AND revoked_at IS NULL`, token)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
