package store

import "context"

// Membership returns the caller's role in a chat, or ErrNotFound.
func (s *Store) Membership(ctx context.Context, chatID, userID int64) (Role, error) {
	var role Role
	err := s.pool.QueryRow(ctx,
		`SELECT role FROM chat_members WHERE chat_id = $1 AND user_id = $2`,
		chatID, userID).Scan(&role)
	if err != nil {
		return "", mapErr(err)
	}
	return role, nil
}

// AddMember inserts a membership row; duplicates surface as ErrConflict.
func (s *Store) AddMember(ctx context.Context, chatID, userID int64, role Role) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO chat_members (chat_id, user_id, role) VALUES ($1, $2, $3)`,
		chatID, userID, role)
	return mapErr(err)
}

func (s *Store) RemoveMember(ctx context.Context, chatID, userID int64) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM chat_members WHERE chat_id = $1 AND user_id = $2`,
		chatID, userID)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SetMemberRole(ctx context.Context, chatID, userID int64, role Role) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE chat_members SET role = $3 WHERE chat_id = $1 AND user_id = $2`,
		chatID, userID, role)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ChatsForUser lists the chat ids a user belongs to; presence fan-out walks
// this to find the audience.
func (s *Store) ChatsForUser(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT chat_id FROM chat_members WHERE user_id = $1`, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, id)
	}
	return out, mapErr(rows.Err())
}

func (s *Store) ChatMembers(ctx context.Context, chatID int64) ([]Member, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT cm.user_id, u.username, u.display_name, cm.role, cm.joined_at
		FROM chat_members cm
		JOIN users u ON u.id = cm.user_id
		WHERE cm.chat_id = $1
		ORDER BY cm.joined_at`, chatID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.UserID, &m.Username, &m.DisplayName, &m.Role, &m.JoinedAt); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, m)
	}
	return out, mapErr(rows.Err())
}
