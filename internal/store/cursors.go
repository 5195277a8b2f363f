package store

import "context"

// AdvanceReadCursor moves the (user, chat) cursor forward, never back.
func (s *Store) AdvanceReadCursor(ctx context.Context, userID, chatID, messageID int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO read_cursors (user_id, chat_id, last_read_msg_id, read_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, chat_id) DO UPDATE SET
			last_read_msg_id = GREATEST(read_cursors.last_read_msg_id, EXCLUDED.last_read_msg_id),
			read_at = NOW()`,
		userID, chatID, messageID)
	return mapErr(err)
}

// ReadCursor returns the viewer's cursor position in a chat (0 when unset).
func (s *Store) ReadCursor(ctx context.Context, userID, chatID int64) (int64, error) {
	var last int64
	err := s.pool.QueryRow(ctx, `
		SELECT last_read_msg_id FROM read_cursors
		WHERE user_id = $1 AND chat_id = $2`, userID, chatID).Scan(&last)
	if err != nil {
		if mapErr(err) == ErrNotFound {
			return 0, nil
		}
		return 0, mapErr(err)
	}
	return last, nil
}

// ReadReceipts lists cursors in a chat for members who share read receipts.
func (s *Store) ReadReceipts(ctx context.Context, chatID int64) ([]ReadReceipt, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT rc.user_id, u.username, rc.last_read_msg_id, rc.read_at
		FROM read_cursors rc
		JOIN users u ON u.id = rc.user_id
		LEFT JOIN user_settings us ON us.user_id = rc.user_id
		WHERE rc.chat_id = $1
		  AND COALESCE(us.read_receipts_enabled, true)`,
		chatID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []ReadReceipt
	for rows.Next() {
		var r ReadReceipt
		if err := rows.Scan(&r.UserID, &r.Username, &r.LastReadMsgID, &r.ReadAt); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, r)
	}
	return out, mapErr(rows.Err())
}
