package store

import "context"

// ToggleReaction flips a (message, user, emoji) reaction and reports whether
// it is now present. The operation is its own inverse.
func (s *Store) ToggleReaction(ctx context.Context, messageID, userID int64, emoji string) (added bool, err error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM message_reactions
		WHERE message_id = $1 AND user_id = $2 AND emoji = $3`,
		messageID, userID, emoji)
	if err != nil {
		return false, mapErr(err)
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO message_reactions (message_id, user_id, emoji)
		VALUES ($1, $2, $3)
		ON CONFLICT (message_id, user_id, emoji) DO NOTHING`,
		messageID, userID, emoji)
	if err != nil {
		return false, mapErr(err)
	}
	return true, nil
}

// ReactionsByMessageIDs groups reactions by (message, emoji); Me is true iff
// the viewer reacted with that emoji.
func (s *Store) ReactionsByMessageIDs(ctx context.Context, viewerID int64, ids []int64) ([]ReactionGroup, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT message_id, emoji, COUNT(*),
		       BOOL_OR(user_id = $1) AS me
		FROM message_reactions
		WHERE message_id = ANY($2::bigint[])
		GROUP BY message_id, emoji
		ORDER BY message_id, emoji`, viewerID, ids)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []ReactionGroup
	for rows.Next() {
		var g ReactionGroup
		if err := rows.Scan(&g.MessageID, &g.Emoji, &g.Count, &g.Me); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, g)
	}
	return out, mapErr(rows.Err())
}
