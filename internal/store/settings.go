package store

import "context"

// Settings returns the user's settings with the documented defaults applied
// when no row exists yet.
func (s *Store) Settings(ctx context.Context, userID int64) (*Settings, error) {
	out := &Settings{
		Theme:                "light",
		NotificationsEnabled: true,
		Language:             "en",
		ReadReceiptsEnabled:  true,
		LastSeenVisibility:   VisibilityEveryone,
	}
	err := s.pool.QueryRow(ctx, `
		SELECT theme, notifications_enabled, language,
		       COALESCE(read_receipts_enabled, true),
		       COALESCE(last_seen_visibility, 'everyone')
		FROM user_settings WHERE user_id = $1`, userID).
		Scan(&out.Theme, &out.NotificationsEnabled, &out.Language,
			&out.ReadReceiptsEnabled, &out.LastSeenVisibility)
	if err != nil {
		if mapErr(err) == ErrNotFound {
			return out, nil
		}
		return nil, mapErr(err)
	}
	return out, nil
}

func (s *Store) UpdateSettings(ctx context.Context, userID int64, in Settings) (*Settings, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_settings
			(user_id, theme, notifications_enabled, language,
			 read_receipts_enabled, last_seen_visibility)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			theme = EXCLUDED.theme,
			notifications_enabled = EXCLUDED.notifications_enabled,
			language = EXCLUDED.language,
			read_receipts_enabled = EXCLUDED.read_receipts_enabled,
			last_seen_visibility = EXCLUDED.last_seen_visibility`,
		userID, in.Theme, in.NotificationsEnabled, in.Language,
		in.ReadReceiptsEnabled, in.LastSeenVisibility)
	if err != nil {
		return nil, mapErr(err)
	}
	return s.Settings(ctx, userID)
}

// ReadReceiptsEnabled reads the single flag the read-marker publish gate
// needs. Missing row defaults to true.
func (s *Store) ReadReceiptsEnabled(ctx context.Context, userID int64) (bool, error) {
	var enabled bool
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(us.read_receipts_enabled, true)
		FROM users u
		LEFT JOIN user_settings us ON us.user_id = u.id
		WHERE u.id = $1`, userID).Scan(&enabled)
	if err != nil {
		return false, mapErr(err)
	}
	return enabled, nil
}

// LastSeenVisibility reads the privacy setting presence filtering depends
// on. Missing row defaults to everyone.
func (s *Store) LastSeenVisibility(ctx context.Context, userID int64) (string, error) {
	var v string
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(us.last_seen_visibility, 'everyone')
		FROM users u
		LEFT JOIN user_settings us ON us.user_id = u.id
		WHERE u.id = $1`, userID).Scan(&v)
	if err != nil {
		return "", mapErr(err)
	}
	return v, nil
}
