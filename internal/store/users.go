package store

import (
	"context"
)

const userColumns = `
	u.id, u.username, u.display_name, u.bio, u.is_admin, u.is_blocked,
	u.is_active, u.last_activity, u.avatar_file_id,
	af.bucket AS avatar_bucket, af.object_key AS avatar_key`

const userFrom = `
	FROM users u
	LEFT JOIN files af ON af.id = u.avatar_file_id`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.Bio, &u.IsAdmin,
		&u.IsBlocked, &u.IsActive, &u.LastActivity, &u.AvatarFileID,
		&u.AvatarBucket, &u.AvatarKey)
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

// CreateUser inserts a user plus their default settings row. Username
// collisions surface as ErrConflict.
func (s *Store) CreateUser(ctx context.Context, username, email, passwordHash string, displayName *string) (*User, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, display_name)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		username, email, passwordHash, displayName).Scan(&id)
	if err != nil {
		return nil, mapErr(err)
	}

	// Settings defaults live in the schema; read_receipts_enabled=true,
	// last_seen_visibility='everyone'.
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO user_settings (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING`, id); err != nil {
		s.log.Warn().Err(err).Int64("user_id", id).Msg("default settings insert failed")
	}

	return s.UserByID(ctx, id)
}

func (s *Store) UserByID(ctx context.Context, id int64) (*User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+userFrom+` WHERE u.id = $1 AND u.is_active`, id))
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+userFrom+` WHERE u.username = $1 AND u.is_active`, username))
}

// CredentialsByUsername fetches what login needs; does not filter blocked
// users so the handler can distinguish the cases.
func (s *Store) CredentialsByUsername(ctx context.Context, username string) (*Credentials, error) {
	var c Credentials
	err := s.pool.QueryRow(ctx, `
		SELECT id, password_hash, is_admin, is_blocked, is_active
		FROM users WHERE username = $1`, username).
		Scan(&c.UserID, &c.PasswordHash, &c.IsAdmin, &c.IsBlocked, &c.IsActive)
	if err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (s *Store) SearchUsers(ctx context.Context, q string, limit int) ([]User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+userColumns+userFrom+`
		WHERE u.is_active AND (u.username ILIKE '%' || $1 || '%'
		   OR u.display_name ILIKE '%' || $1 || '%')
		ORDER BY u.username
		LIMIT $2`, q, limit)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, mapErr(rows.Err())
}

// UpdateUser applies the non-nil fields. Username changes collide with the
// unique index as ErrConflict.
func (s *Store) UpdateUser(ctx context.Context, id int64, displayName, bio, username *string) (*User, error) {
	_, err := s.pool.Exec(ctx, `
		UPDATE users SET
			display_name = COALESCE($2, display_name),
			bio          = COALESCE($3, bio),
			username     = COALESCE($4, username)
		WHERE id = $1 AND is_active`,
		id, displayName, bio, username)
	if err != nil {
		return nil, mapErr(err)
	}
	return s.UserByID(ctx, id)
}

func (s *Store) SetUserAvatar(ctx context.Context, userID, fileID int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET avatar_file_id = $2 WHERE id = $1 AND is_active`, userID, fileID)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchUserLastActivity overwrites last_activity with now. Idempotent,
// callers treat failures as best-effort.
func (s *Store) TouchUserLastActivity(ctx context.Context, userID int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE users SET last_activity = NOW() WHERE id = $1`, userID)
	return mapErr(err)
}

// LastSeenBucket derives the coarse last-seen label in SQL so every node
// buckets identically.
func (s *Store) LastSeenBucket(ctx context.Context, userID int64) (string, error) {
	var bucket string
	err := s.pool.QueryRow(ctx, `
		SELECT CASE
			WHEN last_activity IS NULL                     THEN 'long ago'
			WHEN NOW() - last_activity <= INTERVAL '5 minutes' THEN 'just now'
			WHEN NOW() - last_activity <= INTERVAL '1 hour'    THEN 'within an hour'
			WHEN NOW() - last_activity <= INTERVAL '1 day'     THEN 'today'
			WHEN NOW() - last_activity <= INTERVAL '7 days'    THEN 'this week'
			ELSE 'long ago'
		END
		FROM users WHERE id = $1`, userID).Scan(&bucket)
	if err != nil {
		return "", mapErr(err)
	}
	return bucket, nil
}
