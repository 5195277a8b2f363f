package store

import (
	"context"
	"time"
)

// upsertChatState flips one per-(user, chat) flag, creating the state row on
// first use. column must be one of the fixed names below, never user input.
func (s *Store) upsertChatState(ctx context.Context, userID, chatID int64, column string, value bool) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_chat_state (user_id, chat_id, `+column+`)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, chat_id) DO UPDATE SET `+column+` = EXCLUDED.`+column,
		userID, chatID, value)
	return mapErr(err)
}

func (s *Store) SetFavorite(ctx context.Context, userID, chatID int64, favorite bool) error {
	return s.upsertChatState(ctx, userID, chatID, "is_favorite", favorite)
}

func (s *Store) SetArchived(ctx context.Context, userID, chatID int64, archived bool) error {
	return s.upsertChatState(ctx, userID, chatID, "is_archived", archived)
}

// SetSidebarPin pins/unpins the chat in the viewer's sidebar. Distinct from
// pinned messages.
func (s *Store) SetSidebarPin(ctx context.Context, userID, chatID int64, pinned bool) error {
	return s.upsertChatState(ctx, userID, chatID, "is_pinned", pinned)
}

// SetMuted mutes notifications until the given time; nil until unmutes
// (when muting) or clears the mute entirely.
func (s *Store) SetMuted(ctx context.Context, userID, chatID int64, until *time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_chat_state (user_id, chat_id, muted_until)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, chat_id) DO UPDATE SET muted_until = EXCLUDED.muted_until`,
		userID, chatID, until)
	return mapErr(err)
}
