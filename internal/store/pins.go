package store

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// PinMessage makes messageID the chat's single active pin, closing out any
// previous one in the same transaction.
func (s *Store) PinMessage(ctx context.Context, chatID, messageID, pinnedBy int64) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return mapErr(err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE pinned_messages SET unpinned_at = NOW()
		WHERE chat_id = $1 AND unpinned_at IS NULL`, chatID); err != nil {
		return mapErr(err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO pinned_messages (chat_id, message_id, pinned_by)
		VALUES ($1, $2, $3)`, chatID, messageID, pinnedBy); err != nil {
		return mapErr(err)
	}
	return mapErr(tx.Commit(ctx))
}

// UnpinMessage closes the active pin and returns which message it was.
func (s *Store) UnpinMessage(ctx context.Context, chatID int64) (int64, error) {
	var messageID int64
	err := s.pool.QueryRow(ctx, `
		UPDATE pinned_messages SET unpinned_at = NOW()
		WHERE chat_id = $1 AND unpinned_at IS NULL
		RETURNING message_id`, chatID).Scan(&messageID)
	if err != nil {
		return 0, mapErr(err)
	}
	return messageID, nil
}

// ActivePin returns the chat's current pin, or ErrNotFound.
func (s *Store) ActivePin(ctx context.Context, chatID int64) (*PinnedMessage, error) {
	var p PinnedMessage
	err := s.pool.QueryRow(ctx, `
		SELECT message_id, pinned_by, pinned_at
		FROM pinned_messages
		WHERE chat_id = $1 AND unpinned_at IS NULL`, chatID).
		Scan(&p.MessageID, &p.PinnedBy, &p.PinnedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}
