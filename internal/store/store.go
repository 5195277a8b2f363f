// Package store is the narrow facade over the relational store. It exposes
// named, parameterized operations; handlers never compose SQL themselves.
package store

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Error taxonomy surfaced to callers. Anything else is treated as internal.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrForeignKey = errors.New("referenced row missing")
)

// Store wraps the connection pool.
type Store struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
		log:  log.With().Str("component", "store").Logger(),
	}
}

// mapErr folds driver errors into the store taxonomy.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrConflict
		case "23503":
			return ErrForeignKey
		}
	}
	return err
}
