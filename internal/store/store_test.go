package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapErr(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", pgx.ErrNoRows, ErrNotFound},
		{"wrapped no rows", fmt.Errorf("query user: %w", pgx.ErrNoRows), ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505"}, ErrConflict},
		{"fk violation", &pgconn.PgError{Code: "23503"}, ErrForeignKey},
		{"other pg error", &pgconn.PgError{Code: "42601"}, nil},
		{"plain error", errors.New("broken pipe"), nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := mapErr(tc.in)
			if tc.want != nil {
				if !errors.Is(got, tc.want) {
					t.Errorf("mapErr(%v) = %v, want %v", tc.in, got, tc.want)
				}
				return
			}
			// Unmapped errors pass through untouched.
			if tc.in == nil {
				if got != nil {
					t.Errorf("mapErr(nil) = %v", got)
				}
			} else if !errors.Is(got, tc.in) {
				t.Errorf("mapErr(%v) = %v, want passthrough", tc.in, got)
			}
		})
	}
}
