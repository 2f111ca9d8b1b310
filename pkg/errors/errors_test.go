package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestTranslatePG(t *testing.T) {
	plain := errors.New("boom")

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"unique", &pgconn.PgError{Code: "23505"}, ErrDuplicate},
		{"wrapped unique", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), ErrDuplicate},
		{"foreign key", &pgconn.PgError{Code: "23503"}, ErrForeignKey},
		{"other pg", &pgconn.PgError{Code: "42P01"}, nil},
		{"plain", plain, plain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TranslatePG(tt.in)
			if tt.name == "other pg" {
				var pgErr *pgconn.PgError
				if !errors.As(got, &pgErr) {
					t.Errorf("期望原样返回 PgError，实际: %v", got)
				}
				return
			}
			if got != tt.want {
				t.Errorf("期望 %v，实际 %v", tt.want, got)
			}
		})
	}
}
