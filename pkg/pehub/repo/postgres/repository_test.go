package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/pehub/pkg/pehub"
)

func TestHandlePostgresError(t *testing.T) {
	r := &Repository{}

	tests := []struct {
		name string
		err  *pgconn.PgError
		kind pehub.ConstraintKind
	}{
		{"unique", &pgconn.PgError{Code: "23505", ConstraintName: "messages_pkey"}, pehub.ConstraintDuplicate},
		{"foreign key", &pgconn.PgError{Code: "23503", ConstraintName: "chat_messages_chat_id_fkey"}, pehub.ConstraintForeignKey},
		{"not null", &pgconn.PgError{Code: "23502", ColumnName: "sender_email"}, pehub.ConstraintNotNull},
		{"permission", &pgconn.PgError{Code: "42501", TableName: "messages"}, pehub.ConstraintPermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.handlePostgresError("op", fmt.Errorf("wrapped: %w", tt.err))
			var cerr *pehub.ConstraintError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tt.kind, cerr.Kind)
			assert.NotEmpty(t, cerr.Detail)
		})
	}

	t.Run("undefined table", func(t *testing.T) {
		err := r.handlePostgresError("op", &pgconn.PgError{Code: "42P01"})
		assert.Contains(t, err.Error(), "migration required")
	})

	t.Run("other", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := r.handlePostgresError("list content", cause)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "list content")
	})
}
