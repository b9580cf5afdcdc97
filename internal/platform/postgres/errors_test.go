package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/voxnote/voxnote-api/internal/store"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	assert.NoError(t, mapError(nil, store.ErrNoteNotFound))

	err := mapError(sql.ErrNoRows, store.ErrNoteNotFound)
	assert.ErrorIs(t, err, store.ErrNoteNotFound)

	fk := &pgconn.PgError{Code: pgForeignKeyViolationCode}
	assert.ErrorIs(t, mapError(fk, store.ErrNoteNotFound), store.ErrInvalidEntity)

	unique := &pgconn.PgError{Code: pgUniqueViolationCode}
	assert.ErrorIs(t, mapError(unique, store.ErrNoteNotFound), store.ErrDuplicate)

	// Wrapped driver errors still map.
	wrapped := fmt.Errorf("insert failed: %w", fk)
	assert.ErrorIs(t, mapError(wrapped, store.ErrNoteNotFound), store.ErrInvalidEntity)

	// Anything else passes through untouched.
	plain := errors.New("connection reset")
	assert.Equal(t, plain, mapError(plain, store.ErrNoteNotFound))
}

func TestIsPgCode(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: pgUniqueViolationCode})
	assert.True(t, isPgCode(err, pgUniqueViolationCode))
	assert.False(t, isPgCode(err, pgForeignKeyViolationCode))
	assert.False(t, isPgCode(errors.New("other"), pgUniqueViolationCode))
}
