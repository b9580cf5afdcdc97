package postgres

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/voxnote/voxnote-api/internal/store"
)

// PostgreSQL error codes the stores map onto store sentinels.
const (
	pgForeignKeyViolationCode = "23503"
	pgUniqueViolationCode     = "23505"
)

// mapError translates driver errors into store sentinel errors so callers
// never see pg error codes. notFound is the entity-specific sentinel to
// use for sql.ErrNoRows.
func mapError(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolationCode:
			return store.ErrInvalidEntity
		case pgUniqueViolationCode:
			return store.ErrDuplicate
		}
	}
	return err
}

// isPgCode reports whether err carries the given PostgreSQL error code.
func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
