package db

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
)

// ErrNoRows is the backend-neutral "not found" sentinel. Repository
// implementations may return it directly instead of their driver's own.
var ErrNoRows = errors.New("no rows in result set")

// IsNoRows reports whether err means the lookup matched nothing,
// regardless of which backend produced it. Handlers map this to 404.
func IsNoRows(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrNoRows) ||
		errors.Is(err, sql.ErrNoRows) ||
		errors.Is(err, pgx.ErrNoRows)
}
