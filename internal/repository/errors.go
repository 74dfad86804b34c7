package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicate reports a unique-constraint violation. Callers that race on
// create-if-absent catch this instead of pre-checking; a check-then-insert
// has no safe ordering without the constraint.
var ErrDuplicate = errors.New("duplicate row")

const uniqueViolationCode = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
