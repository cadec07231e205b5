package repository

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Sentinels maps database conditions onto a store's domain errors. A nil
// field leaves the matching condition unmapped.
type Sentinels struct {
	// NotFound replaces sql.ErrNoRows. ExecExpectOne also reports an
	// INSERT ... ON CONFLICT DO NOTHING conflict as sql.ErrNoRows.
	NotFound error
	// Duplicate replaces unique constraint violations.
	Duplicate error
	// Reference replaces foreign key violations.
	Reference error
}

// Map translates err using the configured sentinels. Unmapped errors are
// returned unchanged.
func (s Sentinels) Map(err error) error {
	switch {
	case err == nil:
		return nil
	case s.NotFound != nil && errors.Is(err, sql.ErrNoRows):
		return s.NotFound
	case s.Duplicate != nil && IsUniqueViolation(err):
		return s.Duplicate
	case s.Reference != nil && hasCode(err, pgForeignKeyViolation):
		return s.Reference
	default:
		return err
	}
}

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation.
func IsUniqueViolation(err error) bool {
	return hasCode(err, pgUniqueViolation)
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
