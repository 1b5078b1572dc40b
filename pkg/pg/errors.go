package pg

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrFailedToOpenDBConnection = errors.New("pg.connect_failed")
	ErrEmptyConnectionString    = errors.New("pg.empty_connection_string")
	ErrHealthcheckFailed        = errors.New("pg.healthcheck_failed")
	ErrFailedToParseDBConfig    = errors.New("pg.invalid_config")
	ErrFailedToApplyMigrations  = errors.New("pg.migrations_failed")
)

const codeUniqueViolation = "23505"

func IsNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsDuplicateKeyError reports a unique constraint violation.
func IsDuplicateKeyError(err error) bool {
	return hasCode(err, codeUniqueViolation)
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
