package persistence

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// SQLSTATE codes the repositories react to
const (
	sqlStateUniqueViolation      = "23505"
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// translateError maps driver and ORM errors onto domain errors. Errors that
// are already domain errors pass through unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.ErrAlreadyExists.Wrap(err)
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone):
		return shared.ErrStorageUnavailable.Wrap(err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return translateSQLState(pgErr.Code, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return translateSQLState(string(pqErr.Code), err)
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || pgconn.Timeout(err) {
		return shared.ErrStorageUnavailable.Wrap(err)
	}

	return err
}

func translateSQLState(code string, err error) error {
	switch {
	case code == sqlStateUniqueViolation:
		return shared.ErrAlreadyExists.Wrap(err)
	case code == sqlStateSerializationFailure, code == sqlStateDeadlockDetected:
		return shared.ErrStorageUnavailable.Wrap(err)
	case strings.HasPrefix(code, "08"), strings.HasPrefix(code, "57P0"):
		// connection exceptions and operator intervention (admin shutdown, crash shutdown)
		return shared.ErrStorageUnavailable.Wrap(err)
	}
	return err
}
