package repository

import (
	"context"
	"database/sql/driver"
	"errors"

	"eminence/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres SQLSTATE values the API treats specially.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgAdminShutdown        = "57P01"
	pgCannotConnectNow     = "57P03"
	pgUniqueViolation      = "23505"
)

// translateError maps store failures onto AppError codes. Errors it does not
// recognize are returned unchanged so callers can wrap them as internal.
func translateError(err error, resource string, id interface{}) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return models.NewTransientError(err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgAdminShutdown, pgCannotConnectNow:
			return models.NewTransientError(err)
		case pgUniqueViolation:
			return models.NewConflictError(resource + " already exists")
		}
		// class 08 is connection exceptions
		if len(pgErr.Code) == 5 && pgErr.Code[:2] == "08" {
			return models.NewTransientError(err)
		}
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return models.NewTransientError(err)
	}
	return err
}
