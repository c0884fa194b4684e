package service

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

var (
	ErrValidation       = errors.New("validation error")
	ErrNotFound         = errors.New("customer not found")
	ErrAlreadyVerified  = errors.New("customer already verified")
	ErrCodeMismatch     = errors.New("verification code mismatch")
	ErrCodeExpired      = errors.New("verification code expired")
	ErrWrongPassword    = errors.New("wrong password")
	ErrNotVerified      = errors.New("customer not verified")
	ErrDuplicateEmail   = errors.New("email already registered")
	ErrTokenNotFound    = errors.New("reset token not found")
	ErrTokenExpired     = errors.New("token expired")
	ErrInvalidToken     = errors.New("invalid token")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Validation details. Each wraps ErrValidation.
var (
	ErrMissingFields    = fmt.Errorf("%w: missing required fields", ErrValidation)
	ErrInvalidEmail     = fmt.Errorf("%w: invalid email address", ErrValidation)
	ErrInvalidID        = fmt.Errorf("%w: invalid customer id", ErrValidation)
	ErrPasswordMismatch = fmt.Errorf("%w: passwords do not match", ErrValidation)
	ErrPasswordTooShort = fmt.Errorf("%w: password too short", ErrValidation)
	ErrPasswordTooLong  = fmt.Errorf("%w: password too long", ErrValidation)
)

const uniqueViolationCode = "23505"

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolationCode
	}
	return false
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}
