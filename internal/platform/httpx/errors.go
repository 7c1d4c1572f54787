package httpx

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors for the domain layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

const (
	pgUniqueViolation = "23505"
	pgFKViolation     = "23503"
)

// TranslateDBError converts storage-layer errors into domain sentinels so raw
// error shapes never leak through the API boundary.
func TranslateDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return ErrDuplicate
		case pgFKViolation:
			return ErrValidation
		}
	}
	return err
}

// RespondError maps domain errors to the uniform error envelope.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Fail(w, http.StatusNotFound, "NotFound", "The requested resource was not found.")
	case errors.Is(err, ErrDuplicate):
		Fail(w, http.StatusConflict, "Conflict", "Duplicate entry detected. Please use unique values.")
	case errors.Is(err, ErrValidation):
		Fail(w, http.StatusBadRequest, "ValidationError", err.Error())
	case errors.Is(err, ErrForbidden):
		Fail(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrUnauthorized):
		Fail(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	default:
		Fail(w, http.StatusInternalServerError, "InternalError", "An unexpected error occurred.")
	}
}
