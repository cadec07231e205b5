package audit

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound       = errors.New("audit record not found")
	ErrDuplicate      = errors.New("audit record already exists for run")
	ErrSealed         = errors.New("audit record is sealed")
	ErrNotSealed      = errors.New("audit record is not sealed")
	ErrInvalidOutcome = errors.New("invalid audit outcome")
	ErrDigestMismatch = errors.New("audit record digest mismatch")
)

// MapHTTPStatus maps audit errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrDigestMismatch):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
