// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("invalid email or password")
	ErrLocked       = errors.New("account temporarily locked due to multiple failed attempts")
	ErrRateLimited  = errors.New("too many attempts, please try again later")
	ErrTransient    = errors.New("temporary upstream failure")
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// All authentication failures share one title and detail so the response
// shape never reveals whether an account exists.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", ErrUnauthorized.Error())
	case errors.Is(err, ErrLocked):
		Problem(w, http.StatusLocked, "Locked", ErrLocked.Error())
	case errors.Is(err, ErrRateLimited):
		Problem(w, http.StatusTooManyRequests, "Too Many Requests", ErrRateLimited.Error())
	case errors.Is(err, ErrTransient):
		Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "please retry later")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
