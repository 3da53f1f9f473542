// Package apperrors defines the error taxonomy shared by services and handlers.
// Services wrap these sentinels with context via fmt.Errorf("%w: ...") and
// handlers map them to HTTP statuses with errors.Is.
package apperrors

import (
	"errors"
	"net/http"
)

var (
	// ErrValidation indicates bad or missing input (400)
	ErrValidation = errors.New("validation failed")
	// ErrAuth indicates bad credentials, token or OTP (401)
	ErrAuth = errors.New("unauthorized")
	// ErrMFARequired indicates the password matched but an OTP is needed (401 + mfaRequired flag)
	ErrMFARequired = errors.New("otp required")
	// ErrForbidden indicates a role check failed (403)
	ErrForbidden = errors.New("forbidden")
	// ErrConflict indicates a duplicate email on signup (409)
	ErrConflict = errors.New("already exists")
	// ErrNotFound indicates a missing resource (404)
	ErrNotFound = errors.New("not found")
	// ErrConfiguration indicates a required external artifact is missing (500)
	ErrConfiguration = errors.New("configuration error")
	// ErrRetrieval indicates the index process failed or returned unparseable output (500)
	ErrRetrieval = errors.New("retrieval failed")
	// ErrSummarization indicates the external summarization call failed (500)
	ErrSummarization = errors.New("summarization failed")
	// ErrFeed indicates both the primary and the fallback CVE feed failed (500)
	ErrFeed = errors.New("feed unavailable")
)

// Status maps an error to its conventional HTTP status code
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrMFARequired), errors.Is(err, ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
