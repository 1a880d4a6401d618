package shared

import (
	"errors"
	"fmt"
)

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authentication errors
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrUnauthorized     = fmt.Errorf("credential rejected by server")
	ErrSessionExpired   = fmt.Errorf("session expired, login required")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")

	// API and service errors
	ErrNetwork        = fmt.Errorf("network error")
	ErrAPIRequest     = fmt.Errorf("API request failed")
	ErrServerRejected = fmt.Errorf("request rejected by server")
	ErrJobFailed      = fmt.Errorf("generation failed")
	ErrJobCancelled   = fmt.Errorf("job cancelled")
	ErrJobNotFound    = fmt.Errorf("job not found")

	// Local state errors
	ErrMutationInFlight = fmt.Errorf("mutation already in flight")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// APIError is a server rejection: a non-2xx status or a success:false envelope.
//
// Message carries the server's text verbatim so it can be shown to the user.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%v: status %d", ErrServerRejected, e.StatusCode)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return ErrServerRejected
}

// IsTransient reports whether err is a connectivity failure worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// NeedsLogin reports whether err can only be resolved by authenticating again.
func NeedsLogin(err error) bool {
	return errors.Is(err, ErrNotAuthenticated) || errors.Is(err, ErrSessionExpired)
}
