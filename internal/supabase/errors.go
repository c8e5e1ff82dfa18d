package supabase

import (
	"errors"
	"fmt"
)

// ErrInvalidCredentials indicates the email/password pair was rejected
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrSessionMissing indicates the backend no longer knows the session.
// Callers treat it as expected noise after sign-out rather than a failure.
var ErrSessionMissing = errors.New("auth session missing")

// ErrSessionExpired indicates the refresh token was rejected and the user
// has to sign in again
var ErrSessionExpired = errors.New("session expired, sign in required")

// ErrUnauthorized indicates the access token was rejected by the data API
var ErrUnauthorized = errors.New("supabase request unauthorized")

// ErrRateLimited indicates the API rate limit was exceeded
var ErrRateLimited = errors.New("supabase API rate limit exceeded")

// ErrNotFound indicates a single-row lookup matched nothing
var ErrNotFound = errors.New("row not found")

// ServerError represents a 5xx error from the Supabase API
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("Supabase server error: HTTP %d", e.StatusCode)
}
