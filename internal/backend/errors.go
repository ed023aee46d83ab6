package backend

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrTransport marks failures to reach the backend at all.
	ErrTransport = errors.New("backend unreachable")

	// ErrMalformed marks a 2xx response whose body could not be decoded.
	ErrMalformed = errors.New("malformed backend response")

	// ErrUnauthorized matches any 401 from the backend. Pollers stop on it.
	ErrUnauthorized = errors.New("backend session not authenticated")
)

// resetTimeLayout matches how the web client rendered rate-limit resets.
const resetTimeLayout = "3:04:05 PM"

// APIError is a non-2xx response. Message holds the body's error field
// verbatim and is empty when the body carried none.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// RateLimitError is a 429 response flagged with rate_limit_exceeded.
type RateLimitError struct {
	APIError
	Remaining int
	ResetAt   time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s (resets at %s)", e.APIError.Error(), e.ResetAt.Format(time.RFC3339))
}

// Unwrap exposes the embedded APIError to errors.As.
func (e *RateLimitError) Unwrap() error {
	return &e.APIError
}

// UserMessage maps err to the text shown to the viewer. Server-reported
// messages are returned verbatim, rate limits gain a retry time, and
// everything else collapses to fallback.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var rl *RateLimitError
	if errors.As(err, &rl) {
		msg := rl.Message
		if msg == "" {
			msg = "Rate limit exceeded."
		}
		return fmt.Sprintf("%s Please try again after %s.", msg, rl.ResetAt.Local().Format(resetTimeLayout))
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}

	return fallback
}

// IsApplicationError reports whether the backend answered with a client-side
// (4xx) rejection rather than failing.
func IsApplicationError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError
}
