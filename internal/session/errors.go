package session

import "errors"

// Validation errors returned before any backend call is made.
var (
	ErrNoThread          = errors.New("no thread is open")
	ErrEmptyMessage      = errors.New("message text is empty")
	ErrBlockNotRequested = errors.New("block was not requested")
	ErrComposeClosed     = errors.New("composer is not open")
	ErrNoRecipient       = errors.New("no recipient selected")
	ErrStopped           = errors.New("session stopped")
)

// IsValidation reports whether err is a local validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrNoThread) ||
		errors.Is(err, ErrEmptyMessage) ||
		errors.Is(err, ErrBlockNotRequested) ||
		errors.Is(err, ErrComposeClosed) ||
		errors.Is(err, ErrNoRecipient)
}
