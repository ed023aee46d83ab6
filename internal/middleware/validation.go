package middleware

import (
	"errors"
	"strconv"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	maxMessageLength = 5000
	maxQueryLength   = 100
)

// ValidateMessageText checks a draft or compose body. Blank text passes;
// the session rejects it without calling the backend.
func ValidateMessageText(text string) error {
	if !utf8.ValidString(text) {
		return errors.New("message must be valid UTF-8")
	}
	if utf8.RuneCountInString(text) > maxMessageLength {
		return errors.New("message exceeds maximum length")
	}
	return nil
}

// ParseUserID parses a positive backend user id.
func ParseUserID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid user ID")
	}
	return id, nil
}

// ValidateSearchQuery checks a directory search query.
func ValidateSearchQuery(q string) error {
	if !utf8.ValidString(q) {
		return errors.New("query must be valid UTF-8")
	}
	if utf8.RuneCountInString(q) > maxQueryLength {
		return errors.New("query exceeds maximum length")
	}
	return nil
}

// ValidateNotificationID validates a notification ID.
func ValidateNotificationID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid notification ID format")
	}
	return nil
}
