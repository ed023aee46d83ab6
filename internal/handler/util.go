package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/raitha-mitra/inbox-sync/internal/backend"
	"github.com/raitha-mitra/inbox-sync/internal/session"
)

const maxBodyBytes = 64 * 1024

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// writeActionError maps a session or backend error onto a response. The
// viewer already sees backend failures as notifications; the body repeats
// the same text.
func writeActionError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, session.ErrNoThread),
		errors.Is(err, session.ErrBlockNotRequested),
		errors.Is(err, session.ErrComposeClosed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrEmptyMessage),
		errors.Is(err, session.ErrNoRecipient):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrStopped):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, backendStatus(err), backend.UserMessage(err, fallback))
	}
}

func backendStatus(err error) int {
	var rl *backend.RateLimitError
	if errors.As(err, &rl) {
		return http.StatusTooManyRequests
	}
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
		return apiErr.StatusCode
	}
	return http.StatusBadGateway
}
