package handler

import (
	"net/http"
)

// ConnectionChecker reports whether a dependency is reachable.
type ConnectionChecker interface {
	IsConnected() bool
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	nats        ConnectionChecker
	breakerOpen func() bool
}

// NewHealthHandler creates a new health handler. nats is nil when the
// bridge is disabled.
func NewHealthHandler(nats ConnectionChecker, breakerOpen func() bool) *HealthHandler {
	return &HealthHandler{
		nats:        nats,
		breakerOpen: breakerOpen,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.breakerOpen != nil && h.breakerOpen() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "backend circuit open",
		})
		return
	}

	if h.nats != nil && !h.nats.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "NATS not connected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
