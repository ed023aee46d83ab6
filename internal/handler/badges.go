package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/raitha-mitra/inbox-sync/internal/badge"
	"github.com/raitha-mitra/inbox-sync/internal/middleware"
	"github.com/raitha-mitra/inbox-sync/internal/notify"
	"github.com/raitha-mitra/inbox-sync/pkg/logger"
)

// BadgeHandler serves navigation badges and notifications.
type BadgeHandler struct {
	badges  *badge.Service
	notices *notify.Center
	logger  *logger.Logger
}

// NewBadgeHandler creates a new badge handler.
func NewBadgeHandler(b *badge.Service, n *notify.Center, log *logger.Logger) *BadgeHandler {
	return &BadgeHandler{
		badges:  b,
		notices: n,
		logger:  log,
	}
}

// Get handles GET /api/v1/badges
func (h *BadgeHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.badges.State())
}

// Refresh handles POST /api/v1/badges/refresh. Fetch failures are not
// reported to the viewer; the last known badges are returned.
func (h *BadgeHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.badges.Refresh(r.Context()); errors.Is(err, badge.ErrInactive) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.badges.State())
}

// DismissNotification handles DELETE /api/v1/notifications/{id}
func (h *BadgeHandler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateNotificationID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !h.notices.Dismiss(id) {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
