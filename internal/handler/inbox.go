// Package handler provides HTTP handlers for the view API.
package handler

import (
	"net/http"

	"github.com/raitha-mitra/inbox-sync/internal/badge"
	"github.com/raitha-mitra/inbox-sync/internal/notify"
	"github.com/raitha-mitra/inbox-sync/internal/session"
	"github.com/raitha-mitra/inbox-sync/pkg/logger"
)

// PageView is everything the client needs to draw the messages page.
type PageView struct {
	session.View
	Badges        badge.State           `json:"badges"`
	Notifications []notify.Notification `json:"notifications"`
}

// InboxHandler serves the page snapshot and the conversation list.
type InboxHandler struct {
	session *session.Session
	badges  *badge.Service
	notices *notify.Center
	logger  *logger.Logger
}

// NewInboxHandler creates a new inbox handler.
func NewInboxHandler(s *session.Session, b *badge.Service, n *notify.Center, log *logger.Logger) *InboxHandler {
	return &InboxHandler{
		session: s,
		badges:  b,
		notices: n,
		logger:  log,
	}
}

// Page renders the full page snapshot.
func (h *InboxHandler) Page() PageView {
	return PageView{
		View:          h.session.View(),
		Badges:        h.badges.State(),
		Notifications: h.notices.Active(),
	}
}

// View handles GET /api/v1/view
func (h *InboxHandler) View(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Page())
}

// Inbox handles GET /api/v1/inbox
func (h *InboxHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Inbox())
}

// Refresh handles POST /api/v1/inbox/refresh
func (h *InboxHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.session.RefreshInbox(r.Context()); err != nil {
		writeActionError(w, err, session.MsgLoadFailed)
		return
	}
	writeJSON(w, http.StatusOK, h.session.Inbox())
}

// Notifications handles GET /api/v1/notifications
func (h *InboxHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.notices.Active())
}
