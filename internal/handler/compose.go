package handler

import (
	"net/http"

	"github.com/raitha-mitra/inbox-sync/internal/middleware"
	"github.com/raitha-mitra/inbox-sync/internal/model"
	"github.com/raitha-mitra/inbox-sync/internal/session"
	"github.com/raitha-mitra/inbox-sync/pkg/logger"
)

// ComposeSendRequest is the body of POST /api/v1/compose/send.
type ComposeSendRequest struct {
	MessageText string `json:"message_text"`
}

// ComposeHandler handles the new-conversation composer.
type ComposeHandler struct {
	session *session.Session
	logger  *logger.Logger
}

// NewComposeHandler creates a new compose handler.
func NewComposeHandler(s *session.Session, log *logger.Logger) *ComposeHandler {
	return &ComposeHandler{
		session: s,
		logger:  log,
	}
}

// Open handles POST /api/v1/compose
func (h *ComposeHandler) Open(w http.ResponseWriter, r *http.Request) {
	h.session.OpenCompose()
	writeJSON(w, http.StatusOK, h.session.Compose())
}

// Close handles DELETE /api/v1/compose
func (h *ComposeHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.session.CloseCompose()
	writeJSON(w, http.StatusOK, h.session.Compose())
}

// Search handles GET /api/v1/compose/search?q=. Results arrive on the
// stream once the debounce period has passed.
func (h *ComposeHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if err := middleware.ValidateSearchQuery(q); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.session.SearchRecipients(q); err != nil {
		writeActionError(w, err, "")
		return
	}
	writeJSON(w, http.StatusAccepted, h.session.Compose())
}

// SelectRecipient handles PUT /api/v1/compose/recipient
func (h *ComposeHandler) SelectRecipient(w http.ResponseWriter, r *http.Request) {
	var user model.UserResult
	if err := decodeJSON(w, r, &user); err != nil || user.ID <= 0 || user.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid recipient")
		return
	}

	if err := h.session.SelectRecipient(user); err != nil {
		writeActionError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, h.session.Compose())
}

// ClearRecipient handles DELETE /api/v1/compose/recipient
func (h *ComposeHandler) ClearRecipient(w http.ResponseWriter, r *http.Request) {
	if err := h.session.ClearRecipient(); err != nil {
		writeActionError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, h.session.Compose())
}

// Send handles POST /api/v1/compose/send
func (h *ComposeHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req ComposeSendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateMessageText(req.MessageText); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.session.SubmitCompose(r.Context(), req.MessageText); err != nil {
		writeActionError(w, err, session.MsgSendFailed)
		return
	}
	writeJSON(w, http.StatusCreated, h.session.View())
}

// MessageUser handles POST /api/v1/directory/message
func (h *ComposeHandler) MessageUser(w http.ResponseWriter, r *http.Request) {
	var user model.UserResult
	if err := decodeJSON(w, r, &user); err != nil || user.ID <= 0 || user.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid user")
		return
	}

	if err := h.session.MessageUser(r.Context(), user); err != nil {
		writeActionError(w, err, session.MsgLoadFailed)
		return
	}
	writeJSON(w, http.StatusOK, h.session.Thread())
}
