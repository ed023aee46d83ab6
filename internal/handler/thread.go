package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/raitha-mitra/inbox-sync/internal/middleware"
	"github.com/raitha-mitra/inbox-sync/internal/model"
	"github.com/raitha-mitra/inbox-sync/internal/session"
	"github.com/raitha-mitra/inbox-sync/pkg/logger"
)

// OpenThreadRequest names the counterpart when they are not in the inbox yet.
type OpenThreadRequest struct {
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
}

// DraftRequest carries the text typed into the thread input.
type DraftRequest struct {
	Text *string `json:"text"`
}

// ThreadHandler handles the open thread.
type ThreadHandler struct {
	session *session.Session
	logger  *logger.Logger
}

// NewThreadHandler creates a new thread handler.
func NewThreadHandler(s *session.Session, log *logger.Logger) *ThreadHandler {
	return &ThreadHandler{
		session: s,
		logger:  log,
	}
}

// Open handles POST /api/v1/threads/{userID}
func (h *ThreadHandler) Open(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req OpenThreadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		conv, ok := model.FindConversation(h.session.Conversations(), userID)
		if !ok {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		req.Name, req.Location = conv.OtherUserName, conv.OtherUserLocation
	}

	if err := h.session.OpenThread(r.Context(), userID, req.Name, req.Location); err != nil {
		writeActionError(w, err, session.MsgLoadFailed)
		return
	}
	writeJSON(w, http.StatusOK, h.session.Thread())
}

// Close handles DELETE /api/v1/thread
func (h *ThreadHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.session.CloseThread()
	writeJSON(w, http.StatusOK, h.session.Thread())
}

// SetDraft handles PUT /api/v1/thread/draft
func (h *ThreadHandler) SetDraft(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Text == nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateMessageText(*req.Text); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.session.SetDraft(*req.Text); err != nil {
		writeActionError(w, err, session.MsgSendFailed)
		return
	}
	writeJSON(w, http.StatusOK, h.session.Thread())
}

// Send handles POST /api/v1/thread/messages. A text field replaces the
// draft before sending.
func (h *ThreadHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text != nil {
		if err := middleware.ValidateMessageText(*req.Text); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := h.session.SetDraft(*req.Text); err != nil {
			writeActionError(w, err, session.MsgSendFailed)
			return
		}
	}

	if err := h.session.SendMessage(r.Context()); err != nil {
		h.logger.Debug("send rejected", zap.Error(err))
		writeActionError(w, err, session.MsgSendFailed)
		return
	}
	writeJSON(w, http.StatusCreated, h.session.Thread())
}

// RequestBlock handles POST /api/v1/thread/block
func (h *ThreadHandler) RequestBlock(w http.ResponseWriter, r *http.Request) {
	if err := h.session.RequestBlock(); err != nil {
		writeActionError(w, err, session.MsgBlockFailed)
		return
	}
	writeJSON(w, http.StatusOK, h.session.Thread())
}

// ConfirmBlock handles POST /api/v1/thread/block/confirm
func (h *ThreadHandler) ConfirmBlock(w http.ResponseWriter, r *http.Request) {
	if err := h.session.ConfirmBlock(r.Context()); err != nil {
		writeActionError(w, err, session.MsgBlockFailed)
		return
	}
	writeJSON(w, http.StatusOK, h.session.Thread())
}

// CancelBlock handles DELETE /api/v1/thread/block
func (h *ThreadHandler) CancelBlock(w http.ResponseWriter, r *http.Request) {
	h.session.CancelBlock()
	writeJSON(w, http.StatusOK, h.session.Thread())
}
