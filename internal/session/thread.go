package session

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/raitha-mitra/inbox-sync/internal/backend"
	"github.com/raitha-mitra/inbox-sync/internal/events"
	"github.com/raitha-mitra/inbox-sync/internal/model"
	"github.com/raitha-mitra/inbox-sync/internal/notify"
	"github.com/raitha-mitra/inbox-sync/internal/schedule"
	"github.com/raitha-mitra/inbox-sync/pkg/metrics"
)

// OpenThread makes userID the open thread, replacing any other, and loads
// its messages. A conversation with unread messages schedules a delayed
// inbox refresh so the server-side read state is picked up.
func (s *Session) OpenThread(ctx context.Context, userID int64, name, location string) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	s.readTimer.Stop()
	s.readTimer = nil
	s.thread = threadState{
		open:     true,
		userID:   userID,
		name:     name,
		location: location,
	}
	if conv, ok := model.FindConversation(s.conversations, userID); ok && conv.UnreadCount > 0 {
		s.readTimer = schedule.After(s.opts.ReadRefreshDelay, func() {
			s.async(func(ctx context.Context) {
				if err := s.RefreshInbox(ctx); err != nil {
					s.logger.Debug("read refresh failed", zap.Error(err))
				}
			})
		})
	}
	s.mu.Unlock()

	s.emit(events.TypeThreadUpdated, events.TypeInboxUpdated)
	return s.LoadThread(ctx)
}

// LoadThread fetches the open thread's messages. The result is dropped if
// the thread was closed or replaced, or a newer load was issued meanwhile.
func (s *Session) LoadThread(ctx context.Context) error {
	userID := s.openThreadID()
	if userID == 0 {
		return ErrNoThread
	}
	id := s.seq.Next(ResourceThread)

	resp, err := s.backend.Thread(ctx, userID)
	if err != nil {
		if ctx.Err() == nil && s.seq.IsLatest(ResourceThread, id) {
			s.logger.Warn("thread load failed", zap.Int64("user_id", userID), zap.Error(err))
			s.notifier.Notify(notify.KindError, backend.UserMessage(err, MsgLoadFailed))
		}
		return err
	}

	s.mu.Lock()
	if !s.seq.IsLatest(ResourceThread, id) || !s.thread.open || s.thread.userID != userID {
		s.mu.Unlock()
		metrics.StaleResponsesTotal.WithLabelValues(string(ResourceThread)).Inc()
		return nil
	}
	s.thread.messages = resp.Messages
	s.mu.Unlock()

	s.emit(events.TypeThreadUpdated)

	if s.opts.ExplicitReadReceipts {
		s.markRead(ctx, resp.Messages)
	}
	return nil
}

func (s *Session) markRead(ctx context.Context, msgs []model.Message) {
	for _, m := range msgs {
		if m.IsSent || m.IsRead || m.ID == 0 {
			continue
		}
		if err := s.backend.MarkRead(ctx, m.ID); err != nil {
			s.logger.Debug("mark read failed", zap.Int64("message_id", m.ID), zap.Error(err))
			return
		}
	}
}

// CloseThread returns the thread pane to the closed state and clears the draft.
func (s *Session) CloseThread() {
	s.mu.Lock()
	s.readTimer.Stop()
	s.readTimer = nil
	s.thread = threadState{}
	s.seq.Next(ResourceThread)
	s.mu.Unlock()

	s.emit(events.TypeThreadUpdated, events.TypeInboxUpdated)
}

// SetDraft replaces the text typed into the open thread's input.
func (s *Session) SetDraft(text string) error {
	s.mu.Lock()
	if !s.thread.open {
		s.mu.Unlock()
		return ErrNoThread
	}
	s.thread.draft = text
	s.mu.Unlock()

	s.emit(events.TypeThreadUpdated)
	return nil
}

// SendMessage sends the draft to the open thread's counterpart. Blank
// drafts are rejected without a network call. On failure the draft is kept.
func (s *Session) SendMessage(ctx context.Context) error {
	s.mu.Lock()
	if !s.thread.open {
		s.mu.Unlock()
		return ErrNoThread
	}
	userID := s.thread.userID
	text := strings.TrimSpace(s.thread.draft)
	s.mu.Unlock()

	if text == "" {
		return ErrEmptyMessage
	}

	if _, err := s.backend.Send(ctx, &model.SendMessageRequest{ReceiverID: userID, MessageText: text}); err != nil {
		s.logger.Warn("send failed", zap.Int64("receiver_id", userID), zap.Error(err))
		s.notifier.Notify(notify.KindError, backend.UserMessage(err, MsgSendFailed))
		return err
	}

	s.mu.Lock()
	if s.thread.open && s.thread.userID == userID {
		s.thread.draft = ""
	}
	s.mu.Unlock()
	s.emit(events.TypeThreadUpdated)

	if err := s.LoadThread(ctx); err != nil && !errors.Is(err, ErrNoThread) {
		s.logger.Debug("reload after send failed", zap.Error(err))
	}
	if err := s.RefreshInbox(ctx); err != nil {
		s.logger.Debug("inbox refresh after send failed", zap.Error(err))
	}
	return nil
}

// RequestBlock opens the block confirmation for the open thread.
func (s *Session) RequestBlock() error {
	s.mu.Lock()
	if !s.thread.open {
		s.mu.Unlock()
		return ErrNoThread
	}
	s.thread.blockPending = true
	s.mu.Unlock()

	s.emit(events.TypeThreadUpdated)
	return nil
}

// CancelBlock dismisses the block confirmation.
func (s *Session) CancelBlock() {
	s.mu.Lock()
	s.thread.blockPending = false
	s.mu.Unlock()

	s.emit(events.TypeThreadUpdated)
}

// ConfirmBlock blocks the open thread's counterpart. On success the thread
// closes and the inbox is refreshed; on failure both stay as they were.
func (s *Session) ConfirmBlock(ctx context.Context) error {
	s.mu.Lock()
	if !s.thread.open {
		s.mu.Unlock()
		return ErrNoThread
	}
	if !s.thread.blockPending {
		s.mu.Unlock()
		return ErrBlockNotRequested
	}
	userID := s.thread.userID
	s.mu.Unlock()

	if err := s.backend.Block(ctx, userID); err != nil {
		s.logger.Warn("block failed", zap.Int64("user_id", userID), zap.Error(err))
		s.notifier.Notify(notify.KindError, backend.UserMessage(err, MsgBlockFailed))
		return err
	}

	s.mu.Lock()
	if s.thread.userID == userID {
		s.readTimer.Stop()
		s.readTimer = nil
		s.thread = threadState{}
		s.seq.Next(ResourceThread)
	}
	s.mu.Unlock()

	s.emit(events.TypeThreadUpdated, events.TypeInboxUpdated)
	s.notifier.Notify(notify.KindSuccess, MsgBlocked)

	if err := s.RefreshInbox(ctx); err != nil {
		s.logger.Debug("inbox refresh after block failed", zap.Error(err))
	}
	return nil
}
