package session

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/raitha-mitra/inbox-sync/internal/backend"
	"github.com/raitha-mitra/inbox-sync/internal/events"
	"github.com/raitha-mitra/inbox-sync/internal/model"
	"github.com/raitha-mitra/inbox-sync/internal/notify"
	"github.com/raitha-mitra/inbox-sync/pkg/metrics"
)

// OpenCompose shows an empty composer.
func (s *Session) OpenCompose() {
	s.resetCompose(true)
}

// CloseCompose hides the composer and drops its recipient and results.
func (s *Session) CloseCompose() {
	s.resetCompose(false)
}

func (s *Session) resetCompose(open bool) {
	s.search.Cancel()

	s.mu.Lock()
	s.compose = composeState{open: open}
	s.seq.Next(ResourceSearch)
	s.mu.Unlock()

	s.emit(events.TypeComposeUpdated)
}

// SearchRecipients updates the recipient query. Queries shorter than the
// minimum clear the results; longer ones hit the directory after the
// debounce period, and only the last query typed is searched.
func (s *Session) SearchRecipients(query string) error {
	s.mu.Lock()
	if !s.compose.open {
		s.mu.Unlock()
		return ErrComposeClosed
	}
	s.compose.query = query
	short := utf8.RuneCountInString(strings.TrimSpace(query)) < s.opts.SearchMinChars
	if short {
		s.compose.results = nil
		s.seq.Next(ResourceSearch)
	}
	s.mu.Unlock()

	if short {
		s.search.Cancel()
		s.emit(events.TypeComposeUpdated)
		return nil
	}

	s.search.Do(func() {
		s.async(func(ctx context.Context) {
			s.runSearch(ctx, query)
		})
	})
	return nil
}

func (s *Session) runSearch(ctx context.Context, query string) {
	id := s.seq.Next(ResourceSearch)

	resp, err := s.backend.SearchUsers(ctx, strings.TrimSpace(query))
	if err != nil {
		s.logger.Warn("recipient search failed", zap.String("query", query), zap.Error(err))
		return
	}

	users := resp.Users
	if users == nil {
		users = []model.UserResult{}
	}

	s.mu.Lock()
	if !s.seq.IsLatest(ResourceSearch, id) || !s.compose.open || s.compose.query != query {
		s.mu.Unlock()
		metrics.StaleResponsesTotal.WithLabelValues(string(ResourceSearch)).Inc()
		return
	}
	s.compose.results = users
	s.mu.Unlock()

	s.emit(events.TypeComposeUpdated)
}

// SelectRecipient picks the single recipient of the new conversation.
func (s *Session) SelectRecipient(user model.UserResult) error {
	s.mu.Lock()
	if !s.compose.open {
		s.mu.Unlock()
		return ErrComposeClosed
	}
	s.compose.recipient = &user
	s.compose.query = user.Name
	s.compose.results = nil
	s.seq.Next(ResourceSearch)
	s.mu.Unlock()

	s.search.Cancel()
	s.emit(events.TypeComposeUpdated)
	return nil
}

// ClearRecipient removes the selected recipient.
func (s *Session) ClearRecipient() error {
	s.mu.Lock()
	if !s.compose.open {
		s.mu.Unlock()
		return ErrComposeClosed
	}
	s.compose.recipient = nil
	s.compose.query = ""
	s.mu.Unlock()

	s.emit(events.TypeComposeUpdated)
	return nil
}

// SubmitCompose sends the first message of a new conversation. On success
// the composer closes, the inbox reloads and, if the new conversation is
// already listed, its thread opens. The lookup is not retried.
func (s *Session) SubmitCompose(ctx context.Context, body string) error {
	s.mu.Lock()
	if !s.compose.open {
		s.mu.Unlock()
		return ErrComposeClosed
	}
	recipient := s.compose.recipient
	s.mu.Unlock()

	if recipient == nil {
		s.notifier.Notify(notify.KindError, MsgNoRecipient)
		return ErrNoRecipient
	}
	text := strings.TrimSpace(body)
	if text == "" {
		return ErrEmptyMessage
	}

	if _, err := s.backend.Send(ctx, &model.SendMessageRequest{ReceiverID: recipient.ID, MessageText: text}); err != nil {
		s.logger.Warn("compose send failed", zap.Int64("receiver_id", recipient.ID), zap.Error(err))
		s.notifier.Notify(notify.KindError, backend.UserMessage(err, MsgSendFailed))
		return err
	}

	s.resetCompose(false)
	s.notifier.Notify(notify.KindSuccess, MsgSent)

	if err := s.RefreshInbox(ctx); err != nil {
		// Sent; the refresh failure has already been surfaced.
		return nil
	}

	s.mu.Lock()
	conv, ok := model.FindConversation(s.conversations, recipient.ID)
	s.mu.Unlock()
	if !ok {
		s.logger.Debug("new conversation not listed yet", zap.Int64("user_id", recipient.ID))
		return nil
	}
	return s.OpenThread(ctx, conv.OtherUserID, conv.OtherUserName, conv.OtherUserLocation)
}

// MessageUser opens a thread with a user picked from the directory,
// whether or not a conversation with them exists yet.
func (s *Session) MessageUser(ctx context.Context, user model.UserResult) error {
	s.mu.Lock()
	composing := s.compose.open
	s.mu.Unlock()
	if composing {
		s.CloseCompose()
	}
	return s.OpenThread(ctx, user.ID, user.Name, user.Location)
}
