// Package session is the viewer's inbox view model: the conversation list,
// the single open thread and the new-conversation composer, kept in sync
// with the messaging backend by a cancellable poll task.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/raitha-mitra/inbox-sync/internal/backend"
	"github.com/raitha-mitra/inbox-sync/internal/events"
	"github.com/raitha-mitra/inbox-sync/internal/model"
	"github.com/raitha-mitra/inbox-sync/internal/notify"
	"github.com/raitha-mitra/inbox-sync/internal/render"
	"github.com/raitha-mitra/inbox-sync/internal/schedule"
	"github.com/raitha-mitra/inbox-sync/pkg/logger"
	"github.com/raitha-mitra/inbox-sync/pkg/metrics"
)

// Notification texts.
const (
	MsgLoadFailed  = "Failed to load messages"
	MsgSendFailed  = "Failed to send message"
	MsgBlockFailed = "Failed to block user"
	MsgBlocked     = "User blocked successfully"
	MsgSent        = "Message sent successfully!"
	MsgNoRecipient = "Please select a recipient"
)

// backgroundBudget bounds fetches started by timers rather than callers.
const backgroundBudget = 15 * time.Second

// Backend is the part of the messaging API the session uses.
type Backend interface {
	Inbox(ctx context.Context) (*model.InboxResponse, error)
	Thread(ctx context.Context, userID int64) (*model.ThreadResponse, error)
	Send(ctx context.Context, req *model.SendMessageRequest) (*model.SendMessageResponse, error)
	Block(ctx context.Context, userID int64) error
	MarkRead(ctx context.Context, messageID int64) error
	SearchUsers(ctx context.Context, query string) (*model.SearchResponse, error)
}

// Options tunes session timing.
type Options struct {
	PollInterval         time.Duration
	MaxBackoff           time.Duration
	ReadRefreshDelay     time.Duration
	SearchDebounce       time.Duration
	SearchMinChars       int
	ExplicitReadReceipts bool
	Location             *time.Location
	Clock                func() time.Time
}

// DefaultOptions returns the production timings.
func DefaultOptions() Options {
	return Options{
		PollInterval:     10 * time.Second,
		MaxBackoff:       2 * time.Minute,
		ReadRefreshDelay: time.Second,
		SearchDebounce:   300 * time.Millisecond,
		SearchMinChars:   2,
		Location:         time.Local,
		Clock:            time.Now,
	}
}

// View is the full rendered state of the session.
type View struct {
	Inbox   render.InboxView   `json:"inbox"`
	Thread  render.ThreadView  `json:"thread"`
	Compose render.ComposeView `json:"compose"`
}

type threadState struct {
	open         bool
	userID       int64
	name         string
	location     string
	messages     []model.Message
	draft        string
	blockPending bool
}

type composeState struct {
	open      bool
	query     string
	results   []model.UserResult
	recipient *model.UserResult
}

// Session owns the view state for one viewer. All methods are safe for
// concurrent use.
type Session struct {
	backend  Backend
	notifier notify.Notifier
	bus      *events.Bus
	opts     Options
	logger   *logger.Logger
	seq      *Sequencer
	poller   *schedule.Task
	search   *schedule.Debouncer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// emitMu orders snapshot+publish so subscribers see views in state order.
	emitMu sync.Mutex

	mu            sync.Mutex
	stopped       bool
	conversations []model.ConversationSummary
	unread        int
	thread        threadState
	compose       composeState
	readTimer     *schedule.Timer
}

// New creates a session. Polling does not begin until Start.
func New(b Backend, n notify.Notifier, bus *events.Bus, opts Options, log *logger.Logger) *Session {
	if log == nil {
		log = logger.Global()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.SearchMinChars < 1 {
		opts.SearchMinChars = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		backend:  b,
		notifier: n,
		bus:      bus,
		opts:     opts,
		logger:   log.Named("session"),
		seq:      NewSequencer(),
		search:   schedule.NewDebouncer(opts.SearchDebounce),
		ctx:      ctx,
		cancel:   cancel,
	}
	s.poller = schedule.NewTask("inbox", opts.PollInterval, s.pollCycle,
		schedule.WithMaxBackoff(opts.MaxBackoff),
		schedule.WithLogger(s.logger),
		schedule.WithOnStop(func(err error) {
			s.logger.Error("inbox polling stopped", zap.Error(err))
		}),
	)
	return s
}

// Start begins polling: one refresh now, then one per interval.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return ErrStopped
	}
	return s.poller.Start(ctx)
}

// Stop tears the session down. It cancels polling, pending timers and
// in-flight background fetches, and waits for them to return.
func (s *Session) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.readTimer.Stop()
	s.readTimer = nil
	s.mu.Unlock()

	s.search.Cancel()
	s.poller.Stop()
	s.cancel()
	s.wg.Wait()
}

// Polling reports whether the poll task is running.
func (s *Session) Polling() bool {
	return s.poller.Running()
}

// pollCycle refreshes the inbox and, when a thread is open, the thread.
func (s *Session) pollCycle(ctx context.Context) error {
	err := s.RefreshInbox(ctx)
	if s.openThreadID() != 0 {
		if terr := s.LoadThread(ctx); terr != nil && !errors.Is(terr, ErrNoThread) {
			err = errors.Join(err, terr)
		}
	}
	if errors.Is(err, backend.ErrUnauthorized) {
		return schedule.Terminal(err)
	}
	return err
}

// RefreshInbox fetches the conversation list and replaces the rendered
// inbox. On failure the previous inbox stays visible.
func (s *Session) RefreshInbox(ctx context.Context) error {
	id := s.seq.Next(ResourceInbox)

	resp, err := s.backend.Inbox(ctx)
	if err != nil {
		if ctx.Err() == nil && s.seq.IsLatest(ResourceInbox, id) {
			s.logger.Warn("inbox refresh failed", zap.Error(err))
			s.notifier.Notify(notify.KindError, backend.UserMessage(err, MsgLoadFailed))
		}
		return err
	}

	s.mu.Lock()
	if !s.seq.IsLatest(ResourceInbox, id) {
		s.mu.Unlock()
		metrics.StaleResponsesTotal.WithLabelValues(string(ResourceInbox)).Inc()
		return nil
	}
	s.conversations = resp.Conversations
	s.unread = resp.UnreadCount
	s.mu.Unlock()

	s.emit(events.TypeInboxUpdated)
	return nil
}

// View renders the whole session.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	return View{
		Inbox:   s.inboxViewLocked(),
		Thread:  s.threadViewLocked(),
		Compose: s.composeViewLocked(),
	}
}

// Inbox renders the conversation list.
func (s *Session) Inbox() render.InboxView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inboxViewLocked()
}

// Thread renders the thread pane.
func (s *Session) Thread() render.ThreadView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threadViewLocked()
}

// Compose renders the composer.
func (s *Session) Compose() render.ComposeView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.composeViewLocked()
}

// Conversations returns the last fetched conversation list.
func (s *Session) Conversations() []model.ConversationSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ConversationSummary(nil), s.conversations...)
}

func (s *Session) inboxViewLocked() render.InboxView {
	var openID int64
	if s.thread.open {
		openID = s.thread.userID
	}
	return render.Inbox(s.conversations, openID, s.unread, s.opts.Clock())
}

func (s *Session) threadViewLocked() render.ThreadView {
	return render.Thread(render.ThreadInput{
		Open:         s.thread.open,
		UserID:       s.thread.userID,
		Name:         s.thread.name,
		Location:     s.thread.location,
		Messages:     s.thread.messages,
		Draft:        s.thread.draft,
		BlockPending: s.thread.blockPending,
	}, s.opts.Location)
}

func (s *Session) composeViewLocked() render.ComposeView {
	return render.Compose(render.ComposeInput{
		Open:      s.compose.open,
		Query:     s.compose.query,
		Results:   s.compose.results,
		Recipient: s.compose.recipient,
	})
}

// emit publishes the current rendering of each changed view.
func (s *Session) emit(types ...events.Type) {
	if s.bus == nil {
		return
	}

	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	payloads := make([]any, len(types))
	for i, t := range types {
		switch t {
		case events.TypeInboxUpdated:
			payloads[i] = s.inboxViewLocked()
		case events.TypeThreadUpdated:
			payloads[i] = s.threadViewLocked()
		case events.TypeComposeUpdated:
			payloads[i] = s.composeViewLocked()
		}
	}
	s.mu.Unlock()

	for i, t := range types {
		s.bus.Publish(events.New(t, payloads[i]))
	}
}

// async runs fn on a tracked goroutine bound to the session lifetime.
// It is a no-op after Stop.
func (s *Session) async(fn func(ctx context.Context)) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(s.ctx, backgroundBudget)
		defer cancel()
		fn(ctx)
	}()
}

func (s *Session) openThreadID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.thread.open {
		return 0
	}
	return s.thread.userID
}
