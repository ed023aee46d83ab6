// Package badge keeps the navigation badges and page title in step with the
// viewer's unread message and friend request counts.
package badge

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/raitha-mitra/inbox-sync/internal/backend"
	"github.com/raitha-mitra/inbox-sync/internal/events"
	"github.com/raitha-mitra/inbox-sync/internal/model"
	"github.com/raitha-mitra/inbox-sync/internal/render"
	"github.com/raitha-mitra/inbox-sync/internal/schedule"
	"github.com/raitha-mitra/inbox-sync/pkg/logger"
	"github.com/raitha-mitra/inbox-sync/pkg/metrics"
)

// ErrInactive is returned by Refresh when no viewer is logged in.
var ErrInactive = errors.New("badge service inactive: not logged in")

// CountsSource fetches notification counts for a user.
type CountsSource interface {
	NotificationCounts(ctx context.Context, userID int64) (*model.NotificationCounts, error)
}

// Options configures the service.
type Options struct {
	UserID     int64
	LoggedIn   bool
	Interval   time.Duration
	MaxBackoff time.Duration
	Title      string
}

// State is the rendered badge set.
type State struct {
	Active                   bool                     `json:"active"`
	Loaded                   bool                     `json:"loaded"`
	Counts                   model.NotificationCounts `json:"counts"`
	NavMessageCount          render.Badge             `json:"navMessageCount"`
	NavFriendRequestCount    render.Badge             `json:"navFriendRequestCount"`
	MobileMessageCount       render.Badge             `json:"mobileMessageCount"`
	MobileFriendRequestCount render.Badge             `json:"mobileFriendRequestCount"`
	Title                    string                   `json:"title"`
}

// Service polls the counts endpoint for the logged in viewer.
type Service struct {
	source CountsSource
	bus    *events.Bus
	opts   Options
	logger *logger.Logger
	task   *schedule.Task

	emitMu sync.Mutex

	mu     sync.Mutex
	issued uint64
	counts model.NotificationCounts
	loaded bool
}

// New creates a stopped service. bus may be nil.
func New(source CountsSource, bus *events.Bus, opts Options, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Global()
	}
	s := &Service{
		source: source,
		bus:    bus,
		opts:   opts,
		logger: log.Named("badge"),
	}
	s.task = schedule.NewTask("badges", opts.Interval, s.poll,
		schedule.WithMaxBackoff(opts.MaxBackoff),
		schedule.WithLogger(s.logger),
	)
	return s
}

// Active reports whether a viewer is logged in.
func (s *Service) Active() bool {
	return s.opts.LoggedIn && s.opts.UserID > 0
}

// Start begins polling. Without a logged in viewer it does nothing.
func (s *Service) Start(ctx context.Context) error {
	if !s.Active() {
		s.logger.Debug("not logged in, badge polling disabled")
		return nil
	}
	return s.task.Start(ctx)
}

// Stop ends polling. Badges keep their last state.
func (s *Service) Stop() {
	s.task.Stop()
}

// Polling reports whether the poll task is running.
func (s *Service) Polling() bool {
	return s.task.Running()
}

// Refresh fetches the counts now. Failures are logged and leave the
// previous state in place.
func (s *Service) Refresh(ctx context.Context) error {
	if !s.Active() {
		return ErrInactive
	}
	err := s.refresh(ctx)
	if err != nil {
		s.logger.Warn("badge refresh failed", zap.Error(err))
	}
	return err
}

func (s *Service) poll(ctx context.Context) error {
	err := s.refresh(ctx)
	if errors.Is(err, backend.ErrUnauthorized) {
		return schedule.Terminal(err)
	}
	return err
}

func (s *Service) refresh(ctx context.Context) error {
	s.mu.Lock()
	s.issued++
	id := s.issued
	s.mu.Unlock()

	counts, err := s.source.NotificationCounts(ctx, s.opts.UserID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if id != s.issued {
		s.mu.Unlock()
		metrics.StaleResponsesTotal.WithLabelValues("counts").Inc()
		return nil
	}
	s.counts = *counts
	s.loaded = true
	s.mu.Unlock()

	metrics.UnreadMessages.Set(float64(counts.UnreadMessages))
	metrics.FriendRequests.Set(float64(counts.FriendRequests))
	s.emit()
	return nil
}

func (s *Service) emit() {
	if s.bus == nil {
		return
	}
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.bus.Publish(events.New(events.TypeCountsUpdated, s.State()))
}

// State renders the badges from the last known counts.
func (s *Service) State() State {
	s.mu.Lock()
	counts, loaded := s.counts, s.loaded
	s.mu.Unlock()

	return Render(counts, loaded, s.Active(), s.opts.Title)
}

// Render builds the badge set for counts.
func Render(counts model.NotificationCounts, loaded, active bool, title string) State {
	return State{
		Active:                   active,
		Loaded:                   loaded,
		Counts:                   counts,
		NavMessageCount:          render.CappedBadge(counts.UnreadMessages),
		NavFriendRequestCount:    render.CappedBadge(counts.FriendRequests),
		MobileMessageCount:       render.CappedBadge(counts.UnreadMessages),
		MobileFriendRequestCount: render.CappedBadge(counts.FriendRequests),
		Title:                    render.Title(title, counts.Total()),
	}
}
