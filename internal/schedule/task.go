// Package schedule provides cancellable periodic tasks and timers.
package schedule

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/raitha-mitra/inbox-sync/pkg/logger"
	"github.com/raitha-mitra/inbox-sync/pkg/metrics"
)

// ErrAlreadyRunning is returned by Start on a running task.
var ErrAlreadyRunning = errors.New("task already running")

// Func is one cycle of a task.
type Func func(ctx context.Context) error

// Terminal wraps err so the task stops instead of backing off.
func Terminal(err error) error {
	return backoff.Permanent(err)
}

// IsTerminal reports whether err was produced by Terminal.
func IsTerminal(err error) bool {
	var perm *backoff.PermanentError
	return errors.As(err, &perm)
}

// Option configures a Task.
type Option func(*Task)

// WithMaxBackoff caps the delay between failing cycles.
func WithMaxBackoff(d time.Duration) Option {
	return func(t *Task) { t.maxBackoff = d }
}

// WithRandomization sets the backoff jitter factor (0 disables jitter).
func WithRandomization(f float64) Option {
	return func(t *Task) { t.randomization = f }
}

// WithoutImmediate skips the cycle that normally runs at Start.
func WithoutImmediate() Option {
	return func(t *Task) { t.immediate = false }
}

// WithLogger sets the logger used for cycle failures.
func WithLogger(l *logger.Logger) Option {
	return func(t *Task) { t.logger = l }
}

// WithOnStop registers a callback run after the loop exits on a terminal error.
func WithOnStop(fn func(err error)) Option {
	return func(t *Task) { t.onStop = fn }
}

// Task runs fn once at Start and then every interval until stopped.
// Failing cycles back off exponentially from interval up to the configured
// maximum; a success restores the normal period.
type Task struct {
	name          string
	interval      time.Duration
	fn            Func
	maxBackoff    time.Duration
	randomization float64
	immediate     bool
	logger        *logger.Logger
	onStop        func(err error)

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	lastErr error
}

// NewTask creates a stopped task.
func NewTask(name string, interval time.Duration, fn Func, opts ...Option) *Task {
	t := &Task{
		name:          name,
		interval:      interval,
		fn:            fn,
		maxBackoff:    8 * interval,
		randomization: 0.2,
		immediate:     true,
		logger:        logger.Global(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.maxBackoff < interval {
		t.maxBackoff = interval
	}
	return t
}

// Start launches the loop. The task stops when ctx is cancelled, Stop is
// called, or fn returns a Terminal error.
func (t *Task) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done != nil {
		select {
		case <-t.done:
		default:
			return ErrAlreadyRunning
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})
	t.lastErr = nil

	go t.loop(ctx, t.done)
	return nil
}

// Stop cancels the loop and waits for the in-flight cycle to return.
// It is safe to call on a stopped task.
func (t *Task) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the loop is active.
func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done == nil {
		return false
	}
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

// Done is closed when the current loop exits.
func (t *Task) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// Err returns the error that ended the loop, if it ended on a terminal error.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

func (t *Task) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = t.interval
	b.MaxInterval = t.maxBackoff
	b.Multiplier = 2
	b.RandomizationFactor = t.randomization
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func (t *Task) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	b := t.newBackOff()
	delay := time.Duration(0)
	if !t.immediate {
		delay = t.interval
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		err := t.fn(ctx)
		switch {
		case err == nil:
			metrics.RecordPoll(t.name, "ok")
			b.Reset()
			delay = t.interval
		case ctx.Err() != nil:
			return
		case IsTerminal(err):
			metrics.RecordPoll(t.name, "terminal")
			t.logger.Warn("task stopped", zap.String("task", t.name), zap.Error(err))
			t.mu.Lock()
			t.lastErr = err
			t.mu.Unlock()
			if t.onStop != nil {
				t.onStop(err)
			}
			return
		default:
			metrics.RecordPoll(t.name, "error")
			delay = b.NextBackOff()
			if delay == backoff.Stop {
				delay = t.maxBackoff
			}
			t.logger.Warn("task cycle failed",
				zap.String("task", t.name),
				zap.Duration("retry_in", delay),
				zap.Error(err),
			)
		}

		timer.Reset(delay)
	}
}
