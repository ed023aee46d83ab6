package schedule

import (
	"sync"
	"time"
)

// Debouncer runs the most recently submitted function once no new
// submission has arrived for the wait period.
type Debouncer struct {
	wait time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewDebouncer creates a trailing-edge debouncer.
func NewDebouncer(wait time.Duration) *Debouncer {
	return &Debouncer{wait: wait}
}

// Do schedules fn, replacing any pending call.
func (d *Debouncer) Do(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.wait, fn)
}

// Cancel drops the pending call, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Timer is a one-shot delayed call that can be cancelled.
type Timer struct {
	t *time.Timer
}

// After runs fn once after d on its own goroutine.
func After(d time.Duration, fn func()) *Timer {
	return &Timer{t: time.AfterFunc(d, fn)}
}

// Stop cancels the call. It reports whether the call was prevented.
func (t *Timer) Stop() bool {
	if t == nil || t.t == nil {
		return false
	}
	return t.t.Stop()
}
