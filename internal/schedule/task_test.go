package schedule

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/raitha-mitra/inbox-sync/pkg/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestTaskRunsImmediatelyAndRepeats(t *testing.T) {
	var calls atomic.Int32
	task := NewTask("test", 20*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, WithLogger(logger.NewNop()))

	require.NoError(t, task.Start(context.Background()))
	defer task.Stop()

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, time.Second, time.Millisecond)
	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	assert.True(t, task.Running())
}

func TestTaskWithoutImmediateWaitsOnePeriod(t *testing.T) {
	var calls atomic.Int32
	task := NewTask("test", 100*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, WithoutImmediate(), WithLogger(logger.NewNop()))

	require.NoError(t, task.Start(context.Background()))
	defer task.Stop()

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestTaskBacksOffOnError(t *testing.T) {
	var mu sync.Mutex
	var stamps []time.Time

	task := NewTask("test", 20*time.Millisecond, func(ctx context.Context) error {
		mu.Lock()
		stamps = append(stamps, time.Now())
		mu.Unlock()
		return errors.New("backend down")
	}, WithRandomization(0), WithMaxBackoff(time.Second), WithLogger(logger.NewNop()))

	require.NoError(t, task.Start(context.Background()))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(stamps) >= 4
	}, 2*time.Second, 5*time.Millisecond)
	task.Stop()

	mu.Lock()
	defer mu.Unlock()
	// Delays grow 20ms, 40ms, 80ms after the immediate first cycle.
	first := stamps[2].Sub(stamps[1])
	second := stamps[3].Sub(stamps[2])
	assert.Greater(t, second, first)
	assert.GreaterOrEqual(t, second, 70*time.Millisecond)
}

func TestTaskStopsOnTerminalError(t *testing.T) {
	var calls atomic.Int32
	var stopped atomic.Bool
	sentinel := errors.New("logged out")

	task := NewTask("test", 10*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return Terminal(sentinel)
	}, WithLogger(logger.NewNop()), WithOnStop(func(err error) {
		stopped.Store(true)
	}))

	require.NoError(t, task.Start(context.Background()))

	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("task did not stop")
	}

	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, stopped.Load())
	assert.False(t, task.Running())
	assert.ErrorIs(t, task.Err(), sentinel)
	assert.True(t, IsTerminal(task.Err()))
	task.Stop()
}

func TestTaskStartTwice(t *testing.T) {
	task := NewTask("test", time.Hour, func(ctx context.Context) error { return nil }, WithLogger(logger.NewNop()))

	require.NoError(t, task.Start(context.Background()))
	assert.ErrorIs(t, task.Start(context.Background()), ErrAlreadyRunning)

	task.Stop()
	task.Stop()
	assert.False(t, task.Running())

	require.NoError(t, task.Start(context.Background()))
	task.Stop()
}

func TestTaskStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	task := NewTask("test", time.Hour, func(ctx context.Context) error { return nil }, WithLogger(logger.NewNop()))

	require.NoError(t, task.Start(ctx))
	cancel()

	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("task ignored context cancellation")
	}
}

func TestDebouncerCoalesces(t *testing.T) {
	var mu sync.Mutex
	var got []string

	d := NewDebouncer(30 * time.Millisecond)
	for _, q := range []string{"a", "as", "ash"} {
		q := q
		d.Do(func() {
			mu.Lock()
			got = append(got, q)
			mu.Unlock()
		})
		time.Sleep(5 * time.Millisecond)
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"ash"}, got)
}

func TestDebouncerCancel(t *testing.T) {
	var fired atomic.Bool
	d := NewDebouncer(20 * time.Millisecond)
	d.Do(func() { fired.Store(true) })
	d.Cancel()

	time.Sleep(50 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestAfterCanBeStopped(t *testing.T) {
	var fired atomic.Bool
	timer := After(20*time.Millisecond, func() { fired.Store(true) })
	assert.True(t, timer.Stop())

	time.Sleep(40 * time.Millisecond)
	assert.False(t, fired.Load())

	var nilTimer *Timer
	assert.False(t, nilTimer.Stop())
}
