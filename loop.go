package tether

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/zoobzio/clockz"
)

// Task is a unit of work executed on the loop.
type Task func() error

// Loop is the host environment's single-consumer task queue. Every document
// mutation, scan, link and lifecycle call runs as a task on it, one at a
// time, so none of them needs locking.
//
// Errors returned by tasks have no caller to return to; they are handed to
// the OnError handler, the host's uncaught-error channel.
type Loop struct {
	clock    clockz.Clock
	syncMode bool
	logger   zerolog.Logger
	onError  func(error)

	mu    sync.Mutex
	queue []Task
	wake  chan struct{}

	running atomic.Bool
	stopped atomic.Bool
}

// NewLoop creates a loop using the real clock. Call Run to start consuming
// tasks, or SyncMode for deterministic tests.
func NewLoop() *Loop {
	l := &Loop{
		clock:  clockz.RealClock,
		logger: zerolog.Nop(),
		wake:   make(chan struct{}, 1),
	}
	l.onError = l.logError
	return l
}

// SyncMode makes the loop run only when Flush is called, on the caller's
// goroutine, and makes Do run inline. Must be called before use.
func (l *Loop) SyncMode() *Loop {
	l.syncMode = true
	return l
}

// Clock sets the clock used for timers and debouncing.
// Use this with clockz.FakeClock for deterministic tests.
func (l *Loop) Clock(clock clockz.Clock) *Loop {
	l.clock = clock
	return l
}

// Logger sets the logger used by the default error handler.
func (l *Loop) Logger(logger zerolog.Logger) *Loop {
	l.logger = logger
	return l
}

// OnError sets the handler receiving task errors.
func (l *Loop) OnError(fn func(error)) *Loop {
	if fn != nil {
		l.onError = fn
	}
	return l
}

// Post queues a task. It is safe to call from any goroutine.
func (l *Loop) Post(task Task) {
	l.mu.Lock()
	l.queue = append(l.queue, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run consumes tasks until ctx is canceled. It returns an error if the loop
// is in sync mode or already running.
func (l *Loop) Run(ctx context.Context) error {
	if l.syncMode {
		return fmt.Errorf("loop is in sync mode")
	}
	if !l.running.CompareAndSwap(false, true) {
		return fmt.Errorf("loop already running")
	}
	defer l.stopped.Store(true)

	for {
		l.drain()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Do runs fn on the loop and waits for its result. In sync mode fn runs
// inline. Do must not be called from inside a task of an async loop.
func (l *Loop) Do(ctx context.Context, fn func() error) error {
	if l.syncMode {
		return fn()
	}
	if l.stopped.Load() {
		return ErrLoopStopped
	}
	done := make(chan error, 1)
	l.Post(func() error {
		done <- fn()
		return nil
	})
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Flush runs queued tasks, including tasks queued while flushing, until the
// queue is empty. It is only available in sync mode and returns the number
// of tasks run.
func (l *Loop) Flush() int {
	if !l.syncMode {
		return 0
	}
	return l.drain()
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

func (l *Loop) drain() int {
	n := 0
	for {
		task, ok := l.next()
		if !ok {
			return n
		}
		n++
		if err := task(); err != nil {
			l.onError(err)
		}
	}
}

func (l *Loop) next() (Task, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	task := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return task, true
}

// logError is the default uncaught-error handler.
func (l *Loop) logError(err error) {
	l.logger.Error().Err(err).Msg("uncaught loop task error")
	emit(LoopTaskFailed, KeyError.Field(err.Error()))
}

// schedule posts task once d has elapsed, and again every d when repeat is
// set. The returned stop function cancels it; a firing that is already
// queued but not yet run is dropped.
func (l *Loop) schedule(d time.Duration, repeat bool, task Task) (stop func()) {
	var (
		canceled atomic.Bool
		once     sync.Once
		done     = make(chan struct{})
		timer    = l.clock.NewTimer(d)
	)
	stop = func() {
		once.Do(func() {
			canceled.Store(true)
			timer.Stop()
			close(done)
		})
	}
	run := func() error {
		if canceled.Load() {
			return nil
		}
		return task()
	}

	go func() {
		for {
			select {
			case <-done:
				return
			case <-timer.C():
				if !repeat {
					l.Post(run)
					return
				}
				// re-arm before posting so the next period starts now
				timer.Reset(d)
				l.Post(run)
			}
		}
	}()
	return stop
}
