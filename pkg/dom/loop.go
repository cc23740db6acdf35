package dom

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrLoopClosed is returned when work is submitted to a closed loop.
var ErrLoopClosed = errors.New("dom: loop closed")

// Loop runs tasks one at a time on a dedicated goroutine. Every mutation of a
// page and of the controllers mounted on it happens on the loop; blocking work
// runs elsewhere through Go and hands its continuation back.
type Loop struct {
	mu       sync.Mutex
	cond     *sync.Cond
	queue    []func()
	busy     bool
	inflight int
	closed   bool
	done     chan struct{}
	logger   *zap.Logger
}

// NewLoop starts a loop.
func NewLoop(logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Loop{
		done:   make(chan struct{}),
		logger: logger.Named("loop"),
	}
	l.cond = sync.NewCond(&l.mu)
	go l.run()
	return l
}

// Post queues fn. It reports false when the loop is closed.
func (l *Loop) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.queue = append(l.queue, fn)
	l.cond.Broadcast()
	return true
}

// Do runs fn on the loop and waits for it to finish. It must not be called
// from a loop task.
func (l *Loop) Do(fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrLoopClosed
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		select {
		case <-finished:
			return nil
		default:
			return ErrLoopClosed
		}
	}
}

// PanicError carries the value recovered from background work.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("dom: background work panicked: %v", e.Value)
}

// Go runs work on its own goroutine. The function work returns, if any, is
// queued on the loop. The loop counts the work as outstanding until the
// continuation is queued, so Settle waits for it. A panic in work queues
// nothing; use GoRecover when the caller must hear about it.
func (l *Loop) Go(work func() func()) bool {
	return l.GoRecover(work, nil)
}

// GoRecover is Go with a panic handler: when work panics, the continuation
// returned by recovered is queued in its place.
func (l *Loop) GoRecover(work func() func(), recovered func(*PanicError) func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.inflight++
	l.mu.Unlock()

	go func() {
		var then func()
		defer func() {
			if r := recover(); r != nil {
				l.logger.Error("background work panicked", zap.Any("panic", r))
				then = nil
				if recovered != nil {
					then = recovered(&PanicError{Value: r})
				}
			}
			l.mu.Lock()
			l.inflight--
			if then != nil && !l.closed {
				l.queue = append(l.queue, then)
			}
			l.cond.Broadcast()
			l.mu.Unlock()
		}()
		then = work()
	}()
	return true
}

// Settle blocks until the queue is empty, no task is running and no work
// started with Go is outstanding, or until the loop closes. It must not be
// called from a loop task.
func (l *Loop) Settle() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for !l.closed && (len(l.queue) > 0 || l.busy || l.inflight > 0) {
		l.cond.Wait()
	}
}

// Close drains queued tasks and stops the loop goroutine. Continuations of
// outstanding work are dropped.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.done
		return
	}
	l.closed = true
	l.cond.Broadcast()
	l.mu.Unlock()
	<-l.done
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		for len(l.queue) == 0 && !l.closed {
			l.cond.Wait()
		}
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return
		}
		task := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.busy = true
		l.mu.Unlock()

		l.exec(task)

		l.mu.Lock()
		l.busy = false
		l.cond.Broadcast()
		l.mu.Unlock()
	}
}

func (l *Loop) exec(task func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("task panicked", zap.Any("panic", r))
		}
	}()
	task()
}
