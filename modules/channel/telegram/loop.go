package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// eventLoop runs posted tasks one at a time on a single goroutine. Router
// handlers, download continuations and IRC events all run here, so they never
// race with each other.
type eventLoop struct {
	tasks    chan func()
	logger   *slog.Logger
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newEventLoop(size int, logger *slog.Logger) *eventLoop {
	return &eventLoop{
		tasks:  make(chan func(), size),
		logger: logger,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (l *eventLoop) start() {
	go l.run()
}

// post queues fn, blocking while the queue is full. It reports false once
// the loop is stopping.
func (l *eventLoop) post(fn func()) bool {
	select {
	case <-l.stopCh:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.stopCh:
		return false
	}
}

// tryPost queues fn without blocking.
func (l *eventLoop) tryPost(fn func()) bool {
	select {
	case <-l.stopCh:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	default:
		return false
	}
}

// flush waits until every task queued before the call has run. Tasks posted
// meanwhile are still accepted.
func (l *eventLoop) flush(ctx context.Context) error {
	reached := make(chan struct{})
	if !l.post(func() { close(reached) }) {
		return nil
	}
	select {
	case <-reached:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stop rejects new tasks, runs the ones already queued and waits for the
// loop goroutine to exit. Safe to call more than once.
func (l *eventLoop) stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
	<-l.done
}

func (l *eventLoop) run() {
	defer close(l.done)
	for {
		select {
		case fn := <-l.tasks:
			l.exec(fn)
		case <-l.stopCh:
			for {
				select {
				case fn := <-l.tasks:
					l.exec(fn)
				default:
					return
				}
			}
		}
	}
}

func (l *eventLoop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("event loop task panicked", "panic", fmt.Sprint(r))
		}
	}()
	fn()
}
