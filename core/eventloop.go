package dialogue

import (
	"sync"
)

const eventLoopQueueCapacity = 64

// eventLoop runs every state mutation of a dialogue on a single goroutine.
// Capability callbacks arrive on arbitrary goroutines and are posted here.
type eventLoop struct {
	queue   chan func()
	closeCh chan struct{}
	done    chan struct{}

	endOnce sync.Once
}

func newEventLoop() *eventLoop {
	return &eventLoop{
		queue:   make(chan func(), eventLoopQueueCapacity),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// start processes queued work on a new goroutine until the loop is closed.
// teardown runs on that goroutine after the last queued function. Work
// posted before start is kept and runs first.
func (l *eventLoop) start(teardown func()) {
	go l.run(teardown)
}

func (l *eventLoop) run(teardown func()) {
	defer close(l.done)
	if teardown != nil {
		defer teardown()
	}

	for {
		select {
		case <-l.closeCh:
			return
		case fn := <-l.queue:
			if l.isClosed() {
				return
			}
			fn()
		}
	}
}

// post enqueues fn. It reports false once the loop is closed. It must not be
// called from the loop goroutine while the queue may be full.
func (l *eventLoop) post(fn func()) bool {
	if l.isClosed() {
		return false
	}

	select {
	case <-l.closeCh:
		return false
	case l.queue <- fn:
		return true
	}
}

// do runs fn on the loop and waits for its result. Calling do from the loop
// goroutine deadlocks.
func (l *eventLoop) do(fn func() error) error {
	result := make(chan error, 1)
	if !l.post(func() { result <- fn() }) {
		return ErrClosed
	}

	select {
	case err := <-result:
		return err
	case <-l.done:
		select {
		case err := <-result:
			return err
		default:
			return ErrClosed
		}
	}
}

func (l *eventLoop) close() {
	l.endOnce.Do(func() { close(l.closeCh) })
}

// wait blocks until the loop has exited.
func (l *eventLoop) wait() {
	<-l.done
}

func (l *eventLoop) isClosed() bool {
	select {
	case <-l.closeCh:
		return true
	default:
		return false
	}
}
