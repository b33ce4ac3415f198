package logofetch

import "sync"

// Executor is the completion delivery context. All callbacks for a fetch
// are handed to one Executor so results arrive on a single, consistent
// execution context regardless of which worker produced them.
type Executor interface {
	Do(fn func())
}

// CallerExecutor runs callbacks synchronously on the calling goroutine.
// Useful in tests and batch tools where delivery context does not matter.
type CallerExecutor struct{}

// Do runs fn immediately.
func (CallerExecutor) Do(fn func()) { fn() }

// serialExecutor delivers callbacks one at a time, in submission order, on
// a single dedicated goroutine. It is the default completion context: the
// in-process analog of a UI main thread.
type serialExecutor struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool
	done   chan struct{}
}

func newSerialExecutor() *serialExecutor {
	e := &serialExecutor{done: make(chan struct{})}
	e.cond = sync.NewCond(&e.mu)
	go e.run()
	return e
}

// Do enqueues fn for ordered delivery. Never blocks the caller. Functions
// submitted after Close are dropped.
func (e *serialExecutor) Do(fn func()) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.queue = append(e.queue, fn)
	e.cond.Signal()
	e.mu.Unlock()
}

func (e *serialExecutor) run() {
	defer close(e.done)
	for {
		e.mu.Lock()
		for len(e.queue) == 0 && !e.closed {
			e.cond.Wait()
		}
		if len(e.queue) == 0 && e.closed {
			e.mu.Unlock()
			return
		}
		fn := e.queue[0]
		e.queue = e.queue[1:]
		e.mu.Unlock()

		fn()
	}
}

// Close drains already-queued functions and stops the delivery goroutine.
func (e *serialExecutor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		<-e.done
		return
	}
	e.closed = true
	e.cond.Signal()
	e.mu.Unlock()
	<-e.done
}
