package feed

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Dispatcher runs continuations on a designated execution context
type Dispatcher interface {
	// Dispatch schedules fn. It may block until fn is queued but never waits for fn to run.
	Dispatch(fn func())
}

// DispatcherFunc adapts a function to the Dispatcher interface
type DispatcherFunc func(fn func())

// Dispatch calls f(fn)
func (f DispatcherFunc) Dispatch(fn func()) {
	f(fn)
}

// SerialDispatcher runs continuations one at a time, in submission order, on a
// single goroutine it owns.
type SerialDispatcher struct {
	queue chan func()
	stop  chan struct{}
	done  chan struct{}

	closeOnce sync.Once
	// running is set while a continuation executes on the dispatcher goroutine
	running atomic.Bool
}

// NewSerialDispatcher starts a dispatcher with room for buffer pending continuations
func NewSerialDispatcher(buffer int) *SerialDispatcher {
	if buffer < 0 {
		buffer = 0
	}
	d := &SerialDispatcher{
		queue: make(chan func(), buffer),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *SerialDispatcher) loop() {
	defer close(d.done)
	for {
		select {
		case fn := <-d.queue:
			d.run(fn)
		case <-d.stop:
			d.drain()
			return
		}
	}
}

// drain runs whatever was queued before Close
func (d *SerialDispatcher) drain() {
	for {
		select {
		case fn := <-d.queue:
			d.run(fn)
		default:
			return
		}
	}
}

func (d *SerialDispatcher) run(fn func()) {
	d.running.Store(true)
	defer d.running.Store(false)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Recovered from panic in dispatched continuation", "panic", r)
		}
	}()
	fn()
}

// Dispatch queues fn. Continuations dispatched after Close are dropped.
func (d *SerialDispatcher) Dispatch(fn func()) {
	select {
	case <-d.stop:
		slog.Warn("Dropping continuation dispatched after close")
		return
	default:
	}

	select {
	case d.queue <- fn:
	case <-d.stop:
		slog.Warn("Dropping continuation dispatched after close")
	}
}

// Close stops accepting continuations and waits until the queued ones have run.
// Called from a running continuation it returns at once; the remaining queue
// still drains once that continuation returns.
func (d *SerialDispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.stop)
	})
	if d.running.Load() {
		return
	}
	<-d.done
}
