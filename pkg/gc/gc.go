// Package gc implements the deferred-destruction path for heap payloads
// that cross the control-thread to audio-thread boundary. The audio thread
// must never call free/GC-trigger code itself, so any payload it needs to
// drop is wrapped in a Boxed[T] and handed to a Collector goroutine instead,
// generalizing the discipline the teacher used for its event object pool
// (pre-allocate on the control thread, recycle off the audio thread) from a
// single fixed-type pool into a generic deferred-drop queue.
package gc

import "sync/atomic"

// Boxed wraps a heap value that may be read on the audio thread but must be
// released off it. The zero value is an empty box (Present() is false).
type Boxed[T any] struct {
	value   T
	present bool
	sink    *Collector
}

// Box creates a Boxed value that, when Release is called, is pushed onto
// sink rather than freed inline. A nil sink makes Release a no-op drop,
// which is fine for values with no finalizer-sensitive state.
func Box[T any](value T, sink *Collector) Boxed[T] {
	return Boxed[T]{value: value, present: true, sink: sink}
}

// Present reports whether the box holds a value.
func (b Boxed[T]) Present() bool {
	return b.present
}

// Value returns the boxed value. Callers on the audio thread may read it
// freely; only Release requires routing through the collector.
func (b Boxed[T]) Value() T {
	return b.value
}

// Release hands the box to its collector for deferred drop. Safe to call
// from the audio thread: it never allocates and never blocks longer than a
// single non-blocking channel send.
func (b Boxed[T]) Release() {
	if !b.present || b.sink == nil {
		return
	}
	b.sink.push(any(b.value))
}

// Collector drains boxed payloads released by the audio thread on a
// dedicated goroutine, so the value's last reference drops - and any
// finalizer or large-slice backing array is freed - off the audio thread.
type Collector struct {
	queue   chan any
	dropped uint64 // incremented when the queue is full and a push is discarded
	done    chan struct{}
}

// NewCollector starts a collector goroutine with a bounded queue of the
// given capacity. Capacity should comfortably exceed the number of boxed
// payloads releasable within one audio callback.
func NewCollector(capacity int) *Collector {
	if capacity <= 0 {
		capacity = 1
	}
	c := &Collector{
		queue: make(chan any, capacity),
		done:  make(chan struct{}),
	}
	go c.run()
	return c
}

func (c *Collector) run() {
	for v := range c.queue {
		_ = v // letting v go out of scope here is the actual "collection"
	}
	close(c.done)
}

// push enqueues a value for deferred drop. Non-blocking: if the queue is
// full the value is dropped immediately on the caller's goroutine instead of
// stalling the audio thread, and Dropped() is incremented.
func (c *Collector) push(v any) {
	select {
	case c.queue <- v:
	default:
		atomic.AddUint64(&c.dropped, 1)
	}
}

// Dropped returns the number of releases that could not be queued because
// the collector's buffer was full.
func (c *Collector) Dropped() uint64 {
	return atomic.LoadUint64(&c.dropped)
}

// Close stops accepting new work and blocks until the drain goroutine exits
// after processing everything already queued.
func (c *Collector) Close() {
	close(c.queue)
	<-c.done
}
