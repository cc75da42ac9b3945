package filesource

import "sync/atomic"

// ring is a single-producer single-consumer float32 ring buffer: one
// decoder goroutine writes, the audio thread reads. Read never blocks -
// an underrun just returns fewer frames than requested, which Write
// callers fill with silence. Grounded on the same bounded, wait-free
// handoff discipline as pkg/gc.Collector's channel, but built directly on
// a slice + atomic indices here because the reader must never block even
// transiently the way a channel receive can under contention.
type ring struct {
	buf  []float32
	mask uint64 // len(buf)-1, buf's length is always a power of two

	writePos uint64 // atomic, producer-owned
	readPos  uint64 // atomic, consumer-owned
}

// newRing allocates a ring sized to the next power of two >= capacity.
func newRing(capacity int) *ring {
	size := 1
	for size < capacity {
		size *= 2
	}
	return &ring{buf: make([]float32, size), mask: uint64(size - 1)}
}

// writable reports how many slots the producer can still write without
// overrunning the consumer.
func (r *ring) writable() int {
	w := atomic.LoadUint64(&r.writePos)
	rd := atomic.LoadUint64(&r.readPos)
	return len(r.buf) - int(w-rd)
}

// write appends as many samples from src as fit, returning the count
// written. Called only from the decoder goroutine.
func (r *ring) write(src []float32) int {
	n := len(src)
	if avail := r.writable(); n > avail {
		n = avail
	}
	w := atomic.LoadUint64(&r.writePos)
	for i := 0; i < n; i++ {
		r.buf[(w+uint64(i))&r.mask] = src[i]
	}
	atomic.AddUint64(&r.writePos, uint64(n))
	return n
}

// readable reports how many samples are available to read.
func (r *ring) readable() int {
	w := atomic.LoadUint64(&r.writePos)
	rd := atomic.LoadUint64(&r.readPos)
	return int(w - rd)
}

// read copies up to len(dst) available samples into dst, returning the
// count actually read. Called only from the audio thread; never blocks.
func (r *ring) read(dst []float32) int {
	n := len(dst)
	if avail := r.readable(); n > avail {
		n = avail
	}
	rd := atomic.LoadUint64(&r.readPos)
	for i := 0; i < n; i++ {
		dst[i] = r.buf[(rd+uint64(i))&r.mask]
	}
	atomic.AddUint64(&r.readPos, uint64(n))
	return n
}

// reset discards all buffered samples, used when a seek refills from a new
// position.
func (r *ring) reset() {
	atomic.StoreUint64(&r.writePos, 0)
	atomic.StoreUint64(&r.readPos, 0)
}
