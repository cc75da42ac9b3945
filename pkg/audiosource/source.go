// Package audiosource defines the pull-based Source contract every leaf and
// mixer node implements, plus SourceTime, the authoritative clock passed
// into every write call. Grounded on the teacher's audio.VoiceManager pull
// loop (process-on-demand, no allocation on the hot path) generalized from
// a single voice-processing function into an interface every node in the
// graph satisfies.
package audiosource

import "time"

// SourceTime is the clock a Source observes on every write call.
// PosInFrames is the device's cumulative output frame counter and is the
// only authoritative timeline for scheduling; PosInstant is a coarse
// wallclock reference used for status reporting, never for scheduling
// decisions.
type SourceTime struct {
	PosInFrames uint64
	PosInstant  time.Time
}

// Source is a pull interface: the caller (a Device or a parent Mixer) asks
// for frames and the Source fills as many as it can. Implementations must
// not allocate, block, or take a contended lock inside Write - every
// concrete Source in this module is built to honor that on its audio-thread
// path.
type Source interface {
	// SampleRate reports the rate this source produces at.
	SampleRate() float64
	// ChannelCount reports the interleaved channel count this source
	// produces. len(output) passed to Write is always a multiple of it.
	ChannelCount() int
	// IsExhausted reports whether this source will never produce audio
	// again. Combined with a Write call returning 0, this means
	// permanently done; a 0-frame Write with IsExhausted() == false just
	// means nothing was available this call (e.g. an empty generator with
	// no active voices).
	IsExhausted() bool
	// Weight is a relative cost hint used to order concurrent dispatch:
	// heavier sources are started first so they do not become the
	// straggler in a worker-pool barrier.
	Weight() float64
	// Write fills output (interleaved by channel) and returns the number
	// of frames actually written, which may be less than
	// len(output)/ChannelCount() when the source is draining.
	Write(output []float32, t SourceTime) int
}
