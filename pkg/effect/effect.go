// Package effect defines the in-place audio effect contract and the
// auto-bypass state machine that wraps every effect in a mixer's chain.
// Grounded on the teacher's pkg/param lock-free atomic parameter storage (generalized
// into a block-chunked smoother) and the teacher's event-pool diagnostics
// style, adapted here into tail/silence counters instead of pool hit/miss
// counters.
package effect

import "github.com/justyntemme/sonora/pkg/audiosource"

// InfiniteTail is returned by ProcessTail to mean the effect's audible tail
// never expires (reverbs with unbounded feedback, for instance) - such an
// effect never auto-bypasses.
const InfiniteTail = ^uint64(0)

// Effect is the contract every node in a mixer's effect chain implements.
// Process must not allocate or take a contended lock.
type Effect interface {
	// Name is a stable identifier used to validate ProcessMessage payloads
	// and to report which effect produced a status event.
	Name() string
	// Initialize is called once before first use; it may allocate and its
	// error fails the add-effect operation.
	Initialize(sampleRate float64, channelCount int, maxFrames int) error
	// ProcessStarted/ProcessStopped fire on bypass transitions.
	ProcessStarted()
	ProcessStopped()
	// Process runs in-place processing on output for the given time.
	Process(output []float32, t audiosource.SourceTime)
	// ProcessTail reports the audible tail, in frames, the effect would
	// still produce after its input goes silent. ok=false means unknown,
	// in which case the bypass state machine falls back to watching output
	// amplitude instead.
	ProcessTail() (frames uint64, ok bool)
	// ProcessParameterUpdate applies a cheap parameter change by tag.
	ProcessParameterUpdate(tag uint32, value float64)
	// ProcessMessage handles an effect-typed custom payload. Implementations
	// reject payloads that don't belong to them.
	ProcessMessage(payload []byte)
}

// silenceThreshold and silenceSeconds ground the fallback tail-detection
// path (no declared ProcessTail) on a silence counter.
const (
	silenceThreshold = 0.001
	silenceSeconds   = 2.0
)

// bypassState is the effect's auto-bypass phase.
type bypassState int

const (
	statProcessing bypassState = iota
	statBypassed
)

// Bypasser wraps an Effect with the auto-bypass state machine: it skips
// Process entirely while bypassed, and transitions back to processing the
// moment its input carries audio again.
type Bypasser struct {
	effect   Effect
	channels int

	state bypassState

	tailCounter   uint64 // frames remaining before a declared tail expires
	hasFiniteTail bool
	silenceFrames uint64 // cumulative silent frames while watching amplitude
	sampleRate    float64
}

// NewBypasser wraps effect, starting in the processing state. channelCount
// is needed to turn output's interleaved sample count back into a frame
// count for tail/silence tracking.
func NewBypasser(effect Effect, sampleRate float64, channelCount int) *Bypasser {
	return &Bypasser{effect: effect, state: statProcessing, sampleRate: sampleRate, channels: channelCount}
}

// Effect returns the wrapped effect.
func (b *Bypasser) Effect() Effect {
	return b.effect
}

// IsBypassed reports whether Process was skipped on the most recent call.
func (b *Bypasser) IsBypassed() bool {
	return b.state == statBypassed
}

// inputIsSilent reports whether every sample in output is at or below the
// auto-bypass silence threshold, i.e. upstream mixing produced no audible
// signal this block.
func inputIsSilent(output []float32) bool {
	for _, s := range output {
		v := s
		if v < 0 {
			v = -v
		}
		if float64(v) > silenceThreshold {
			return false
		}
	}
	return true
}

// Process runs the bypass state machine for one block: it decides whether
// to enter/leave bypass, calls ProcessStarted/ProcessStopped on transition,
// and invokes the wrapped effect's Process only while not bypassed.
func (b *Bypasser) Process(output []float32, t audiosource.SourceTime) {
	silent := inputIsSilent(output)
	channels := b.channels
	if channels <= 0 {
		channels = 1
	}
	frames := uint64(len(output) / channels)

	switch b.state {
	case statBypassed:
		if !silent {
			b.state = statProcessing
			b.effect.ProcessStarted()
			b.resetTailTracking()
		} else {
			return
		}
	case statProcessing:
		if silent {
			b.advanceTailTracking(frames)
			if b.tailExpired() {
				b.state = statBypassed
				b.effect.ProcessStopped()
				return
			}
		} else {
			b.resetTailTracking()
		}
	}

	b.effect.Process(output, t)
}

func (b *Bypasser) resetTailTracking() {
	frames, ok := b.effect.ProcessTail()
	b.hasFiniteTail = ok && frames != InfiniteTail
	if b.hasFiniteTail {
		b.tailCounter = frames
	}
	b.silenceFrames = 0
}

func (b *Bypasser) advanceTailTracking(frames uint64) {
	if b.hasFiniteTail {
		if frames >= b.tailCounter {
			b.tailCounter = 0
		} else {
			b.tailCounter -= frames
		}
		return
	}
	if _, ok := b.effect.ProcessTail(); ok {
		// Declared InfiniteTail: never expires, never count toward bypass.
		return
	}
	b.silenceFrames += frames
}

func (b *Bypasser) tailExpired() bool {
	frames, ok := b.effect.ProcessTail()
	if ok && frames == InfiniteTail {
		return false
	}
	if b.hasFiniteTail {
		return b.tailCounter == 0
	}
	return float64(b.silenceFrames) >= silenceSeconds*b.sampleRate
}
