// Package device implements the two output backends the Player can drive:
// a live PortAudio stream and an offline WAV file sink, both behind the
// same Device interface so the rest of the engine is agnostic to which one
// is pulling frames. Grounded on
// other_examples/7d06a8e3_rayboyd-audio-engine__internal-audio-engine.go.go's
// use of github.com/gordonklaus/portaudio for stream I/O and
// github.com/go-audio/wav for file encoding, generalized from a capture
// (input-only, record-on-demand) engine into a playback (output-driven
// pull) one.
package device

import (
	"sync/atomic"

	"github.com/justyntemme/sonora/pkg/audiosource"
)

// Device is what a Player writes its mixed output through.
type Device interface {
	ChannelCount() int
	SampleRate() float64
	// SamplePosition reports the cumulative frame count written so far.
	SamplePosition() uint64
	Pause() error
	Resume() error
	Stop() error
	Close() error
}

// PullFunc is the signature a Device calls each buffer period to get the
// next block of interleaved output.
type PullFunc func(output []float32, t audiosource.SourceTime) int

// samplePositionCounter is embedded by both backends: it is the only
// audio-thread state a control thread reads, so it is kept atomic exactly
// like the teacher's isRecording flag in the capture engine.
type samplePositionCounter struct {
	pos uint64
}

func (s *samplePositionCounter) advance(frames int) {
	atomic.AddUint64(&s.pos, uint64(frames))
}

func (s *samplePositionCounter) SamplePosition() uint64 {
	return atomic.LoadUint64(&s.pos)
}
