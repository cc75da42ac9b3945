package device

import (
	"fmt"
	"io"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/justyntemme/sonora/pkg/audiosource"
	"github.com/justyntemme/sonora/pkg/enginerr"
	"github.com/justyntemme/sonora/pkg/thread"
)

// WAVSink drives offline rendering: it pulls from a Source at its own pace
// (no real-time clock) and encodes every block straight to a WAV file,
// stopping once the source reports zero frames produced. Grounded on
// other_examples/7d06a8e3_rayboyd-audio-engine's wav.Encoder/audio.IntBuffer
// usage, generalized from int32 capture samples to float32 interleaved
// mix output.
type WAVSink struct {
	samplePositionCounter

	source     audiosource.Source
	encoder    *wav.Encoder
	closer     io.Closer
	channels   int
	sampleRate float64
	frameStep  int
	buffer     []float32
	intBuf     *audio.IntBuffer
	stopped    bool
}

// writeSeekCloser is what the wav encoder requires: it rewrites the RIFF
// header's size fields on Close, so the destination must be seekable.
type writeSeekCloser interface {
	io.WriteSeeker
	io.Closer
}

// CreateWAVSink opens w for writing and returns a sink ready to render
// source in blocks of framesPerBuffer. w must be seekable since the
// encoder patches header sizes on Close.
func CreateWAVSink(w writeSeekCloser, source audiosource.Source, framesPerBuffer int) *WAVSink {
	channels := source.ChannelCount()
	sampleRate := int(source.SampleRate())
	enc := wav.NewEncoder(w, sampleRate, 32, channels, 3) // format 3 = IEEE float

	return &WAVSink{
		source:     source,
		encoder:    enc,
		closer:     w,
		channels:   channels,
		sampleRate: source.SampleRate(),
		frameStep:  framesPerBuffer,
		buffer:     make([]float32, framesPerBuffer*channels),
		intBuf: &audio.IntBuffer{
			Format: &audio.Format{NumChannels: channels, SampleRate: sampleRate},
			Data:   make([]int, framesPerBuffer*channels),
		},
	}
}

func (s *WAVSink) ChannelCount() int   { return s.channels }
func (s *WAVSink) SampleRate() float64 { return s.sampleRate }
func (s *WAVSink) Pause() error        { return nil }
func (s *WAVSink) Resume() error       { return nil }

func (s *WAVSink) Stop() error {
	s.stopped = true
	return nil
}

func (s *WAVSink) Close() error {
	if err := s.encoder.Close(); err != nil {
		return fmt.Errorf("%w: finalizing wav file: %v", enginerr.ErrDevice, err)
	}
	return s.closer.Close()
}

// RenderAll pulls from the source one block at a time, writing each to the
// WAV file, until the source reports zero frames produced or Stop is
// called. There is no real-time pacing: offline rendering runs as fast as
// the encoder and disk allow.
func (s *WAVSink) RenderAll() error {
	thread.MarkAudioThread()
	defer thread.UnmarkAudioThread()
	for !s.stopped {
		t := audiosource.SourceTime{PosInFrames: s.SamplePosition(), PosInstant: time.Now()}
		n := s.source.Write(s.buffer, t)
		if n == 0 {
			return nil
		}
		for i := 0; i < n*s.channels; i++ {
			s.intBuf.Data[i] = int(int32(s.buffer[i] * float32(1<<23)))
		}
		s.intBuf.Data = s.intBuf.Data[:n*s.channels]
		if err := s.encoder.Write(s.intBuf); err != nil {
			return fmt.Errorf("%w: writing wav block: %v", enginerr.ErrDevice, err)
		}
		s.intBuf.Data = s.intBuf.Data[:cap(s.intBuf.Data)]
		s.advance(n)
	}
	return nil
}
