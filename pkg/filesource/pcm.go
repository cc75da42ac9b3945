// Package filesource implements file-backed playback: a fully preloaded,
// reference-counted PCM buffer with cheap clones, and a streamed source
// that decodes on a worker goroutine into a lock-free ring the audio
// thread drains without blocking. Grounded on
// other_examples/7d06a8e3_rayboyd-audio-engine's use of go-audio/wav +
// go-audio/audio for decode/encode and gordonklaus/portaudio for the
// device it ultimately feeds, generalized from a single capture-to-disk
// path into bidirectional decode/resample/playback.
package filesource

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/justyntemme/sonora/pkg/enginerr"
)

// pcmData is the reference-counted decode result a PreloadedFileSource
// clones share. The samples are read-only after construction, per the
// expanded spec's shared-resources note; the loop range is written by
// SetLoop and is seen by every clone.
type pcmData struct {
	channels   int
	sampleRate float64
	samples    []float32 // interleaved
	loopStart  int        // frame index, inclusive
	loopEnd    int         // frame index, exclusive; 0 means no loop configured
}

func (p *pcmData) frames() int {
	if p.channels == 0 {
		return 0
	}
	return len(p.samples) / p.channels
}

// decodeWAV fully decodes r into a pcmData. Used by PreloadedFileSource;
// StreamedFileSource instead holds the *wav.Decoder open and pulls chunks.
func decodeWAV(r io.Reader) (*pcmData, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		return nil, fmt.Errorf("%w: wav decoding requires a ReadSeeker", enginerr.ErrInput)
	}
	d := wav.NewDecoder(rs)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid wav file", enginerr.ErrInput)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: decoding wav: %v", enginerr.ErrInput, err)
	}
	floatBuf := buf.AsFloat32Buffer()
	return &pcmData{
		channels:   floatBuf.Format.NumChannels,
		sampleRate: float64(floatBuf.Format.SampleRate),
		samples:    floatBuf.Data,
	}, nil
}

// newWAVDecoder opens a streaming decoder over r, returning its format up
// front so the caller can size its ring buffer and resampler.
func newWAVDecoder(r io.Reader) (*wav.Decoder, *goaudio.Format, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		return nil, nil, fmt.Errorf("%w: wav decoding requires a ReadSeeker", enginerr.ErrInput)
	}
	d := wav.NewDecoder(rs)
	d.ReadInfo()
	if !d.IsValidFile() {
		return nil, nil, fmt.Errorf("%w: not a valid wav file", enginerr.ErrInput)
	}
	format := d.Format()
	return d, format, nil
}
