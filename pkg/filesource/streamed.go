package filesource

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/justyntemme/sonora/pkg/audiosource"
	"github.com/justyntemme/sonora/pkg/resample"
)

// decoderChunkFrames is how many frames the decoder worker reads from the
// codec per pull, matching the "worker pulls from the codec and fills a
// ring buffer" shape without pulling one frame at a time.
const decoderChunkFrames = 1024

// ringCapacityFrames sizes the SPSC ring comfortably above one decoder
// chunk so the audio thread can drain several blocks' worth before an
// underrun, absorbing scheduling jitter on the decoder goroutine.
const ringCapacityFrames = 8192

// seekRequest is sent to the decoder worker; it drains the ring and
// refills from frame.
type seekRequest struct {
	frame int64
}

// StreamedFileSource decodes a WAV file on a dedicated worker goroutine
// into a lock-free ring the audio thread reads without blocking. On
// underrun it emits silence and keeps its playhead advancing rather than
// stalling, per §4.6.
type StreamedFileSource struct {
	decoder    *wav.Decoder
	format     *goaudio.Format
	outputRate float64
	channels   int

	ring     *ring
	seekCh   chan seekRequest
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}

	eof       int32 // atomic bool: decoder has no more frames to offer
	exhausted bool

	volume    float64
	panning   float64
	speed     float64
	resampler *resample.Cubic

	pullBuf   []float32 // reused ring-read scratch, sized channels
	scratch64 []float64 // reused resampler output scratch, sized len(output)
}

// OpenStreamed starts decoding r on a worker goroutine and returns a source
// ready to play at outputRate/channels. r must stay valid and seekable for
// the lifetime of the returned source.
func OpenStreamed(r io.Reader, outputRate float64, channels int) (*StreamedFileSource, error) {
	d, format, err := newWAVDecoder(r)
	if err != nil {
		return nil, err
	}
	s := &StreamedFileSource{
		decoder:    d,
		format:     format,
		outputRate: outputRate,
		channels:   channels,
		ring:       newRing(ringCapacityFrames * channels),
		seekCh:     make(chan seekRequest, 1),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		volume:     1.0,
		speed:      1.0,
		resampler:  resample.NewCubic(channels, float64(format.SampleRate), outputRate),
		pullBuf:    make([]float32, channels),
	}
	go s.decodeLoop()
	return s, nil
}

// decodeLoop is the dedicated worker: it may block on I/O, unlike every
// audio-thread path in this module.
func (s *StreamedFileSource) decodeLoop() {
	defer close(s.doneCh)
	chunk := &goaudio.IntBuffer{
		Format:         s.format,
		Data:           make([]int, decoderChunkFrames*s.channels),
		SourceBitDepth: int(s.decoder.BitDepth),
	}
	floatChunk := make([]float32, decoderChunkFrames*s.channels)

	for {
		select {
		case <-s.stopCh:
			return
		case req := <-s.seekCh:
			s.seekTo(req.frame)
			continue
		default:
		}

		if atomic.LoadInt32(&s.eof) == 1 {
			select {
			case <-s.stopCh:
				return
			case req := <-s.seekCh:
				s.seekTo(req.frame)
			}
			continue
		}

		chunk.Data = chunk.Data[:cap(chunk.Data)]
		n, err := s.decoder.PCMBuffer(chunk)
		if err != nil || n == 0 {
			atomic.StoreInt32(&s.eof, 1)
			continue
		}
		for i := 0; i < n; i++ {
			floatChunk[i] = float32(chunk.Data[i]) / float32(int(1)<<(uint(chunk.SourceBitDepth)-1))
		}
		if n < len(chunk.Data) {
			atomic.StoreInt32(&s.eof, 1)
		}

		written := 0
		for written < n {
			w := s.ring.write(floatChunk[written:n])
			if w == 0 {
				select {
				case <-s.stopCh:
					return
				default:
				}
			}
			written += w
		}
	}
}

// seekTo drains the ring and repositions the decoder at frame, run only on
// the decoder goroutine.
func (s *StreamedFileSource) seekTo(frame int64) {
	s.ring.reset()
	atomic.StoreInt32(&s.eof, 0)
	seconds := float64(frame) / float64(s.format.SampleRate)
	_ = s.decoder.SeekTime(time.Duration(seconds * float64(time.Second)))
}

// Seek requests the decoder worker drain the ring and refill from frame,
// implementing mixer.SeekSetter.
func (s *StreamedFileSource) Seek(frame uint64) {
	select {
	case s.seekCh <- seekRequest{frame: int64(frame)}:
	default:
	}
}

// SetVolume implements mixer.VolumeSetter.
func (s *StreamedFileSource) SetVolume(v float64) { s.volume = v }

// SetPanning implements mixer.PanningSetter.
func (s *StreamedFileSource) SetPanning(p float64) { s.panning = p }

// SetSpeed implements mixer.SpeedSetter. Streamed sources apply speed
// changes immediately; glide is the preloaded source's responsibility
// since streamed playback already absorbs jitter via the ring.
func (s *StreamedFileSource) SetSpeed(target, _ float64) { s.speed = target }

// Stop implements mixer.Stoppable, halting the decoder worker and marking
// the source exhausted.
func (s *StreamedFileSource) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.exhausted = true
}

func (s *StreamedFileSource) SampleRate() float64 { return s.outputRate }
func (s *StreamedFileSource) ChannelCount() int    { return s.channels }
func (s *StreamedFileSource) IsExhausted() bool    { return s.exhausted }
func (s *StreamedFileSource) Weight() float64      { return 1 }

func (s *StreamedFileSource) pull(frame []float64) bool {
	buf := s.pullBuf
	if s.ring.read(buf) < s.channels {
		return false
	}
	for i, v := range buf {
		frame[i] = float64(v)
	}
	return true
}

// Write implements audiosource.Source. An underrun (the resampler can't
// pull enough frames) fills the remainder with silence and still reports
// the full frame count, since the playhead keeps advancing per §4.6.
func (s *StreamedFileSource) Write(output []float32, _ audiosource.SourceTime) int {
	if s.exhausted {
		return 0
	}
	frames := len(output) / s.channels
	s.resampler.SetRate(float64(s.format.SampleRate)*s.speed, s.outputRate)

	if cap(s.scratch64) < len(output) {
		s.scratch64 = make([]float64, len(output))
	}
	outF64 := s.scratch64[:len(output)]
	produced := s.resampler.Process(outF64, s.pull)
	for i := 0; i < produced*s.channels; i++ {
		output[i] = float32(outF64[i]) * float32(s.volume)
	}
	for i := produced * s.channels; i < len(output); i++ {
		output[i] = 0
	}
	applyPanGain(output, s.channels, s.panning)

	if produced == 0 && atomic.LoadInt32(&s.eof) == 1 && s.ring.readable() == 0 {
		s.exhausted = true
		return 0
	}
	return frames
}
