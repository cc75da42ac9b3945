package device

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/justyntemme/sonora/pkg/audiosource"
	"github.com/justyntemme/sonora/pkg/enginerr"
	"github.com/justyntemme/sonora/pkg/thread"
)

// PortAudioDevice drives a live output stream, pulling one block per
// callback from a Source. Grounded on
// other_examples/7d06a8e3_rayboyd-audio-engine's StreamParameters/
// OpenStream usage, generalized from its input-only capture stream to an
// output-only playback stream and from int32 to float32 samples.
type PortAudioDevice struct {
	samplePositionCounter

	source       audiosource.Source
	stream       *portaudio.Stream
	channels     int
	sampleRate   float64
	outputBuffer []float32

	pauseMu   sync.Mutex
	paused    int32
	markAudio sync.Once
}

// OpenPortAudio initializes PortAudio (once per process) and opens an
// output stream over the default device that pulls blocks from source.
func OpenPortAudio(source audiosource.Source, framesPerBuffer int) (*PortAudioDevice, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: initializing portaudio: %v", enginerr.ErrDevice, err)
	}

	outDevice, err := portaudio.DefaultOutputDevice()
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: no default output device: %v", enginerr.ErrDevice, err)
	}

	channels := source.ChannelCount()
	sampleRate := source.SampleRate()

	d := &PortAudioDevice{
		source:       source,
		channels:     channels,
		sampleRate:   sampleRate,
		outputBuffer: make([]float32, framesPerBuffer*channels),
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 0,
			Device:   nil,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: channels,
			Device:   outDevice,
			Latency:  outDevice.DefaultLowOutputLatency,
		},
		FramesPerBuffer: framesPerBuffer,
		SampleRate:      sampleRate,
	}

	stream, err := portaudio.OpenStream(params, d.processOutputStream)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: opening output stream: %v", enginerr.ErrDevice, err)
	}
	d.stream = stream

	if err := d.stream.Start(); err != nil {
		d.stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: starting output stream: %v", enginerr.ErrDevice, err)
	}
	return d, nil
}

// processOutputStream is the PortAudio callback: it must never block, so it
// only ever calls source.Write, which the whole engine is built to keep
// wait-free.
func (d *PortAudioDevice) processOutputStream(out []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	d.markAudio.Do(thread.MarkAudioThread)

	if atomic.LoadInt32(&d.paused) == 1 {
		for i := range out {
			out[i] = 0
		}
		return
	}

	t := audiosource.SourceTime{PosInFrames: d.SamplePosition(), PosInstant: time.Now()}
	n := d.source.Write(d.outputBuffer[:len(out)], t)
	copy(out, d.outputBuffer[:len(out)])
	if n*d.channels < len(out) {
		for i := n * d.channels; i < len(out); i++ {
			out[i] = 0
		}
	}
	d.advance(len(out) / d.channels)
}

func (d *PortAudioDevice) ChannelCount() int      { return d.channels }
func (d *PortAudioDevice) SampleRate() float64    { return d.sampleRate }

// Pause silences the stream in place rather than stopping it, so resume is
// instantaneous and does not reopen the device.
func (d *PortAudioDevice) Pause() error {
	atomic.StoreInt32(&d.paused, 1)
	return nil
}

func (d *PortAudioDevice) Resume() error {
	atomic.StoreInt32(&d.paused, 0)
	return nil
}

func (d *PortAudioDevice) Stop() error {
	d.pauseMu.Lock()
	defer d.pauseMu.Unlock()
	if d.stream == nil {
		return nil
	}
	return d.stream.Stop()
}

func (d *PortAudioDevice) Close() error {
	d.pauseMu.Lock()
	defer d.pauseMu.Unlock()
	if d.stream == nil {
		return nil
	}
	err := d.stream.Close()
	d.stream = nil
	portaudio.Terminate()
	return err
}
