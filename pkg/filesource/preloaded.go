package filesource

import (
	"io"

	"github.com/justyntemme/sonora/pkg/audio"
	"github.com/justyntemme/sonora/pkg/audiosource"
	"github.com/justyntemme/sonora/pkg/resample"
)

// PreloadedFileSource plays a fully decoded, shared PCM buffer. Cloning is
// cheap: clones share the *pcmData (samples and loop range) and each get an
// independent playhead/speed/volume/pan/fade/repeat state, per the expanded spec's
// "clones share the buffer" requirement.
type PreloadedFileSource struct {
	data *pcmData

	outputRate float64
	channels   int

	playheadFrame float64 // fractional, advances by speed*ratio per output frame
	speed         float64
	targetSpeed   float64
	speedGlide    float64 // seconds to reach targetSpeed, 0 = instant

	volume  float64
	panning float64
	fader   *audiosource.Fader

	repeatsRemaining int // -1 means infinite
	exhausted        bool

	resampler *resample.Cubic
	scratch64 []float64 // reused resampler output scratch, sized len(output)
}

// LoadPreloaded decodes r (a seekable WAV reader) fully into memory and
// returns a ready-to-play source at outputRate/channels.
func LoadPreloaded(r io.Reader, outputRate float64, channels int) (*PreloadedFileSource, error) {
	data, err := decodeWAV(r)
	if err != nil {
		return nil, err
	}
	return newPreloadedFromData(data, outputRate, channels), nil
}

func newPreloadedFromData(data *pcmData, outputRate float64, channels int) *PreloadedFileSource {
	f := &PreloadedFileSource{
		data:             data,
		outputRate:       outputRate,
		channels:         channels,
		speed:            1.0,
		targetSpeed:      1.0,
		volume:           1.0,
		repeatsRemaining: 1,
		fader:            audiosource.NewFader(outputRate, channels),
		resampler:        resample.NewCubic(channels, data.sampleRate, outputRate),
	}
	return f
}

// Clone returns a new independent playhead over the same shared buffer.
func (f *PreloadedFileSource) Clone() *PreloadedFileSource {
	return newPreloadedFromData(f.data, f.outputRate, f.channels)
}

// SetLoop configures an inclusive/exclusive frame-index loop range; a zero
// end disables looping. The range is stored on the shared buffer, so it
// applies to every clone of this source.
func (f *PreloadedFileSource) SetLoop(startFrame, endFrame int) {
	f.data.loopStart = startFrame
	f.data.loopEnd = endFrame
}

// SetRepeatCount sets how many times in total playback runs through to the
// end (1 = play once, <0 = loop forever).
func (f *PreloadedFileSource) SetRepeatCount(n int) {
	f.repeatsRemaining = n
}

// SetVolume implements mixer.VolumeSetter.
func (f *PreloadedFileSource) SetVolume(v float64) { f.volume = v }

// SetPanning implements mixer.PanningSetter.
func (f *PreloadedFileSource) SetPanning(p float64) { f.panning = p }

// SetSpeed implements mixer.SpeedSetter: glideSeconds is a time-to-target,
// per the expanded spec's speed-glide note ("measured ... as a
// time-to-target"); a non-positive glide applies instantly.
func (f *PreloadedFileSource) SetSpeed(target, glideSeconds float64) {
	f.targetSpeed = target
	f.speedGlide = glideSeconds
	if glideSeconds <= 0 {
		f.speed = target
	}
}

// Seek implements mixer.SeekSetter.
func (f *PreloadedFileSource) Seek(frame uint64) {
	f.playheadFrame = float64(frame)
}

// FadeOut starts an exponential fade to silence over durationSeconds; a
// zero duration latches silence immediately and the source reports
// exhausted as soon as the fader flushes it, per §4.7.
func (f *PreloadedFileSource) FadeOut(durationSeconds float64) {
	f.fader.StartFadeOut(durationSeconds)
}

// Stop implements mixer.Stoppable as an immediate fade-out.
func (f *PreloadedFileSource) Stop() {
	f.FadeOut(0)
}

func (f *PreloadedFileSource) SampleRate() float64 { return f.outputRate }
func (f *PreloadedFileSource) ChannelCount() int   { return f.channels }
func (f *PreloadedFileSource) IsExhausted() bool   { return f.exhausted }
func (f *PreloadedFileSource) Weight() float64     { return 1 }

// advanceSpeedGlide moves the speed linearly toward targetSpeed by one
// block's share of the remaining glide time, reaching it once the glide
// duration has elapsed.
func (f *PreloadedFileSource) advanceSpeedGlide(blockSeconds float64) {
	if f.speed == f.targetSpeed || f.speedGlide <= 0 {
		f.speed = f.targetSpeed
		return
	}
	step := blockSeconds / f.speedGlide
	if step >= 1 {
		f.speed = f.targetSpeed
		f.speedGlide = 0
		return
	}
	f.speed += (f.targetSpeed - f.speed) * step
	f.speedGlide -= blockSeconds
}

// pull implements resample.PullFunc, reading one interleaved frame at a
// time from the shared buffer, honoring loop range and repeat count.
func (f *PreloadedFileSource) pull(frame []float64) bool {
	total := f.data.frames()
	if total == 0 {
		return false
	}
	idx := int(f.playheadFrame)
	loopEnd := f.data.loopEnd
	if loopEnd == 0 {
		loopEnd = total
	}
	if idx >= loopEnd {
		if f.repeatsRemaining == 0 {
			return false
		}
		if f.repeatsRemaining > 0 {
			f.repeatsRemaining--
		}
		if f.repeatsRemaining == 0 {
			return false
		}
		idx = f.data.loopStart
		f.playheadFrame = float64(idx)
	}
	base := idx * f.channels
	for c := 0; c < f.channels; c++ {
		frame[c] = float64(f.data.samples[base+c])
	}
	f.playheadFrame++
	return true
}

// Write implements audiosource.Source.
func (f *PreloadedFileSource) Write(output []float32, t audiosource.SourceTime) int {
	if f.exhausted {
		return 0
	}
	frames := len(output) / f.channels
	f.advanceSpeedGlide(float64(frames) / f.outputRate)
	f.resampler.SetRate(f.data.sampleRate*f.speed, f.outputRate)

	if cap(f.scratch64) < len(output) {
		f.scratch64 = make([]float64, len(output))
	}
	outF64 := f.scratch64[:len(output)]
	produced := f.resampler.Process(outF64, f.pull)

	for i := 0; i < produced*f.channels; i++ {
		output[i] = float32(outF64[i])
	}
	for i := produced * f.channels; i < len(output); i++ {
		output[i] = 0
	}

	applyPanGain(output[:produced*f.channels], f.channels, f.panning)
	for i := 0; i < produced*f.channels; i++ {
		output[i] *= float32(f.volume)
	}
	if f.fader.Process(output[:produced*f.channels]) == audiosource.FaderFinished && f.fader.TargetVolume() == 0 {
		f.exhausted = true
	}

	if produced < frames {
		f.exhausted = true
	}
	return produced
}

func applyPanGain(output []float32, channels int, pan float64) {
	if channels != 2 {
		return
	}
	left, right := audio.Pan(float32(clampPan(pan)))
	for i := 0; i < len(output); i += 2 {
		output[i] *= left
		output[i+1] *= right
	}
}

func clampPan(p float64) float64 {
	if p < -1 {
		return -1
	}
	if p > 1 {
		return 1
	}
	return p
}
