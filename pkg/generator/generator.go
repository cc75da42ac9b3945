// Package generator implements the polyphonic generator: voice allocation
// via pkg/voice, a PolyBLEP-anti-aliased oscillator per active voice, and
// the running/stopping/stopped state machine that distinguishes transient
// from fixed generators. Grounded on pkg/audio/synth.go's
// PolyphonicOscillator.Process voice-iteration shape (per-voice envelope,
// pitch bend, phase advance, brightness/pressure shaping), generalized
// from a single hard-coded oscillator stage into a Source driven by
// command.GeneratorEvent instead of direct field writes.
package generator

import (
	"github.com/justyntemme/sonora/pkg/audio"
	"github.com/justyntemme/sonora/pkg/audiosource"
	"github.com/justyntemme/sonora/pkg/command"
	"github.com/justyntemme/sonora/pkg/voice"
)

// State is the generator's lifecycle phase.
type State int

const (
	StateRunning State = iota
	StateStopping
	StateStopped
)

// Generator is a polyphonic, single-waveform oscillator generator. Fixed
// generators ignore Stop beyond releasing all active notes and keep
// running; transient generators stop accepting new notes on Stop, release
// what's playing, and report exhausted once every voice has gone idle.
type Generator struct {
	voices       *voice.Manager
	waveform     audio.WaveformType
	antiAlias    bool
	sampleRate   float64
	channels     int
	fixed        bool
	state        State
	currentFrame uint64

	masterVolume  float64
	masterPanning float64

	queue []command.GeneratorEvent
}

// New creates a generator with maxVoices of polyphony. fixed selects
// whether Stop releases notes but keeps the generator running (true) or
// begins the stopping-to-exhausted transition (false, the default for most
// playback calls).
func New(maxVoices int, sampleRate float64, channels int, fixed bool) *Generator {
	return &Generator{
		voices:        voice.NewManager(maxVoices, sampleRate),
		waveform:      audio.WaveformSine,
		antiAlias:     true,
		sampleRate:    sampleRate,
		channels:      channels,
		fixed:         fixed,
		masterVolume:  1.0,
		state:      StateRunning,
	}
}

// SetWaveform sets the waveform every voice's oscillator uses.
func (g *Generator) SetWaveform(w audio.WaveformType) {
	g.waveform = w
}

// SetAntiAliasing enables or disables PolyBLEP anti-aliasing for saw/square.
func (g *Generator) SetAntiAliasing(enabled bool) {
	g.antiAlias = enabled
}

// SetVolume implements mixer.VolumeSetter as a master gain applied after
// every voice is summed, separate from per-note volume set via
// command.EventSetNoteVolume.
func (g *Generator) SetVolume(v float64) {
	g.masterVolume = v
}

// SetPanning implements mixer.PanningSetter as a master pan applied after
// voices are summed, separate from per-note panning. Only meaningful on
// stereo output; mono generators ignore it like every other pan path in
// this package.
func (g *Generator) SetPanning(p float64) {
	g.masterPanning = p
}

// Enqueue stages an event to be applied on the next Write call. Commands
// with a future sample_time are expected to have already been dispatched
// by the owning mixer's scheduler - a generator does not own one.
func (g *Generator) Enqueue(ev command.GeneratorEvent) {
	g.queue = append(g.queue, ev)
}

func (g *Generator) applyQueued() {
	for _, ev := range g.queue {
		g.apply(ev)
	}
	g.queue = g.queue[:0]
}

func (g *Generator) apply(ev command.GeneratorEvent) {
	if g.state == StateStopped {
		return
	}
	switch ev.Kind {
	case command.EventNoteOn:
		if g.state == StateStopping {
			return // no new notes once a transient generator is stopping
		}
		vel := 1.0
		if ev.HasVel {
			vel = ev.Velocity
		}
		pan := 0.0
		if ev.HasPan {
			pan = ev.Panning
		}
		g.voices.Allocate(ev.NoteID, ev.Pitch, vel, pan)
	case command.EventNoteOff:
		g.voices.Release(ev.NoteID, g.currentFrame)
	case command.EventAllNotesOff:
		g.stopAllVoices()
	case command.EventSetNoteSpeed:
		if v := g.voices.ByNoteID(ev.NoteID); v != nil {
			v.SetGlideTarget(ev.Speed, ev.Glide, g.sampleRate)
		}
	case command.EventSetNoteVolume:
		if v := g.voices.ByNoteID(ev.NoteID); v != nil {
			v.Volume = ev.Volume
		}
	case command.EventSetNotePanning:
		if v := g.voices.ByNoteID(ev.NoteID); v != nil {
			v.Panning = ev.Panning
		}
	case command.EventSetParameter:
		// Per-generator parameters (filter cutoff, etc.) are applied by the
		// concrete voice processor embedding this Generator; this base type
		// has no parameters of its own to update.
	}
}

func (g *Generator) stopAllVoices() {
	g.voices.ReleaseAll(g.currentFrame)
}

// Stop begins the generator's stop sequence: a fixed generator releases
// every voice and keeps running; a transient generator additionally stops
// accepting NoteOn and transitions to exhausted once every voice is idle.
func (g *Generator) Stop() {
	g.stopAllVoices()
	if !g.fixed && g.state == StateRunning {
		g.state = StateStopping
	}
}

// SampleRate implements audiosource.Source.
func (g *Generator) SampleRate() float64 { return g.sampleRate }

// ChannelCount implements audiosource.Source.
func (g *Generator) ChannelCount() int { return g.channels }

// Weight implements audiosource.Source: scales with active polyphony.
func (g *Generator) Weight() float64 {
	return float64(g.voices.ActiveCount())
}

// IsExhausted implements audiosource.Source: only a stopped transient
// generator (every voice idle after Stop) is permanently done.
func (g *Generator) IsExhausted() bool {
	return g.state == StateStopped
}

// Write implements audiosource.Source: applies queued events, renders
// every active voice's oscillator through its envelope, and advances the
// stopping-to-stopped transition for transient generators. With no active
// voice outside the stopping state it writes silence and returns 0.
func (g *Generator) Write(output []float32, t audiosource.SourceTime) int {
	g.applyQueued()
	frames := len(output) / g.channels
	g.currentFrame = t.PosInFrames

	for i := range output {
		output[i] = 0
	}
	if g.voices.ActiveCount() == 0 && g.state != StateStopping {
		return 0
	}

	g.voices.ForEachActive(func(v *voice.Voice) {
		var peak float64
		for i := 0; i < frames; i++ {
			v.AdvanceGlide()
			envValue := v.Envelope.Process()
			sample := g.oscillatorSample(v)
			sample *= envValue * v.Velocity * v.Volume
			if a := abs(sample); a > peak {
				peak = a
			}
			pan := clampPan(v.Panning)
			base := i * g.channels
			if g.channels == 2 {
				left, right := audio.Pan(float32(pan))
				output[base] += float32(sample) * left
				output[base+1] += float32(sample) * right
			} else {
				for c := 0; c < g.channels; c++ {
					output[base+c] += float32(sample)
				}
			}
		}
		v.ObserveOutputPeak(peak, uint64(frames))
	})

	if g.channels == 2 && g.masterPanning != 0 {
		left, right := audio.Pan(float32(clampPan(g.masterPanning)))
		for i := 0; i < frames; i++ {
			base := i * g.channels
			output[base] *= left
			output[base+1] *= right
		}
	}
	if g.masterVolume != 1.0 {
		for i := range output {
			output[i] *= float32(g.masterVolume)
		}
	}

	if g.state == StateStopping && g.voices.ActiveCount() == 0 {
		g.state = StateStopped
	}

	return frames
}

func (g *Generator) oscillatorSample(v *voice.Voice) float64 {
	phaseInc := v.Pitch / g.sampleRate
	var sample float64
	if g.antiAlias && (g.waveform == audio.WaveformSaw || g.waveform == audio.WaveformSquare) {
		if g.waveform == audio.WaveformSaw {
			sample = audio.GeneratePolyBLEPSaw(v.Phase, phaseInc)
		} else {
			sample = audio.GeneratePolyBLEPSquare(v.Phase, phaseInc)
		}
	} else {
		sample = audio.GenerateWaveformSample(v.Phase, g.waveform)
	}
	v.Phase = audio.AdvancePhase(v.Phase, v.Pitch, g.sampleRate)
	return sample
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

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
