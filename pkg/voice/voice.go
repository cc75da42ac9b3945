// Package voice implements the polyphonic voice pool: per-voice AHDSR
// envelope, pitch glide, and the exhaustion/stealing rules a generator
// applies when reusing slots. Grounded on the teacher's
// pkg/audio/voice.go Voice/VoiceManager, adapted so stealing picks the
// voice furthest along its release (or the oldest note) instead of always
// the first slot, and so a voice tracks its own post-release silence for
// exhaustion instead of relying solely on envelope state.
package voice

import (
	"math"

	"github.com/justyntemme/sonora/pkg/ids"
)

// exhaustionPeakThreshold and exhaustionSilenceSeconds ground the
// "peak < 1e-6 for >= 200ms while releasing" exhaustion rule.
const (
	exhaustionPeakThreshold  = 1e-6
	exhaustionSilenceSeconds = 0.2
)

// Voice is a single polyphonic voice: pitch (with optional glide),
// envelope, and the bookkeeping a VoiceManager needs to steal it.
type Voice struct {
	NoteID   ids.NotePlaybackId
	Velocity float64
	Panning  float64
	Volume   float64

	Pitch float64 // current frequency, Hz
	Phase float64 // oscillator phase in [0,1), owned by the generator's DSP

	glideStart      float64
	glideTarget     float64
	glideTotalFrame int
	glideRemaining  int

	Envelope *Envelope

	Active            bool
	IsReleasing       bool
	ReleaseStartFrame uint64

	silenceFrames uint64
}

// newVoice creates an idle, pre-allocated voice.
func newVoice(sampleRate float64) *Voice {
	return &Voice{Envelope: NewEnvelope(sampleRate)}
}

// noteToFrequency converts a MIDI-style (possibly fractional, for
// microtuning/glide) note number to Hz: 440 * 2^((n-69)/12).
func noteToFrequency(note float64) float64 {
	return 440.0 * math.Pow(2, (note-69.0)/12.0)
}

// frequencyToNote is the inverse of noteToFrequency.
func frequencyToNote(freq float64) float64 {
	if freq <= 0 {
		return 0
	}
	return 69.0 + 12.0*math.Log2(freq/440.0)
}

// SetGlideTarget begins a pitch glide to targetNote at glideSemisPerSecond
// semitones/second. A rate of 0 (or less) sets the pitch instantly instead,
// matching "a glide of None sets frequency instantly."
func (v *Voice) SetGlideTarget(targetNote, glideSemisPerSecond, sampleRate float64) {
	if glideSemisPerSecond <= 0 {
		v.Pitch = noteToFrequency(targetNote)
		v.glideRemaining = 0
		return
	}
	currentNote := frequencyToNote(v.Pitch)
	delta := math.Abs(targetNote - currentNote)
	frames := int(delta / glideSemisPerSecond * sampleRate)
	if frames <= 0 {
		v.Pitch = noteToFrequency(targetNote)
		v.glideRemaining = 0
		return
	}
	v.glideStart = v.Pitch
	v.glideTarget = noteToFrequency(targetNote)
	v.glideTotalFrame = frames
	v.glideRemaining = frames
}

// AdvanceGlide steps the in-flight glide, if any, by one frame; the
// generator calls it once per rendered frame, so a glide spanning N frames
// completes after N frames. A new glide replaces any glide already in
// progress (SetGlideTarget simply overwrites glideStart/glideTarget).
func (v *Voice) AdvanceGlide() {
	if v.glideRemaining <= 0 {
		return
	}
	v.glideRemaining--
	t := 1.0 - float64(v.glideRemaining)/float64(v.glideTotalFrame)
	v.Pitch = v.glideStart + (v.glideTarget-v.glideStart)*t
}

// ObserveOutputPeak feeds this voice's measured peak output amplitude for
// the block just processed; once releasing, a sustained near-silent peak
// for exhaustionSilenceSeconds kills the voice.
func (v *Voice) ObserveOutputPeak(peak float64, framesInBlock uint64) {
	if !v.IsReleasing {
		v.silenceFrames = 0
		return
	}
	if peak < exhaustionPeakThreshold {
		v.silenceFrames += framesInBlock
	} else {
		v.silenceFrames = 0
	}
	sampleRate := v.Envelope.SampleRate
	if float64(v.silenceFrames) >= exhaustionSilenceSeconds*sampleRate {
		v.kill()
	}
	if !v.Envelope.IsActive() {
		v.kill()
	}
}

// kill forcibly completes a release: clears the note id, silences the
// oscillator pitch, and resets envelope/glide context.
func (v *Voice) kill() {
	v.Active = false
	v.IsReleasing = false
	v.NoteID = 0
	v.Pitch = 0
	v.Phase = 0
	v.silenceFrames = 0
	v.glideRemaining = 0
	v.Envelope.Reset()
}

// Manager owns a fixed pool of pre-allocated voices. It is built to live
// entirely on the audio thread (the generator that owns it drains its own
// event queue there first), so - unlike the teacher's RWMutex-guarded
// VoiceManager - it takes no lock: the only caller is the single audio
// callback that also calls Write.
type Manager struct {
	voices     []*Voice
	sampleRate float64
}

// NewManager pre-allocates maxVoices voices.
func NewManager(maxVoices int, sampleRate float64) *Manager {
	m := &Manager{
		voices:     make([]*Voice, maxVoices),
		sampleRate: sampleRate,
	}
	for i := range m.voices {
		m.voices[i] = newVoice(sampleRate)
	}
	return m
}

// SetSampleRate updates the sample rate used by every voice's envelope.
func (m *Manager) SetSampleRate(sampleRate float64) {
	m.sampleRate = sampleRate
	for _, v := range m.voices {
		v.Envelope.SampleRate = sampleRate
	}
}

// Allocate finds a free voice, or steals one per the priority rules:
// (1) the voice furthest along its release (smallest ReleaseStartFrame
// among releasing voices), else (2) the voice with the smallest NoteID
// (oldest). Ties break by slot index (first found wins, since a later
// candidate only replaces the current pick when it is strictly better).
func (m *Manager) Allocate(noteID ids.NotePlaybackId, note, velocity, panning float64) *Voice {
	for _, v := range m.voices {
		if !v.Active {
			m.initialize(v, noteID, note, velocity, panning)
			return v
		}
	}

	var victim *Voice
	for _, v := range m.voices {
		if victim == nil || betterStealCandidate(v, victim) {
			victim = v
		}
	}
	m.initialize(victim, noteID, note, velocity, panning)
	return victim
}

// betterStealCandidate reports whether a should be stolen before b.
func betterStealCandidate(a, b *Voice) bool {
	if a.IsReleasing != b.IsReleasing {
		return a.IsReleasing
	}
	if a.IsReleasing {
		return a.ReleaseStartFrame < b.ReleaseStartFrame
	}
	return a.NoteID < b.NoteID
}

func (m *Manager) initialize(v *Voice, noteID ids.NotePlaybackId, note, velocity, panning float64) {
	v.NoteID = noteID
	v.Velocity = velocity
	v.Panning = panning
	v.Volume = 1.0
	v.Pitch = noteToFrequency(note)
	v.Phase = 0
	v.glideRemaining = 0
	v.Active = true
	v.IsReleasing = false
	v.silenceFrames = 0
	v.Envelope.Trigger()
}

// Release begins releasing the active voice matching noteID, if any.
func (m *Manager) Release(noteID ids.NotePlaybackId, currentFrame uint64) {
	for _, v := range m.voices {
		if v.Active && v.NoteID == noteID {
			v.Envelope.ReleaseGate()
			v.IsReleasing = true
			v.ReleaseStartFrame = currentFrame
		}
	}
}

// ReleaseAll begins releasing every active voice.
func (m *Manager) ReleaseAll(currentFrame uint64) {
	for _, v := range m.voices {
		if v.Active {
			v.Envelope.ReleaseGate()
			v.IsReleasing = true
			v.ReleaseStartFrame = currentFrame
		}
	}
}

// ByNoteID returns the active voice for noteID, or nil.
func (m *Manager) ByNoteID(noteID ids.NotePlaybackId) *Voice {
	for _, v := range m.voices {
		if v.Active && v.NoteID == noteID {
			return v
		}
	}
	return nil
}

// ActiveCount reports how many voices are currently active.
func (m *Manager) ActiveCount() int {
	n := 0
	for _, v := range m.voices {
		if v.Active {
			n++
		}
	}
	return n
}

// ForEachActive invokes fn for every active voice.
func (m *Manager) ForEachActive(fn func(*Voice)) {
	for _, v := range m.voices {
		if v.Active {
			fn(v)
		}
	}
}

// Reset deactivates and resets every voice.
func (m *Manager) Reset() {
	for _, v := range m.voices {
		v.kill()
	}
}
