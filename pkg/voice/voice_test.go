package voice

import (
	"testing"

	"github.com/justyntemme/sonora/pkg/ids"
	"github.com/stretchr/testify/assert"
)

func TestEnvelopeHoldStageFlatAtUnity(t *testing.T) {
	e := NewEnvelope(1000)
	e.SetAHDSR(0, 0.01, 0.1, 0.5, 0.1)
	e.Trigger()

	v := e.Process() // attack=0 -> immediately 1.0, enters hold
	assert.Equal(t, 1.0, v)
	assert.Equal(t, StageHold, e.Stage)

	for i := 0; i < 100 && e.Stage == StageHold; i++ {
		v = e.Process()
		assert.Equal(t, 1.0, v)
	}
	assert.Equal(t, StageDecay, e.Stage)
}

func TestEnvelopeReleaseReturnsToIdle(t *testing.T) {
	e := NewEnvelope(1000)
	e.SetAHDSR(0, 0, 0, 1.0, 0.01)
	e.Trigger()
	e.Process() // attack=0 -> full level, now in the (zero-length) decay stage
	e.ReleaseGate()
	for i := 0; i < 20; i++ {
		e.Process()
	}
	assert.Equal(t, StageIdle, e.Stage)
	assert.False(t, e.IsActive())
}

func TestAllocateFindsFreeVoiceFirst(t *testing.T) {
	m := NewManager(2, 48000)
	v1 := m.Allocate(1, 60, 1.0, 0)
	assert.NotNil(t, v1)
	assert.Equal(t, 2, len(m.voices))
	assert.Equal(t, 1, m.ActiveCount())
}

func TestStealingPrefersVoiceFurthestAlongRelease(t *testing.T) {
	m := NewManager(2, 48000)
	m.Allocate(1, 60, 1.0, 0)
	m.Allocate(2, 64, 1.0, 0)
	m.Release(1, 100)

	stolen := m.Allocate(3, 67, 1.0, 0)
	assert.Equal(t, ids.NotePlaybackId(3), stolen.NoteID)
	assert.NotNil(t, m.ByNoteID(2))
	assert.Nil(t, m.ByNoteID(1))
}

func TestStealingPrefersOldestNoteWhenNoneReleasing(t *testing.T) {
	m := NewManager(2, 48000)
	m.Allocate(5, 60, 1.0, 0)
	m.Allocate(9, 64, 1.0, 0)

	stolen := m.Allocate(20, 67, 1.0, 0)
	assert.Equal(t, ids.NotePlaybackId(20), stolen.NoteID)
	assert.NotNil(t, m.ByNoteID(9))
	assert.Nil(t, m.ByNoteID(5))
}

func TestGlideInterpolatesFrequencyOverBlocks(t *testing.T) {
	v := newVoice(48000)
	v.Pitch = noteToFrequency(60)
	v.SetGlideTarget(72, 12.0, 48000) // one octave at 12 semitones/sec -> 1 second -> 48000 frames
	assert.Equal(t, 48000, v.glideTotalFrame)

	v.AdvanceGlide()
	assert.Greater(t, v.Pitch, noteToFrequency(60))
	assert.Less(t, v.Pitch, noteToFrequency(72))
}

func TestGlideZeroRateSetsPitchInstantly(t *testing.T) {
	v := newVoice(48000)
	v.Pitch = noteToFrequency(60)
	v.SetGlideTarget(72, 0, 48000)
	assert.InDelta(t, noteToFrequency(72), v.Pitch, 1e-6)
}

func TestExhaustionKillsVoiceAfterSustainedSilence(t *testing.T) {
	m := NewManager(1, 1000) // 1000Hz so 200ms = 200 frames
	v := m.Allocate(1, 60, 1.0, 0)
	m.Release(1, 0)

	v.ObserveOutputPeak(0.0, 199)
	assert.True(t, v.Active)
	v.ObserveOutputPeak(0.0, 1)
	assert.False(t, v.Active)
}
