package generator

import (
	"testing"
	"time"

	"github.com/justyntemme/sonora/pkg/audio"
	"github.com/justyntemme/sonora/pkg/audiosource"
	"github.com/justyntemme/sonora/pkg/command"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBlock(g *Generator, frames int, posFrame uint64) []float32 {
	out := make([]float32, frames*g.ChannelCount())
	g.Write(out, audiosource.SourceTime{PosInFrames: posFrame, PosInstant: time.Now()})
	return out
}

func TestGeneratorProducesSilenceWithNoActiveVoices(t *testing.T) {
	g := New(4, 48000, 2, false)
	out := writeBlock(g, 64, 0)
	for _, s := range out {
		assert.Zero(t, s)
	}
	assert.Equal(t, 0.0, g.Weight())
}

func TestNoteOnProducesNonSilentOutput(t *testing.T) {
	g := New(4, 48000, 2, false)
	g.Enqueue(command.GeneratorEvent{Kind: command.EventNoteOn, NoteID: 1, Pitch: 69, HasVel: true, Velocity: 1.0})

	out := writeBlock(g, 256, 0)
	nonZero := false
	for _, s := range out {
		if s != 0 {
			nonZero = true
			break
		}
	}
	assert.True(t, nonZero)
	assert.Equal(t, 1.0, g.Weight())
}

func TestTransientGeneratorBecomesExhaustedAfterStopAndRelease(t *testing.T) {
	g := New(4, 48000, 1, false)
	g.Enqueue(command.GeneratorEvent{Kind: command.EventNoteOn, NoteID: 1, Pitch: 69, HasVel: true, Velocity: 1.0})
	writeBlock(g, 64, 0)
	require.False(t, g.IsExhausted())

	g.Stop()
	assert.False(t, g.IsExhausted(), "still draining release")

	var pos uint64
	for i := 0; i < 10000 && !g.IsExhausted(); i++ {
		writeBlock(g, 64, pos)
		pos += 64
	}
	assert.True(t, g.IsExhausted())
}

func TestFixedGeneratorStaysRunningAfterStop(t *testing.T) {
	g := New(4, 48000, 1, true)
	g.Enqueue(command.GeneratorEvent{Kind: command.EventNoteOn, NoteID: 1, Pitch: 69, HasVel: true, Velocity: 1.0})
	writeBlock(g, 64, 0)

	g.Stop()
	var pos uint64
	for i := 0; i < 10000; i++ {
		writeBlock(g, 64, pos)
		pos += 64
	}
	assert.False(t, g.IsExhausted(), "a fixed generator never exhausts itself")

	g.Enqueue(command.GeneratorEvent{Kind: command.EventNoteOn, NoteID: 2, Pitch: 69, HasVel: true, Velocity: 1.0})
	writeBlock(g, 64, pos)
	assert.Equal(t, 1.0, g.Weight(), "fixed generators keep accepting new notes after Stop")
}

func TestTransientGeneratorRejectsNoteOnWhileStopping(t *testing.T) {
	g := New(4, 48000, 1, false)
	g.Enqueue(command.GeneratorEvent{Kind: command.EventNoteOn, NoteID: 1, Pitch: 69, HasVel: true, Velocity: 1.0})
	writeBlock(g, 64, 0)
	g.Stop()

	g.Enqueue(command.GeneratorEvent{Kind: command.EventNoteOn, NoteID: 2, Pitch: 69, HasVel: true, Velocity: 1.0})
	writeBlock(g, 64, 64)
	assert.Equal(t, 1.0, g.Weight(), "only the releasing voice 1 is active; no new voice should have been allocated")
}

func TestNoteOffReleasesSpecificVoice(t *testing.T) {
	g := New(4, 48000, 1, false)
	g.Enqueue(command.GeneratorEvent{Kind: command.EventNoteOn, NoteID: 1, Pitch: 69, HasVel: true, Velocity: 1.0})
	g.Enqueue(command.GeneratorEvent{Kind: command.EventNoteOn, NoteID: 2, Pitch: 72, HasVel: true, Velocity: 1.0})
	writeBlock(g, 64, 0)
	require.Equal(t, 2.0, g.Weight())

	g.Enqueue(command.GeneratorEvent{Kind: command.EventNoteOff, NoteID: 1})
	writeBlock(g, 64, 64)

	v := g.voices.ByNoteID(1)
	require.NotNil(t, v)
	assert.True(t, v.IsReleasing)
}

func TestSetWaveformSelectsOscillatorShape(t *testing.T) {
	g := New(2, 48000, 1, false)
	g.SetWaveform(audio.WaveformSquare)
	g.Enqueue(command.GeneratorEvent{Kind: command.EventNoteOn, NoteID: 1, Pitch: 69, HasVel: true, Velocity: 1.0})

	out := writeBlock(g, 512, 0)
	sawSomePositive, sawSomeNegative := false, false
	for _, s := range out {
		if s > 0.1 {
			sawSomePositive = true
		}
		if s < -0.1 {
			sawSomeNegative = true
		}
	}
	assert.True(t, sawSomePositive)
	assert.True(t, sawSomeNegative)
}
