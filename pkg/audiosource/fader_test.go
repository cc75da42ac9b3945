package audiosource

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFaderZeroDurationLatchesImmediately(t *testing.T) {
	f := NewFader(48000, 2)
	f.Start(1.0, 0.0, 0)
	assert.Equal(t, FaderFinished, f.State())
	assert.Equal(t, 0.0, f.CurrentVolume())
}

func TestFaderConvergesToTarget(t *testing.T) {
	f := NewFader(48000, 1)
	f.Start(0.0, 1.0, 0.05)

	out := make([]float32, 48000)
	for i := range out {
		out[i] = 1.0
	}
	state := f.Process(out)

	assert.Equal(t, FaderFinished, state)
	assert.InDelta(t, 1.0, f.CurrentVolume(), 1e-3)
}

func TestFaderAppliesGainToOutput(t *testing.T) {
	f := NewFader(48000, 1)
	f.Start(0.5, 0.5, 0) // latched, constant 0.5 gain

	out := []float32{1.0, 1.0, 1.0}
	f.Process(out)
	for _, v := range out {
		assert.InDelta(t, 0.5, v, 1e-6)
	}
}

func TestStartFadeInContinuesFromCurrentIfRunning(t *testing.T) {
	f := NewFader(48000, 1)
	f.Start(0.0, 1.0, 1.0)
	f.Process(make([]float32, 4800)) // advance partway through the fade
	partial := f.CurrentVolume()
	assert.Greater(t, partial, 0.0)

	f.StartFadeIn(1.0)
	assert.Equal(t, partial, f.CurrentVolume())
	assert.Equal(t, FaderRunning, f.State())
}
