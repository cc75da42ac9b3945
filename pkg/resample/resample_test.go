package resample

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sineSource(freq, sampleRate float64, frames int) []float64 {
	out := make([]float64, frames)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / sampleRate)
	}
	return out
}

func TestCubicUpsamplePreservesFrameCountRatio(t *testing.T) {
	const channels = 1
	input := sineSource(220, 22050, 1000)
	pos := 0
	pull := func(frame []float64) bool {
		if pos >= len(input) {
			return false
		}
		frame[0] = input[pos]
		pos++
		return true
	}

	c := NewCubic(channels, 22050, 44100)
	out := make([]float64, 4000)
	written := c.Process(out, pull)

	assert.Greater(t, written, 1900)
	assert.LessOrEqual(t, written, 2000)
}

func TestCubicDownsampleProducesFewerFrames(t *testing.T) {
	const channels = 1
	input := sineSource(220, 44100, 2000)
	pos := 0
	pull := func(frame []float64) bool {
		if pos >= len(input) {
			return false
		}
		frame[0] = input[pos]
		pos++
		return true
	}

	c := NewCubic(channels, 44100, 22050)
	out := make([]float64, 4000)
	written := c.Process(out, pull)

	assert.Greater(t, written, 900)
	assert.LessOrEqual(t, written, 1000)
}

func TestCubicInterpolatesThroughConstantSignalUnchanged(t *testing.T) {
	const channels = 1
	pos := 0
	pull := func(frame []float64) bool {
		if pos >= 100 {
			return false
		}
		frame[0] = 0.5
		pos++
		return true
	}
	c := NewCubic(channels, 44100, 44100)
	out := make([]float64, 100)
	written := c.Process(out, pull)
	for i := 0; i < written; i++ {
		assert.InDelta(t, 0.5, out[i], 1e-9)
	}
}

func TestSincResampleScalesFrameCount(t *testing.T) {
	s := NewSinc(1)
	input := sineSource(220, 22050, 1000)
	out := s.Resample(input, 22050, 44100)
	assert.InDelta(t, 2000, len(out), 1)
}

func TestSincResampleConstantSignalUnchanged(t *testing.T) {
	s := NewSinc(1)
	input := make([]float64, 200)
	for i := range input {
		input[i] = 0.25
	}
	out := s.Resample(input, 44100, 22050)
	for i := sincHalfWidth; i < len(out)-sincHalfWidth; i++ {
		assert.InDelta(t, 0.25, out[i], 1e-6)
	}
}
