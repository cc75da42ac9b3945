package mixer

import (
	"testing"
	"time"

	"github.com/justyntemme/sonora/pkg/audiosource"
	"github.com/justyntemme/sonora/pkg/command"
	"github.com/justyntemme/sonora/pkg/effect"
	"github.com/justyntemme/sonora/pkg/ids"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// constSource is a fake leaf source producing a fixed value on every
// channel until exhausted.
type constSource struct {
	value      float32
	channels   int
	rate       float64
	exhausted  bool
	lastFrames int
}

func (c *constSource) SampleRate() float64 { return c.rate }
func (c *constSource) ChannelCount() int   { return c.channels }
func (c *constSource) IsExhausted() bool   { return c.exhausted }
func (c *constSource) Weight() float64     { return 1 }
func (c *constSource) Write(output []float32, _ audiosource.SourceTime) int {
	if c.exhausted {
		return 0
	}
	for i := range output {
		output[i] = c.value
	}
	c.lastFrames = len(output) / c.channels
	return c.lastFrames
}

func writeTime(pos uint64) audiosource.SourceTime {
	return audiosource.SourceTime{PosInFrames: pos, PosInstant: time.Now()}
}

func TestMixerSumsMultipleChildren(t *testing.T) {
	m := New(2, 48000, 256)
	m.AddChild(1, &constSource{value: 0.2, channels: 2, rate: 48000}, false)
	m.AddChild(2, &constSource{value: 0.3, channels: 2, rate: 48000}, false)

	out := make([]float32, 64*2)
	n := m.Write(out, writeTime(0))
	require.Equal(t, 64, n)
	assert.InDelta(t, 0.5, out[0], 1e-6)
}

func TestMixerRemovesExhaustedTransientChild(t *testing.T) {
	m := New(1, 48000, 256)
	m.AddChild(1, &constSource{exhausted: true, channels: 1, rate: 48000}, true)
	require.True(t, m.HasChild(1))

	out := make([]float32, 64)
	m.Write(out, writeTime(0))
	assert.False(t, m.HasChild(1))
}

func TestMixerKeepsFixedExhaustedChild(t *testing.T) {
	m := New(1, 48000, 256)
	m.AddChild(1, &constSource{exhausted: true, channels: 1, rate: 48000}, false)

	out := make([]float32, 64)
	m.Write(out, writeTime(0))
	assert.True(t, m.HasChild(1))
}

func TestMixerAppliesStopSourceCommand(t *testing.T) {
	m := New(1, 48000, 256)
	m.AddChild(1, &constSource{value: 1.0, channels: 1, rate: 48000}, true)

	ok := m.Enqueue(command.StopSource(1, 0))
	require.True(t, ok)

	out := make([]float32, 64)
	m.Write(out, writeTime(0))
	assert.False(t, m.HasChild(1), "a leaf that isn't Stoppable is removed on StopSource")
}

func TestMixerAppliesScheduledVolumeAtExactSampleOffset(t *testing.T) {
	m := New(1, 48000, 256)
	src := &volumeSource{constSource: constSource{value: 1.0, channels: 1, rate: 48000}}
	m.AddChild(1, src, false)

	m.Enqueue(command.SetSourceVolume(1, 0.25, 32))

	out := make([]float32, 64)
	m.Write(out, writeTime(0))

	assert.InDelta(t, 1.0, out[0], 1e-6, "before the scheduled frame, volume is unchanged")
	assert.InDelta(t, 0.25, out[63], 1e-6, "from the scheduled frame on, volume applies")
}

type volumeSource struct {
	constSource
	volume float64
}

func (v *volumeSource) SetVolume(vol float64) { v.volume = vol; v.value = float32(vol) }

func TestMixerNestedSubMixerSumsLikeAnySource(t *testing.T) {
	root := New(1, 48000, 256)
	sub := New(1, 48000, 256)
	sub.AddChild(1, &constSource{value: 0.4, channels: 1, rate: 48000}, false)
	root.AddChild(2, sub, false)
	root.AddChild(3, &constSource{value: 0.1, channels: 1, rate: 48000}, false)

	out := make([]float32, 64)
	root.Write(out, writeTime(0))
	assert.InDelta(t, 0.5, out[0], 1e-6)
}

func TestMixerConcurrentSubMixersMatchSerialOutput(t *testing.T) {
	build := func(concurrent bool) []float32 {
		root := New(2, 48000, 256)
		for i := 0; i < 4; i++ {
			sub := New(2, 48000, 256)
			sub.AddChild(ids.PlaybackId(100+i), &constSource{value: float32(i+1) * 0.1, channels: 2, rate: 48000}, false)
			root.AddChild(ids.PlaybackId(i+1), sub, false)
		}
		if concurrent {
			root.SetConcurrent(true, NewWorkerPool(4))
		}
		out := make([]float32, 64*2)
		root.Write(out, writeTime(0))
		return out
	}

	serial := build(false)
	parallel := build(true)
	require.Equal(t, len(serial), len(parallel))
	for i := range serial {
		assert.InDelta(t, serial[i], parallel[i], 1e-6)
	}
}

func TestMixerEffectChainAppliesInInsertionOrder(t *testing.T) {
	m := New(1, 48000, 256)
	m.AddChild(1, &constSource{value: 1.0, channels: 1, rate: 48000}, false)

	require.NoError(t, m.AddEffect(10, effect.NewFilter("lpf")))
	require.NoError(t, m.AddEffect(11, effect.NewFilter("lpf2")))

	out := make([]float32, 256)
	n := m.Write(out, writeTime(0))
	assert.Equal(t, 256, n)
}

func TestMixerOutputVolumeScalesSum(t *testing.T) {
	m := New(1, 48000, 256)
	m.AddChild(1, &constSource{value: 1.0, channels: 1, rate: 48000}, false)
	m.SetOutputVolume(0.5)

	out := make([]float32, 64)
	m.Write(out, writeTime(0))
	assert.InDelta(t, 0.5, out[0], 1e-6)
}
