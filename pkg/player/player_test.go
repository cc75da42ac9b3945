package player

import (
	"testing"
	"time"

	"github.com/justyntemme/sonora/pkg/audiosource"
	"github.com/justyntemme/sonora/pkg/effect"
	"github.com/justyntemme/sonora/pkg/ids"
	"github.com/justyntemme/sonora/pkg/modulation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// volumeSource is a fake leaf that reports its configured value until told
// to stop, implementing mixer.VolumeSetter/Stoppable so Player's scheduling
// and stop paths have something concrete to drive.
type volumeSource struct {
	value     float32
	channels  int
	rate      float64
	exhausted bool
}

func (v *volumeSource) SampleRate() float64 { return v.rate }
func (v *volumeSource) ChannelCount() int   { return v.channels }
func (v *volumeSource) IsExhausted() bool   { return v.exhausted }
func (v *volumeSource) Weight() float64     { return 1 }
func (v *volumeSource) SetVolume(vol float64) { v.value = float32(vol) }
func (v *volumeSource) Stop()                 { v.exhausted = true }
func (v *volumeSource) Write(output []float32, _ audiosource.SourceTime) int {
	if v.exhausted {
		return 0
	}
	for i := range output {
		output[i] = v.value
	}
	return len(output) / v.channels
}

func newTestPlayer() *Player {
	return New(Config{ChannelCount: 2, SampleRate: 48000, MaxFrames: 256})
}

func TestAddMixerNestsUnderParent(t *testing.T) {
	p := newTestPlayer()
	defer p.Close()

	childID, err := p.AddMixer(ids.InvalidMixerId)
	require.NoError(t, err)
	assert.NotEqual(t, ids.InvalidMixerId, childID)

	grandchildID, err := p.AddMixer(childID)
	require.NoError(t, err)
	assert.NotEqual(t, childID, grandchildID)
}

func TestAddMixerRejectsUnknownParent(t *testing.T) {
	p := newTestPlayer()
	defer p.Close()

	_, err := p.AddMixer(ids.MixerId(9999))
	assert.Error(t, err)
}

func TestPlayFileSourceMutesUntilScheduledFrame(t *testing.T) {
	p := newTestPlayer()
	defer p.Close()

	src := &volumeSource{value: 1.0, channels: 2, rate: 48000}
	id, err := p.PlayFileSource(ids.InvalidMixerId, src, 32)
	require.NoError(t, err)
	assert.NotEqual(t, ids.PlaybackId(0), id)

	out := make([]float32, 64*2)
	n := p.root.Write(out, audiosource.SourceTime{PosInFrames: 0, PosInstant: time.Now()})
	require.Equal(t, 64, n)
	assert.Zero(t, out[0], "muted before the scheduled start frame")
	assert.NotZero(t, out[127], "unmuted from the scheduled frame on")
}

func TestStopSourceRemovesChildFromOwningMixer(t *testing.T) {
	p := newTestPlayer()
	defer p.Close()

	src := &volumeSource{value: 1.0, channels: 2, rate: 48000}
	id, err := p.PlayFileSource(ids.InvalidMixerId, src, 0)
	require.NoError(t, err)

	require.NoError(t, p.StopSource(id, 0))
	out := make([]float32, 64*2)
	p.root.Write(out, audiosource.SourceTime{PosInFrames: 0, PosInstant: time.Now()})
	assert.True(t, src.exhausted)
	assert.False(t, p.root.HasChild(id), "the stopped transient child is removed from its mixer")
}

func TestSetSourceVolumeRejectsUnknownPlaybackID(t *testing.T) {
	p := newTestPlayer()
	defer p.Close()

	err := p.SetSourceVolume(ids.PlaybackId(424242), 0.5, 0)
	assert.Error(t, err)
}

func TestAddEffectInitializesAndAttachesToMixer(t *testing.T) {
	p := newTestPlayer()
	defer p.Close()

	fx := effect.NewFilter("lowpass")
	effectID, err := p.AddEffect(ids.InvalidMixerId, fx)
	require.NoError(t, err)
	assert.NotEqual(t, ids.EffectId(0), effectID)

	require.NoError(t, p.RemoveEffect(ids.InvalidMixerId, effectID))
}

func TestSetModulationValidatesAgainstDeclaredTargets(t *testing.T) {
	p := newTestPlayer()
	defer p.Close()

	genID := ids.PlaybackId(1)
	cutoff := uint32(1)

	err := p.SetModulation(genID, 1, 1, []uint32{cutoff}, modulation.Source{Kind: modulation.SourceLFO, Index: 0}, cutoff, 0.5)
	require.NoError(t, err)

	err = p.SetModulation(genID, 1, 1, []uint32{cutoff}, modulation.Source{Kind: modulation.SourceLFO, Index: 0}, cutoff, 5.0)
	assert.Error(t, err, "amount outside -1..1 is rejected")

	err = p.SetModulation(genID, 1, 1, []uint32{cutoff}, modulation.Source{Kind: modulation.SourceLFO, Index: 0}, uint32(2), 0.5)
	assert.Error(t, err, "a target outside the declared targets is rejected")
}
