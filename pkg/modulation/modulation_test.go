package modulation

import (
	"errors"
	"testing"

	"github.com/justyntemme/sonora/pkg/enginerr"
	"github.com/stretchr/testify/assert"
)

const cutoffTag = 0x63757466 // "cutf"

func TestSetModulationRejectsUnknownSource(t *testing.T) {
	m := New(1, 1, []uint32{cutoffTag})
	err := m.SetModulation(Source{Kind: SourceLFO, Index: 5}, cutoffTag, 0.5)
	assert.ErrorIs(t, err, enginerr.ErrParameter)
}

func TestSetModulationRejectsUnknownTarget(t *testing.T) {
	m := New(1, 1, []uint32{cutoffTag})
	err := m.SetModulation(Source{Kind: SourceVelocity}, 0xdeadbeef, 0.5)
	assert.ErrorIs(t, err, enginerr.ErrParameter)
}

func TestSetModulationRejectsOutOfRangeAmount(t *testing.T) {
	m := New(1, 1, []uint32{cutoffTag})
	err := m.SetModulation(Source{Kind: SourceVelocity}, cutoffTag, 1.5)
	assert.ErrorIs(t, err, enginerr.ErrParameter)
	assert.False(t, errors.Is(err, enginerr.ErrDevice))
}

func TestSetModulationAcceptsValidRoute(t *testing.T) {
	m := New(2, 1, []uint32{cutoffTag})
	err := m.SetModulation(Source{Kind: SourceLFO, Index: 0, Bipolar: true}, cutoffTag, 0.8)
	assert.NoError(t, err)
	assert.Len(t, m.Routes(cutoffTag), 1)
}

func TestClearModulationRemovesRoute(t *testing.T) {
	m := New(1, 1, []uint32{cutoffTag})
	src := Source{Kind: SourceVelocity}
	_ = m.SetModulation(src, cutoffTag, 0.3)
	assert.Len(t, m.Routes(cutoffTag), 1)

	m.ClearModulation(src, cutoffTag)
	assert.Len(t, m.Routes(cutoffTag), 0)
}

func TestApplySumsBipolarAndUnipolarContributions(t *testing.T) {
	m := New(1, 0, []uint32{cutoffTag})
	_ = m.SetModulation(Source{Kind: SourceLFO, Index: 0, Bipolar: true}, cutoffTag, 0.5)
	_ = m.SetModulation(Source{Kind: SourceVelocity}, cutoffTag, 0.2)

	values := map[SourceKind]float64{
		SourceLFO:      1.0, // full-scale bipolar LFO
		SourceVelocity: 1.0, // full-scale velocity
	}
	result := m.Apply(cutoffTag, 100.0, func(kind SourceKind, idx int) float64 {
		return values[kind]
	})
	// base 100 + 0.5*1.0 (bipolar, used as-is) + 0.2*1.0 (already unipolar)
	assert.InDelta(t, 100.7, result, 1e-9)
}

func TestApplyRemapsUnipolarLFOFromBipolarRange(t *testing.T) {
	m := New(1, 0, []uint32{cutoffTag})
	_ = m.SetModulation(Source{Kind: SourceLFO, Index: 0, Bipolar: false}, cutoffTag, 1.0)

	result := m.Apply(cutoffTag, 0.0, func(kind SourceKind, idx int) float64 {
		return -1.0 // LFO trough
	})
	// unipolar remap of -1 -> 0, so contribution is amount * 0 = 0
	assert.InDelta(t, 0.0, result, 1e-9)
}

func TestSetModulationUpdatesExistingRouteInPlace(t *testing.T) {
	m := New(1, 0, []uint32{cutoffTag})
	src := Source{Kind: SourceLFO, Index: 0, Bipolar: true}
	_ = m.SetModulation(src, cutoffTag, 0.2)
	_ = m.SetModulation(src, cutoffTag, 0.9)

	routes := m.Routes(cutoffTag)
	assert.Len(t, routes, 1)
	assert.Equal(t, 0.9, routes[0].Amount)
}
