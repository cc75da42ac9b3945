// Package modulation implements the per-voice modulation matrix: a fixed
// set of sources (LFOs, envelopes, velocity, keytracking) routed to target
// parameters through validated (source, target, amount, bipolar) slots.
// Routing validation is grounded on original_source's
// modulation/state.rs ModulationState.set_modulation; the source set
// itself generalizes the teacher's per-voice modulation fields
// (PitchBend, Brightness, Pressure, Volume on audio.Voice) into named,
// independently-routable sources.
package modulation

import (
	"fmt"

	"github.com/justyntemme/sonora/pkg/enginerr"
)

// SourceKind identifies a modulation source slot.
type SourceKind int

const (
	SourceLFO SourceKind = iota
	SourceEnvelope
	SourceVelocity
	SourceKeytracking
)

// Source is one configured modulation source: an LFO/envelope index or the
// constant-per-note velocity/keytracking signals. LFO values arrive in
// -1..1 and are used as-is when Bipolar is set, or remapped into 0..1 before
// scaling when it is not; envelope, velocity and keytracking values are
// used as they arrive (0..1), whatever Bipolar says.
type Source struct {
	Kind    SourceKind
	Index   int // selects among multiple LFOs/envelopes, ignored otherwise
	Bipolar bool
}

// Route is one validated (source, target, amount) slot in the matrix.
type Route struct {
	Source Source
	Target uint32 // parameter tag
	Amount float64
}

// Matrix holds the routes for one voice, plus the set of valid source and
// target ids it was configured with.
type Matrix struct {
	sourceSlots map[SourceKind]int // kind -> count of indexable slots (LFO/Envelope); 1 for constant sources
	targets     map[uint32]bool

	routes []Route
}

// New creates a matrix whose valid sources are lfoCount LFOs and
// envelopeCount envelopes (velocity/keytracking are always available), and
// whose valid targets are the given parameter tags.
func New(lfoCount, envelopeCount int, targets []uint32) *Matrix {
	m := &Matrix{
		sourceSlots: map[SourceKind]int{
			SourceLFO:        lfoCount,
			SourceEnvelope:   envelopeCount,
			SourceVelocity:   1,
			SourceKeytracking: 1,
		},
		targets: make(map[uint32]bool, len(targets)),
	}
	for _, tag := range targets {
		m.targets[tag] = true
	}
	return m
}

// validateSource reports whether src refers to a configured slot.
func (m *Matrix) validateSource(src Source) bool {
	count, ok := m.sourceSlots[src.Kind]
	if !ok {
		return false
	}
	switch src.Kind {
	case SourceLFO, SourceEnvelope:
		return src.Index >= 0 && src.Index < count
	default:
		return true
	}
}

// SetModulation validates and installs (or replaces) a route. An unknown
// source or target, or an amount outside -1..1, fails with ErrParameter -
// matching original_source's set_modulation validation order (source,
// then target, then amount).
func (m *Matrix) SetModulation(src Source, target uint32, amount float64) error {
	if !m.validateSource(src) {
		return fmt.Errorf("%w: unknown modulation source %+v", enginerr.ErrParameter, src)
	}
	if !m.targets[target] {
		return fmt.Errorf("%w: unknown modulation target %#x", enginerr.ErrParameter, target)
	}
	if amount < -1.0 || amount > 1.0 {
		return fmt.Errorf("%w: modulation amount %v outside -1..1", enginerr.ErrParameter, amount)
	}

	for i, r := range m.routes {
		if r.Source == src && r.Target == target {
			m.routes[i].Amount = amount
			return nil
		}
	}
	m.routes = append(m.routes, Route{Source: src, Target: target, Amount: amount})
	return nil
}

// ClearModulation removes the route for (src, target), if any.
func (m *Matrix) ClearModulation(src Source, target uint32) {
	out := m.routes[:0]
	for _, r := range m.routes {
		if r.Source.Kind == src.Kind && r.Source.Index == src.Index && r.Target == target {
			continue
		}
		out = append(out, r)
	}
	m.routes = out
}

// Routes returns every configured route targeting tag.
func (m *Matrix) Routes(tag uint32) []Route {
	var out []Route
	for _, r := range m.routes {
		if r.Target == tag {
			out = append(out, r)
		}
	}
	return out
}

// Apply computes the modulated value of a parameter whose unmodulated
// (base) value is base, given the current scalar reading of every
// configured source via sourceValue(kind, index) -> value in the source's
// native range (bipolar sources already in -1..1, unipolar in 0..1).
func (m *Matrix) Apply(tag uint32, base float64, sourceValue func(SourceKind, int) float64) float64 {
	value := base
	for _, r := range m.routes {
		if r.Target != tag {
			continue
		}
		v := sourceValue(r.Source.Kind, r.Source.Index)
		if r.Source.Kind == SourceLFO && !r.Source.Bipolar {
			// LFOs produce -1..1 natively; a route configured unipolar
			// remaps that into 0..1 before scaling. Every other source
			// kind (envelope, velocity, keytracking) is unipolar already.
			v = (v + 1.0) / 2.0
		}
		value += r.Amount * v
	}
	return value
}
