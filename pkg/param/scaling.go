package param

import (
	"math"
	"strconv"
	"strings"

	"github.com/justyntemme/sonora/pkg/audio"
)

// Scaling selects how a parameter's normalized 0..1 form maps onto its
// plain, native-unit form. Every descriptor carries exactly one.
type Scaling int

const (
	// ScalingLinear maps normalized value x onto [Min, Max] linearly.
	ScalingLinear Scaling = iota
	// ScalingExponential maps x through x^K before the linear map, giving
	// finer resolution near Min for K>1 (musical taper on times/rates).
	ScalingExponential
	// ScalingDecibel treats [Min, Max] as a decibel range and exposes the
	// plain value as linear gain (consistent with dsp.DbToLinear/LinearToDb).
	ScalingDecibel
)

// Descriptor is the immutable shape of a parameter: id, display metadata,
// range and the scaling curve between its normalized and plain forms.
// Descriptors are safe to share across threads and to copy by value -
// every field is either a scalar or an immutable function, mirroring the
// teacher's Info but replacing the flat MinValue/MaxValue-only range with
// an explicit scaling curve and adding the normalized<->plain contract
// spec.md requires of every parameter.
type Descriptor struct {
	Tag          uint32
	Name         string
	Module       string
	Min          float64
	Max          float64
	Default      float64 // normalized, 0..1
	Scaling      Scaling
	ExponentialK float64 // only used when Scaling == ScalingExponential
	Unit         string
	Flags        uint32

	// Format renders a plain value as display text. Nil selects a plain
	// "%.3f" rendering.
	Format func(plain float64) string
	// Parse recovers a plain value from display text. Nil selects
	// strconv.ParseFloat.
	Parse func(text string) (float64, error)
}

// ToPlain converts a normalized value in 0..1 to the descriptor's native
// units, clamping the input first.
func (d Descriptor) ToPlain(normalized float64) float64 {
	x := clamp01(normalized)
	switch d.Scaling {
	case ScalingExponential:
		k := d.ExponentialK
		if k <= 0 {
			k = 1
		}
		return d.Min + math.Pow(x, k)*(d.Max-d.Min)
	case ScalingDecibel:
		db := d.Min + x*(d.Max-d.Min)
		return audio.DbToLinear(db)
	default:
		return d.Min + x*(d.Max-d.Min)
	}
}

// ToNormalized converts a plain value back to its normalized 0..1 form.
// It is the exact inverse of ToPlain for every Scaling mode, so
// ToNormalized(ToPlain(x)) recovers x to within floating point error -
// the round-trip invariant spec.md §8 property 7 requires.
func (d Descriptor) ToNormalized(plain float64) float64 {
	switch d.Scaling {
	case ScalingExponential:
		k := d.ExponentialK
		if k <= 0 {
			k = 1
		}
		span := d.Max - d.Min
		if span == 0 {
			return 0
		}
		ratio := (plain - d.Min) / span
		if ratio < 0 {
			ratio = 0
		}
		return math.Pow(ratio, 1.0/k)
	case ScalingDecibel:
		db := audio.LinearToDb(plain)
		span := d.Max - d.Min
		if span == 0 {
			return 0
		}
		return clamp01((db - d.Min) / span)
	default:
		span := d.Max - d.Min
		if span == 0 {
			return 0
		}
		return clamp01((plain - d.Min) / span)
	}
}

// DisplayText renders a plain value using the descriptor's Format, or a
// generic fallback with the descriptor's unit suffix appended.
func (d Descriptor) DisplayText(plain float64) string {
	if d.Format != nil {
		return d.Format(plain)
	}
	if d.Unit != "" {
		return trimFloat(plain) + " " + d.Unit
	}
	return trimFloat(plain)
}

// ParseText recovers a plain value from display text using the descriptor's
// Parse, or a decibel-aware parser for ScalingDecibel descriptors, or plain
// strconv.ParseFloat otherwise.
func (d Descriptor) ParseText(text string) (float64, error) {
	if d.Parse != nil {
		return d.Parse(text)
	}
	if d.Scaling == ScalingDecibel {
		return NewParser(FormatDecibel).ParseValue(text)
	}
	return strconv.ParseFloat(strings.TrimSpace(text), 64)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func trimFloat(v float64) string {
	return FormatValue(v, FormatDefault)
}
