package voice

import "math"

// Stage is the current phase of an AHDSR envelope.
type Stage int

const (
	StageIdle Stage = iota
	StageAttack
	StageHold
	StageDecay
	StageSustain
	StageRelease
)

// Envelope is an Attack-Hold-Decay-Sustain-Release envelope, generalizing
// the teacher's ADSREnvelope (pkg/util/envelope.go) with an added Hold
// stage: after Attack reaches unity the level is held flat for Hold
// seconds before Decay begins, rather than decaying immediately.
type Envelope struct {
	Attack  float64
	Hold    float64
	Decay   float64
	Sustain float64 // level, 0..1
	Release float64

	Stage        Stage
	Current      float64
	timeInStage  float64
	releaseLevel float64

	SampleRate float64
}

// NewEnvelope creates an idle envelope with the teacher's default ADSR
// timings and no hold segment.
func NewEnvelope(sampleRate float64) *Envelope {
	return &Envelope{
		Attack:     0.01,
		Hold:       0,
		Decay:      0.1,
		Sustain:    0.7,
		Release:    0.3,
		SampleRate: sampleRate,
		Stage:      StageIdle,
	}
}

// Trigger starts the envelope from the attack stage.
func (e *Envelope) Trigger() {
	e.Stage = StageAttack
	e.timeInStage = 0
	e.Current = 0
}

// ReleaseGate moves the envelope into the release stage, capturing the
// level it releases from. A no-op when already idle or releasing.
func (e *Envelope) ReleaseGate() {
	if e.Stage != StageIdle && e.Stage != StageRelease {
		e.releaseLevel = e.Current
		e.Stage = StageRelease
		e.timeInStage = 0
	}
}

// Process advances the envelope by one sample and returns its new value.
func (e *Envelope) Process() float64 {
	dt := 1.0 / e.SampleRate

	switch e.Stage {
	case StageIdle:
		e.Current = 0

	case StageAttack:
		if e.Attack > 0 {
			e.Current = e.timeInStage / e.Attack
			if e.Current >= 1.0 {
				e.Current = 1.0
				e.enterHoldOrDecay()
			} else {
				e.timeInStage += dt
			}
		} else {
			e.Current = 1.0
			e.enterHoldOrDecay()
		}

	case StageHold:
		e.Current = 1.0
		if e.timeInStage >= e.Hold {
			e.Stage = StageDecay
			e.timeInStage = 0
		} else {
			e.timeInStage += dt
		}

	case StageDecay:
		if e.Decay > 0 {
			progress := e.timeInStage / e.Decay
			e.Current = 1.0 - progress*(1.0-e.Sustain)
			if progress >= 1.0 {
				e.Current = e.Sustain
				e.Stage = StageSustain
				e.timeInStage = 0
			} else {
				e.timeInStage += dt
			}
		} else {
			e.Current = e.Sustain
			e.Stage = StageSustain
			e.timeInStage = 0
		}

	case StageSustain:
		e.Current = e.Sustain

	case StageRelease:
		if e.Release > 0 {
			progress := e.timeInStage / e.Release
			if progress >= 1.0 {
				e.Current = 0
				e.Stage = StageIdle
				e.timeInStage = 0
			} else {
				e.Current = e.releaseLevel * math.Pow(1.0-progress, 2.0)
				e.timeInStage += dt
			}
		} else {
			e.Current = 0
			e.Stage = StageIdle
			e.timeInStage = 0
		}
	}

	return e.Current
}

func (e *Envelope) enterHoldOrDecay() {
	e.timeInStage = 0
	if e.Hold > 0 {
		e.Stage = StageHold
	} else {
		e.Stage = StageDecay
	}
}

// IsActive reports whether the envelope is still producing a non-zero
// value (not idle).
func (e *Envelope) IsActive() bool {
	return e.Stage != StageIdle
}

// Reset immediately silences the envelope.
func (e *Envelope) Reset() {
	e.Stage = StageIdle
	e.Current = 0
	e.timeInStage = 0
}

// SetAHDSR sets all five stage timings/levels at once, clamped to sane
// ranges exactly as the teacher's SetADSR did.
func (e *Envelope) SetAHDSR(attack, hold, decay, sustain, release float64) {
	e.Attack = clamp(attack, 0, 10.0)
	e.Hold = clamp(hold, 0, 10.0)
	e.Decay = clamp(decay, 0, 10.0)
	e.Sustain = clamp(sustain, 0, 1.0)
	e.Release = clamp(release, 0, 10.0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
