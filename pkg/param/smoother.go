package param

// SmoothChunkFrames is the maximum sub-chunk size a Smoother advances in one
// step. A block is split into sub-chunks of at most this many frames;
// coefficient recomputation that depends on the smoothed value (e.g. filter
// biquad setup) is gated to chunk boundaries rather than recomputed per
// sample.
const SmoothChunkFrames = 64

// SmootherMode selects the per-sample ramp shape.
type SmootherMode int

const (
	// SmoothLinear steps the current value toward the target by a fixed
	// per-sample increment computed from the ramp's total duration.
	SmoothLinear SmootherMode = iota
	// SmoothExponential applies a one-pole filter toward the target;
	// current += (target - current) * coefficient each sample.
	SmoothExponential
)

// Smoother ramps a plain parameter value toward a target over a configured
// time constant, grounded on the teacher's AtomicFloat64 (lock-free
// control-thread write, audio-thread read) generalized into a block-chunked
// ramp per spec.md's parameter smoothing design.
type Smoother struct {
	mode       SmootherMode
	sampleRate float64

	current float64
	target  float64

	// linearStep is the per-sample delta for SmoothLinear.
	linearStep float64
	// expCoeff is the one-pole coefficient for SmoothExponential.
	expCoeff float64

	timeConstant float64 // seconds
}

// NewSmoother creates a smoother starting at initial with no ramp pending.
func NewSmoother(mode SmootherMode, sampleRate, timeConstantSeconds, initial float64) *Smoother {
	s := &Smoother{
		mode:         mode,
		sampleRate:   sampleRate,
		current:      initial,
		target:       initial,
		timeConstant: timeConstantSeconds,
	}
	s.recomputeCoefficients()
	return s
}

// SetSampleRate updates the sample rate and recomputes ramp coefficients.
func (s *Smoother) SetSampleRate(sampleRate float64) {
	s.sampleRate = sampleRate
	s.recomputeCoefficients()
}

// SetTimeConstant updates the smoothing time constant in seconds.
func (s *Smoother) SetTimeConstant(seconds float64) {
	s.timeConstant = seconds
	s.recomputeCoefficients()
}

func (s *Smoother) recomputeCoefficients() {
	if s.sampleRate <= 0 || s.timeConstant <= 0 {
		s.linearStep = 1.0
		s.expCoeff = 1.0
		return
	}
	totalSamples := s.timeConstant * s.sampleRate
	if totalSamples < 1 {
		totalSamples = 1
	}
	s.linearStep = 1.0 / totalSamples
	// 1 - e^(-1/N) approximated by the teacher's fader inertia formula:
	// four sample-rate-normalized time constants across the ramp duration.
	s.expCoeff = 4.0 / totalSamples
	if s.expCoeff > 1 {
		s.expCoeff = 1
	}
}

// SetTarget retargets the ramp; the current value is unchanged and will
// approach the new target on subsequent Advance/AdvanceChunk calls.
func (s *Smoother) SetTarget(target float64) {
	s.target = target
}

// SetImmediate snaps current and target to value, bypassing the ramp.
func (s *Smoother) SetImmediate(value float64) {
	s.current = value
	s.target = value
}

// Target returns the current ramp target.
func (s *Smoother) Target() float64 {
	return s.target
}

// Current returns the current smoothed value without advancing it.
func (s *Smoother) Current() float64 {
	return s.current
}

// IsSmoothing reports whether current has not yet converged to target.
func (s *Smoother) IsSmoothing() bool {
	return s.current != s.target
}

// Advance steps the smoother by one sample and returns the new current value.
func (s *Smoother) Advance() float64 {
	if s.current == s.target {
		return s.current
	}
	switch s.mode {
	case SmoothLinear:
		diff := s.target - s.current
		if diff > 0 {
			s.current += s.linearStep
			if s.current > s.target {
				s.current = s.target
			}
		} else {
			s.current -= s.linearStep
			if s.current < s.target {
				s.current = s.target
			}
		}
	default: // SmoothExponential
		s.current += (s.target - s.current) * s.expCoeff
		if abs64(s.current-s.target) < 1e-6 {
			s.current = s.target
		}
	}
	return s.current
}

// AdvanceChunk fills out with up to SmoothChunkFrames smoothed values
// starting at the smoother's current state, returning the number of frames
// it actually wrote (len(out), at most SmoothChunkFrames). Callers recompute any derived coefficients once per
// chunk rather than once per sample.
func (s *Smoother) AdvanceChunk(out []float64) int {
	n := len(out)
	if n > SmoothChunkFrames {
		n = SmoothChunkFrames
	}
	for i := 0; i < n; i++ {
		out[i] = s.Advance()
	}
	return n
}

func abs64(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
