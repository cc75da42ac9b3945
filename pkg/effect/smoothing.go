package effect

import "github.com/justyntemme/sonora/pkg/param"

// SmoothedParameters holds one param.Smoother per effect parameter tag and
// advances them in ≤64-frame sub-chunks per block, gating any O(N)
// coefficient recomputation (e.g. a filter's biquad setup) to chunk
// boundaries rather than doing it per sample. Grounded on the teacher's
// atomic/listener-based pkg/param Manager, generalized here into a small per-effect
// table instead of a global registry.
type SmoothedParameters struct {
	smoothers map[uint32]*param.Smoother
}

// NewSmoothedParameters creates an empty parameter table.
func NewSmoothedParameters() *SmoothedParameters {
	return &SmoothedParameters{smoothers: make(map[uint32]*param.Smoother)}
}

// Add registers tag with the given smoothing mode, sample rate, time
// constant and initial value.
func (sp *SmoothedParameters) Add(tag uint32, mode param.SmootherMode, sampleRate, timeConstantSeconds, initial float64) {
	sp.smoothers[tag] = param.NewSmoother(mode, sampleRate, timeConstantSeconds, initial)
}

// SetTarget retargets tag's ramp. A tag never registered via Add is a no-op,
// matching an effect silently ignoring an update for a parameter it does
// not expose.
func (sp *SmoothedParameters) SetTarget(tag uint32, value float64) {
	if s, ok := sp.smoothers[tag]; ok {
		s.SetTarget(value)
	}
}

// Current returns tag's present smoothed value, or fallback if tag was
// never registered.
func (sp *SmoothedParameters) Current(tag uint32, fallback float64) float64 {
	if s, ok := sp.smoothers[tag]; ok {
		return s.Current()
	}
	return fallback
}

// ForEachChunk splits frames into sub-chunks of at most
// param.SmoothChunkFrames, invoking fn once per chunk with the chunk's
// starting frame offset and length, so a caller can recompute any
// per-chunk-only DSP coefficients between calls.
func ForEachChunk(frames int, fn func(start, length int)) {
	start := 0
	for start < frames {
		length := frames - start
		if length > param.SmoothChunkFrames {
			length = param.SmoothChunkFrames
		}
		fn(start, length)
		start += length
	}
}

// Advance steps every registered smoother forward by one sample, for
// callers driving all parameters in lockstep with the audio sample clock.
func (sp *SmoothedParameters) Advance() {
	for _, s := range sp.smoothers {
		s.Advance()
	}
}
