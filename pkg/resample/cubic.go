// Package resample implements two resamplers: Cubic, a cheap streaming
// 4-tap Hermite interpolator that both file sources rate-convert and
// speed-shift through, and Sinc, a whole-buffer windowed-sinc resampler for
// offline renders that no source in this module uses.
package resample

// cubicTaps holds the last four input samples pushed to one channel, newest
// first, used to evaluate a 4-point Hermite spline between the two middle
// samples.
type cubicTaps struct {
	input [4]float64
}

func (t *cubicTaps) push(sample float64) {
	t.input[3] = t.input[2]
	t.input[2] = t.input[1]
	t.input[1] = t.input[0]
	t.input[0] = sample
}

// interpolate evaluates the Hermite spline between input[2] (y0) and
// input[1] (y1) at fractional position frac in [0,1], using input[3] (ym1)
// and input[0] (y2) as the neighboring control points. Coefficients are
// Niemitalo's 4-point, 3rd-order Hermite ("Catmull-Rom-like") interpolator.
func (t *cubicTaps) interpolate(frac float64) float64 {
	ym1 := t.input[3]
	y0 := t.input[2]
	y1 := t.input[1]
	y2 := t.input[0]

	c0 := y0
	c1 := 0.5 * (y1 - ym1)
	c2 := ym1 - 2.5*y0 + 2.0*y1 - 0.5*y2
	c3 := 0.5*(y2-ym1) + 1.5*(y0-y1)

	return ((c3*frac+c2)*frac+c1)*frac + c0
}

// PullFunc supplies the next interleaved input frame into frame (len(frame)
// == channel count), returning false once no more input is available.
type PullFunc func(frame []float64) bool

// Cubic is a streaming resampler: it pulls input frames on demand as it
// produces output, so it can sit directly behind a Source's Write call
// without ever holding a second full copy of the signal. Ported from
// original_source's CubicInterpolator/CubicResampler, generalized from one
// interpolator per channel driven by a shared sub-position (the input
// frames for every channel always arrive together).
type Cubic struct {
	channels int
	ratio    float64 // input samples consumed per output sample produced
	subPos   float64
	taps     []cubicTaps
	frame    []float64 // reused pull scratch, sized channels
	primed   bool      // taps filled from the first input frame
}

// NewCubic creates a cubic resampler converting from inputRate to
// outputRate across channels interleaved channels.
func NewCubic(channels int, inputRate, outputRate float64) *Cubic {
	c := &Cubic{
		channels: channels,
		taps:     make([]cubicTaps, channels),
		frame:    make([]float64, channels),
	}
	c.SetRate(inputRate, outputRate)
	return c
}

// SetRate retunes the resampler to a new rate pair without resetting its
// delay lines, so an in-flight stream does not click on a sample-rate
// change.
func (c *Cubic) SetRate(inputRate, outputRate float64) {
	if outputRate <= 0 {
		outputRate = inputRate
	}
	c.ratio = inputRate / outputRate
}

// Process writes resampled frames into out (interleaved, c.channels per
// frame) until out is full or pull reports exhaustion, returning the number
// of frames actually written.
func (c *Cubic) Process(out []float64, pull PullFunc) int {
	framesOut := len(out) / c.channels
	frame := c.frame
	written := 0

	if !c.primed && framesOut > 0 {
		// Fill every tap with the first input frame so output starts at the
		// signal's level instead of ramping in from zeroed delay lines.
		if !pull(frame) {
			return 0
		}
		for ch := range c.taps {
			c.taps[ch].input = [4]float64{frame[ch], frame[ch], frame[ch], frame[ch]}
		}
		c.primed = true
	}

	for written < framesOut {
		if c.ratio < 1.0 {
			for c.subPos >= 1.0 {
				if !pull(frame) {
					return written
				}
				for ch := range c.taps {
					c.taps[ch].push(frame[ch])
				}
				c.subPos -= 1.0
			}
		} else {
			for c.subPos < c.ratio {
				if !pull(frame) {
					return written
				}
				for ch := range c.taps {
					c.taps[ch].push(frame[ch])
				}
				c.subPos += 1.0
			}
		}

		base := written * c.channels
		frac := c.subPos
		if c.ratio >= 1.0 {
			frac = 1.0 - (c.subPos - c.ratio)
		}
		for ch := 0; ch < c.channels; ch++ {
			out[base+ch] = c.taps[ch].interpolate(frac)
		}

		if c.ratio < 1.0 {
			c.subPos += c.ratio
		} else {
			c.subPos -= c.ratio
		}
		written++
	}
	return written
}
