package resample

import (
	"math"

	"gonum.org/v1/gonum/dsp/window"
)

// sincHalfWidth is the number of taps evaluated on each side of the
// interpolation point. Wider windows trade CPU for stopband rejection;
// Sinc is only ever used off the audio thread so this favors quality.
const sincHalfWidth = 16

// Sinc is an offline, windowed-sinc resampler: it operates on a complete
// input buffer and returns a complete output buffer, rather than streaming
// frame by frame like Cubic. Grounded on rayboyd-audio-engine's use of
// gonum for DSP window functions; the Blackman window shapes the ideal
// (infinite) sinc low-pass into a finite kernel.
type Sinc struct {
	channels int
}

// NewSinc creates a sinc resampler for the given interleaved channel count.
func NewSinc(channels int) *Sinc {
	return &Sinc{channels: channels}
}

// Resample converts input (interleaved, Sinc.channels per frame, sampled at
// inputRate) to outputRate, returning a newly allocated interleaved buffer.
func (s *Sinc) Resample(input []float64, inputRate, outputRate float64) []float64 {
	if len(input) == 0 || s.channels <= 0 {
		return nil
	}
	ratio := outputRate / inputRate
	inFrames := len(input) / s.channels
	outFrames := int(math.Round(float64(inFrames) * ratio))
	out := make([]float64, outFrames*s.channels)

	kernel := window.Blackman(make([]float64, 2*sincHalfWidth+1))

	// When downsampling, the kernel's cutoff must track the lower (output)
	// rate or the result aliases; when upsampling, a cutoff of 1 preserves
	// the full input bandwidth.
	cutoff := 1.0
	if ratio < 1.0 {
		cutoff = ratio
	}

	for o := 0; o < outFrames; o++ {
		srcPos := float64(o) / ratio
		center := int(math.Floor(srcPos))
		frac := srcPos - float64(center)

		for ch := 0; ch < s.channels; ch++ {
			var sum, norm float64
			for k := -sincHalfWidth; k <= sincHalfWidth; k++ {
				idx := center + k
				if idx < 0 || idx >= inFrames {
					continue
				}
				x := (float64(k) - frac) * cutoff
				weight := sincFunc(x) * cutoff * kernel[k+sincHalfWidth]
				sum += input[idx*s.channels+ch] * weight
				norm += weight
			}
			if norm != 0 {
				sum /= norm
			}
			out[o*s.channels+ch] = sum
		}
	}
	return out
}

func sincFunc(x float64) float64 {
	if x == 0 {
		return 1.0
	}
	px := math.Pi * x
	return math.Sin(px) / px
}
