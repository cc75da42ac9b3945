package effect

import (
	"github.com/justyntemme/sonora/pkg/audio"
	"github.com/justyntemme/sonora/pkg/audiosource"
	"github.com/justyntemme/sonora/pkg/param"
)

var (
	tagCutoff    = param.Tag("cutf")
	tagResonance = param.Tag("reso")
	tagType      = param.Tag("type")
)

// Filter is a resonant state-variable filter effect, adapting the teacher's
// audio.SelectableFilter (NaN/Inf self-healing, type selection) into the
// Effect contract with smoothed cutoff/resonance instead of stepped values.
type Filter struct {
	name   string
	filter *audio.SelectableFilter
	smooth *SmoothedParameters

	sampleRate float64
	channels   int
}

// NewFilter creates a filter effect named name, defaulting to lowpass.
func NewFilter(name string) *Filter {
	return &Filter{name: name}
}

func (f *Filter) Name() string {
	return f.name
}

func (f *Filter) Initialize(sampleRate float64, channelCount int, _ int) error {
	f.sampleRate = sampleRate
	f.channels = channelCount
	f.filter = audio.NewSelectableFilter(sampleRate, true)
	f.smooth = NewSmoothedParameters()
	f.smooth.Add(tagCutoff, param.SmoothExponential, sampleRate, 0.01, 1000.0)
	f.smooth.Add(tagResonance, param.SmoothExponential, sampleRate, 0.01, 0.707)
	return nil
}

func (f *Filter) ProcessStarted() {}
func (f *Filter) ProcessStopped() {}

func (f *Filter) Process(output []float32, _ audiosource.SourceTime) {
	if f.channels <= 0 {
		f.channels = 1
	}
	frames := len(output) / f.channels
	ForEachChunk(frames, func(start, length int) {
		f.filter.SetFrequency(f.smooth.Current(tagCutoff, 1000.0))
		f.filter.SetResonance(f.smooth.Current(tagResonance, 0.707))
		for i := 0; i < length; i++ {
			f.smooth.Advance()
			base := (start + i) * f.channels
			for c := 0; c < f.channels; c++ {
				output[base+c] = float32(f.filter.Process(float64(output[base+c])))
			}
		}
	})
}

// ProcessTail reports unknown: the state-variable filter's decay depends on
// its current resonance and is cheapest to detect via the fallback
// output-silence watcher rather than a fixed frame count.
func (f *Filter) ProcessTail() (uint64, bool) {
	return 0, false
}

func (f *Filter) ProcessParameterUpdate(tag uint32, value float64) {
	switch tag {
	case tagCutoff:
		f.smooth.SetTarget(tagCutoff, value)
	case tagResonance:
		f.smooth.SetTarget(tagResonance, value)
	case tagType:
		f.filter.SetType(audio.MapFilterTypeFromInt(int(value)))
	}
}

func (f *Filter) ProcessMessage(_ []byte) {
	// Filter has no custom message payloads.
}
