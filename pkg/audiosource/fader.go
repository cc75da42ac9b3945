package audiosource

// FaderState mirrors the teacher's event-pool style tri-state tracking,
// ported from original_source's VolumeFader: a fade is either not running,
// running toward a target, or has converged and finished.
type FaderState int

const (
	FaderStopped FaderState = iota
	FaderRunning
	FaderFinished
)

// faderEpsilon is how close current must get to target before a running
// fade reports FaderFinished, matching the original's 0.0001 convergence
// check.
const faderEpsilon = 0.0001

// Fader is an inertia-ramp volume envelope applied per output frame. A
// fade started with duration 0 latches immediately to its target; otherwise
// current approaches target by a fixed fraction of the remaining distance
// each frame, with the fraction derived from the fade duration so that a
// longer duration converges more slowly.
type Fader struct {
	state        FaderState
	current      float64
	target       float64
	inertia      float64
	channelCount int
	sampleRate   float64
}

// NewFader creates a stopped fader at unity gain.
func NewFader(sampleRate float64, channelCount int) *Fader {
	return &Fader{
		state:        FaderStopped,
		current:      1.0,
		target:       1.0,
		channelCount: channelCount,
		sampleRate:   sampleRate,
	}
}

// State returns the fader's current state.
func (f *Fader) State() FaderState {
	return f.state
}

// TargetVolume returns the volume this fader is approaching (or holding, if
// stopped or finished).
func (f *Fader) TargetVolume() float64 {
	return f.target
}

// CurrentVolume returns the fader's present gain without advancing it.
func (f *Fader) CurrentVolume() float64 {
	return f.current
}

// StartFadeIn fades to 1.0, continuing from the current volume if a fade is
// already running, or from 0.0 otherwise - matching the original's
// start_fade_in, which never audibly jumps an in-progress fade.
func (f *Fader) StartFadeIn(durationSeconds float64) {
	from := 0.0
	if f.state == FaderRunning {
		from = f.current
	}
	f.Start(from, 1.0, durationSeconds)
}

// StartFadeOut fades to 0.0, continuing from the current volume if a fade
// is already running, or from 1.0 otherwise.
func (f *Fader) StartFadeOut(durationSeconds float64) {
	from := 1.0
	if f.state == FaderRunning {
		from = f.current
	}
	f.Start(from, 0.0, durationSeconds)
}

// Start begins a fade from "from" to "to" over durationSeconds. A
// zero-or-negative duration latches immediately: current and target both
// become "to" and the fader reports FaderFinished with no per-frame ramp.
func (f *Fader) Start(from, to, durationSeconds float64) {
	f.current = from
	f.target = to
	if durationSeconds <= 0 {
		f.current = to
		f.state = FaderFinished
		return
	}
	f.inertia = (1.0 / f.sampleRate) * 4.0 / durationSeconds
	f.state = FaderRunning
}

// Process advances the fader by one output block, multiplying output in
// place by the per-frame gain, channelCount values per frame. It returns
// the fader's state after the block.
func (f *Fader) Process(output []float32) FaderState {
	frames := len(output) / f.channelCount
	for i := 0; i < frames; i++ {
		if f.state == FaderRunning {
			f.current += (f.target - f.current) * f.inertia
			if abs(f.current-f.target) < faderEpsilon {
				f.current = f.target
				f.state = FaderFinished
			}
		}
		base := i * f.channelCount
		for c := 0; c < f.channelCount; c++ {
			output[base+c] *= float32(f.current)
		}
	}
	return f.state
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
