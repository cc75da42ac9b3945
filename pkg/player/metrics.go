package player

import (
	"github.com/justyntemme/sonora/pkg/audiosource"
	"github.com/justyntemme/sonora/pkg/performance"
)

// instrumentedOutput wraps the root mixer so every block a device pulls is
// timed through performance.PerformanceMetrics without the mixer or device
// packages needing to know telemetry exists.
type instrumentedOutput struct {
	root    audiosource.Source
	metrics *performance.PerformanceMetrics
}

func (o *instrumentedOutput) SampleRate() float64 { return o.root.SampleRate() }
func (o *instrumentedOutput) ChannelCount() int   { return o.root.ChannelCount() }
func (o *instrumentedOutput) IsExhausted() bool   { return o.root.IsExhausted() }
func (o *instrumentedOutput) Weight() float64     { return o.root.Weight() }

func (o *instrumentedOutput) Write(output []float32, t audiosource.SourceTime) int {
	start := o.metrics.StartProcess()
	n := o.root.Write(output, t)
	o.metrics.EndProcess(start)
	o.metrics.UpdateVoiceCount(int32(o.root.Weight()))
	return n
}
