// Package enginerr defines the small closed set of sentinel errors the
// engine's control surface returns, in the same style as the teacher's
// pkg/param error variables: control-flow signals wrapped with
// fmt.Errorf("%w: ...") for context, never a place a third-party error
// library adds value.
package enginerr

import "errors"

var (
	// ErrInput covers malformed or out-of-range arguments to a control call.
	ErrInput = errors.New("invalid input")
	// ErrDevice covers failures from the underlying output device.
	ErrDevice = errors.New("device error")
	// ErrParameter covers unknown parameter tags, unknown modulation
	// source/target ids, and modulation amounts outside -1..1.
	ErrParameter = errors.New("parameter error")
	// ErrSend covers a command queue push that failed because the queue
	// was full.
	ErrSend = errors.New("send error")
	// ErrNotPlaying is returned by operations that target a PlaybackId with
	// no active source.
	ErrNotPlaying = errors.New("not playing")
	// ErrResample covers a resampler configuration rejected at setup time
	// (e.g. mismatched channel counts between input and output rate pair).
	ErrResample = errors.New("resample error")
)
