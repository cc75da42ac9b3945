// Package scheduler implements the sorted pending-command deque each mixer
// owns, grounded on the dispatch-loop shape of the teacher's
// audio.VoiceManager (drain-then-iterate-active-state) generalized from
// voice bookkeeping to arbitrary sample-accurate commands.
package scheduler

import (
	"sort"

	"github.com/justyntemme/sonora/pkg/command"
	"github.com/justyntemme/sonora/pkg/ids"
)

// Scheduler holds commands whose SampleTime is still in the future, sorted
// strictly non-decreasing, and dispatches them as the mixer's time cursor
// advances through a block.
type Scheduler struct {
	pending []command.Command
	stopped map[ids.PlaybackId]bool
	due     []command.Command // reused DrainDue result scratch
}

// New returns an empty scheduler.
func New() *Scheduler {
	return &Scheduler{}
}

// Insert adds cmd to the pending deque at its sorted position. Ties on
// SampleTime preserve arrival order (stable insertion after the last equal
// entry), since spec ties break by queue arrival order.
func (s *Scheduler) Insert(cmd command.Command) {
	i := sort.Search(len(s.pending), func(i int) bool {
		return s.pending[i].SampleTime > cmd.SampleTime
	})
	s.pending = append(s.pending, command.Command{})
	copy(s.pending[i+1:], s.pending[i:])
	s.pending[i] = cmd
}

// Len reports the number of commands still pending.
func (s *Scheduler) Len() int {
	return len(s.pending)
}

// NextSampleTime returns the SampleTime of the earliest pending command.
func (s *Scheduler) NextSampleTime() (uint64, bool) {
	if len(s.pending) == 0 {
		return 0, false
	}
	return s.pending[0].SampleTime, true
}

// DrainDue removes and returns every pending command with SampleTime <= upTo,
// in dispatch order. A StopSource permanently silences its source for this
// scheduler's lifetime: any later command in the returned batch (or a future
// DrainDue call) targeting the same SourceID is dropped rather than applied,
// matching the rule that a scheduled stop always wins over later updates.
func (s *Scheduler) DrainDue(upTo uint64) []command.Command {
	i := 0
	for i < len(s.pending) && s.pending[i].SampleTime <= upTo {
		i++
	}
	if i == 0 {
		return nil
	}

	s.due = s.due[:0]
	for _, cmd := range s.pending[:i] {
		if cmd.Kind == command.KindStopSource {
			if s.stopped == nil {
				s.stopped = make(map[ids.PlaybackId]bool)
			}
			s.stopped[cmd.SourceID] = true
			s.due = append(s.due, cmd)
			continue
		}
		if s.stopped[cmd.SourceID] {
			continue
		}
		s.due = append(s.due, cmd)
	}

	// Shift the remaining pending commands down in place rather than
	// allocating a new backing array every block.
	copy(s.pending, s.pending[i:])
	s.pending = s.pending[:len(s.pending)-i]
	return s.due
}

// Forget drops stop-tracking state for sourceID, for reuse once a
// PlaybackId is retired and its numeric value could in principle recur
// (the generator never actually reuses ids.Generator counters, but tests
// exercise a scheduler across many short-lived fake ids without one).
func (s *Scheduler) Forget(sourceID ids.PlaybackId) {
	delete(s.stopped, sourceID)
}

// Reset discards all pending commands and stop-tracking state.
func (s *Scheduler) Reset() {
	s.pending = nil
	s.stopped = nil
}

type collapseKey struct {
	kind   command.Kind
	source ids.PlaybackId
	effect ids.EffectId
	tag    uint32
}

// CollapseLateCommands is applied to a batch of commands that arrived after
// their SampleTime had already passed (late delivery, installed immediately
// at block start per spec rather than queued). It keeps every StopSource
// untouched and, for every other kind, keeps only the last occurrence per
// (kind, source, effect, param tag), preserving overall order - the
// "duplicate parameter updates collapse to the last-writer" rule.
func CollapseLateCommands(cmds []command.Command) []command.Command {
	if len(cmds) <= 1 {
		// Nothing to collapse: the common case is zero late commands per
		// block, so skip the scratch-map allocations below entirely.
		return cmds
	}
	lastIndex := make(map[collapseKey]int, len(cmds))
	for i, c := range cmds {
		if c.Kind == command.KindStopSource {
			continue
		}
		lastIndex[collapseKey{c.Kind, c.SourceID, c.EffectID, c.ParamTag}] = i
	}
	keep := make(map[int]bool, len(lastIndex))
	for _, idx := range lastIndex {
		keep[idx] = true
	}
	out := make([]command.Command, 0, len(cmds))
	for i, c := range cmds {
		if c.Kind == command.KindStopSource || keep[i] {
			out = append(out, c)
		}
	}
	return out
}

// SplitBoundaries returns the sample offsets, relative to blockStart, at
// which the block [blockStart, blockStart+frames) must be split to dispatch
// every pending command in order. Offsets are non-decreasing (commands due
// at the same frame repeat an offset) and within [0, frames); a mixer walks them to mix each sub-block before
// applying the command due at that boundary.
func (s *Scheduler) SplitBoundaries(blockStart uint64, frames uint64) []uint64 {
	end := blockStart + frames
	var bounds []uint64
	for _, cmd := range s.pending {
		if cmd.SampleTime < blockStart || cmd.SampleTime >= end {
			if cmd.SampleTime >= end {
				break
			}
			continue
		}
		bounds = append(bounds, cmd.SampleTime-blockStart)
	}
	return bounds
}
