package mixer

import (
	"sort"
	"sync"

	"github.com/justyntemme/sonora/pkg/audiosource"
	"github.com/justyntemme/sonora/pkg/command"
	"github.com/justyntemme/sonora/pkg/effect"
	"github.com/justyntemme/sonora/pkg/ids"
	"github.com/justyntemme/sonora/pkg/scheduler"
)

// defaultQueueCapacity matches the teacher's event pool default size order
// of magnitude, rounded to a power of two for the bounded channel.
const defaultQueueCapacity = 256

// Stoppable is implemented by sources that need to be told to stop rather
// than simply removed (a generator releasing its voices before it reports
// exhausted). Sources that don't implement it are just unlinked.
type Stoppable interface {
	Stop()
}

// VolumeSetter, PanningSetter and SpeedSetter are implemented by sources
// whose volume/pan/speed a KindSetSourceVolume/Panning/Speed command can
// target (file sources). A child that doesn't implement the relevant
// interface silently ignores the command, the same way an effect rejects a
// payload addressed to a different effect name.
type VolumeSetter interface {
	SetVolume(float64)
}

type PanningSetter interface {
	SetPanning(float64)
}

type SpeedSetter interface {
	SetSpeed(target, glideSeconds float64)
}

// SeekSetter is implemented by sources that support KindSeekSource.
type SeekSetter interface {
	Seek(frame uint64)
}

// EventReceiver is implemented by generator sources, accepting the
// GeneratorEvent union from a KindGeneratorEvent command.
type EventReceiver interface {
	Enqueue(command.GeneratorEvent)
}

type childSlot struct {
	source    audiosource.Source
	transient bool
	scratch   []float32
	remove    bool
}

type effectSlot struct {
	id       ids.EffectId
	bypasser *effect.Bypasser
}

// Mixer sums its children into one output, runs them through an ordered
// effect chain, and dispatches sample-accurate commands through its own
// scheduler. A Mixer implements audiosource.Source itself so nested mixers
// are ordinary children of their parent, grounded on the teacher's
// VoiceManager pull-model generalized from "sum voices" to "sum any
// source, possibly another mixer."
type Mixer struct {
	channelCount int
	sampleRate   float64
	maxFrames    int

	structMu sync.RWMutex
	children map[ids.PlaybackId]*childSlot
	effects  []effectSlot

	scheduler *scheduler.Scheduler
	queue     chan command.Command

	concurrent bool
	pool       *WorkerPool

	scratch []float32
	tasks   []func() error // reused concurrent sub-mixer dispatch scratch

	volume     float64
	exhausted  bool
	lastWeight float64
}

// New creates an empty mixer. maxFrames bounds the largest block Write will
// ever be asked to fill, used to size scratch buffers up front so the hot
// path never allocates.
func New(channelCount int, sampleRate float64, maxFrames int) *Mixer {
	return &Mixer{
		channelCount: channelCount,
		sampleRate:   sampleRate,
		maxFrames:    maxFrames,
		children:     make(map[ids.PlaybackId]*childSlot),
		scheduler:    scheduler.New(),
		queue:        make(chan command.Command, defaultQueueCapacity),
		volume:       1.0,
		scratch:      make([]float32, maxFrames*channelCount),
	}
}

// SetConcurrent enables or disables concurrent sub-mixer dispatch. pool may
// be nil to fall back to serial processing even when enabled, matching
// "falls back to serial processing if the pool is unavailable."
func (m *Mixer) SetConcurrent(enabled bool, pool *WorkerPool) {
	m.structMu.Lock()
	defer m.structMu.Unlock()
	m.concurrent = enabled
	m.pool = pool
}

// SetOutputVolume sets this mixer's output gain, applied after its effect
// chain and before summing into its parent.
func (m *Mixer) SetOutputVolume(v float64) {
	m.structMu.Lock()
	defer m.structMu.Unlock()
	m.volume = v
}

// AddChild links src under id. transient marks it for automatic removal
// once it reports exhausted with a zero-frame write (a played-once file or
// a stopped generator); fixed generators and sub-mixers pass false.
func (m *Mixer) AddChild(id ids.PlaybackId, src audiosource.Source, transient bool) {
	m.structMu.Lock()
	defer m.structMu.Unlock()
	m.children[id] = &childSlot{source: src, transient: transient}
}

// RemoveChild unlinks id immediately, regardless of its exhaustion state.
func (m *Mixer) RemoveChild(id ids.PlaybackId) {
	m.structMu.Lock()
	defer m.structMu.Unlock()
	delete(m.children, id)
	m.scheduler.Forget(id)
}

// HasChild reports whether id is currently linked.
func (m *Mixer) HasChild(id ids.PlaybackId) bool {
	m.structMu.RLock()
	defer m.structMu.RUnlock()
	_, ok := m.children[id]
	return ok
}

// AddEffect appends fx to the chain, wrapped in the auto-bypass state
// machine; insertion order is processing order and is never reshuffled by
// a later RemoveEffect.
func (m *Mixer) AddEffect(id ids.EffectId, fx effect.Effect) error {
	if err := fx.Initialize(m.sampleRate, m.channelCount, m.maxFrames); err != nil {
		return err
	}
	m.structMu.Lock()
	defer m.structMu.Unlock()
	m.effects = append(m.effects, effectSlot{id: id, bypasser: effect.NewBypasser(fx, m.sampleRate, m.channelCount)})
	return nil
}

// RemoveEffect drops the effect matching id, preserving the remaining
// chain's order.
func (m *Mixer) RemoveEffect(id ids.EffectId) {
	m.structMu.Lock()
	defer m.structMu.Unlock()
	out := m.effects[:0]
	for _, e := range m.effects {
		if e.id != id {
			out = append(out, e)
		}
	}
	m.effects = out
}

// Enqueue pushes cmd onto this mixer's command queue, non-blocking. It
// reports false (a SendError at the host layer) if the queue is full.
func (m *Mixer) Enqueue(cmd command.Command) bool {
	select {
	case m.queue <- cmd:
		return true
	default:
		return false
	}
}

// ForceEnqueue pushes a stop command even into a full queue by discarding
// the oldest pending entry first, matching "stop commands use a force push
// that overwrites the oldest slot to prevent hung notes."
func (m *Mixer) ForceEnqueue(cmd command.Command) {
	select {
	case m.queue <- cmd:
		return
	default:
	}
	select {
	case <-m.queue:
	default:
	}
	select {
	case m.queue <- cmd:
	default:
	}
}

// SampleRate implements audiosource.Source.
func (m *Mixer) SampleRate() float64 { return m.sampleRate }

// ChannelCount implements audiosource.Source.
func (m *Mixer) ChannelCount() int { return m.channelCount }

// IsExhausted implements audiosource.Source: a mixer never reports itself
// exhausted (nothing sets exhausted, and removal by its parent does not
// either), since a mixer node represents routing, not a finite stream.
func (m *Mixer) IsExhausted() bool { return m.exhausted }

// Weight implements audiosource.Source: the child count processed last
// block, used by a parent's concurrent dispatcher to schedule heavier
// sub-mixers first.
func (m *Mixer) Weight() float64 { return m.lastWeight }

// Write implements the mix loop described for §4.2: drain the command
// queue, split the block at scheduled event boundaries, mix+effect+sum
// each sub-block, dispatch due events between sub-blocks, then prune
// exhausted transient children.
func (m *Mixer) Write(output []float32, t audiosource.SourceTime) int {
	frames := len(output) / m.channelCount
	m.drainQueue(t.PosInFrames)

	boundaries := m.scheduler.SplitBoundaries(t.PosInFrames, uint64(frames))
	cursor := 0
	for _, boundary := range boundaries {
		rel := int(boundary)
		if rel > cursor {
			m.mixSubBlock(output[cursor*m.channelCount:rel*m.channelCount], audiosource.SourceTime{
				PosInFrames: t.PosInFrames + uint64(cursor),
				PosInstant:  t.PosInstant,
			})
			cursor = rel
		}
		due := m.scheduler.DrainDue(t.PosInFrames + boundary)
		for _, cmd := range due {
			m.applyCommand(cmd)
		}
	}
	if cursor < frames {
		m.mixSubBlock(output[cursor*m.channelCount:], audiosource.SourceTime{
			PosInFrames: t.PosInFrames + uint64(cursor),
			PosInstant:  t.PosInstant,
		})
	}

	m.removeExhausted()
	return frames
}

// drainQueue moves every queued command into the scheduler (future) or
// applies it immediately (due now or late), collapsing late duplicates to
// their last writer per the spec's late-delivery rule.
func (m *Mixer) drainQueue(currentFrame uint64) {
	var late []command.Command
	for {
		select {
		case cmd := <-m.queue:
			if cmd.SampleTime > currentFrame {
				m.scheduler.Insert(cmd)
			} else {
				late = append(late, cmd)
			}
		default:
			late = scheduler.CollapseLateCommands(late)
			for _, cmd := range late {
				m.applyCommand(cmd)
			}
			return
		}
	}
}

func (m *Mixer) applyCommand(cmd command.Command) {
	m.structMu.RLock()
	child := m.children[cmd.SourceID]
	m.structMu.RUnlock()

	switch cmd.Kind {
	case command.KindStopSource:
		if child == nil {
			return
		}
		if s, ok := child.source.(Stoppable); ok {
			s.Stop()
		} else {
			child.remove = true
		}
	case command.KindSetSourceVolume:
		if child == nil {
			return
		}
		if s, ok := child.source.(VolumeSetter); ok {
			s.SetVolume(cmd.Volume)
		}
	case command.KindSetSourcePanning:
		if child == nil {
			return
		}
		if s, ok := child.source.(PanningSetter); ok {
			s.SetPanning(cmd.Panning)
		}
	case command.KindSetSourceSpeed:
		if child == nil {
			return
		}
		if s, ok := child.source.(SpeedSetter); ok {
			s.SetSpeed(cmd.Speed.Target, cmd.Speed.Glide)
		}
	case command.KindSeekSource:
		if child == nil {
			return
		}
		if s, ok := child.source.(SeekSetter); ok {
			s.Seek(cmd.SeekFrame)
		}
	case command.KindEffectParameterUpdate:
		m.structMu.RLock()
		for _, e := range m.effects {
			if e.id == cmd.EffectID {
				e.bypasser.Effect().ProcessParameterUpdate(cmd.ParamTag, cmd.Value)
				break
			}
		}
		m.structMu.RUnlock()
	case command.KindEffectMessage:
		m.structMu.RLock()
		for _, e := range m.effects {
			if e.id == cmd.EffectID {
				e.bypasser.Effect().ProcessMessage(cmd.Message.Value())
				break
			}
		}
		m.structMu.RUnlock()
	case command.KindGeneratorEvent:
		if child == nil {
			return
		}
		if g, ok := child.source.(EventReceiver); ok {
			g.Enqueue(cmd.Generator)
		}
	}
}

// mixSubBlock zeroes the scratch buffer, mixes every live child into it
// (sub-mixers concurrently when enabled, leaves always on this goroutine),
// runs the effect chain, scales by output volume, and accumulates into
// dst.
func (m *Mixer) mixSubBlock(dst []float32, t audiosource.SourceTime) {
	n := len(dst)
	if cap(m.scratch) < n {
		m.scratch = make([]float32, n)
	}
	scratch := m.scratch[:n]
	for i := range scratch {
		scratch[i] = 0
	}

	m.structMu.RLock()
	var leaves, subMixers []*childSlot
	for _, c := range m.children {
		if c.remove {
			continue
		}
		if _, ok := c.source.(*Mixer); ok {
			subMixers = append(subMixers, c)
		} else {
			leaves = append(leaves, c)
		}
	}
	concurrent := m.concurrent
	pool := m.pool
	m.structMu.RUnlock()

	m.lastWeight = float64(len(leaves) + len(subMixers))

	if concurrent && pool != nil && len(subMixers) > 1 {
		sort.Slice(subMixers, func(i, j int) bool {
			return subMixers[i].source.Weight() > subMixers[j].source.Weight()
		})
		if cap(m.tasks) < len(subMixers) {
			m.tasks = make([]func() error, len(subMixers))
		}
		tasks := m.tasks[:len(subMixers)]
		for i, c := range subMixers {
			c := c
			if cap(c.scratch) < n {
				c.scratch = make([]float32, n)
			}
			buf := c.scratch[:n]
			for i := range buf {
				buf[i] = 0
			}
			tasks[i] = func() error {
				frames := c.source.Write(buf, t)
				m.markRemovalIfDrained(c, frames)
				return nil
			}
		}
		dispatch := pool.Start(tasks)
		m.mixLeaves(leaves, scratch, t)
		dispatch.Wait()
		for _, c := range subMixers {
			addInto(scratch, c.scratch[:n])
		}
	} else {
		m.mixLeaves(append(leaves, subMixers...), scratch, t)
	}

	m.structMu.RLock()
	for _, e := range m.effects {
		e.bypasser.Process(scratch, t)
	}
	volume := m.volume
	m.structMu.RUnlock()

	for i := range dst {
		dst[i] += scratch[i] * float32(volume)
	}
}

func (m *Mixer) mixLeaves(slots []*childSlot, scratch []float32, t audiosource.SourceTime) {
	n := len(scratch)
	for _, c := range slots {
		if cap(c.scratch) < n {
			c.scratch = make([]float32, n)
		}
		buf := c.scratch[:n]
		for i := range buf {
			buf[i] = 0
		}
		frames := c.source.Write(buf, t)
		addInto(scratch, buf)
		m.markRemovalIfDrained(c, frames)
	}
}

// markRemovalIfDrained implements "a child that returned 0 frames and
// reports exhausted is marked for removal after the block."
func (m *Mixer) markRemovalIfDrained(c *childSlot, framesWritten int) {
	if c.transient && framesWritten == 0 && c.source.IsExhausted() {
		c.remove = true
	}
}

func (m *Mixer) removeExhausted() {
	m.structMu.Lock()
	defer m.structMu.Unlock()
	for id, c := range m.children {
		if c.remove {
			delete(m.children, id)
			m.scheduler.Forget(id)
		}
	}
}

func addInto(dst, src []float32) {
	for i := range dst {
		dst[i] += src[i]
	}
}
