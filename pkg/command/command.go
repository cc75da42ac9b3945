// Package command implements the tagged-union control message the control
// thread sends to the audio thread, plus the bounded lock-free queue it
// travels over.
package command

import (
	"github.com/justyntemme/sonora/pkg/gc"
	"github.com/justyntemme/sonora/pkg/ids"
)

// Kind discriminates the payload carried by a Command.
type Kind int

const (
	KindStopSource Kind = iota
	KindSetSourceVolume
	KindSetSourcePanning
	KindSetSourceSpeed
	KindSeekSource
	KindEffectParameterUpdate
	KindEffectMessage
	KindGeneratorEvent
)

// GeneratorEventKind discriminates the payload of a GeneratorEvent command.
type GeneratorEventKind int

const (
	EventNoteOn GeneratorEventKind = iota
	EventNoteOff
	EventAllNotesOff
	EventSetNoteSpeed
	EventSetNoteVolume
	EventSetNotePanning
	EventSetParameter
)

// GeneratorEvent is the payload of KindGeneratorEvent, mirroring spec.md's
// generator event union.
type GeneratorEvent struct {
	Kind GeneratorEventKind

	NoteID   ids.NotePlaybackId
	Pitch    float64 // semitone-relative to A4=69 when NoteOn
	Velocity float64 // 0..1, only meaningful on NoteOn
	HasVel   bool
	Panning  float64
	HasPan   bool

	Speed float64
	Glide float64 // semitones/second, 0 = step change

	Volume float64

	ParamTag uint32
	Value    float64
}

// Command is the tagged-union control message sent from the control thread
// to the audio thread. sample_time lets the scheduler apply it at an exact
// sample offset within the current block rather than at the block boundary.
type Command struct {
	Kind       Kind
	SampleTime uint64

	SourceID ids.PlaybackId
	MixerID  ids.MixerId
	EffectID ids.EffectId

	Volume  float64
	Panning float64
	Speed   struct {
		Target float64
		Glide  float64
	}
	SeekFrame uint64

	ParamTag uint32
	Value    float64

	// Message carries an effect-specific binary payload, boxed so the
	// audio thread never allocates or frees it directly - dropping the
	// Boxed container hands it to the collector goroutine instead.
	Message gc.Boxed[[]byte]

	Generator GeneratorEvent
}

// StopSource builds a KindStopSource command for sourceID.
func StopSource(sourceID ids.PlaybackId, sampleTime uint64) Command {
	return Command{Kind: KindStopSource, SourceID: sourceID, SampleTime: sampleTime}
}

// SetSourceVolume builds a KindSetSourceVolume command.
func SetSourceVolume(sourceID ids.PlaybackId, volume float64, sampleTime uint64) Command {
	return Command{Kind: KindSetSourceVolume, SourceID: sourceID, Volume: volume, SampleTime: sampleTime}
}

// SetSourcePanning builds a KindSetSourcePanning command.
func SetSourcePanning(sourceID ids.PlaybackId, panning float64, sampleTime uint64) Command {
	return Command{Kind: KindSetSourcePanning, SourceID: sourceID, Panning: panning, SampleTime: sampleTime}
}

// SetSourceSpeed builds a KindSetSourceSpeed command with an optional glide
// duration in seconds (0 = immediate).
func SetSourceSpeed(sourceID ids.PlaybackId, target, glide float64, sampleTime uint64) Command {
	c := Command{Kind: KindSetSourceSpeed, SourceID: sourceID, SampleTime: sampleTime}
	c.Speed.Target = target
	c.Speed.Glide = glide
	return c
}

// SeekSource builds a KindSeekSource command.
func SeekSource(sourceID ids.PlaybackId, frame uint64, sampleTime uint64) Command {
	return Command{Kind: KindSeekSource, SourceID: sourceID, SeekFrame: frame, SampleTime: sampleTime}
}

// EffectParameterUpdate builds a KindEffectParameterUpdate command.
func EffectParameterUpdate(mixerID ids.MixerId, effectID ids.EffectId, paramTag uint32, value float64, sampleTime uint64) Command {
	return Command{
		Kind: KindEffectParameterUpdate, MixerID: mixerID, EffectID: effectID,
		ParamTag: paramTag, Value: value, SampleTime: sampleTime,
	}
}

// EffectMessage builds a KindEffectMessage command carrying a boxed payload.
func EffectMessage(mixerID ids.MixerId, effectID ids.EffectId, payload gc.Boxed[[]byte], sampleTime uint64) Command {
	return Command{
		Kind: KindEffectMessage, MixerID: mixerID, EffectID: effectID,
		Message: payload, SampleTime: sampleTime,
	}
}

// ForGenerator builds a KindGeneratorEvent command wrapping ev.
func ForGenerator(sourceID ids.PlaybackId, ev GeneratorEvent, sampleTime uint64) Command {
	return Command{Kind: KindGeneratorEvent, SourceID: sourceID, Generator: ev, SampleTime: sampleTime}
}
