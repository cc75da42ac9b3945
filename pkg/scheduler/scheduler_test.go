package scheduler

import (
	"testing"

	"github.com/justyntemme/sonora/pkg/command"
	"github.com/justyntemme/sonora/pkg/ids"
	"github.com/stretchr/testify/assert"
)

func TestInsertKeepsSortedOrder(t *testing.T) {
	s := New()
	s.Insert(command.SetSourceVolume(1, 0.5, 300))
	s.Insert(command.SetSourceVolume(1, 0.6, 100))
	s.Insert(command.SetSourceVolume(1, 0.7, 200))

	next, ok := s.NextSampleTime()
	assert.True(t, ok)
	assert.Equal(t, uint64(100), next)

	due := s.DrainDue(300)
	assert.Len(t, due, 3)
	assert.Equal(t, uint64(100), due[0].SampleTime)
	assert.Equal(t, uint64(200), due[1].SampleTime)
	assert.Equal(t, uint64(300), due[2].SampleTime)
}

func TestStopSourceSilencesLaterCommandsForSameSource(t *testing.T) {
	s := New()
	var sourceID ids.PlaybackId = 7
	s.Insert(command.StopSource(sourceID, 100))
	s.Insert(command.SetSourceVolume(sourceID, 0.9, 200))
	s.Insert(command.SetSourcePanning(sourceID, -0.5, 300))

	due := s.DrainDue(1000)
	assert.Len(t, due, 1)
	assert.Equal(t, command.KindStopSource, due[0].Kind)
}

func TestStopSourceDoesNotAffectOtherSources(t *testing.T) {
	s := New()
	s.Insert(command.StopSource(1, 100))
	s.Insert(command.SetSourceVolume(2, 0.9, 200))

	due := s.DrainDue(1000)
	assert.Len(t, due, 2)
}

func TestDrainDueOnlyTakesCommandsUpToCursor(t *testing.T) {
	s := New()
	s.Insert(command.SetSourceVolume(1, 0.1, 100))
	s.Insert(command.SetSourceVolume(1, 0.2, 500))

	due := s.DrainDue(200)
	assert.Len(t, due, 1)
	assert.Equal(t, 1, s.Len())
}

func TestCollapseLateCommandsKeepsLastWriterPerParam(t *testing.T) {
	cmds := []command.Command{
		command.SetSourceVolume(1, 0.1, 0),
		command.SetSourceVolume(1, 0.2, 0),
		command.SetSourcePanning(1, 0.3, 0),
		command.StopSource(2, 0),
	}
	out := CollapseLateCommands(cmds)
	assert.Len(t, out, 3)

	var volumes int
	for _, c := range out {
		if c.Kind == command.KindSetSourceVolume {
			volumes++
			assert.Equal(t, 0.2, c.Volume)
		}
	}
	assert.Equal(t, 1, volumes)
}

func TestSplitBoundariesFallWithinBlock(t *testing.T) {
	s := New()
	s.Insert(command.SetSourceVolume(1, 0.5, 1064))
	s.Insert(command.SetSourceVolume(1, 0.5, 2000)) // outside the block
	s.Insert(command.SetSourceVolume(1, 0.5, 999))  // before the block

	bounds := s.SplitBoundaries(1000, 128)
	assert.Equal(t, []uint64{64}, bounds)
}
