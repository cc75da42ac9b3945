package device

import (
	"testing"

	"github.com/justyntemme/sonora/pkg/audiosource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memWriteSeekCloser is an in-memory writeSeekCloser: a byte slice with a
// manually tracked cursor.
type memWriteSeekCloser struct {
	buf    []byte
	pos    int64
	closed bool
}

func (m *memWriteSeekCloser) Write(p []byte) (int, error) {
	if int64(len(m.buf)) < m.pos+int64(len(p)) {
		grown := make([]byte, m.pos+int64(len(p)))
		copy(grown, m.buf)
		m.buf = grown
	}
	n := copy(m.buf[m.pos:], p)
	m.pos += int64(n)
	return n, nil
}

func (m *memWriteSeekCloser) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case 0:
		m.pos = offset
	case 1:
		m.pos += offset
	case 2:
		m.pos = int64(len(m.buf)) + offset
	}
	return m.pos, nil
}

func (m *memWriteSeekCloser) Close() error {
	m.closed = true
	return nil
}

// finiteSource produces n blocks of constant-value audio then reports 0.
type finiteSource struct {
	value      float32
	channels   int
	rate       float64
	blocksLeft int
}

func (f *finiteSource) SampleRate() float64   { return f.rate }
func (f *finiteSource) ChannelCount() int     { return f.channels }
func (f *finiteSource) IsExhausted() bool     { return f.blocksLeft <= 0 }
func (f *finiteSource) Weight() float64       { return 1 }
func (f *finiteSource) Write(output []float32, _ audiosource.SourceTime) int {
	if f.blocksLeft <= 0 {
		return 0
	}
	f.blocksLeft--
	for i := range output {
		output[i] = f.value
	}
	return len(output) / f.channels
}

func TestWAVSinkRendersUntilSourceExhausted(t *testing.T) {
	src := &finiteSource{value: 0.5, channels: 2, rate: 48000, blocksLeft: 3}
	dst := &memWriteSeekCloser{}
	sink := CreateWAVSink(dst, src, 32)

	err := sink.RenderAll()
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	assert.True(t, dst.closed)
	assert.Greater(t, len(dst.buf), 44, "wav header plus data should be written")
	assert.Equal(t, uint64(3*32), sink.SamplePosition())
}

func TestWAVSinkStopsEarlyWhenRequested(t *testing.T) {
	src := &finiteSource{value: 0.1, channels: 1, rate: 44100, blocksLeft: 100}
	dst := &memWriteSeekCloser{}
	sink := CreateWAVSink(dst, src, 16)
	sink.Stop()

	err := sink.RenderAll()
	require.NoError(t, err)
	assert.NoError(t, sink.Close())
	assert.Equal(t, uint64(0), sink.SamplePosition(), "stopping before the first pull renders nothing")
}
