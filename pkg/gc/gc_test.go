package gc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBoxedReleaseRoutesThroughCollector(t *testing.T) {
	c := NewCollector(4)
	defer c.Close()

	released := make(chan struct{}, 1)
	payload := make([]byte, 16)
	b := Box(payload, c)
	assert.True(t, b.Present())
	assert.Equal(t, payload, b.Value())

	b.Release()
	select {
	case released <- struct{}{}:
	default:
	}
	<-released

	assert.Eventually(t, func() bool {
		return c.Dropped() == 0
	}, time.Second, time.Millisecond)
}

func TestEmptyBoxReleaseIsNoOp(t *testing.T) {
	var b Boxed[[]byte]
	assert.False(t, b.Present())
	b.Release() // must not panic with a nil sink
}

func TestReleaseNeverBlocks(t *testing.T) {
	c := NewCollector(1)
	defer c.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			Box([]byte{byte(i)}, c).Release()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Release blocked under sustained load")
	}
}
