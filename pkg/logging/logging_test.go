package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerWritesLeveledJSONLines(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "mixer")

	l.Info("started")
	l.Warningf("queue at %d%%", 90)

	out := buf.String()
	assert.Contains(t, out, `"component":"mixer"`)
	assert.Contains(t, out, `"message":"started"`)
	assert.Contains(t, out, "queue at 90%")
}

func TestNopLoggerDiscardsOutput(t *testing.T) {
	l := Nop()
	assert.NotPanics(t, func() {
		l.Error("should not appear anywhere")
	})
}
