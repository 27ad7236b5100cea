package recording

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlot_PushDropsMismatchedSourceLabel(t *testing.T) {
	s := &Slot{pcm: make(chan []float32, 1), SourceStream: "wx1"}
	s.Push("wx2", []float32{1, 2, 3})
	assert.Equal(t, 0, len(s.pcm))

	s.Push("wx1", []float32{1, 2, 3})
	assert.Equal(t, 1, len(s.pcm))
}

func TestSlot_PushOnNilSlotIsNoop(t *testing.T) {
	var s *Slot
	assert.NotPanics(t, func() {
		s.Push("wx1", []float32{1})
	})
}

func TestCoordinator_AtMostOneRecordingAtATime(t *testing.T) {
	c := NewCoordinator("128k", "48000", "1")
	// Manually install a slot to simulate an in-flight recording without
	// spawning a real ffmpeg subprocess.
	c.mu.Lock()
	c.slot = &Slot{pcm: make(chan []float32, 1), SourceStream: "wx1", OutputPath: "a.ogg", done: make(chan struct{})}
	close(c.slot.done)
	c.mu.Unlock()

	started := c.StartIfEmpty(nil, "wx2", "b.ogg")
	assert.False(t, started, "second StartIfEmpty must not replace an active slot")

	path, label, ok := c.Stop()
	assert.True(t, ok)
	assert.Equal(t, "a.ogg", path)
	assert.Equal(t, "wx1", label)

	_, _, ok2 := c.Stop()
	assert.False(t, ok2, "Stop on an empty coordinator reports no recording")
}
