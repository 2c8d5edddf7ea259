package recognition

import (
	"testing"

	"github.com/kozaktomas/face-recognizer/internal/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_FansOutEvents(t *testing.T) {
	b := NewBroadcaster()
	first, second := b.AddListener(), b.AddListener()
	defer b.RemoveListener(first)
	defer b.RemoveListener(second)

	b.Present(Event{CycleID: "c1"})

	assert.Equal(t, "c1", (<-first).CycleID)
	assert.Equal(t, "c1", (<-second).CycleID)
}

func TestBroadcaster_Last(t *testing.T) {
	b := NewBroadcaster()
	_, ok := b.Last()
	assert.False(t, ok)

	b.Present(Event{CycleID: "c1"})
	b.Present(Event{CycleID: "c2"})

	last, ok := b.Last()
	require.True(t, ok)
	assert.Equal(t, "c2", last.CycleID)
}

func TestBroadcaster_SlowListenerDoesNotBlock(t *testing.T) {
	b := NewBroadcaster()
	ch := b.AddListener()

	for range constants.EventChannelBuffer + 10 {
		b.Present(Event{})
	}

	assert.Len(t, ch, constants.EventChannelBuffer)
	b.RemoveListener(ch)
}

func TestBroadcaster_RemoveListenerClosesChannel(t *testing.T) {
	b := NewBroadcaster()
	ch := b.AddListener()

	b.RemoveListener(ch)
	_, open := <-ch
	assert.False(t, open)

	b.RemoveListener(ch)
	b.Present(Event{})
}
