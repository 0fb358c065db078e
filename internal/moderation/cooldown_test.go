package moderation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCooldowns(t *testing.T) {
	c := NewCooldowns()

	assert.False(t, c.Has("alice", "thumbsdown"))
	c.Add("alice", "thumbsdown", time.Minute)
	assert.True(t, c.Has("alice", "thumbsdown"))
	assert.False(t, c.Has("alice", "other"))
	assert.False(t, c.Has("bob", "thumbsdown"))

	c.Add("bob", "thumbsdown", 20*time.Millisecond)
	assert.Eventually(t, func() bool {
		return !c.Has("bob", "thumbsdown")
	}, time.Second, 5*time.Millisecond)
}

func TestMessageTracker(t *testing.T) {
	tr := NewMessageTracker(time.Minute)

	assert.False(t, tr.Untrack("m1"))
	tr.Track("m1")
	assert.True(t, tr.Tracked("m1"))
	assert.True(t, tr.Untrack("m1"))
	assert.False(t, tr.Untrack("m1"), "a marker is consumed by the first check")

	short := NewMessageTracker(20 * time.Millisecond)
	short.Track("m2")
	assert.Eventually(t, func() bool {
		return !short.Tracked("m2")
	}, time.Second, 5*time.Millisecond)
}
