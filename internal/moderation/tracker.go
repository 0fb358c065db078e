package moderation

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// DefaultMarkerTTL bounds how long an unconsumed self-delete marker is kept.
const DefaultMarkerTTL = 5 * time.Minute

// MessageTracker remembers messages the engine deleted itself, so their delete events can be
// told apart from deletions by authors or moderators.
type MessageTracker struct {
	mu      sync.Mutex
	markers *cache.Cache
	ttl     time.Duration
}

func NewMessageTracker(ttl time.Duration) *MessageTracker {
	if ttl <= 0 {
		ttl = DefaultMarkerTTL
	}
	return &MessageTracker{
		markers: cache.New(ttl, ttl),
		ttl:     ttl,
	}
}

func (t *MessageTracker) Track(messageID string) {
	t.markers.Set(messageID, struct{}{}, t.ttl)
}

// Untrack consumes the marker and reports whether it was present.
func (t *MessageTracker) Untrack(messageID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.markers.Get(messageID); !ok {
		return false
	}
	t.markers.Delete(messageID)
	return true
}

func (t *MessageTracker) Tracked(messageID string) bool {
	_, ok := t.markers.Get(messageID)
	return ok
}
