package moderation

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// Cooldowns throttles repeated actions per (actor, action kind).
type Cooldowns struct {
	entries *cache.Cache
}

func NewCooldowns() *Cooldowns {
	return &Cooldowns{entries: cache.New(cache.NoExpiration, time.Minute)}
}

func cooldownKey(actorID, kind string) string {
	return kind + ":" + actorID
}

func (c *Cooldowns) Has(actorID, kind string) bool {
	_, ok := c.entries.Get(cooldownKey(actorID, kind))
	return ok
}

// Add starts or restarts the cooldown window for d.
func (c *Cooldowns) Add(actorID, kind string, d time.Duration) {
	c.entries.Set(cooldownKey(actorID, kind), struct{}{}, d)
}
