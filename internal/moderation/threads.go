package moderation

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/MimeLyc/job-board-moderator/internal/chat"
	"github.com/MimeLyc/job-board-moderator/internal/metrics"
	"github.com/MimeLyc/job-board-moderator/pkg/log"
)

const (
	DefaultThreadCacheSize = 100
	DefaultThreadTTL       = 2 * time.Hour
)

// ThreadCache maps an author to their open enforcement thread. Entries dropped by capacity or
// TTL have their thread closed.
type ThreadCache struct {
	platform chat.Platform
	timeout  time.Duration
	lru      *expirable.LRU[string, chat.Thread]

	// closes tracks in-flight close calls so shutdown can wait for them.
	closes sync.WaitGroup
}

func NewThreadCache(
	platform chat.Platform,
	size int,
	ttl time.Duration,
	timeout time.Duration,
) *ThreadCache {
	if size <= 0 {
		size = DefaultThreadCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultThreadTTL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &ThreadCache{
		platform: platform,
		timeout:  timeout,
	}
	c.lru = expirable.NewLRU[string, chat.Thread](size, c.onEvict, ttl)
	return c
}

func (c *ThreadCache) Get(authorID string) (chat.Thread, bool) {
	return c.lru.Get(authorID)
}

func (c *ThreadCache) Set(authorID string, thread chat.Thread) {
	c.lru.Add(authorID, thread)
}

// Holds reports whether threadID is the cached thread of authorID, without touching recency.
func (c *ThreadCache) Holds(authorID, threadID string) bool {
	thread, ok := c.lru.Peek(authorID)
	return ok && thread.ID == threadID
}

func (c *ThreadCache) Len() int {
	return c.lru.Len()
}

// Forget drops whichever author entry points at threadID. The eviction close is a no-op for a
// thread that is already gone.
func (c *ThreadCache) Forget(threadID string) bool {
	for _, authorID := range c.lru.Keys() {
		if thread, ok := c.lru.Peek(authorID); ok && thread.ID == threadID {
			return c.lru.Remove(authorID)
		}
	}
	return false
}

// Purge drops every entry, closing all threads.
func (c *ThreadCache) Purge() {
	c.lru.Purge()
}

// Wait blocks until pending thread closes finish.
func (c *ThreadCache) Wait() {
	c.closes.Wait()
}

// onEvict runs under the LRU lock, so the close happens on its own goroutine.
func (c *ThreadCache) onEvict(authorID string, thread chat.Thread) {
	c.closes.Add(1)
	go func() {
		defer c.closes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()

		err := c.platform.CloseThread(ctx, thread.ID)
		switch {
		case err == nil:
			metrics.ThreadsClosed.WithLabelValues("evicted").Inc()
			log.Debug("Closed enforcement thread %s for %s", thread.ID, authorID)
		case IsGone(err):
			log.Debug("Enforcement thread %s already gone", thread.ID)
		default:
			log.WithFields(log.Fields{
				"thread": thread.ID,
				"author": authorID,
			}).Warnf("Failed to close enforcement thread: %v", err)
		}
	}()
}
