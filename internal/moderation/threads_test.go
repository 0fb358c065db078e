package moderation

import (
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/job-board-moderator/internal/chat"
	"github.com/MimeLyc/job-board-moderator/internal/chat/chattest"
)

func TestThreadCache_EvictsLeastRecentlyUsedAndClosesIt(t *testing.T) {
	platform := chattest.New(botID)
	cache := NewThreadCache(platform, DefaultThreadCacheSize, DefaultThreadTTL, time.Second)

	for i := 0; i < DefaultThreadCacheSize; i++ {
		cache.Set(fmt.Sprintf("author-%d", i), chat.Thread{ID: fmt.Sprintf("thread-%d", i)})
	}
	// Touch author-0 so author-1 becomes the least recently used entry.
	_, ok := cache.Get("author-0")
	require.True(t, ok)

	cache.Set("author-100", chat.Thread{ID: "thread-100"})
	cache.Wait()

	assert.Equal(t, DefaultThreadCacheSize, cache.Len())
	_, ok = cache.Get("author-1")
	assert.False(t, ok)
	_, ok = cache.Get("author-0")
	assert.True(t, ok)
	assert.Equal(t, []string{"thread-1"}, platform.Closed())
}

func TestThreadCache_ExpiryClosesThread(t *testing.T) {
	platform := chattest.New(botID)
	cache := NewThreadCache(platform, 10, 50*time.Millisecond, time.Second)

	cache.Set("alice", chat.Thread{ID: "t-alice"})

	require.Eventually(t, func() bool {
		return slices.Contains(platform.Closed(), "t-alice")
	}, 2*time.Second, 10*time.Millisecond)
	_, ok := cache.Get("alice")
	assert.False(t, ok)
}

func TestThreadCache_SetSameAuthorDoesNotClose(t *testing.T) {
	platform := chattest.New(botID)
	cache := NewThreadCache(platform, 2, time.Hour, time.Second)

	cache.Set("alice", chat.Thread{ID: "t1"})
	cache.Set("alice", chat.Thread{ID: "t1"})
	cache.Wait()

	assert.Equal(t, 1, cache.Len())
	assert.Empty(t, platform.Closed())

	cache.Purge()
	cache.Wait()
	assert.Equal(t, []string{"t1"}, platform.Closed())
}

func TestThreadCache_Forget(t *testing.T) {
	platform := chattest.New(botID)
	cache := NewThreadCache(platform, 10, time.Hour, time.Second)

	cache.Set("alice", chat.Thread{ID: "t-alice"})
	cache.Set("bob", chat.Thread{ID: "t-bob"})

	assert.True(t, cache.Forget("t-alice"))
	assert.False(t, cache.Forget("t-unknown"))
	cache.Wait()

	_, ok := cache.Get("alice")
	assert.False(t, ok)
	_, ok = cache.Get("bob")
	assert.True(t, ok)
	assert.Equal(t, 1, cache.Len())
}
