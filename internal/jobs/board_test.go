package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/job-board-moderator/internal/chat"
	"github.com/MimeLyc/job-board-moderator/internal/posts"
)

type memoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[string]*Record)}
}

func (m *memoryStore) LoadRecords(_ context.Context) ([]*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ret := make([]*Record, 0, len(m.records))
	for _, r := range m.records {
		ret = append(ret, cloneRecord(r))
	}
	return ret, nil
}

func (m *memoryStore) UpsertRecord(_ context.Context, record *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.MessageID] = cloneRecord(record)
	return nil
}

func (m *memoryStore) DeleteRecord(_ context.Context, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, messageID)
	return nil
}

func (m *memoryStore) DeleteRecordsByAuthor(_ context.Context, authorID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.records {
		if r.AuthorID == authorID {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) DeleteRecordsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.records {
		if r.CreatedAt.Before(cutoff) {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}

func message(id, author string, createdAt time.Time) *chat.Message {
	return &chat.Message{
		ID:        id,
		ChannelID: "board",
		Author:    &chat.User{ID: author, Username: author},
		CreatedAt: createdAt,
	}
}

func TestBoard_UpdateCreatesThenRefreshes(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newMemoryStore()
	b := NewBoard(7*24*time.Hour, store, WithClock(func() time.Time { return now }))

	created := now.Add(-time.Minute)
	rec := b.Update(message("m1", "alice", created), []posts.Tag{posts.TagHiring})
	assert.Equal(t, created, rec.CreatedAt)
	assert.Equal(t, now, rec.UpdatedAt)

	now = now.Add(5 * time.Minute)
	rec = b.Update(message("m1", "alice", created), []posts.Tag{posts.TagForHire})
	assert.Equal(t, created, rec.CreatedAt, "edits keep the original post time")
	assert.Equal(t, now, rec.UpdatedAt)
	assert.Equal(t, []posts.Tag{posts.TagForHire}, rec.Tags)
	assert.Equal(t, 1, b.Len())

	require.Contains(t, store.records, "m1")
	assert.Equal(t, []posts.Tag{posts.TagForHire}, store.records["m1"].Tags)
}

func TestBoard_RemoveSpecific(t *testing.T) {
	store := newMemoryStore()
	b := NewBoard(time.Hour, store)
	b.Update(message("m1", "alice", time.Now()), []posts.Tag{posts.TagHiring})

	assert.True(t, b.RemoveSpecific("m1"))
	assert.False(t, b.RemoveSpecific("m1"))
	assert.Empty(t, store.records)
}

func TestBoard_PurgeMember(t *testing.T) {
	store := newMemoryStore()
	b := NewBoard(time.Hour, store)
	now := time.Now()
	b.Update(message("m1", "alice", now), []posts.Tag{posts.TagHiring})
	b.Update(message("m2", "alice", now), []posts.Tag{posts.TagForHire})
	b.Update(message("m3", "bob", now), []posts.Tag{posts.TagHiring})

	assert.Equal(t, 2, b.PurgeMember("alice"))
	assert.Equal(t, 0, b.PurgeMember("alice"))
	assert.Equal(t, 1, b.Len())
	assert.Len(t, store.records, 1)
}

func TestBoard_DeleteAged(t *testing.T) {
	now := time.Now()
	store := newMemoryStore()
	b := NewBoard(24*time.Hour, store)
	b.Update(message("old", "alice", now.Add(-25*time.Hour)), []posts.Tag{posts.TagHiring})
	b.Update(message("fresh", "bob", now.Add(-time.Hour)), []posts.Tag{posts.TagHiring})

	assert.Equal(t, 1, b.DeleteAged(now))
	_, ok := b.Get("old")
	assert.False(t, ok)
	_, ok = b.Get("fresh")
	assert.True(t, ok)
	assert.NotContains(t, store.records, "old")
}

func TestBoard_LastPost(t *testing.T) {
	now := time.Now()
	b := NewBoard(24*time.Hour, nil)
	b.Update(message("m1", "alice", now.Add(-3*time.Hour)), []posts.Tag{posts.TagHiring})
	b.Update(message("m2", "alice", now.Add(-time.Hour)), []posts.Tag{posts.TagHiring})
	b.Update(message("m3", "alice", now), []posts.Tag{posts.TagForHire})

	rec, ok := b.LastPost("alice", posts.TagHiring, "")
	require.True(t, ok)
	assert.Equal(t, "m2", rec.MessageID)

	rec, ok = b.LastPost("alice", posts.TagHiring, "m2")
	require.True(t, ok)
	assert.Equal(t, "m1", rec.MessageID)

	_, ok = b.LastPost("bob", posts.TagHiring, "")
	assert.False(t, ok)
}

func TestBoard_HydratesFromStoreAndLoadsHistory(t *testing.T) {
	now := time.Now()
	store := newMemoryStore()
	store.records["stored"] = &Record{
		AuthorID:  "alice",
		MessageID: "stored",
		Tags:      []posts.Tag{posts.TagHiring},
		CreatedAt: now.Add(-time.Hour),
	}

	b := NewBoard(24*time.Hour, store)
	require.Equal(t, 1, b.Len())

	history := []*chat.Message{
		message("stored", "alice", now.Add(-time.Hour)),
		message("recent", "bob", now.Add(-2*time.Hour)),
		message("ancient", "carol", now.Add(-48*time.Hour)),
		message("chatter", "dave", now.Add(-time.Minute)),
		{ID: "partial", CreatedAt: now},
	}
	tagger := func(m *chat.Message) []posts.Tag {
		if m.ID == "chatter" {
			return nil
		}
		return []posts.Tag{posts.TagForHire}
	}

	assert.Equal(t, 1, b.Load(context.Background(), history, tagger))
	list := b.List()
	require.Len(t, list, 2)
	assert.Equal(t, "recent", list[0].MessageID)
	assert.Equal(t, "stored", list[1].MessageID)
	assert.Contains(t, store.records, "recent")
}

func TestBoard_LoadTagsWithoutHoldingTheLock(t *testing.T) {
	now := time.Now()
	b := NewBoard(24*time.Hour, nil)

	history := []*chat.Message{
		message("live", "alice", now.Add(-time.Hour)),
		message("quiet", "bob", now.Add(-time.Hour)),
	}
	var seen []int
	tagger := func(m *chat.Message) []posts.Tag {
		seen = append(seen, b.Len())
		if m.ID == "live" {
			// The same post arrives through a live event while history is loading.
			b.Update(m, []posts.Tag{posts.TagHiring})
		}
		return []posts.Tag{posts.TagForHire}
	}

	done := make(chan int, 1)
	go func() { done <- b.Load(context.Background(), history, tagger) }()

	select {
	case loaded := <-done:
		assert.Equal(t, 1, loaded)
	case <-time.After(2 * time.Second):
		t.Fatal("Load did not return while the tagger used the board")
	}

	assert.Equal(t, []int{0, 1}, seen)
	live, ok := b.Get("live")
	require.True(t, ok)
	assert.Equal(t, []posts.Tag{posts.TagHiring}, live.Tags)
	quiet, ok := b.Get("quiet")
	require.True(t, ok)
	assert.Equal(t, []posts.Tag{posts.TagForHire}, quiet.Tags)
}
