package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/MimeLyc/job-board-moderator/internal/jobs"
	"github.com/MimeLyc/job-board-moderator/internal/posts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "jobmod.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_RecordsRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	record := &jobs.Record{
		AuthorID:  "alice",
		MessageID: "m1",
		ChannelID: "board",
		Tags:      []posts.Tag{posts.TagHiring, posts.TagForHire},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, store.UpsertRecord(ctx, record))

	record.Tags = []posts.Tag{posts.TagForHire}
	record.UpdatedAt = now.Add(time.Minute)
	require.NoError(t, store.UpsertRecord(ctx, record))

	all, err := store.LoadRecords(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "alice", all[0].AuthorID)
	assert.Equal(t, []posts.Tag{posts.TagForHire}, all[0].Tags)
	assert.True(t, all[0].CreatedAt.Equal(now))
	assert.True(t, all[0].UpdatedAt.Equal(now.Add(time.Minute)))

	require.NoError(t, store.DeleteRecord(ctx, "m1"))
	all, err = store.LoadRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSQLiteStore_BulkDeletes(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	for _, r := range []*jobs.Record{
		{AuthorID: "alice", MessageID: "a1", ChannelID: "board", CreatedAt: now.Add(-10 * 24 * time.Hour), UpdatedAt: now},
		{AuthorID: "alice", MessageID: "a2", ChannelID: "board", CreatedAt: now, UpdatedAt: now},
		{AuthorID: "bob", MessageID: "b1", ChannelID: "board", CreatedAt: now, UpdatedAt: now},
	} {
		require.NoError(t, store.UpsertRecord(ctx, r))
	}

	n, err := store.DeleteRecordsBefore(ctx, now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = store.DeleteRecordsByAuthor(ctx, "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	all, err := store.LoadRecords(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "b1", all[0].MessageID)
}

func TestSQLiteStore_ReportsNewestFirst(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, store.SaveReport(ctx, ReportEntry{ID: "r1", Reason: "jobRemoved", AuthorID: "alice", CreatedAt: now.Add(-time.Minute)}))
	require.NoError(t, store.SaveReport(ctx, ReportEntry{ID: "r2", Reason: "jobFrequency", AuthorID: "bob", CreatedAt: now}))
	require.NoError(t, store.SaveReport(ctx, ReportEntry{ID: "r1", Delivered: true}))

	reports, err := store.RecentReports(ctx, 10)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "r2", reports[0].ID)
	assert.Equal(t, "r1", reports[1].ID)
	assert.Equal(t, "jobRemoved", reports[1].Reason)
	assert.True(t, reports[1].Delivered)
	assert.False(t, reports[0].Delivered)
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "jobmod.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, store.UpsertRecord(context.Background(), &jobs.Record{
		AuthorID: "alice", MessageID: "m1", ChannelID: "board", CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	all, err := store.LoadRecords(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMigrationVersion(t *testing.T) {
	assert.Equal(t, 1, migrationVersion("001_init.sql"))
	assert.Equal(t, 12, migrationVersion("012_more.sql"))
	assert.Equal(t, 0, migrationVersion("init.sql"))
}
