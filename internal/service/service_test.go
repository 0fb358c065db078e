package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/job-board-moderator/internal/chat"
	"github.com/MimeLyc/job-board-moderator/internal/chat/chattest"
	"github.com/MimeLyc/job-board-moderator/internal/jobs"
	"github.com/MimeLyc/job-board-moderator/internal/posts"
)

func TestHistoryLoader_LoadJobs(t *testing.T) {
	now := time.Now()
	platform := chattest.New(botID)
	platform.AddMember(&chat.Member{UserID: "mod", Roles: []string{"staff-role"}})

	add := func(id, author string, bot bool, content string, age time.Duration) {
		platform.AddMessage(&chat.Message{
			ID:        id,
			ChannelID: boardID,
			Author:    &chat.User{ID: author, Bot: bot},
			Content:   content,
			CreatedAt: now.Add(-age),
		})
	}
	add("hiring", "alice", false, "HIRING | designer\n\nsend a portfolio", time.Hour)
	add("forhire", "bob", false, "[FOR HIRE] react dev", 2*time.Hour)
	add("chatter", "carol", false, "anyone around?", time.Hour)
	add("staff", "mod", false, "HIRING | moderators", time.Hour)
	add("bot", botID, true, "HIRING | robots", time.Hour)
	add("ancient", "dave", false, "HIRING | old news", 200*time.Hour)

	board := jobs.NewBoard(162*time.Hour, nil, jobs.WithClock(func() time.Time { return now }))
	loader := NewHistoryLoader(board, platform, chat.Roles{Staff: []string{"staff-role"}}, boardID, time.Second)
	loader.now = func() time.Time { return now }

	loaded, err := loader.LoadJobs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, loaded)
	assert.Equal(t, 2, board.Len())

	record, ok := board.Get("forhire")
	require.True(t, ok)
	assert.Equal(t, "bob", record.AuthorID)
	assert.True(t, record.HasTag(posts.TagForHire))

	_, ok = board.Get("staff")
	assert.False(t, ok)
}
