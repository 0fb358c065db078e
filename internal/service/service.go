package service

import (
	"context"
	"fmt"
	"time"

	"github.com/MimeLyc/job-board-moderator/internal/chat"
	"github.com/MimeLyc/job-board-moderator/internal/jobs"
	"github.com/MimeLyc/job-board-moderator/internal/posts"
	"github.com/MimeLyc/job-board-moderator/internal/validation"
	"github.com/MimeLyc/job-board-moderator/pkg/log"
)

// HistoryLoader seeds the job board from recent channel history.
type HistoryLoader struct {
	board      *jobs.Board
	platform   chat.Platform
	roles      chat.Roles
	jobBoardID string
	timeout    time.Duration
	now        func() time.Time
}

func NewHistoryLoader(
	board *jobs.Board,
	platform chat.Platform,
	roles chat.Roles,
	jobBoardID string,
	timeout time.Duration,
) *HistoryLoader {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &HistoryLoader{
		board:      board,
		platform:   platform,
		roles:      roles,
		jobBoardID: jobBoardID,
		timeout:    timeout,
		now:        time.Now,
	}
}

// LoadJobs records every post inside the board window, skipping bots and staff, and then
// drops records that already aged out. Returns the number of posts loaded.
func (l *HistoryLoader) LoadJobs(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	since := l.now().Add(-l.board.Window())
	messages, err := l.platform.RecentMessages(ctx, l.jobBoardID, since)
	if err != nil {
		return 0, fmt.Errorf("fetch job board history: %w", err)
	}

	staff := make(map[string]bool)
	tagger := func(msg *chat.Message) []posts.Tag {
		if msg.Author.Bot {
			return nil
		}
		isStaff, seen := staff[msg.Author.ID]
		if !seen {
			isStaff = l.isStaff(ctx, msg)
			staff[msg.Author.ID] = isStaff
		}
		if isStaff {
			return nil
		}
		return validation.Tags(msg.Content)
	}

	loaded := l.board.Load(ctx, messages, tagger)
	aged := l.board.DeleteAged(l.now())
	log.Info("Loaded %d job posts from %d messages of history, %d aged out", loaded, len(messages), aged)
	return loaded, nil
}

func (l *HistoryLoader) isStaff(ctx context.Context, msg *chat.Message) bool {
	if msg.Member != nil {
		return l.roles.IsStaff(msg.Member)
	}
	member, err := l.platform.FetchMember(ctx, msg.Author.ID)
	if err != nil {
		log.Debug("Could not fetch member %s while loading history: %v", msg.Author.ID, err)
		return false
	}
	return l.roles.IsStaff(member)
}
