package jobs

import (
	"slices"
	"time"

	"github.com/MimeLyc/job-board-moderator/internal/posts"
)

// Record is one live job post on the board.
type Record struct {
	AuthorID  string      `json:"author_id"`
	MessageID string      `json:"message_id"`
	ChannelID string      `json:"channel_id"`
	Tags      []posts.Tag `json:"tags"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func (r Record) HasTag(tag posts.Tag) bool {
	return slices.Contains(r.Tags, tag)
}

func cloneRecord(r *Record) *Record {
	if r == nil {
		return nil
	}
	tmp := *r
	tmp.Tags = slices.Clone(r.Tags)
	return &tmp
}
