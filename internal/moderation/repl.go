package moderation

import (
	"context"

	"github.com/MimeLyc/job-board-moderator/internal/chat"
	"github.com/MimeLyc/job-board-moderator/internal/posts"
)

const replPassMessage = "This post passes our validation rules!"

// repl checks a message sent inside an enforcement thread and answers in place. Nothing is
// recorded or deleted.
func (m *Manager) repl(ctx context.Context, msg *chat.Message) error {
	failures := m.validator.Validate(m.validator.Parse(msg.Content), msg)

	reply := replPassMessage
	if len(failures) > 0 {
		reply = posts.RenderList(m.validator, failures)
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.RequestTimeout)
	defer cancel()
	if err := m.platform.SendMessage(ctx, msg.ChannelID, chat.OutgoingMessage{Content: reply}); err != nil && !IsGone(err) {
		return WrapError(err, ErrSend, "failed to answer in enforcement thread").
			WithContext("thread", msg.ChannelID).
			WithContext("author", msg.AuthorID())
	}
	return nil
}
