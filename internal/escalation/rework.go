package escalation

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/MimeLyc/job-board-moderator/internal/chat"
	"github.com/MimeLyc/job-board-moderator/internal/moderation"
	"github.com/MimeLyc/job-board-moderator/internal/modlog"
	"github.com/MimeLyc/job-board-moderator/pkg/log"
)

const (
	reworkArchive = 60 * time.Minute
	reworkColor   = 0x7289da
	reworkTitle   = "Please improve your question"
)

const reworkGuidance = `Sorry, our most active helpers have flagged this as a question that needs more work before a good answer can be given. This may be because it's ambiguous, too broad, or otherwise challenging to answer.

Zell Liew [wrote a great resource](https://zellwk.com/blog/asking-questions/) about asking good programming questions.

- The onus is on the asker to craft a question that is easy to answer.
- A good question is specific, clear, concise, and shows effort on the part of the asker.
- Share just the relevant parts of the code, using tools like Codepen, CodeSandbox, or GitHub for better clarity.
- Making a question specific and to the point is a sign of respecting the responder’s time, which increases the likelihood of getting a good answer.

(this was triggered by crossing a threshold of "🔍" reactions on the original message)`

// rework moves a flagged question into a private thread with guidance, then deletes the original.
func (e *Escalator) rework(ctx context.Context, v *vote) error {
	th := e.Thresholds()
	helpers := make([]*chat.Member, 0, len(v.voters))
	for _, m := range v.voters {
		if e.roles.IsStaffOrHelpful(m) {
			helpers = append(helpers, m)
		}
	}
	if th.Rework <= 0 || len(helpers) < th.Rework {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 3*e.timeout)
	defer cancel()

	msg := v.message
	ch, err := e.platform.FetchChannel(ctx, msg.ChannelID)
	if err != nil {
		return moderation.WrapError(err, moderation.ErrFetch, "failed to fetch channel").
			WithContext("channel", msg.ChannelID)
	}
	// Threads cannot hold threads.
	if ch.Kind == chat.ChannelPublicThread || ch.Kind == chat.ChannelPrivateThread {
		return nil
	}

	thread, err := e.platform.CreatePrivateThread(ctx, msg.ChannelID, reworkThreadName(msg.Author.Username), reworkArchive)
	if err != nil {
		return moderation.WrapError(err, moderation.ErrThread, "failed to create rework thread").
			WithContext("channel", msg.ChannelID).
			WithContext("message", msg.ID)
	}
	e.reworked.Set(msg.ID, struct{}{}, cache.DefaultExpiration)

	if err := e.platform.AddThreadMember(ctx, thread.ID, msg.Author.ID); err != nil {
		log.Warn("Failed to add %s to rework thread %s: %v", msg.Author.ID, thread.ID, err)
	}
	for _, out := range []chat.OutgoingMessage{
		{Embeds: []chat.Embed{{Title: reworkTitle, Description: reworkGuidance, Color: reworkColor}}},
		{Content: "Your message:"},
		{Content: chat.Truncate(msg.Content), SuppressMentions: true},
	} {
		if err := e.platform.SendMessage(ctx, thread.ID, out); err != nil {
			log.WithFields(log.Fields{
				"thread":  thread.ID,
				"message": msg.ID,
			}).Warnf("Failed to send to rework thread: %v", err)
			break
		}
	}

	e.deleteMessage(ctx, msg)
	e.reporter.Report(modlog.Report{
		Reason:  modlog.ReasonLowEffortQuestionRemoved,
		Message: msg,
		Staff:   helpers,
	})
	return nil
}
