package moderation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MimeLyc/job-board-moderator/internal/chat"
	"github.com/MimeLyc/job-board-moderator/internal/metrics"
	"github.com/MimeLyc/job-board-moderator/internal/modlog"
	"github.com/MimeLyc/job-board-moderator/internal/posts"
	"github.com/MimeLyc/job-board-moderator/pkg/log"
)

const (
	enforcementThreadName    = "Your post has been removed"
	enforcementThreadArchive = 24 * time.Hour
	guidanceURL              = "https://www.reactiflux.com/promotion#job-board"
	exampleColor             = 0x7289da
)

const examplePost = "Here's an example of a good HIRING post:\n```\n" +
	"HIRING | REMOTE | FULL-TIME\n\n" +
	"Senior React Engineer: $min - $max\n\n" +
	"Lorem ipsum dolor sit amet, consectetur adipisicing elit, sed do eiusmod tempor incididunt ut labore et dolore magna aliqua. " +
	"Ut enim ad minim veniam, quis nostrud exercitation ullamco laboris nisi ut aliquip ex ea commodo consequat.\n\n" +
	"More details & apply: https://example.com/apply\n```"

// reject removes a failing post and explains the failures in the author's enforcement thread.
func (m *Manager) reject(ctx context.Context, msg *chat.Message, failures []posts.Failure, event string) error {
	metrics.Rejections.WithLabelValues(event).Inc()

	// The marker must exist before the delete call so the resulting delete event is suppressed.
	m.tracker.Track(msg.ID)
	m.deleteMessage(ctx, msg)

	err := m.explain(ctx, msg, failures)

	if _, ok := posts.FindTooFrequent(failures); ok {
		m.reporter.Report(modlog.Report{Reason: modlog.ReasonJobFrequency, Message: msg})
	}
	return err
}

func (m *Manager) deleteMessage(ctx context.Context, msg *chat.Message) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.RequestTimeout)
	defer cancel()

	err := m.platform.DeleteMessage(ctx, msg.ChannelID, msg.ID)
	switch {
	case err == nil:
	case IsGone(err):
		log.Debug("Job post %s was already deleted", msg.ID)
	default:
		log.WithFields(log.Fields{
			"channel": msg.ChannelID,
			"message": msg.ID,
			"author":  msg.AuthorID(),
		}).Warnf("Failed to delete rejected job post: %v", err)
	}
}

func (m *Manager) explain(ctx context.Context, msg *chat.Message, failures []posts.Failure) error {
	ctx, cancel := context.WithTimeout(ctx, 3*m.cfg.RequestTimeout)
	defer cancel()

	reasons := posts.RenderList(m.validator, failures)
	for attempt := 0; ; attempt++ {
		thread, created, err := m.enforcementThread(ctx, msg.Author.ID)
		if err != nil {
			return WrapError(err, ErrThread, "failed to open enforcement thread").
				WithContext("author", msg.Author.ID).
				WithContext("message", msg.ID)
		}

		err = m.sendExplanation(ctx, thread.ID, msg, reasons, created)
		if err == nil {
			return nil
		}
		if !IsGone(err) {
			return WrapError(err, ErrSend, "failed to send to enforcement thread").
				WithContext("thread", thread.ID).
				WithContext("author", msg.Author.ID)
		}

		// A moderator may have deleted the cached thread. Open a fresh one, once.
		m.threads.Forget(thread.ID)
		if attempt > 0 {
			log.Warn("Enforcement thread %s for %s disappeared while sending", thread.ID, msg.Author.ID)
			return nil
		}
		log.Info("Enforcement thread %s for %s is gone, opening a new one", thread.ID, msg.Author.ID)
	}
}

func (m *Manager) sendExplanation(ctx context.Context, threadID string, msg *chat.Message, reasons string, created bool) error {
	intro := chat.OutgoingMessage{
		Content: fmt.Sprintf(
			"Hey %s, please use this thread to test out new posts against our validation rules. Your post was removed for these reasons:\n\n%s",
			chat.Mention(msg.Author.ID), reasons),
	}
	if created {
		intro = chat.OutgoingMessage{
			Content: fmt.Sprintf(
				"Hey %s, your message does not meet our requirements to be posted to the board. "+
					"This thread acts as a REPL where you can test out new posts against our validation rules. "+
					"It was removed for these reasons:\n\n%s\n\nView our [guidance for job posts](<%s>).",
				chat.Mention(msg.Author.ID), reasons, guidanceURL),
			Embeds: []chat.Embed{{Description: examplePost, Color: exampleColor}},
		}
	}

	for _, out := range []chat.OutgoingMessage{
		intro,
		{Content: "Your post:"},
		{Content: chat.Truncate(msg.Content), SuppressMentions: true},
	} {
		if strings.TrimSpace(out.Content) == "" && len(out.Embeds) == 0 {
			continue
		}
		if err := m.platform.SendMessage(ctx, threadID, out); err != nil {
			return err
		}
	}
	return nil
}

// enforcementThread returns the author's open thread, creating and caching one if needed.
func (m *Manager) enforcementThread(ctx context.Context, authorID string) (chat.Thread, bool, error) {
	if thread, ok := m.threads.Get(authorID); ok {
		return thread, false, nil
	}

	thread, err := m.platform.CreatePrivateThread(ctx, m.cfg.JobBoardID, enforcementThreadName, enforcementThreadArchive)
	if err != nil {
		return chat.Thread{}, false, err
	}
	if err := m.platform.AddThreadMember(ctx, thread.ID, authorID); err != nil {
		log.Warn("Failed to add %s to enforcement thread %s: %v", authorID, thread.ID, err)
	}
	m.threads.Set(authorID, thread)
	return thread, true, nil
}
