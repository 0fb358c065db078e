// Package escalation turns member reactions into moderation reports and low-effort question
// rework threads.
package escalation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/MimeLyc/job-board-moderator/internal/chat"
	"github.com/MimeLyc/job-board-moderator/internal/moderation"
	"github.com/MimeLyc/job-board-moderator/internal/modlog"
	"github.com/MimeLyc/job-board-moderator/pkg/keymutex"
	"github.com/MimeLyc/job-board-moderator/pkg/log"
)

const (
	EmojiThumbsDown = "👎"
	EmojiRework     = "🔍"

	thumbsDownCooldown = "thumbsdown"
	memberFetchLimit   = 5
)

var thumbsDownVariants = map[string]bool{
	"👎": true, "👎🏻": true, "👎🏼": true, "👎🏽": true, "👎🏾": true, "👎🏿": true,
}

// Thresholds are vote counts. A zero Delete disables deletion.
type Thresholds struct {
	Warn     int
	Alert    int
	Delete   int
	Rework   int
	Cooldown time.Duration
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Warn:     1,
		Alert:    2,
		Delete:   0,
		Rework:   2,
		Cooldown: time.Minute,
	}
}

// Normalize maps skin-tone variants onto their base emoji.
func Normalize(emoji string) string {
	if thumbsDownVariants[emoji] {
		return EmojiThumbsDown
	}
	return emoji
}

type Escalator struct {
	platform  chat.Platform
	reporter  modlog.Reporter
	roles     chat.Roles
	cooldowns *moderation.Cooldowns
	timeout   time.Duration

	// reworked remembers messages that already got a rework thread.
	reworked *cache.Cache
	reworkMu *keymutex.KeyMutex

	mu         sync.RWMutex
	thresholds Thresholds
}

type Option func(*Escalator)

func WithCooldowns(c *moderation.Cooldowns) Option {
	return func(e *Escalator) {
		e.cooldowns = c
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(e *Escalator) {
		e.timeout = timeout
	}
}

func New(
	platform chat.Platform,
	reporter modlog.Reporter,
	roles chat.Roles,
	thresholds Thresholds,
	opts ...Option,
) *Escalator {
	if reporter == nil {
		reporter = modlog.Nop{}
	}
	e := &Escalator{
		platform:   platform,
		reporter:   reporter,
		roles:      roles,
		timeout:    10 * time.Second,
		reworked:   cache.New(24*time.Hour, time.Hour),
		reworkMu:   keymutex.New(),
		thresholds: thresholds,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cooldowns == nil {
		e.cooldowns = moderation.NewCooldowns()
	}
	return e
}

func (e *Escalator) Thresholds() Thresholds {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.thresholds
}

func (e *Escalator) SetThresholds(t Thresholds) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.thresholds = t
}

// vote is a resolved reaction event.
type vote struct {
	message *chat.Message
	reactor *chat.Member
	voters  []*chat.Member
}

// HandleReaction evaluates one added reaction. Emoji without a handler are ignored.
func (e *Escalator) HandleReaction(ctx context.Context, r chat.Reaction) error {
	emoji := Normalize(r.Emoji)
	switch emoji {
	case EmojiThumbsDown:
		v, err := e.resolve(ctx, r)
		if err != nil || v == nil {
			return err
		}
		e.thumbsDown(ctx, v)
		return nil
	case EmojiRework:
		// Later reactions wait here so each one sees the reactors added while the previous ran.
		unlock := e.reworkMu.Lock(r.MessageID)
		defer unlock()
		if _, done := e.reworked.Get(r.MessageID); done {
			return nil
		}
		v, err := e.resolve(ctx, r)
		if err != nil || v == nil {
			return err
		}
		return e.rework(ctx, v)
	default:
		return nil
	}
}

// resolve fetches the message, the reactor and every member who reacted with the same emoji.
// It returns nil when the message belongs to the bot.
func (e *Escalator) resolve(ctx context.Context, r chat.Reaction) (*vote, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var (
		msg     *chat.Message
		reactor *chat.Member
		userIDs []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		msg, err = e.platform.FetchMessage(gctx, r.ChannelID, r.MessageID)
		return err
	})
	g.Go(func() error {
		var err error
		reactor, err = e.platform.FetchMember(gctx, r.UserID)
		return err
	})
	g.Go(func() error {
		var err error
		userIDs, err = e.platform.ReactionUsers(gctx, r.ChannelID, r.MessageID, r.Emoji)
		return err
	})
	if err := g.Wait(); err != nil {
		modErr := moderation.WrapError(err, moderation.ErrFetch, "failed to resolve reaction").
			WithContext("channel", r.ChannelID).
			WithContext("message", r.MessageID).
			WithContext("user", r.UserID).
			WithContext("emoji", r.Emoji)
		log.WithFields(modErr.Fields()).Errorf("Failed to resolve reaction: %v", err)
		return nil, modErr
	}
	if msg.Author == nil || msg.Author.ID == e.platform.BotUserID() {
		return nil, nil
	}

	voters := e.fetchVoters(ctx, msg.Author.ID, userIDs)
	return &vote{message: msg, reactor: reactor, voters: voters}, nil
}

// fetchVoters resolves distinct reacting members, leaving out the author. Members that can no
// longer be fetched are skipped.
func (e *Escalator) fetchVoters(ctx context.Context, authorID string, userIDs []string) []*chat.Member {
	seen := make(map[string]bool, len(userIDs))
	unique := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if id == authorID || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}

	members := make([]*chat.Member, len(unique))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(memberFetchLimit)
	for i, id := range unique {
		g.Go(func() error {
			m, err := e.platform.FetchMember(gctx, id)
			if err != nil {
				log.Debug("Skipping reactor %s: %v", id, err)
				return nil
			}
			members[i] = m
			return nil
		})
	}
	_ = g.Wait()

	ret := make([]*chat.Member, 0, len(members))
	for _, m := range members {
		if m != nil {
			ret = append(ret, m)
		}
	}
	return ret
}

func (e *Escalator) thumbsDown(ctx context.Context, v *vote) {
	th := e.Thresholds()
	if e.cooldowns.Has(v.reactor.UserID, thumbsDownCooldown) {
		return
	}
	if v.message.MentionsEveryone || len(v.message.MentionedRoles) > 0 {
		return
	}
	e.cooldowns.Add(v.reactor.UserID, thumbsDownCooldown, th.Cooldown)

	total := len(v.voters)
	if total < th.Alert {
		if th.Warn > 0 && total >= th.Warn {
			log.Info("Message %s by %s has %d down-votes", v.message.ID, v.message.AuthorID(), total)
		}
		return
	}

	reason := modlog.ReasonUserWarn
	if th.Delete > 0 && total >= th.Delete {
		reason = modlog.ReasonUserDelete
	}
	staff, members := e.partition(v.voters)
	if th.Delete > 0 && len(staff) >= th.Delete {
		e.deleteMessage(ctx, v.message)
	}

	e.reporter.Report(modlog.Report{
		Reason:  reason,
		Message: v.message,
		Staff:   staff,
		Members: members,
	})
}

func (e *Escalator) partition(voters []*chat.Member) (staff, members []*chat.Member) {
	for _, m := range voters {
		if e.roles.IsStaff(m) {
			staff = append(staff, m)
		} else {
			members = append(members, m)
		}
	}
	return staff, members
}

func (e *Escalator) deleteMessage(ctx context.Context, msg *chat.Message) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	if err := e.platform.DeleteMessage(ctx, msg.ChannelID, msg.ID); err != nil && !moderation.IsGone(err) {
		log.Warn("Failed to delete message %s: %v", msg.ID, err)
	}
}

func reworkThreadName(username string) string {
	return fmt.Sprintf("Sorry %s, your question needs some work", username)
}
