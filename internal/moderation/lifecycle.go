package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/MimeLyc/job-board-moderator/internal/chat"
	"github.com/MimeLyc/job-board-moderator/internal/jobs"
	"github.com/MimeLyc/job-board-moderator/internal/metrics"
	"github.com/MimeLyc/job-board-moderator/internal/modlog"
	"github.com/MimeLyc/job-board-moderator/internal/posts"
	"github.com/MimeLyc/job-board-moderator/pkg/keymutex"
	"github.com/MimeLyc/job-board-moderator/pkg/log"
)

// DefaultRepostThreshold is the grace window after posting in which a delete or edit is treated
// as an attempt to repost.
const DefaultRepostThreshold = 10 * time.Minute

type Config struct {
	JobBoardID      string
	RepostThreshold time.Duration
	RequestTimeout  time.Duration
}

// Manager turns job-board message events into moderation actions. Handlers for the same author
// never run concurrently.
type Manager struct {
	cfg       Config
	platform  chat.Platform
	validator posts.Validator
	board     *jobs.Board
	reporter  modlog.Reporter
	roles     chat.Roles

	threads *ThreadCache
	tracker *MessageTracker
	locks   *keymutex.KeyMutex
	now     func() time.Time
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func WithThreadCache(threads *ThreadCache) Option {
	return func(m *Manager) {
		m.threads = threads
	}
}

func WithTracker(tracker *MessageTracker) Option {
	return func(m *Manager) {
		m.tracker = tracker
	}
}

func NewManager(
	cfg Config,
	platform chat.Platform,
	validator posts.Validator,
	board *jobs.Board,
	reporter modlog.Reporter,
	roles chat.Roles,
	opts ...Option,
) *Manager {
	if cfg.RepostThreshold <= 0 {
		cfg.RepostThreshold = DefaultRepostThreshold
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if reporter == nil {
		reporter = modlog.Nop{}
	}
	m := &Manager{
		cfg:       cfg,
		platform:  platform,
		validator: validator,
		board:     board,
		reporter:  reporter,
		roles:     roles,
		locks:     keymutex.New(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.threads == nil {
		m.threads = NewThreadCache(platform, DefaultThreadCacheSize, DefaultThreadTTL, cfg.RequestTimeout)
	}
	if m.tracker == nil {
		m.tracker = NewMessageTracker(DefaultMarkerTTL)
	}
	return m
}

func (m *Manager) Board() *jobs.Board {
	return m.board
}

func (m *Manager) Threads() *ThreadCache {
	return m.threads
}

func (m *Manager) Tracker() *MessageTracker {
	return m.tracker
}

// PurgeMember forgets every job post by authorID and returns how many were dropped.
func (m *Manager) PurgeMember(authorID string) int {
	unlock := m.locks.Lock(authorID)
	defer unlock()
	removed := m.board.PurgeMember(authorID)
	log.Info("Purged %d job posts for %s", removed, authorID)
	return removed
}

// HandleCreate validates a newly posted message.
func (m *Manager) HandleCreate(ctx context.Context, msg *chat.Message) error {
	if msg == nil || msg.Author == nil || msg.Author.Bot {
		return nil
	}
	inThread := false
	if msg.ChannelID != m.cfg.JobBoardID {
		if !m.isEnforcementThread(ctx, msg) {
			return nil
		}
		inThread = true
	}

	unlock := m.locks.Lock(msg.Author.ID)
	defer unlock()

	if m.isStaff(ctx, msg) {
		return nil
	}
	if inThread {
		return m.repl(ctx, msg)
	}

	candidates := m.validator.Parse(msg.Content)
	failures := m.validator.Validate(candidates, msg)
	log.Debug("Validated new job post from @%s, failures: %v", msg.Author.Username, failureKinds(failures))

	if len(failures) == 0 {
		metrics.PostsValidated.WithLabelValues("create", "accepted").Inc()
		m.board.Update(msg, posts.Tags(candidates))
		return nil
	}
	metrics.PostsValidated.WithLabelValues("create", "rejected").Inc()
	return m.reject(ctx, msg, failures, "create")
}

// HandleUpdate re-validates an edited message. Edits are exempt from the frequency rule.
func (m *Manager) HandleUpdate(ctx context.Context, msg *chat.Message) error {
	if msg == nil || msg.ChannelID != m.cfg.JobBoardID {
		return nil
	}
	if msg.Author != nil && msg.Author.Bot {
		return nil
	}
	if msg.Partial || msg.Author == nil {
		fetched, err := m.fetchMessage(ctx, msg)
		if err != nil {
			return err
		}
		msg = fetched
		if msg.Author == nil || msg.Author.Bot {
			return nil
		}
	}

	unlock := m.locks.Lock(msg.Author.ID)
	defer unlock()

	if m.isStaff(ctx, msg) {
		return nil
	}

	candidates := m.validator.Parse(msg.Content)
	failures := posts.WithoutKind(m.validator.Validate(candidates, msg), posts.KindTooFrequent)
	log.Debug("Validated edited job post from @%s, failures: %v", msg.Author.Username, failureKinds(failures))

	if len(failures) == 0 {
		metrics.PostsValidated.WithLabelValues("update", "accepted").Inc()
		m.board.Update(msg, posts.Tags(candidates))
		return nil
	}
	metrics.PostsValidated.WithLabelValues("update", "rejected").Inc()

	recentEdit := m.now().Sub(msg.CreatedAt) < m.cfg.RepostThreshold
	failures = append([]posts.Failure{posts.Circumvented{RecentEdit: recentEdit}}, failures...)
	if recentEdit {
		m.board.RemoveSpecific(msg.ID)
	}

	err := m.reject(ctx, msg, failures, "update")
	if posts.AnyHasTag(candidates, posts.TagForHire) {
		m.reporter.Report(modlog.Report{Reason: modlog.ReasonJobCircumvent, Message: msg})
	}
	return err
}

// HandleDelete reacts to a removed job-board message that the engine did not delete itself.
func (m *Manager) HandleDelete(ctx context.Context, msg *chat.Message) error {
	if msg == nil || msg.ChannelID != m.cfg.JobBoardID {
		return nil
	}
	if m.tracker.Untrack(msg.ID) {
		return nil
	}

	msg, err := m.resolveDeleted(ctx, msg)
	if err != nil {
		return err
	}
	if msg.Author == nil {
		return NewError(ErrFetch, "deleted message has no author").WithContext("message", msg.ID)
	}
	authorID := msg.Author.ID
	if authorID == m.platform.BotUserID() || msg.Author.Bot {
		return nil
	}

	unlock := m.locks.Lock(authorID)
	defer unlock()

	if m.isStaff(ctx, msg) {
		return nil
	}

	now := m.now()
	if now.Sub(msg.CreatedAt) < m.cfg.RepostThreshold {
		m.board.RemoveSpecific(msg.ID)
	}

	m.reporter.Report(modlog.Report{
		Reason:  modlog.ReasonJobRemoved,
		Message: msg,
		Extra: fmt.Sprintf("Originally sent %s (%s)",
			msg.CreatedAt.UTC().Format("2006-01-02 15:04 MST"),
			humanize.RelTime(msg.CreatedAt, now, "ago", "from now"),
		),
	})
	return nil
}

// resolveDeleted fills in the author and creation time of a deleted message from the event,
// the job board, or the platform, in that order.
func (m *Manager) resolveDeleted(ctx context.Context, msg *chat.Message) (*chat.Message, error) {
	if msg.Author != nil && !msg.CreatedAt.IsZero() {
		return msg, nil
	}
	if record, ok := m.board.Get(msg.ID); ok {
		resolved := *msg
		if resolved.Author == nil {
			resolved.Author = &chat.User{ID: record.AuthorID}
		}
		if resolved.CreatedAt.IsZero() {
			resolved.CreatedAt = record.CreatedAt
		}
		return &resolved, nil
	}
	if msg.Author != nil {
		return msg, nil
	}
	return m.fetchMessage(ctx, msg)
}

func (m *Manager) fetchMessage(ctx context.Context, msg *chat.Message) (*chat.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.RequestTimeout)
	defer cancel()

	fetched, err := m.platform.FetchMessage(ctx, msg.ChannelID, msg.ID)
	if err != nil {
		modErr := WrapError(err, ErrFetch, "failed to resolve partial message").
			WithContext("channel", msg.ChannelID).
			WithContext("message", msg.ID).
			WithContext("author", msg.AuthorID()).
			WithContext("content", chat.TruncateTo(msg.Content, 200))
		log.WithFields(modErr.Fields()).Errorf("Failed to fetch message: %v", err)
		return nil, modErr
	}
	return fetched, nil
}

func (m *Manager) isStaff(ctx context.Context, msg *chat.Message) bool {
	member := msg.Member
	if member == nil {
		ctx, cancel := context.WithTimeout(ctx, m.cfg.RequestTimeout)
		defer cancel()
		fetched, err := m.platform.FetchMember(ctx, msg.AuthorID())
		if err != nil {
			log.Debug("Could not fetch member %s: %v", msg.AuthorID(), err)
			return false
		}
		member = fetched
	}
	return m.roles.IsStaff(member)
}

// isEnforcementThread reports whether msg was sent in a bot-owned private thread under the job
// board. The author's cached thread answers without a lookup.
func (m *Manager) isEnforcementThread(ctx context.Context, msg *chat.Message) bool {
	if m.threads.Holds(msg.Author.ID, msg.ChannelID) {
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.RequestTimeout)
	defer cancel()

	ch, err := m.platform.FetchChannel(ctx, msg.ChannelID)
	if err != nil {
		log.Debug("Could not fetch channel %s: %v", msg.ChannelID, err)
		return false
	}
	return ch.Kind == chat.ChannelPrivateThread &&
		ch.ParentID == m.cfg.JobBoardID &&
		ch.OwnerID == m.platform.BotUserID()
}

func failureKinds(failures []posts.Failure) []posts.FailureKind {
	kinds := make([]posts.FailureKind, 0, len(failures))
	for _, f := range failures {
		kinds = append(kinds, f.Kind())
	}
	return kinds
}
