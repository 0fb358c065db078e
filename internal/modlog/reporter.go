package modlog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/MimeLyc/job-board-moderator/internal/chat"
	"github.com/MimeLyc/job-board-moderator/internal/metrics"
	"github.com/MimeLyc/job-board-moderator/internal/persistence"
	"github.com/MimeLyc/job-board-moderator/pkg/log"
)

const (
	quoteLimit  = 900
	reportColor = 0xE67E22
)

// Archive keeps a durable copy of delivered reports.
type Archive interface {
	SaveReport(ctx context.Context, entry persistence.ReportEntry) error
}

type queued struct {
	id     string
	report Report
	at     time.Time
}

// ChannelReporter posts reports into a mod-log channel from a single background worker.
type ChannelReporter struct {
	platform  chat.Platform
	channelID string
	guildID   string
	archive   Archive
	limiter   *rate.Limiter
	timeout   time.Duration

	queue    chan queued
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	started  bool
	mu       sync.Mutex
}

type Option func(*ChannelReporter)

func WithArchive(archive Archive) Option {
	return func(r *ChannelReporter) {
		r.archive = archive
	}
}

func WithGuildID(guildID string) Option {
	return func(r *ChannelReporter) {
		r.guildID = guildID
	}
}

// WithRate limits deliveries to perSecond with the given burst.
func WithRate(perSecond float64, burst int) Option {
	return func(r *ChannelReporter) {
		r.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func WithQueueSize(size int) Option {
	return func(r *ChannelReporter) {
		r.queue = make(chan queued, size)
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(r *ChannelReporter) {
		r.timeout = timeout
	}
}

func NewChannelReporter(platform chat.Platform, channelID string, opts ...Option) *ChannelReporter {
	r := &ChannelReporter{
		platform:  platform,
		channelID: channelID,
		limiter:   rate.NewLimiter(rate.Limit(1), 5),
		timeout:   10 * time.Second,
		queue:     make(chan queued, 256),
		stopCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Report queues a report. When the queue is full the report is dropped and logged.
func (r *ChannelReporter) Report(rep Report) {
	item := queued{id: uuid.NewString(), report: rep, at: time.Now()}
	select {
	case r.queue <- item:
	default:
		metrics.Reports.WithLabelValues(string(rep.Reason), "dropped").Inc()
		log.Warn("Mod-log queue full, dropping %s report %s", rep.Reason, item.id)
	}
}

func (r *ChannelReporter) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	r.wg.Add(1)
	go r.worker()
}

func (r *ChannelReporter) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
		r.wg.Wait()
	})
}

func (r *ChannelReporter) worker() {
	defer r.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-r.stopCh
		cancel()
	}()

	for {
		select {
		case <-r.stopCh:
			return
		case item := <-r.queue:
			if err := r.limiter.Wait(ctx); err != nil {
				return
			}
			r.deliver(ctx, item)
		}
	}
}

func (r *ChannelReporter) deliver(ctx context.Context, item queued) {
	sendCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err := r.platform.SendMessage(sendCtx, r.channelID, Format(item.report, item.id, r.guildID))
	outcome := "delivered"
	if err != nil {
		outcome = "failed"
		log.WithFields(log.Fields{
			"report": item.id,
			"reason": item.report.Reason,
			"author": item.report.Message.AuthorID(),
		}).Errorf("Failed to deliver mod-log report: %v", err)
	}
	metrics.Reports.WithLabelValues(string(item.report.Reason), outcome).Inc()

	if r.archive == nil {
		return
	}
	entry := persistence.ReportEntry{
		ID:        item.id,
		Reason:    string(item.report.Reason),
		AuthorID:  item.report.Message.AuthorID(),
		Summary:   summary(item.report),
		Delivered: err == nil,
		CreatedAt: item.at,
	}
	if item.report.Message != nil {
		entry.ChannelID = item.report.Message.ChannelID
		entry.MessageID = item.report.Message.ID
	}
	if err := r.archive.SaveReport(ctx, entry); err != nil {
		log.Error("Failed to archive report %s: %v", item.id, err)
	}
}

// Format renders a report as a mod-log message. Mentions are rendered but never ping.
func Format(rep Report, id, guildID string) chat.OutgoingMessage {
	var b strings.Builder
	msg := rep.Message
	if msg != nil {
		if msg.Author != nil {
			fmt.Fprintf(&b, "%s (%s)", chat.Mention(msg.Author.ID), msg.Author.Username)
		}
		fmt.Fprintf(&b, " in <#%s>", msg.ChannelID)
		if guildID != "" && msg.ID != "" {
			fmt.Fprintf(&b, " · https://discord.com/channels/%s/%s/%s", guildID, msg.ChannelID, msg.ID)
		}
		b.WriteString("\n")
		if content := strings.TrimSpace(msg.Content); content != "" {
			b.WriteString(quote(chat.TruncateTo(content, quoteLimit)))
			b.WriteString("\n")
		}
	}
	if len(rep.Staff) > 0 {
		fmt.Fprintf(&b, "Staff: %s\n", memberList(rep.Staff))
	}
	if len(rep.Members) > 0 {
		fmt.Fprintf(&b, "Members: %s\n", memberList(rep.Members))
	}
	if rep.Extra != "" {
		b.WriteString(rep.Extra)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "-# report %s", id)

	return chat.OutgoingMessage{
		Embeds: []chat.Embed{{
			Title:       rep.Reason.Title(),
			Description: b.String(),
			Color:       reportColor,
		}},
		SuppressMentions: true,
	}
}

func summary(rep Report) string {
	if rep.Message == nil {
		return rep.Extra
	}
	return chat.TruncateTo(rep.Message.Content, 200)
}

func quote(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = "> " + line
	}
	return strings.Join(lines, "\n")
}

func memberList(members []*chat.Member) string {
	names := make([]string, 0, len(members))
	for _, m := range members {
		if m == nil {
			continue
		}
		names = append(names, chat.Mention(m.UserID))
	}
	return strings.Join(names, ", ")
}
