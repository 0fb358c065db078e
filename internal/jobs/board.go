package jobs

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/MimeLyc/job-board-moderator/internal/chat"
	"github.com/MimeLyc/job-board-moderator/internal/posts"
	"github.com/MimeLyc/job-board-moderator/pkg/log"
)

// Board tracks the live job posts, keyed by message ID. The in-memory view is authoritative;
// the Store is written through best-effort.
type Board struct {
	window time.Duration
	store  Store
	now    func() time.Time

	mu      sync.RWMutex
	records map[string]*Record
}

type BoardOption func(*Board)

func WithClock(now func() time.Time) BoardOption {
	return func(b *Board) {
		b.now = now
	}
}

// NewBoard creates a board whose records expire after window. A nil store keeps everything in memory.
func NewBoard(window time.Duration, store Store, opts ...BoardOption) *Board {
	b := &Board{
		window:  window,
		store:   store,
		now:     time.Now,
		records: make(map[string]*Record),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.hydrateFromStore(context.Background())
	return b
}

func (b *Board) Window() time.Duration {
	return b.window
}

// Load records historic posts, typically the recent channel history fetched at startup.
// tagger returns nil for messages that should not count as posts.
func (b *Board) Load(ctx context.Context, messages []*chat.Message, tagger func(*chat.Message) []posts.Tag) int {
	cutoff := b.now().Add(-b.window)

	b.mu.RLock()
	fresh := make([]*chat.Message, 0, len(messages))
	for _, msg := range messages {
		if msg == nil || msg.Author == nil || msg.CreatedAt.Before(cutoff) {
			continue
		}
		if _, exists := b.records[msg.ID]; exists {
			continue
		}
		fresh = append(fresh, msg)
	}
	b.mu.RUnlock()

	// tagger may read the board, so it runs unlocked.
	candidates := make([]*Record, 0, len(fresh))
	for _, msg := range fresh {
		tags := tagger(msg)
		if len(tags) == 0 {
			continue
		}
		candidates = append(candidates, &Record{
			AuthorID:  msg.Author.ID,
			MessageID: msg.ID,
			ChannelID: msg.ChannelID,
			Tags:      slices.Clone(tags),
			CreatedAt: msg.CreatedAt,
			UpdatedAt: msg.CreatedAt,
		})
	}

	toPersist := make([]*Record, 0, len(candidates))
	b.mu.Lock()
	for _, record := range candidates {
		// A live event may have recorded the post in the meantime.
		if _, exists := b.records[record.MessageID]; exists {
			continue
		}
		b.records[record.MessageID] = record
		toPersist = append(toPersist, cloneRecord(record))
	}
	b.mu.Unlock()

	for _, record := range toPersist {
		b.persist(ctx, record)
	}
	return len(toPersist)
}

// Update creates the record for msg or refreshes its tags if it already exists.
func (b *Board) Update(msg *chat.Message, tags []posts.Tag) *Record {
	now := b.now()

	b.mu.Lock()
	record, ok := b.records[msg.ID]
	if ok {
		record.Tags = slices.Clone(tags)
		record.UpdatedAt = now
	} else {
		createdAt := msg.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		record = &Record{
			AuthorID:  msg.AuthorID(),
			MessageID: msg.ID,
			ChannelID: msg.ChannelID,
			Tags:      slices.Clone(tags),
			CreatedAt: createdAt,
			UpdatedAt: now,
		}
		b.records[msg.ID] = record
	}
	snapshot := cloneRecord(record)
	b.mu.Unlock()

	b.persist(context.Background(), snapshot)
	return snapshot
}

func (b *Board) Get(messageID string) (*Record, bool) {
	b.mu.RLock()
	record, ok := b.records[messageID]
	b.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return cloneRecord(record), true
}

// RemoveSpecific drops the record for a single message.
func (b *Board) RemoveSpecific(messageID string) bool {
	b.mu.Lock()
	_, ok := b.records[messageID]
	delete(b.records, messageID)
	b.mu.Unlock()

	if !ok {
		return false
	}
	if b.store != nil {
		if err := b.store.DeleteRecord(context.Background(), messageID); err != nil {
			log.Error("Failed to delete job record %s from store: %v", messageID, err)
		}
	}
	return true
}

// PurgeMember drops every record authored by authorID and returns how many were removed.
func (b *Board) PurgeMember(authorID string) int {
	b.mu.Lock()
	removed := 0
	for id, record := range b.records {
		if record.AuthorID == authorID {
			delete(b.records, id)
			removed++
		}
	}
	b.mu.Unlock()

	if b.store != nil {
		if _, err := b.store.DeleteRecordsByAuthor(context.Background(), authorID); err != nil {
			log.Error("Failed to purge job records of %s from store: %v", authorID, err)
		}
	}
	return removed
}

// DeleteAged drops records older than the board window.
func (b *Board) DeleteAged(now time.Time) int {
	cutoff := now.Add(-b.window)

	b.mu.Lock()
	removed := 0
	for id, record := range b.records {
		if record.CreatedAt.Before(cutoff) {
			delete(b.records, id)
			removed++
		}
	}
	b.mu.Unlock()

	if b.store != nil {
		if _, err := b.store.DeleteRecordsBefore(context.Background(), cutoff); err != nil {
			log.Error("Failed to delete aged job records from store: %v", err)
		}
	}
	return removed
}

// LastPost returns the most recent record by authorID carrying tag, ignoring excludeMessageID.
func (b *Board) LastPost(authorID string, tag posts.Tag, excludeMessageID string) (*Record, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var latest *Record
	for id, record := range b.records {
		if id == excludeMessageID || record.AuthorID != authorID || !record.HasTag(tag) {
			continue
		}
		if latest == nil || record.CreatedAt.After(latest.CreatedAt) {
			latest = record
		}
	}
	if latest == nil {
		return nil, false
	}
	return cloneRecord(latest), true
}

// List returns all records, oldest first.
func (b *Board) List() []*Record {
	b.mu.RLock()
	ret := make([]*Record, 0, len(b.records))
	for _, record := range b.records {
		ret = append(ret, cloneRecord(record))
	}
	b.mu.RUnlock()

	sort.Slice(ret, func(i, j int) bool {
		return ret[i].CreatedAt.Before(ret[j].CreatedAt)
	})
	return ret
}

func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.records)
}

func (b *Board) hydrateFromStore(ctx context.Context) {
	if b.store == nil {
		return
	}
	loaded, err := b.store.LoadRecords(ctx)
	if err != nil {
		log.Error("Failed to load job records from store: %v", err)
		return
	}

	b.mu.Lock()
	for _, raw := range loaded {
		if raw == nil || raw.MessageID == "" {
			continue
		}
		b.records[raw.MessageID] = cloneRecord(raw)
	}
	b.mu.Unlock()
	log.Info("Loaded %d job records from store", len(loaded))
}

func (b *Board) persist(ctx context.Context, record *Record) {
	if b.store == nil || record == nil {
		return
	}
	if err := b.store.UpsertRecord(ctx, record); err != nil {
		log.Error("Failed to persist job record %s: %v", record.MessageID, err)
	}
}
