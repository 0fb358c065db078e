// Package chattest provides an in-memory chat.Platform for tests.
package chattest

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/MimeLyc/job-board-moderator/internal/chat"
)

// Sent is one message delivered through the fake.
type Sent struct {
	ChannelID string
	Message   chat.OutgoingMessage
}

// Platform records every side effect and serves reads from its maps.
// Zero values are usable; set the Err* fields to inject failures.
type Platform struct {
	BotID string

	mu        sync.Mutex
	messages  map[string]*chat.Message
	channels  map[string]*chat.Channel
	members   map[string]*chat.Member
	reactions map[string][]string
	history   map[string][]*chat.Message
	threads   []chat.Thread

	sent          []Sent
	deleted       []string
	created       []chat.Thread
	threadMembers map[string][]string
	closed        []string
	nextID        int
	sendErrs      map[string]error
	memberFetches int

	ErrFetch  error
	ErrDelete error
	ErrSend   error
	ErrThread error
}

func New(botID string) *Platform {
	return &Platform{
		BotID:         botID,
		messages:      make(map[string]*chat.Message),
		channels:      make(map[string]*chat.Channel),
		members:       make(map[string]*chat.Member),
		reactions:     make(map[string][]string),
		history:       make(map[string][]*chat.Message),
		threadMembers: make(map[string][]string),
		sendErrs:      make(map[string]error),
	}
}

func (p *Platform) AddMessage(msg *chat.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages[msg.ID] = msg
	p.history[msg.ChannelID] = append(p.history[msg.ChannelID], msg)
}

func (p *Platform) AddChannel(ch *chat.Channel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels[ch.ID] = ch
}

func (p *Platform) AddMember(m *chat.Member) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.members[m.UserID] = m
}

func (p *Platform) SetReactions(messageID, emoji string, userIDs ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reactions[messageID+"|"+emoji] = userIDs
}

// AddThread makes a thread visible to ListThreads without recording it as created.
// FailSendsTo makes every SendMessage into channelID return err.
func (p *Platform) FailSendsTo(channelID string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sendErrs[channelID] = err
}

// MemberFetches counts FetchMember calls.
func (p *Platform) MemberFetches() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.memberFetches
}

func (p *Platform) AddThread(t chat.Thread) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.threads = append(p.threads, t)
}

func (p *Platform) BotUserID() string {
	return p.BotID
}

func (p *Platform) FetchMessage(_ context.Context, _, messageID string) (*chat.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ErrFetch != nil {
		return nil, p.ErrFetch
	}
	msg, ok := p.messages[messageID]
	if !ok {
		return nil, chat.ErrNotFound
	}
	return msg, nil
}

func (p *Platform) FetchChannel(_ context.Context, channelID string) (*chat.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.channels[channelID]
	if !ok {
		return &chat.Channel{ID: channelID, Kind: chat.ChannelText}, nil
	}
	return ch, nil
}

func (p *Platform) FetchMember(_ context.Context, userID string) (*chat.Member, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.memberFetches++
	if p.ErrFetch != nil {
		return nil, p.ErrFetch
	}
	m, ok := p.members[userID]
	if !ok {
		return &chat.Member{UserID: userID}, nil
	}
	return m, nil
}

func (p *Platform) ReactionUsers(_ context.Context, _, messageID, emoji string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.reactions[messageID+"|"+emoji]), nil
}

func (p *Platform) RecentMessages(_ context.Context, channelID string, since time.Time) ([]*chat.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var ret []*chat.Message
	for _, msg := range p.history[channelID] {
		if !msg.CreatedAt.Before(since) {
			ret = append(ret, msg)
		}
	}
	return ret, nil
}

func (p *Platform) SendMessage(_ context.Context, channelID string, msg chat.OutgoingMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ErrSend != nil {
		return p.ErrSend
	}
	if err := p.sendErrs[channelID]; err != nil {
		return err
	}
	p.sent = append(p.sent, Sent{ChannelID: channelID, Message: msg})
	return nil
}

func (p *Platform) DeleteMessage(_ context.Context, _, messageID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ErrDelete != nil {
		return p.ErrDelete
	}
	p.deleted = append(p.deleted, messageID)
	delete(p.messages, messageID)
	return nil
}

func (p *Platform) CreatePrivateThread(_ context.Context, channelID, _ string, _ time.Duration) (chat.Thread, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ErrThread != nil {
		return chat.Thread{}, p.ErrThread
	}
	p.nextID++
	t := chat.Thread{
		ID:        fmt.Sprintf("thread-%d", p.nextID),
		ParentID:  channelID,
		OwnerID:   p.BotID,
		Private:   true,
		CreatedAt: time.Now(),
	}
	p.created = append(p.created, t)
	p.threads = append(p.threads, t)
	p.channels[t.ID] = &chat.Channel{ID: t.ID, Kind: chat.ChannelPrivateThread, ParentID: channelID, OwnerID: p.BotID}
	return t, nil
}

func (p *Platform) AddThreadMember(_ context.Context, threadID, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.threadMembers[threadID] = append(p.threadMembers[threadID], userID)
	return nil
}

func (p *Platform) CloseThread(_ context.Context, threadID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = append(p.closed, threadID)
	return nil
}

func (p *Platform) ListThreads(_ context.Context, channelID string) ([]chat.Thread, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var ret []chat.Thread
	for _, t := range p.threads {
		if t.ParentID == channelID && !slices.Contains(p.closed, t.ID) {
			ret = append(ret, t)
		}
	}
	return ret, nil
}

func (p *Platform) Sent() []Sent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.sent)
}

// SentTo returns the messages delivered to channelID in order.
func (p *Platform) SentTo(channelID string) []chat.OutgoingMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	var ret []chat.OutgoingMessage
	for _, s := range p.sent {
		if s.ChannelID == channelID {
			ret = append(ret, s.Message)
		}
	}
	return ret
}

func (p *Platform) Deleted() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.deleted)
}

func (p *Platform) CreatedThreads() []chat.Thread {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.created)
}

func (p *Platform) ThreadMembers(threadID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.threadMembers[threadID])
}

func (p *Platform) Closed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.closed)
}

var _ chat.Platform = (*Platform)(nil)
