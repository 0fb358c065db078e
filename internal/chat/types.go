package chat

import (
	"context"
	"errors"
	"time"
)

// MaxMessageLength is the longest content the platform accepts in one message.
const MaxMessageLength = 2000

// ErrNotFound marks a resource (message, thread, member) that no longer exists.
var ErrNotFound = errors.New("chat: resource not found")

type ChannelKind int

const (
	ChannelText ChannelKind = iota
	ChannelPublicThread
	ChannelPrivateThread
	ChannelOther
)

type User struct {
	ID       string
	Username string
	Bot      bool
}

type Member struct {
	UserID   string
	Username string
	Roles    []string
}

type Channel struct {
	ID       string
	Kind     ChannelKind
	ParentID string
	OwnerID  string
}

// Thread is a handle to a thread channel.
type Thread struct {
	ID        string
	ParentID  string
	OwnerID   string
	Private   bool
	CreatedAt time.Time
}

type Message struct {
	ID        string
	ChannelID string
	// Author is nil when the platform only delivered a partial payload.
	Author    *User
	Member    *Member
	Content   string
	CreatedAt time.Time

	IsReply          bool
	MentionsEveryone bool
	MentionedRoles   []string
	MentionedUsers   []string

	// Partial is set when Content/Author may be missing and a fetch is needed.
	Partial bool
}

func (m *Message) AuthorID() string {
	if m == nil || m.Author == nil {
		return ""
	}
	return m.Author.ID
}

// Embed is a rich block attached to an outgoing message.
type Embed struct {
	Title       string
	Description string
	Color       int
}

type OutgoingMessage struct {
	Content string
	Embeds  []Embed
	// SuppressMentions disables every ping the content would trigger.
	SuppressMentions bool
}

// Reaction is a single "reaction added" event.
type Reaction struct {
	ChannelID string
	MessageID string
	UserID    string
	Emoji     string
}

// Platform is everything the moderation engine needs from the chat service.
// Every call is fallible and should respect ctx deadlines.
type Platform interface {
	BotUserID() string

	FetchMessage(ctx context.Context, channelID, messageID string) (*Message, error)
	FetchChannel(ctx context.Context, channelID string) (*Channel, error)
	FetchMember(ctx context.Context, userID string) (*Member, error)
	ReactionUsers(ctx context.Context, channelID, messageID, emoji string) ([]string, error)
	RecentMessages(ctx context.Context, channelID string, since time.Time) ([]*Message, error)

	SendMessage(ctx context.Context, channelID string, msg OutgoingMessage) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error

	CreatePrivateThread(ctx context.Context, channelID, name string, autoArchive time.Duration) (Thread, error)
	AddThreadMember(ctx context.Context, threadID, userID string) error
	CloseThread(ctx context.Context, threadID string) error
	// ListThreads returns active and archived threads under channelID.
	ListThreads(ctx context.Context, channelID string) ([]Thread, error)
}
