package discord

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/MimeLyc/job-board-moderator/internal/chat"
)

const (
	pageSize        = 100
	maxHistoryPages = 50
)

// Platform implements chat.Platform on a discordgo session for a single guild.
type Platform struct {
	session *discordgo.Session
	guildID string
}

func NewPlatform(session *discordgo.Session, guildID string) *Platform {
	return &Platform{session: session, guildID: guildID}
}

func (p *Platform) BotUserID() string {
	if p.session.State == nil || p.session.State.User == nil {
		return ""
	}
	return p.session.State.User.ID
}

func (p *Platform) FetchMessage(ctx context.Context, channelID, messageID string) (*chat.Message, error) {
	m, err := p.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	if m.Member == nil && m.Author != nil {
		if member, err := p.member(ctx, m.Author.ID); err == nil {
			m.Member = member
		}
	}
	return toMessage(m), nil
}

func (p *Platform) FetchChannel(ctx context.Context, channelID string) (*chat.Channel, error) {
	if p.session.State != nil {
		if c, err := p.session.State.Channel(channelID); err == nil {
			return toChannel(c), nil
		}
	}
	c, err := p.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	return toChannel(c), nil
}

func (p *Platform) FetchMember(ctx context.Context, userID string) (*chat.Member, error) {
	m, err := p.member(ctx, userID)
	if err != nil {
		return nil, err
	}
	member := toMember(m)
	if member.UserID == "" {
		member.UserID = userID
	}
	return member, nil
}

func (p *Platform) member(ctx context.Context, userID string) (*discordgo.Member, error) {
	if p.session.State != nil {
		if m, err := p.session.State.Member(p.guildID, userID); err == nil {
			return m, nil
		}
	}
	m, err := p.session.GuildMember(p.guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	return m, nil
}

func (p *Platform) ReactionUsers(ctx context.Context, channelID, messageID, emoji string) ([]string, error) {
	var (
		ids   []string
		after string
	)
	for {
		users, err := p.session.MessageReactions(channelID, messageID, emoji, pageSize, "", after, discordgo.WithContext(ctx))
		if err != nil {
			return nil, mapError(err)
		}
		for _, u := range users {
			ids = append(ids, u.ID)
		}
		if len(users) < pageSize {
			return ids, nil
		}
		after = users[len(users)-1].ID
	}
}

// RecentMessages pages backwards through history until it reaches messages older than since.
func (p *Platform) RecentMessages(ctx context.Context, channelID string, since time.Time) ([]*chat.Message, error) {
	var (
		ret    []*chat.Message
		before string
	)
	for page := 0; page < maxHistoryPages; page++ {
		batch, err := p.session.ChannelMessages(channelID, pageSize, before, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return ret, mapError(err)
		}
		for _, m := range batch {
			msg := toMessage(m)
			if msg.CreatedAt.Before(since) {
				return ret, nil
			}
			ret = append(ret, msg)
		}
		if len(batch) < pageSize {
			return ret, nil
		}
		before = batch[len(batch)-1].ID
	}
	return ret, nil
}

func (p *Platform) SendMessage(ctx context.Context, channelID string, msg chat.OutgoingMessage) error {
	_, err := p.session.ChannelMessageSendComplex(channelID, toMessageSend(msg), discordgo.WithContext(ctx))
	return mapError(err)
}

func (p *Platform) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return mapError(p.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)))
}

func (p *Platform) CreatePrivateThread(ctx context.Context, channelID, name string, autoArchive time.Duration) (chat.Thread, error) {
	c, err := p.session.ThreadStartComplex(channelID, &discordgo.ThreadStart{
		Name:                name,
		AutoArchiveDuration: archiveMinutes(autoArchive),
		Type:                discordgo.ChannelTypeGuildPrivateThread,
		Invitable:           false,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return chat.Thread{}, mapError(err)
	}
	return toThread(c), nil
}

func (p *Platform) AddThreadMember(ctx context.Context, threadID, userID string) error {
	return mapError(p.session.ThreadMemberAdd(threadID, userID, discordgo.WithContext(ctx)))
}

// CloseThread deletes the thread channel.
func (p *Platform) CloseThread(ctx context.Context, threadID string) error {
	_, err := p.session.ChannelDelete(threadID, discordgo.WithContext(ctx))
	return mapError(err)
}

func (p *Platform) ListThreads(ctx context.Context, channelID string) ([]chat.Thread, error) {
	seen := make(map[string]bool)
	var ret []chat.Thread
	add := func(list *discordgo.ThreadsList) {
		for _, c := range list.Threads {
			if c.ParentID != channelID || seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			ret = append(ret, toThread(c))
		}
	}

	active, err := p.session.GuildThreadsActive(p.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	add(active)

	type archivedFunc func(channelID string, before *time.Time, limit int, options ...discordgo.RequestOption) (*discordgo.ThreadsList, error)
	for _, fetch := range []archivedFunc{p.session.ThreadsArchived, p.session.ThreadsPrivateArchived} {
		var before *time.Time
		for {
			list, err := fetch(channelID, before, pageSize, discordgo.WithContext(ctx))
			if err != nil {
				return ret, mapError(err)
			}
			add(list)
			if !list.HasMore || len(list.Threads) == 0 {
				break
			}
			last := list.Threads[len(list.Threads)-1]
			if last.ThreadMetadata == nil {
				break
			}
			ts := last.ThreadMetadata.ArchiveTimestamp
			before = &ts
		}
	}
	return ret, nil
}

var _ chat.Platform = (*Platform)(nil)
