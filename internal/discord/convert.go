package discord

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/MimeLyc/job-board-moderator/internal/chat"
)

func toMessage(m *discordgo.Message) *chat.Message {
	if m == nil {
		return nil
	}
	msg := &chat.Message{
		ID:               m.ID,
		ChannelID:        m.ChannelID,
		Content:          m.Content,
		CreatedAt:        createdAt(m),
		IsReply:          m.Type == discordgo.MessageTypeReply,
		MentionsEveryone: m.MentionEveryone,
		MentionedRoles:   m.MentionRoles,
		Partial:          m.Author == nil,
	}
	for _, u := range m.Mentions {
		if u != nil {
			msg.MentionedUsers = append(msg.MentionedUsers, u.ID)
		}
	}
	if m.Author != nil {
		msg.Author = &chat.User{ID: m.Author.ID, Username: m.Author.Username, Bot: m.Author.Bot}
		if m.Member != nil {
			msg.Member = &chat.Member{UserID: m.Author.ID, Username: m.Author.Username, Roles: m.Member.Roles}
		}
	}
	return msg
}

func createdAt(m *discordgo.Message) time.Time {
	if !m.Timestamp.IsZero() {
		return m.Timestamp
	}
	return snowflakeTime(m.ID)
}

func snowflakeTime(id string) time.Time {
	t, err := discordgo.SnowflakeTimestamp(id)
	if err != nil {
		return time.Time{}
	}
	return t
}

func toMember(m *discordgo.Member) *chat.Member {
	if m == nil {
		return nil
	}
	member := &chat.Member{Roles: m.Roles}
	if m.User != nil {
		member.UserID = m.User.ID
		member.Username = m.User.Username
	}
	return member
}

func toChannel(c *discordgo.Channel) *chat.Channel {
	ch := &chat.Channel{ID: c.ID, ParentID: c.ParentID, OwnerID: c.OwnerID}
	switch c.Type {
	case discordgo.ChannelTypeGuildText:
		ch.Kind = chat.ChannelText
	case discordgo.ChannelTypeGuildPublicThread, discordgo.ChannelTypeGuildNewsThread:
		ch.Kind = chat.ChannelPublicThread
	case discordgo.ChannelTypeGuildPrivateThread:
		ch.Kind = chat.ChannelPrivateThread
	default:
		ch.Kind = chat.ChannelOther
	}
	return ch
}

func toThread(c *discordgo.Channel) chat.Thread {
	return chat.Thread{
		ID:        c.ID,
		ParentID:  c.ParentID,
		OwnerID:   c.OwnerID,
		Private:   c.Type == discordgo.ChannelTypeGuildPrivateThread,
		CreatedAt: snowflakeTime(c.ID),
	}
}

func toMessageSend(out chat.OutgoingMessage) *discordgo.MessageSend {
	send := &discordgo.MessageSend{Content: out.Content}
	for _, e := range out.Embeds {
		send.Embeds = append(send.Embeds, &discordgo.MessageEmbed{
			Title:       e.Title,
			Description: e.Description,
			Color:       e.Color,
		})
	}
	if out.SuppressMentions {
		send.AllowedMentions = &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}}
	}
	return send
}

// archiveMinutes rounds d up to a duration the API accepts.
func archiveMinutes(d time.Duration) int {
	allowed := []int{60, 1440, 4320, 10080}
	minutes := int(d / time.Minute)
	for _, a := range allowed {
		if minutes <= a {
			return a
		}
	}
	return allowed[len(allowed)-1]
}

// mapError marks missing resources with chat.ErrNotFound.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		if restErr.Message != nil {
			switch restErr.Message.Code {
			case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownMember:
				return fmt.Errorf("%w: %v", chat.ErrNotFound, err)
			}
		}
		if restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %v", chat.ErrNotFound, err)
		}
	}
	return err
}
