package discord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/MimeLyc/job-board-moderator/internal/chat"
	"github.com/MimeLyc/job-board-moderator/internal/moderation"
	"github.com/MimeLyc/job-board-moderator/pkg/log"
)

// MessageHandler is the job-board lifecycle.
type MessageHandler interface {
	HandleCreate(ctx context.Context, msg *chat.Message) error
	HandleUpdate(ctx context.Context, msg *chat.Message) error
	HandleDelete(ctx context.Context, msg *chat.Message) error
}

type ReactionHandler interface {
	HandleReaction(ctx context.Context, r chat.Reaction) error
}

// Purger clears an author's tracked job posts.
type Purger interface {
	PurgeMember(authorID string) int
}

type Config struct {
	Token          string
	GuildID        string
	AppID          string
	RequestTimeout time.Duration
}

// Bot owns the gateway session and routes its events into the engine.
type Bot struct {
	cfg      Config
	session  *discordgo.Session
	platform *Platform

	messages  MessageHandler
	reactions ReactionHandler
	purger    Purger

	ctx     context.Context
	cancel  context.CancelFunc
	removes []func()
}

func NewBot(cfg Config) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsMessageContent
	// Keep recent messages so delete events carry author and content.
	session.State.MaxMessageCount = 500
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}

	return &Bot{
		cfg:      cfg,
		session:  session,
		platform: NewPlatform(session, cfg.GuildID),
	}, nil
}

func (b *Bot) Platform() *Platform {
	return b.platform
}

// Open binds the handlers, connects the gateway and registers the slash command.
func (b *Bot) Open(
	ctx context.Context,
	messages MessageHandler,
	reactions ReactionHandler,
	purger Purger,
) error {
	b.ctx, b.cancel = context.WithCancel(ctx)
	b.messages = messages
	b.reactions = reactions
	b.purger = purger

	b.removes = append(b.removes,
		b.session.AddHandler(b.onMessageCreate),
		b.session.AddHandler(b.onMessageUpdate),
		b.session.AddHandler(b.onMessageDelete),
		b.session.AddHandler(b.onReactionAdd),
		b.session.AddHandler(b.onInteraction),
	)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	log.Info("Connected to Discord as %s", b.platform.BotUserID())

	if b.cfg.AppID != "" {
		if _, err := b.session.ApplicationCommandCreate(b.cfg.AppID, b.cfg.GuildID, resetJobCacheCommand()); err != nil {
			log.Error("Failed to register /%s: %v", resetJobCacheName, err)
		}
	}
	return nil
}

func (b *Bot) Close() error {
	if b.cancel != nil {
		b.cancel()
	}
	for _, remove := range b.removes {
		remove()
	}
	b.removes = nil
	return b.session.Close()
}

// dispatch runs one event handler in isolation. Errors and panics are logged, never propagated.
func (b *Bot) dispatch(event string, fields log.Fields, fn func(ctx context.Context) error) {
	ctx := b.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	err := moderation.SafeExecute(func() error {
		return fn(ctx)
	})
	if err == nil {
		return
	}
	fields["event"] = event
	var modErr *moderation.ModerationError
	if errors.As(err, &modErr) {
		for k, v := range modErr.Fields() {
			fields[k] = v
		}
	}
	log.WithFields(fields).Errorf("Event handler failed: %v", err)
}

func (b *Bot) inGuild(guildID string) bool {
	return b.cfg.GuildID == "" || guildID == b.cfg.GuildID
}

func (b *Bot) onMessageCreate(_ *discordgo.Session, e *discordgo.MessageCreate) {
	if e.Message == nil || !b.inGuild(e.GuildID) {
		return
	}
	b.dispatch("messageCreate", log.Fields{"channel": e.ChannelID, "message": e.ID}, func(ctx context.Context) error {
		return b.messages.HandleCreate(ctx, toMessage(e.Message))
	})
}

func (b *Bot) onMessageUpdate(_ *discordgo.Session, e *discordgo.MessageUpdate) {
	if e.Message == nil || !b.inGuild(e.GuildID) {
		return
	}
	b.dispatch("messageUpdate", log.Fields{"channel": e.ChannelID, "message": e.ID}, func(ctx context.Context) error {
		msg := toMessage(e.Message)
		// Updates only carry changed fields, so a cached copy fills in the creation time.
		if e.BeforeUpdate != nil && msg.CreatedAt.IsZero() {
			msg.CreatedAt = createdAt(e.BeforeUpdate)
		}
		return b.messages.HandleUpdate(ctx, msg)
	})
}

func (b *Bot) onMessageDelete(_ *discordgo.Session, e *discordgo.MessageDelete) {
	if e.Message == nil || !b.inGuild(e.GuildID) {
		return
	}
	b.dispatch("messageDelete", log.Fields{"channel": e.ChannelID, "message": e.ID}, func(ctx context.Context) error {
		source := e.Message
		if e.BeforeDelete != nil {
			source = e.BeforeDelete
		}
		msg := toMessage(source)
		msg.ChannelID = e.ChannelID
		return b.messages.HandleDelete(ctx, msg)
	})
}

func (b *Bot) onReactionAdd(_ *discordgo.Session, e *discordgo.MessageReactionAdd) {
	if e.MessageReaction == nil || !b.inGuild(e.GuildID) || b.reactions == nil {
		return
	}
	r := chat.Reaction{
		ChannelID: e.ChannelID,
		MessageID: e.MessageID,
		UserID:    e.UserID,
		Emoji:     e.Emoji.APIName(),
	}
	b.dispatch("messageReactionAdd", log.Fields{"channel": r.ChannelID, "message": r.MessageID, "user": r.UserID}, func(ctx context.Context) error {
		return b.reactions.HandleReaction(ctx, r)
	})
}
