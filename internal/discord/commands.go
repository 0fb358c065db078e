package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/MimeLyc/job-board-moderator/pkg/log"
)

const resetJobCacheName = "reset-job-cache"

func resetJobCacheCommand() *discordgo.ApplicationCommand {
	perms := int64(discordgo.PermissionManageMessages)
	return &discordgo.ApplicationCommand{
		Name:                     resetJobCacheName,
		Description:              "Reset cached posts for the time-based job moderation",
		DefaultMemberPermissions: &perms,
		Options: []*discordgo.ApplicationCommandOption{{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: "User to clear post history for",
			Required:    true,
		}},
	}
}

// purgeReply is the ephemeral answer to the reset command.
func purgeReply(removed int, username string) string {
	return fmt.Sprintf("Cleared %d posts from %s out of cache", removed, username)
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	if data.Name != resetJobCacheName || b.purger == nil {
		return
	}

	content := "Must mention a user to clear their post history"
	for _, opt := range data.Options {
		if opt.Name != "user" {
			continue
		}
		user := opt.UserValue(nil)
		if user == nil || user.ID == "" {
			continue
		}
		username := user.ID
		if data.Resolved != nil {
			if resolved, ok := data.Resolved.Users[user.ID]; ok {
				username = resolved.Username
			}
		}
		content = purgeReply(b.purger.PurgeMember(user.ID), username)
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Error("Failed to answer /%s: %v", resetJobCacheName, err)
	}
}
