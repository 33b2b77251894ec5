package main

import (
	"strings"
	"sync"

	"github.com/Seklfreak/starboard/cache"
	"github.com/Seklfreak/starboard/helpers"
	"github.com/Seklfreak/starboard/modules"
	"github.com/Seklfreak/starboard/ratelimits"
	"github.com/bwmarrin/discordgo"
	"github.com/getsentry/raven-go"
)

var modulesOnce sync.Once

// BotOnReady gets called after the gateway connected
func BotOnReady(session *discordgo.Session, event *discordgo.Ready) {
	log := cache.GetLogger().WithField("module", "bot")

	log.Infof("Connected to discord as %s on %d guilds", event.User.Username, len(event.Guilds))

	// Load and init all modules, Ready fires again after every reconnect
	modulesOnce.Do(func() {
		err := modules.Init(session)
		if err != nil {
			log.Fatal(err)
		}

		// Run ratelimiter
		ratelimits.Container.Init()
	})

	err := session.UpdateGameStatus(0, helpers.ConfigString("discord.prefix", "_")+"starboard")
	if err != nil {
		raven.CaptureError(err, map[string]string{})
	}
}

// BotOnMessageCreate dispatches prefixed commands to the plugins
func BotOnMessageCreate(session *discordgo.Session, message *discordgo.MessageCreate) {
	// Ignore other bots and @everyone/@here
	if message.Author == nil || message.Author.Bot || message.MentionEveryone {
		return
	}

	command, content, ok := parseCommand(helpers.ConfigString("discord.prefix", "_"), message.Content)
	if !ok || !modules.HasCommand(command) {
		return
	}

	go modules.CallBotPlugin(command, content, message.Message)
}

// parseCommand splits "<prefix><command> <content>"
func parseCommand(prefix, text string) (command, content string, ok bool) {
	if prefix == "" || !strings.HasPrefix(text, prefix) {
		return "", "", false
	}

	fields := strings.SplitN(strings.TrimSpace(strings.TrimPrefix(text, prefix)), " ", 2)
	command = strings.ToLower(fields[0])
	if command == "" {
		return "", "", false
	}
	if len(fields) > 1 {
		content = strings.TrimSpace(fields[1])
	}
	return command, content, true
}

func BotOnMessageDelete(session *discordgo.Session, message *discordgo.MessageDelete) {
	modules.CallExtendedPluginOnMessageDelete(message)
}

// BotOnMessageDeleteBulk fans a purge out into single deletes
func BotOnMessageDeleteBulk(session *discordgo.Session, bulk *discordgo.MessageDeleteBulk) {
	for _, messageID := range bulk.Messages {
		modules.CallExtendedPluginOnMessageDelete(&discordgo.MessageDelete{
			Message: &discordgo.Message{
				ID:        messageID,
				ChannelID: bulk.ChannelID,
				GuildID:   bulk.GuildID,
			},
		})
	}
}

// BotOnReactionAdd gets called after a reaction is added
// This will be called after *every* reaction added on *every* server so it
// should die as soon as possible or spawn costly work inside of goroutines.
func BotOnReactionAdd(session *discordgo.Session, reaction *discordgo.MessageReactionAdd) {
	modules.CallExtendedPluginOnReactionAdd(reaction)
}

func BotOnReactionRemove(session *discordgo.Session, reaction *discordgo.MessageReactionRemove) {
	modules.CallExtendedPluginOnReactionRemove(reaction)
}

func BotOnReactionRemoveAll(session *discordgo.Session, reaction *discordgo.MessageReactionRemoveAll) {
	modules.CallExtendedPluginOnReactionRemoveAll(reaction)
}

// BotDestroy uninitializes the plugins
func BotDestroy() {
	ratelimits.Container.Stop()
	modules.Uninit(cache.GetSession())
}
