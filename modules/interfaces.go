package modules

import "github.com/bwmarrin/discordgo"

type BaseModule interface{}

type Plugin interface {
	BaseModule

	Commands() []string

	Init(session *discordgo.Session)

	Action(
		command string,
		content string,
		msg *discordgo.Message,
		session *discordgo.Session,
	)
}

// ExtendedPlugin additionally listens to gateway events
type ExtendedPlugin interface {
	Plugin

	Uninit(session *discordgo.Session)

	OnMessageDelete(
		msg *discordgo.MessageDelete,
		session *discordgo.Session,
	)

	OnReactionAdd(
		reaction *discordgo.MessageReactionAdd,
		session *discordgo.Session,
	)

	OnReactionRemove(
		reaction *discordgo.MessageReactionRemove,
		session *discordgo.Session,
	)

	OnReactionRemoveAll(
		reaction *discordgo.MessageReactionRemoveAll,
		session *discordgo.Session,
	)
}
