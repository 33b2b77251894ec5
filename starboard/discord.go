package starboard

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// MessageAPI is the part of the discord REST API the reconciler needs
type MessageAPI interface {
	SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) (messageID string, err error)
	EditEmbed(ctx context.Context, channelID, messageID string, embed *discordgo.MessageEmbed) error
	// DeleteMessage treats an already deleted message as success
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	FetchMessage(ctx context.Context, channelID, messageID string) (*discordgo.Message, error)
	// RetractVote removes voterID's emoji reaction from the message
	RetractVote(ctx context.Context, channelID, messageID, emoji, voterID string) error
}

// DiscordAPI implements MessageAPI on top of a discordgo session
type DiscordAPI struct {
	Session *discordgo.Session
}

func NewDiscordAPI(session *discordgo.Session) *DiscordAPI {
	return &DiscordAPI{Session: session}
}

func (d *DiscordAPI) SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) (string, error) {
	message, err := d.Session.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx))
	if err != nil {
		return "", remoteError(err, "send embed")
	}
	return message.ID, nil
}

func (d *DiscordAPI) EditEmbed(ctx context.Context, channelID, messageID string, embed *discordgo.MessageEmbed) error {
	_, err := d.Session.ChannelMessageEditEmbed(channelID, messageID, embed, discordgo.WithContext(ctx))
	return remoteError(err, "edit embed")
}

func (d *DiscordAPI) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	err := d.Session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
	if IsNotFound(err) {
		return nil
	}
	return remoteError(err, "delete message")
}

func (d *DiscordAPI) FetchMessage(ctx context.Context, channelID, messageID string) (*discordgo.Message, error) {
	if d.Session.State != nil {
		message, err := d.Session.State.Message(channelID, messageID)
		if err == nil && message.Author != nil {
			return message, nil
		}
	}

	message, err := d.Session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, remoteError(err, "fetch message")
	}
	return message, nil
}

func (d *DiscordAPI) RetractVote(ctx context.Context, channelID, messageID, emoji, voterID string) error {
	err := d.Session.MessageReactionRemove(channelID, messageID, reactionAPIName(emoji), voterID, discordgo.WithContext(ctx))
	return remoteError(err, "retract vote")
}

// reactionAPIName turns the message format of a custom emoji (<:name:id>)
// into the name:id form the reactions endpoint expects
func reactionAPIName(emoji string) string {
	if len(emoji) > 2 && emoji[0] == '<' && emoji[len(emoji)-1] == '>' {
		inner := emoji[1 : len(emoji)-1]
		if len(inner) > 2 && inner[0] == 'a' && inner[1] == ':' {
			return inner[2:]
		}
		if inner[0] == ':' {
			return inner[1:]
		}
		return inner
	}
	return emoji
}

// EmojiKey is the representation configs store vote emoji in
func EmojiKey(emoji discordgo.Emoji) string {
	return emoji.MessageFormat()
}
