package plugins

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/Seklfreak/starboard/cache"
	"github.com/Seklfreak/starboard/emojis"
	"github.com/Seklfreak/starboard/helpers"
	"github.com/Seklfreak/starboard/models"
	"github.com/Seklfreak/starboard/starboard"
	"github.com/Seklfreak/starboard/storage"
	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

const (
	starboardEventTimeout = 30 * time.Second
	starboardTopLimit     = 10
)

var customEmojiRegex = regexp.MustCompile(`^<a?:\w+:\d+>$`)

type starboardAction func(args []string, in *discordgo.Message, out **discordgo.MessageSend) (next starboardAction)

type voteHandler interface {
	Handle(ctx context.Context, event starboard.VoteEvent) error
}

type starboardConfigs interface {
	GetConfig(ctx context.Context, guildID string) (*models.StarboardConfig, error)
	Invalidate(guildID string)
}

type Starboard struct {
	handler voteHandler
	configs starboardConfigs
	store   storage.Store

	send      func(channelID string, data *discordgo.MessageSend) error
	canManage func(msg *discordgo.Message) bool
	isBot     func(session *discordgo.Session, guildID, userID string) bool
}

func (s *Starboard) Commands() []string {
	return []string{
		"starboard",
		"sb",
	}
}

func (s *Starboard) Init(session *discordgo.Session) {
	if s.handler == nil {
		s.handler = cache.GetReconciler()
	}
	if s.configs == nil {
		s.configs = cache.GetConfigResolver()
	}
	if s.store == nil {
		s.store = cache.GetStore()
	}
	if s.send == nil {
		s.send = func(channelID string, data *discordgo.MessageSend) error {
			_, err := session.ChannelMessageSendComplex(channelID, data)
			return err
		}
	}
	if s.canManage == nil {
		s.canManage = helpers.CanManageServer
	}
	if s.isBot == nil {
		s.isBot = userIsBot
	}
}

func (s *Starboard) Uninit(session *discordgo.Session) {

}

func (s *Starboard) Action(command string, content string, msg *discordgo.Message, session *discordgo.Session) {
	defer helpers.Recover()

	session.ChannelTyping(msg.ChannelID)
	s.run(strings.Fields(content), msg)
}

func (s *Starboard) run(args []string, in *discordgo.Message) {
	var result *discordgo.MessageSend

	action := s.actionStart
	for action != nil {
		action = action(args, in, &result)
	}
}

func (s *Starboard) actionStart(args []string, in *discordgo.Message, out **discordgo.MessageSend) starboardAction {
	if in.GuildID == "" {
		*out = s.newMsg("The starboard only works on servers.")
		return s.actionFinish
	}

	if len(args) < 1 {
		return s.actionStatus
	}

	switch args[0] {
	case "status":
		return s.actionStatus
	case "top":
		return s.actionTop
	case "starrers":
		return s.actionStarrers
	case "set", "threshold", "minimum", "emoji", "selfvote", "enable", "disable":
		if !s.canManage(in) {
			*out = s.newMsg("You need the Manage Server permission to do that.")
			return s.actionFinish
		}
	default:
		*out = s.newMsg("Invalid arguments. Try `status`, `set`, `threshold`, `emoji`, `selfvote`, `enable`, `disable`, `top` or `starrers`.")
		return s.actionFinish
	}

	switch args[0] {
	case "set":
		return s.actionSet
	case "threshold", "minimum":
		return s.actionThreshold
	case "emoji":
		return s.actionEmoji
	case "selfvote":
		return s.actionSelfVote
	}
	return s.actionEnable
}

func (s *Starboard) actionStatus(args []string, in *discordgo.Message, out **discordgo.MessageSend) starboardAction {
	config, err := s.configs.GetConfig(context.Background(), in.GuildID)
	helpers.Relax(err)

	if config == nil || config.MirrorChannelID == "" {
		*out = s.newMsg("The starboard is not set up on this server. Use `starboard set #channel` to set it up.")
		return s.actionFinish
	}

	*out = &discordgo.MessageSend{Embed: &discordgo.MessageEmbed{
		Title: "Starboard",
		Color: helpers.GetDiscordColorFromHex("ffd700"),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Channel", Value: "<#" + config.MirrorChannelID + ">", Inline: true},
			{Name: "Threshold", Value: strconv.Itoa(config.Threshold), Inline: true},
			{Name: "Emoji", Value: config.VoteEmoji, Inline: true},
			{Name: "Self votes", Value: onOff(config.SelfVoteAllowed), Inline: true},
			{Name: "Enabled", Value: onOff(config.Enabled), Inline: true},
		},
	}}
	return s.actionFinish
}

func (s *Starboard) actionSet(args []string, in *discordgo.Message, out **discordgo.MessageSend) starboardAction {
	if len(args) < 2 {
		s.updateConfig(in.GuildID, func(config *models.StarboardConfig) {
			config.MirrorChannelID = ""
		})
		*out = s.newMsg("Removed the starboard channel, no more messages will be mirrored.")
		return s.actionFinish
	}

	channelID := helpers.ChannelIDFromMention(args[1])
	if _, err := strconv.ParseUint(channelID, 10, 64); err != nil {
		*out = s.newMsg("Invalid arguments. Mention the channel, for example `starboard set #starboard`.")
		return s.actionFinish
	}

	s.updateConfig(in.GuildID, func(config *models.StarboardConfig) {
		config.MirrorChannelID = channelID
	})
	*out = s.newMsg(fmt.Sprintf("Messages will be mirrored to <#%s>.", channelID))
	return s.actionFinish
}

func (s *Starboard) actionThreshold(args []string, in *discordgo.Message, out **discordgo.MessageSend) starboardAction {
	if len(args) < 2 {
		*out = s.newMsg("Too few arguments.")
		return s.actionFinish
	}

	threshold, err := strconv.Atoi(args[1])
	if err != nil || threshold < 1 {
		*out = s.newMsg("The threshold has to be a number of at least 1.")
		return s.actionFinish
	}

	s.updateConfig(in.GuildID, func(config *models.StarboardConfig) {
		config.Threshold = threshold
	})
	*out = s.newMsg(fmt.Sprintf("Messages need %d votes to be mirrored.", threshold))
	return s.actionFinish
}

func (s *Starboard) actionEmoji(args []string, in *discordgo.Message, out **discordgo.MessageSend) starboardAction {
	if len(args) < 2 {
		*out = s.newMsg("Too few arguments.")
		return s.actionFinish
	}

	emoji := args[1]
	if !isVoteEmoji(emoji) {
		*out = s.newMsg("That doesn't look like an emoji.")
		return s.actionFinish
	}

	s.updateConfig(in.GuildID, func(config *models.StarboardConfig) {
		config.VoteEmoji = emoji
	})
	*out = s.newMsg(fmt.Sprintf("Votes are now counted for %s.", emoji))
	return s.actionFinish
}

func (s *Starboard) actionSelfVote(args []string, in *discordgo.Message, out **discordgo.MessageSend) starboardAction {
	if len(args) < 2 || (args[1] != "on" && args[1] != "off") {
		*out = s.newMsg("Use `starboard selfvote on` or `starboard selfvote off`.")
		return s.actionFinish
	}

	allowed := args[1] == "on"
	s.updateConfig(in.GuildID, func(config *models.StarboardConfig) {
		config.SelfVoteAllowed = allowed
	})
	if allowed {
		*out = s.newMsg("Authors may now vote for their own messages.")
	} else {
		*out = s.newMsg("Votes of authors on their own messages will be removed.")
	}
	return s.actionFinish
}

func (s *Starboard) actionEnable(args []string, in *discordgo.Message, out **discordgo.MessageSend) starboardAction {
	enabled := args[0] == "enable"
	s.updateConfig(in.GuildID, func(config *models.StarboardConfig) {
		config.Enabled = enabled
	})
	if enabled {
		*out = s.newMsg("Enabled the starboard.")
	} else {
		*out = s.newMsg("Disabled the starboard.")
	}
	return s.actionFinish
}

func (s *Starboard) actionTop(args []string, in *discordgo.Message, out **discordgo.MessageSend) starboardAction {
	records, err := s.store.TopMirrors(context.Background(), in.GuildID, starboardTopLimit)
	helpers.Relax(err)

	if len(records) == 0 {
		*out = s.newMsg("No message has been mirrored yet.")
		return s.actionFinish
	}

	config, err := s.configs.GetConfig(context.Background(), in.GuildID)
	helpers.Relax(err)
	emoji := models.DefaultStarboardEmoji
	if config != nil {
		emoji = config.VoteEmoji
	}

	var description string
	for i, record := range records {
		description += fmt.Sprintf("%s [Message #%s](%s) in <#%s> (%s %s)\n",
			emojis.Rank(i+1),
			record.OriginalMessageID,
			starboard.JumpLink(record.GuildID, record.OriginalChannelID, record.OriginalMessageID),
			record.OriginalChannelID,
			humanize.Comma(int64(record.StarCount)),
			emoji,
		)
	}

	*out = &discordgo.MessageSend{Embed: &discordgo.MessageEmbed{
		Title:       "Top starboard messages",
		Description: description,
		Color:       helpers.GetDiscordColorFromHex("ffd700"),
	}}
	return s.actionFinish
}

func (s *Starboard) actionStarrers(args []string, in *discordgo.Message, out **discordgo.MessageSend) starboardAction {
	if len(args) < 2 {
		*out = s.newMsg("Too few arguments.")
		return s.actionFinish
	}

	record, err := s.store.GetMirror(context.Background(), args[1])
	if storage.IsNotFound(err) || (err == nil && record.GuildID != in.GuildID) {
		*out = s.newMsg("That message is not on the starboard.")
		return s.actionFinish
	}
	helpers.Relax(err)

	voters, err := s.store.Voters(context.Background(), record.OriginalMessageID)
	helpers.Relax(err)

	mentions := make([]string, 0, len(voters))
	for _, voter := range voters {
		mentions = append(mentions, "<@"+voter+">")
	}

	*out = &discordgo.MessageSend{Embed: &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Voters of message #%s (%s)", record.OriginalMessageID, humanize.Comma(int64(len(voters)))),
		Description: strings.Join(mentions, ", "),
		URL:         starboard.JumpLink(record.GuildID, record.OriginalChannelID, record.OriginalMessageID),
		Color:       helpers.GetDiscordColorFromHex("ffd700"),
	}}
	return s.actionFinish
}

func (s *Starboard) actionFinish(args []string, in *discordgo.Message, out **discordgo.MessageSend) starboardAction {
	err := s.send(in.ChannelID, *out)
	if err != nil {
		s.logger().WithError(err).Warn("sending starboard response failed")
	}

	return nil
}

func (s *Starboard) newMsg(content string) *discordgo.MessageSend {
	return &discordgo.MessageSend{Content: content}
}

// updateConfig loads the stored config (or the defaults), applies change and
// drops the cached copy
func (s *Starboard) updateConfig(guildID string, change func(config *models.StarboardConfig)) {
	ctx := context.Background()

	config, err := s.store.GetConfig(ctx, guildID)
	if storage.IsNotFound(err) {
		defaults := models.StarboardConfig{}.Default(guildID)
		config, err = &defaults, nil
	}
	helpers.Relax(err)

	change(config)
	helpers.Relax(s.store.SetConfig(ctx, *config))
	s.configs.Invalidate(guildID)

	s.logger().WithFields(logrus.Fields{
		"guild_id": guildID,
		"config":   fmt.Sprintf("%+v", *config),
	}).Info("updated starboard config")
}

func (s *Starboard) logger() *logrus.Entry {
	return cache.GetLogger().WithField("module", "starboard")
}

func (s *Starboard) OnMessageDelete(msg *discordgo.MessageDelete, session *discordgo.Session) {
	if msg.Message == nil || msg.GuildID == "" {
		return
	}

	event := starboard.NewVoteEvent(starboard.MessageDeleted, msg.GuildID, msg.ChannelID, msg.ID)
	go s.handle(event)
}

func (s *Starboard) OnReactionAdd(reaction *discordgo.MessageReactionAdd, session *discordgo.Session) {
	if reaction.MessageReaction == nil || reaction.GuildID == "" {
		return
	}

	event := s.voteEvent(starboard.VoteAdded, reaction.MessageReaction, session)
	if reaction.Member != nil && reaction.Member.User != nil {
		event.VoterIsBot = reaction.Member.User.Bot
	} else {
		event.VoterIsBot = s.isBot(session, reaction.GuildID, reaction.UserID)
	}
	go s.handle(event)
}

func (s *Starboard) OnReactionRemove(reaction *discordgo.MessageReactionRemove, session *discordgo.Session) {
	if reaction.MessageReaction == nil || reaction.GuildID == "" {
		return
	}

	event := s.voteEvent(starboard.VoteRemoved, reaction.MessageReaction, session)
	event.VoterIsBot = s.isBot(session, reaction.GuildID, reaction.UserID)
	go s.handle(event)
}

func (s *Starboard) OnReactionRemoveAll(reaction *discordgo.MessageReactionRemoveAll, session *discordgo.Session) {
	if reaction.MessageReaction == nil || reaction.GuildID == "" {
		return
	}

	event := starboard.NewVoteEvent(starboard.AllVotesCleared, reaction.GuildID, reaction.ChannelID, reaction.MessageID)
	go s.handle(event)
}

func (s *Starboard) voteEvent(kind starboard.EventKind, reaction *discordgo.MessageReaction, session *discordgo.Session) starboard.VoteEvent {
	event := starboard.NewVoteEvent(kind, reaction.GuildID, reaction.ChannelID, reaction.MessageID)
	event.VoterID = reaction.UserID
	event.Emoji = starboard.EmojiKey(reaction.Emoji)
	return event
}

func (s *Starboard) handle(event starboard.VoteEvent) {
	defer helpers.Recover()

	ctx, cancel := context.WithTimeout(context.Background(), starboardEventTimeout)
	defer cancel()

	err := s.handler.Handle(ctx, event)
	if err != nil {
		s.logger().WithFields(logrus.Fields{
			"event_id":   event.ID,
			"kind":       event.Kind.String(),
			"guild_id":   event.GuildID,
			"message_id": event.MessageID,
		}).WithError(err).Error("reconciling starboard failed")
		helpers.CaptureError(err, map[string]string{
			"GuildID":   event.GuildID,
			"MessageID": event.MessageID,
			"Kind":      event.Kind.String(),
		})
	}
}

func userIsBot(session *discordgo.Session, guildID, userID string) bool {
	if session.State != nil {
		if session.State.User != nil && session.State.User.ID == userID {
			return true
		}
		member, err := session.State.Member(guildID, userID)
		if err == nil && member.User != nil {
			return member.User.Bot
		}
	}

	user, err := session.User(userID)
	if err != nil {
		return false
	}
	return user.Bot
}

// isVoteEmoji accepts custom emoji in message format and unicode emoji
func isVoteEmoji(emoji string) bool {
	if customEmojiRegex.MatchString(emoji) {
		return true
	}
	if emoji == "" || len([]rune(emoji)) > 10 {
		return false
	}
	for _, r := range emoji {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsSpace(r) || unicode.IsPunct(r)) {
			return false
		}
	}
	return true
}

func onOff(value bool) string {
	if value {
		return "on"
	}
	return "off"
}
