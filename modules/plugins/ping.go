package plugins

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/Seklfreak/starboard/cache"
	"github.com/bwmarrin/discordgo"
)

const pingMessage = ":ping_pong: Pong!"

type Ping struct{}

func (p *Ping) Commands() []string {
	return []string{
		"ping",
	}
}

func (p *Ping) Init(session *discordgo.Session) {
	session.AddHandler(p.OnMessage)
}

func (p *Ping) Action(command string, content string, msg *discordgo.Message, session *discordgo.Session) {
	_, err := session.ChannelMessageSend(msg.ChannelID, pingMessage+" ~ "+strconv.FormatInt(time.Now().UnixNano(), 10))
	if err != nil {
		cache.GetLogger().WithField("module", "ping").WithError(err).Warn("sending ping failed")
	}
}

// OnMessage picks up our own ping message and edits the latencies into it
func (p *Ping) OnMessage(session *discordgo.Session, message *discordgo.MessageCreate) {
	if session.State == nil || session.State.User == nil || message.Author == nil || message.Author.ID != session.State.User.ID {
		return
	}

	if !strings.HasPrefix(message.Content, pingMessage+" ~ ") {
		return
	}

	textUnixNano := strings.TrimPrefix(message.Content, pingMessage+" ~ ")
	parsedUnixNano, err := strconv.ParseInt(textUnixNano, 10, 64)
	if err != nil {
		return
	}

	gatewayTaken := time.Duration(time.Now().UnixNano() - parsedUnixNano)
	text := pingMessage + "\nGateway Latency (receive message): " + gatewayTaken.String()

	started := time.Now()
	session.ChannelMessageEdit(message.ChannelID, message.ID, text)
	text += "\nHTTP API Latency (edit message): " + time.Since(started).String()

	started = time.Now()
	cache.GetStore().GetConfig(context.Background(), message.GuildID)
	text += "\nStorage Latency: " + time.Since(started).String()

	if cache.HasRedisClient() {
		started = time.Now()
		cache.GetRedisClient().Ping()
		text += "\nRedis Latency: " + time.Since(started).String()
	}

	session.ChannelMessageEdit(message.ChannelID, message.ID, text)
}
