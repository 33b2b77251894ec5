package plugins

import (
	"context"
	"io/ioutil"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Seklfreak/starboard/cache"
	"github.com/Seklfreak/starboard/models"
	"github.com/Seklfreak/starboard/starboard"
	"github.com/Seklfreak/starboard/storage"
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log := logrus.New()
	log.Out = ioutil.Discard
	cache.SetLogger(log)
	os.Exit(m.Run())
}

type recordingHandler struct {
	sync.Mutex
	events []starboard.VoteEvent
	done   chan struct{}
}

func (h *recordingHandler) Handle(ctx context.Context, event starboard.VoteEvent) error {
	h.Lock()
	h.events = append(h.events, event)
	h.Unlock()
	h.done <- struct{}{}
	return nil
}

func (h *recordingHandler) wait(t *testing.T) starboard.VoteEvent {
	select {
	case <-h.done:
	case <-time.After(5 * time.Second):
		t.Fatal("event was not handled")
	}
	h.Lock()
	defer h.Unlock()
	return h.events[len(h.events)-1]
}

type testBoard struct {
	*Starboard
	store    *storage.MemoryStore
	handler  *recordingHandler
	replies  []*discordgo.MessageSend
	isAdmin  bool
	botUsers map[string]bool
}

func newTestBoard(t *testing.T) *testBoard {
	store := storage.NewMemoryStore()
	resolver, err := starboard.NewConfigResolver(store, nil, time.Minute)
	require.NoError(t, err)

	board := &testBoard{
		store:    store,
		handler:  &recordingHandler{done: make(chan struct{}, 10)},
		isAdmin:  true,
		botUsers: map[string]bool{"bot": true},
	}
	board.Starboard = &Starboard{
		handler: board.handler,
		configs: resolver,
		store:   store,
		send: func(channelID string, data *discordgo.MessageSend) error {
			board.replies = append(board.replies, data)
			return nil
		},
		canManage: func(msg *discordgo.Message) bool { return board.isAdmin },
		isBot: func(session *discordgo.Session, guildID, userID string) bool {
			return board.botUsers[userID]
		},
	}
	return board
}

func (b *testBoard) command(args ...string) *discordgo.MessageSend {
	b.run(args, &discordgo.Message{ID: "cmd", ChannelID: "c1", GuildID: "g1", Author: &discordgo.User{ID: "admin"}})
	return b.replies[len(b.replies)-1]
}

func (b *testBoard) config(t *testing.T) models.StarboardConfig {
	config, err := b.store.GetConfig(context.Background(), "g1")
	require.NoError(t, err)
	return *config
}

func TestStatusWithoutConfig(t *testing.T) {
	board := newTestBoard(t)

	reply := board.command()
	assert.Contains(t, reply.Content, "not set up")

	reply = board.command("status")
	assert.Contains(t, reply.Content, "not set up")
}

func TestConfigCommands(t *testing.T) {
	board := newTestBoard(t)

	board.command("set", "<#123456>")
	config := board.config(t)
	assert.Equal(t, "123456", config.MirrorChannelID)
	assert.Equal(t, models.DefaultStarboardThreshold, config.Threshold)
	assert.True(t, config.Enabled)

	board.command("threshold", "5")
	assert.Equal(t, 5, board.config(t).Threshold)

	reply := board.command("threshold", "0")
	assert.Contains(t, reply.Content, "at least 1")
	assert.Equal(t, 5, board.config(t).Threshold)

	board.command("emoji", "<:gold:42>")
	assert.Equal(t, "<:gold:42>", board.config(t).VoteEmoji)

	reply = board.command("emoji", "star")
	assert.Contains(t, reply.Content, "emoji")
	assert.Equal(t, "<:gold:42>", board.config(t).VoteEmoji)

	board.command("emoji", "🌟")
	assert.Equal(t, "🌟", board.config(t).VoteEmoji)

	board.command("selfvote", "on")
	assert.True(t, board.config(t).SelfVoteAllowed)

	board.command("disable")
	assert.False(t, board.config(t).Enabled)

	reply = board.command("status")
	require.NotNil(t, reply.Embed)
	assert.Equal(t, "<#123456>", reply.Embed.Fields[0].Value)
	assert.Equal(t, "5", reply.Embed.Fields[1].Value)
	assert.Equal(t, "off", reply.Embed.Fields[4].Value)

	board.command("enable")
	assert.True(t, board.config(t).Enabled)

	board.command("set")
	assert.Empty(t, board.config(t).MirrorChannelID)
}

func TestConfigCommandsNeedPermission(t *testing.T) {
	board := newTestBoard(t)
	board.isAdmin = false

	reply := board.command("set", "<#123456>")
	assert.Contains(t, reply.Content, "Manage Server")

	_, err := board.store.GetConfig(context.Background(), "g1")
	assert.True(t, storage.IsNotFound(err))
}

func TestTopAndStarrers(t *testing.T) {
	board := newTestBoard(t)
	ctx := context.Background()

	reply := board.command("top")
	assert.Contains(t, reply.Content, "No message")

	for i, count := range []int{3, 1234} {
		require.NoError(t, board.store.CreateMirror(ctx, &models.MirrorRecord{
			GuildID:           "g1",
			OriginalMessageID: []string{"m1", "m2"}[i],
			OriginalChannelID: "c1",
			MirrorMessageID:   "x",
			MirrorChannelID:   "board",
			StarCount:         count,
		}))
	}
	for _, voter := range []string{"u1", "u2"} {
		_, err := board.store.AddVote(ctx, "m1", voter)
		require.NoError(t, err)
	}

	reply = board.command("top")
	require.NotNil(t, reply.Embed)
	assert.Contains(t, reply.Embed.Description, "🥇 [Message #m2]")
	assert.Contains(t, reply.Embed.Description, "1,234 ⭐")
	assert.Contains(t, reply.Embed.Description, "🥈 [Message #m1](https://discord.com/channels/g1/c1/m1)")

	reply = board.command("starrers", "m1")
	require.NotNil(t, reply.Embed)
	assert.Equal(t, "<@u1>, <@u2>", reply.Embed.Description)

	reply = board.command("starrers", "nope")
	assert.Contains(t, reply.Content, "not on the starboard")
}

func TestGatewayEventsBecomeVoteEvents(t *testing.T) {
	board := newTestBoard(t)

	board.OnReactionAdd(&discordgo.MessageReactionAdd{
		MessageReaction: &discordgo.MessageReaction{
			UserID: "u1", MessageID: "m1", ChannelID: "c1", GuildID: "g1",
			Emoji: discordgo.Emoji{ID: "42", Name: "gold"},
		},
	}, nil)
	event := board.handler.wait(t)
	assert.Equal(t, starboard.VoteAdded, event.Kind)
	assert.Equal(t, "<:gold:42>", event.Emoji)
	assert.Equal(t, "u1", event.VoterID)
	assert.False(t, event.VoterIsBot)
	assert.NotEmpty(t, event.ID)

	board.OnReactionRemove(&discordgo.MessageReactionRemove{
		MessageReaction: &discordgo.MessageReaction{
			UserID: "bot", MessageID: "m1", ChannelID: "c1", GuildID: "g1",
			Emoji: discordgo.Emoji{Name: "⭐"},
		},
	}, nil)
	event = board.handler.wait(t)
	assert.Equal(t, starboard.VoteRemoved, event.Kind)
	assert.Equal(t, "⭐", event.Emoji)
	assert.True(t, event.VoterIsBot)

	board.OnReactionRemoveAll(&discordgo.MessageReactionRemoveAll{
		MessageReaction: &discordgo.MessageReaction{MessageID: "m1", ChannelID: "c1", GuildID: "g1"},
	}, nil)
	assert.Equal(t, starboard.AllVotesCleared, board.handler.wait(t).Kind)

	board.OnMessageDelete(&discordgo.MessageDelete{
		Message: &discordgo.Message{ID: "m1", ChannelID: "c1", GuildID: "g1"},
	}, nil)
	event = board.handler.wait(t)
	assert.Equal(t, starboard.MessageDeleted, event.Kind)
	assert.Equal(t, "m1", event.MessageID)

	// direct messages are ignored
	board.OnMessageDelete(&discordgo.MessageDelete{
		Message: &discordgo.Message{ID: "m2", ChannelID: "dm"},
	}, nil)
	select {
	case <-board.handler.done:
		t.Fatal("direct message produced an event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestIsVoteEmoji(t *testing.T) {
	for _, emoji := range []string{"⭐", "🌟", "<:gold:42>", "<a:spin:7>", "👍🏽"} {
		assert.True(t, isVoteEmoji(emoji), emoji)
	}
	for _, emoji := range []string{"", "star", ":star:", "<:broken>", "⭐ ⭐"} {
		assert.False(t, isVoteEmoji(emoji), emoji)
	}
}
