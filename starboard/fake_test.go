package starboard

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

type retraction struct {
	channelID, messageID, emoji, voterID string
}

// fakeAPI keeps messages in memory, stored messages are never mutated so
// returned pointers are safe to read concurrently
type fakeAPI struct {
	sync.Mutex
	messages    map[string]*discordgo.Message
	nextID      int
	sent        int
	edits       int
	deletes     int
	retractions []retraction
	failSend    error

	// beforeSend runs once, before the next SendEmbed stores its message
	beforeSend func()
	// onFetch runs on every FetchMessage
	onFetch func(channelID, messageID string)
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{messages: make(map[string]*discordgo.Message)}
}

func messageKey(channelID, messageID string) string {
	return channelID + "/" + messageID
}

func notFound() error {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusNotFound, Status: "404 Not Found"},
	}
}

func (f *fakeAPI) put(message *discordgo.Message) {
	f.Lock()
	defer f.Unlock()
	f.messages[messageKey(message.ChannelID, message.ID)] = message
}

func (f *fakeAPI) get(channelID, messageID string) *discordgo.Message {
	f.Lock()
	defer f.Unlock()
	return f.messages[messageKey(channelID, messageID)]
}

func (f *fakeAPI) remove(channelID, messageID string) {
	f.Lock()
	defer f.Unlock()
	delete(f.messages, messageKey(channelID, messageID))
}

func (f *fakeAPI) counts() (sent, edits, deletes int) {
	f.Lock()
	defer f.Unlock()
	return f.sent, f.edits, f.deletes
}

func (f *fakeAPI) SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) (string, error) {
	f.Lock()
	hook := f.beforeSend
	f.beforeSend = nil
	f.Unlock()
	if hook != nil {
		hook()
	}

	f.Lock()
	defer f.Unlock()
	if f.failSend != nil {
		return "", remoteError(f.failSend, "send embed")
	}
	f.nextID++
	f.sent++
	id := fmt.Sprintf("mirror-%d", f.nextID)
	f.messages[messageKey(channelID, id)] = &discordgo.Message{
		ID:        id,
		ChannelID: channelID,
		Embeds:    []*discordgo.MessageEmbed{embed},
	}
	return id, nil
}

func (f *fakeAPI) EditEmbed(ctx context.Context, channelID, messageID string, embed *discordgo.MessageEmbed) error {
	f.Lock()
	defer f.Unlock()
	key := messageKey(channelID, messageID)
	old, ok := f.messages[key]
	if !ok {
		return remoteError(notFound(), "edit embed")
	}
	f.edits++
	f.messages[key] = &discordgo.Message{
		ID:        old.ID,
		ChannelID: old.ChannelID,
		Embeds:    []*discordgo.MessageEmbed{embed},
	}
	return nil
}

func (f *fakeAPI) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	f.Lock()
	defer f.Unlock()
	key := messageKey(channelID, messageID)
	if _, ok := f.messages[key]; ok {
		f.deletes++
		delete(f.messages, key)
	}
	return nil
}

func (f *fakeAPI) FetchMessage(ctx context.Context, channelID, messageID string) (*discordgo.Message, error) {
	f.Lock()
	hook := f.onFetch
	f.Unlock()
	if hook != nil {
		hook(channelID, messageID)
	}

	f.Lock()
	defer f.Unlock()
	message, ok := f.messages[messageKey(channelID, messageID)]
	if !ok {
		return nil, remoteError(notFound(), "fetch message")
	}
	return message, nil
}

func (f *fakeAPI) RetractVote(ctx context.Context, channelID, messageID, emoji, voterID string) error {
	f.Lock()
	defer f.Unlock()
	f.retractions = append(f.retractions, retraction{channelID, messageID, emoji, voterID})
	return nil
}

var errBoom = errors.New("boom")
