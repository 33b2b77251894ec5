// Except.go: Contains functions to make handling panics less PITA

package helpers

import (
	"fmt"
	"runtime"

	"github.com/Seklfreak/starboard/cache"
	"github.com/bwmarrin/discordgo"
	"github.com/getsentry/raven-go"
	"github.com/pkg/errors"
)

// RecoverDiscord recover()s and sends a message to discord
func RecoverDiscord(msg *discordgo.Message) {
	err := recover()
	if err != nil {
		SendError(msg, err)
	}
}

// Recover recover()s and logs the error
func Recover() {
	err := recover()
	if err != nil {
		buf := make([]byte, 1<<16)
		stackSize := runtime.Stack(buf, false)

		cache.GetLogger().WithField("module", "except").Errorf("recovered panic: %#v\n%s", err, string(buf[0:stackSize]))
		raven.CaptureError(fmt.Errorf("%#v", err), map[string]string{})
	}
}

// Relax is a helper to reduce if-checks if panicking is allowed
// If $err is nil this is a no-op. Panics otherwise.
func Relax(err error) {
	if err != nil {
		panic(err)
	}
}

// CaptureError sends $err to sentry with $tags, the root cause decides the title
func CaptureError(err error, tags map[string]string) {
	if err == nil {
		return
	}
	raven.CaptureError(errors.Cause(err), tags)
}

// SendError Takes an error and sends it to discord and sentry.io
func SendError(msg *discordgo.Message, err interface{}) {
	text := fmt.Sprintf("%#v", err)
	if errR, ok := err.(*discordgo.RESTError); ok && errR != nil && errR.Message != nil {
		text = errR.Message.Message
	} else if errE, ok := err.(error); ok && !DEBUG_MODE {
		text = errE.Error()
	}

	if msg == nil {
		raven.CaptureError(fmt.Errorf("%#v", err), map[string]string{})
		return
	}

	cache.GetSession().ChannelMessageSend(msg.ChannelID, "Error :(\n```\n"+text+"\n```")

	tags := map[string]string{
		"ChannelID": msg.ChannelID,
		"Content":   msg.Content,
	}
	if msg.Author != nil {
		raven.SetUserContext(&raven.User{
			ID:       msg.Author.ID,
			Username: msg.Author.Username,
		})
		tags["IsBot"] = fmt.Sprint(msg.Author.Bot)
	}
	raven.CaptureError(fmt.Errorf("%#v", err), tags)
}
