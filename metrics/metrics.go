package metrics

import (
	"expvar"
	"net/http"
	"runtime"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

var (
	// EventsHandled counts every vote event that reached the reconciler
	EventsHandled = expvar.NewInt("starboard_events_handled")

	// VotesAdded counts votes newly stored
	VotesAdded = expvar.NewInt("starboard_votes_added")

	// VotesRemoved counts votes removed from the store
	VotesRemoved = expvar.NewInt("starboard_votes_removed")

	// VotesRejected counts events dropped by a guard
	VotesRejected = expvar.NewInt("starboard_votes_rejected")

	// MirrorsCreated increases each time a message crosses the threshold
	MirrorsCreated = expvar.NewInt("starboard_mirrors_created")

	MirrorsUpdated   = expvar.NewInt("starboard_mirrors_updated")
	MirrorsRetracted = expvar.NewInt("starboard_mirrors_retracted")

	// RaceLosses counts creations that found a mirror made by a concurrent event
	RaceLosses = expvar.NewInt("starboard_race_losses")

	// ReconcileErrors counts events that failed with a storage or discord error
	ReconcileErrors = expvar.NewInt("starboard_reconcile_errors")

	// CommandsExecuted increases after each command execution
	CommandsExecuted = expvar.NewInt("commands_executed")

	// GuildCount counts all joined guilds
	GuildCount = expvar.NewInt("guild_count")

	// CoroutineCount counts all running goroutines
	CoroutineCount = expvar.NewInt("coroutine_count")

	// Uptime stores the timestamp of the bot's boot
	Uptime = expvar.NewInt("uptime")
)

// Init serves /debug/vars on address
func Init(address string, log *logrus.Entry) {
	Uptime.Set(time.Now().Unix())
	if address == "" {
		return
	}

	log.Infof("listening on %s", address)
	go func() {
		err := http.ListenAndServe(address, nil)
		if err != nil {
			log.Errorln("metrics server stopped:", err.Error())
		}
	}()
}

// OnReady listens for said discord event
func OnReady(session *discordgo.Session, event *discordgo.Ready) {
	go CollectDiscordMetrics(session)
	go CollectRuntimeMetrics()
}

// CollectDiscordMetrics counts Guilds
func CollectDiscordMetrics(session *discordgo.Session) {
	for {
		time.Sleep(15 * time.Second)

		if session.State == nil {
			continue
		}
		session.State.RLock()
		GuildCount.Set(int64(len(session.State.Guilds)))
		session.State.RUnlock()
	}
}

// CollectRuntimeMetrics counts all running goroutines
func CollectRuntimeMetrics() {
	for {
		time.Sleep(15 * time.Second)
		CoroutineCount.Set(int64(runtime.NumGoroutine()))
	}
}
