package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/Seklfreak/starboard/cache"
	"github.com/Seklfreak/starboard/helpers"
	"github.com/Seklfreak/starboard/logging"
	"github.com/Seklfreak/starboard/metrics"
	"github.com/Seklfreak/starboard/rest"
	"github.com/Seklfreak/starboard/starboard"
	"github.com/Seklfreak/starboard/storage"
	"github.com/Seklfreak/starboard/storage/mdb"
	"github.com/Seklfreak/starboard/storage/sqlite"
	"github.com/Seklfreak/starboard/version"
	"github.com/bwmarrin/discordgo"
	"github.com/emicklei/go-restful"
	"github.com/getsentry/raven-go"
	goredisCache "github.com/go-redis/cache"
	"github.com/go-redis/redis"
	"github.com/kz/discordrus"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Entrypoint
func main() {
	configPath := flag.String("config", "config.json", "path to the bot config")
	flag.Parse()

	log := logrus.New()
	log.Out = os.Stdout
	log.Level = logrus.InfoLevel
	log.Formatter = &logrus.TextFormatter{ForceColors: true, FullTimestamp: true, TimestampFormat: time.RFC3339}
	log.Hooks = make(logrus.LevelHooks)
	cache.SetLogger(log)
	launcherLog := log.WithField("module", "launcher")

	// Read config
	err := helpers.LoadConfig(*configPath)
	if err != nil {
		launcherLog.Fatalf("reading config %s failed: %s", *configPath, err.Error())
	}

	// Check if the bot is being debugged
	if helpers.ConfigBool("debug", false) {
		helpers.DEBUG_MODE = true
		log.Level = logrus.DebugLevel
	}

	admins, _ := helpers.GetConfig().Path("discord.admins").Children()
	adminIDs := make([]string, 0, len(admins))
	for _, admin := range admins {
		if id, ok := admin.Data().(string); ok {
			adminIDs = append(adminIDs, id)
		}
	}
	helpers.SetBotAdmins(adminIDs)

	if path := helpers.ConfigString("logging.jsonfile", ""); path != "" {
		fileHook, err := logging.NewFileHook(path, logrus.InfoLevel)
		if err != nil {
			launcherLog.Error("logrus file hook failed, err:", err.Error())
		} else {
			log.Hooks.Add(fileHook)
			defer fileHook.Close()
		}
	}

	if webhook := helpers.ConfigString("logging.discord_webhook", ""); webhook != "" {
		log.Hooks.Add(discordrus.NewHook(
			webhook,
			logrus.ErrorLevel,
			&discordrus.Opts{
				Username:           "Starboard",
				DisableTimestamp:   false,
				TimestampFormat:    "Jan 2 15:04:05.00000",
				EnableCustomColors: true,
				CustomLevelColors: &discordrus.LevelColors{
					Error: 13631488,
					Panic: 13631488,
					Fatal: 13631488,
				},
			},
		))
	}

	launcherLog.Info("Booting starboard...")

	// Show version
	version.DumpInfo(launcherLog)

	// Start metric server
	metrics.Init(helpers.ConfigString("metrics.address", "localhost:1337"), log.WithField("module", "metrics"))

	// Call home
	if dsn := helpers.ConfigString("sentry", ""); dsn != "" {
		launcherLog.Info("[SENTRY] Calling home...")
		err = raven.SetDSN(dsn)
		if err != nil {
			launcherLog.Fatal(err)
		}
		if version.BOT_VERSION != "UNSET" {
			raven.SetRelease(version.BOT_VERSION)
		}
	}

	// Open storage
	store, err := openStore(log)
	if err != nil {
		raven.CaptureErrorAndWait(err, nil)
		launcherLog.Fatal(err)
	}
	defer store.Close()
	cache.SetStore(store)

	// Connecting to redis
	if address := helpers.ConfigString("redis.address", ""); address != "" {
		launcherLog.Info("Connecting to redis...")
		redisClient := redis.NewClient(&redis.Options{
			Addr:     address,
			Password: helpers.ConfigString("redis.password", ""),
			DB:       helpers.ConfigInt("redis.db", 0),
		})
		err = redisClient.Ping().Err()
		if err != nil {
			launcherLog.Fatal(errors.Wrap(err, "connecting to redis failed"))
		}
		cache.SetRedisClient(redisClient)
	}

	locker, err := newLocker()
	if err != nil {
		launcherLog.Fatal(err)
	}
	scope, err := starboard.ParseLockScope(helpers.ConfigString("lock.scope", string(starboard.LockScopeMessage)))
	if err != nil {
		launcherLog.Fatal(err)
	}

	resolver, err := newConfigResolver(store)
	if err != nil {
		launcherLog.Fatal(err)
	}
	cache.SetConfigResolver(resolver)

	// Connect and add event handlers
	discordgo.Logger = discordLogger(log.WithField("module", "discordgo"))
	launcherLog.Info("Connecting starboard to discord...")
	discord, err := discordgo.New("Bot " + helpers.ConfigString("discord.token", ""))
	if err != nil {
		launcherLog.Fatal(err)
	}

	discord.Lock()
	discord.Debug = false
	discord.LogLevel = discordgo.LogInformational
	discord.StateEnabled = true
	discord.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentMessageContent
	discord.Unlock()
	cache.SetSession(discord)

	cache.SetReconciler(starboard.NewReconciler(
		store,
		resolver,
		starboard.NewDiscordAPI(discord),
		locker,
		scope,
		log.WithField("module", "starboard"),
	))

	discord.AddHandler(BotOnReady)
	discord.AddHandler(BotOnMessageCreate)
	discord.AddHandler(BotOnMessageDelete)
	discord.AddHandler(BotOnMessageDeleteBulk)
	discord.AddHandler(BotOnReactionAdd)
	discord.AddHandler(BotOnReactionRemove)
	discord.AddHandler(BotOnReactionRemoveAll)
	discord.AddHandlerOnce(metrics.OnReady)

	// Connect to discord
	err = discord.Open()
	if err != nil {
		raven.CaptureErrorAndWait(err, nil)
		launcherLog.Fatal(err)
	}

	// Open REST API
	if address := helpers.ConfigString("rest.address", ""); address != "" {
		server := &http.Server{Addr: address, Handler: newRestContainer(store, resolver, log)}
		go func() {
			err := server.ListenAndServe()
			if err != nil && err != http.ErrServerClosed {
				launcherLog.Fatal(err)
			}
		}()
		defer server.Close()
		launcherLog.Infof("REST API listening on %s", address)
	}

	// Make a channel that waits for a os signal
	botRuntimeChannel := make(chan os.Signal, 1)
	signal.Notify(botRuntimeChannel, os.Interrupt, syscall.SIGTERM)

	// Wait until the os wants us to shutdown
	<-botRuntimeChannel

	launcherLog.Info("starboard is stopping")
	launcherLog.Info("Uninitializing plugins...")
	BotDestroy()
	launcherLog.Info("Disconnecting bot discord session...")
	discord.Close()
}

func openStore(log *logrus.Logger) (storage.Store, error) {
	driver := helpers.ConfigString("storage.driver", "sqlite")
	log.WithField("module", "launcher").Infof("Opening %s storage...", driver)

	switch driver {
	case "sqlite":
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		return sqlite.Open(ctx, helpers.ConfigString("storage.sqlite.path", "starboard.db"), log.WithField("module", "sqlite"))
	case "mongodb":
		return mdb.Dial(
			helpers.ConfigString("storage.mongodb.url", "mongodb://localhost"),
			helpers.ConfigString("storage.mongodb.db", "starboard"),
			log.WithField("module", "mdb"),
		)
	case "memory":
		return storage.NewMemoryStore(), nil
	}
	return nil, errors.Errorf("unknown storage driver %q", driver)
}

func newLocker() (starboard.Locker, error) {
	switch backend := helpers.ConfigString("lock.backend", "local"); backend {
	case "local":
		return starboard.NewKeyedLocker(), nil
	case "redis":
		if !cache.HasRedisClient() {
			return nil, errors.New("lock.backend redis needs redis.address")
		}
		ttl := time.Duration(helpers.ConfigInt("lock.ttl_seconds", 30)) * time.Second
		locker := starboard.NewRedisLocker(cache.GetRedisClient(), ttl)
		locker.Log = cache.GetLogger().WithField("module", "lock")
		return locker, nil
	default:
		return nil, errors.Errorf("unknown lock backend %q", backend)
	}
}

func newConfigResolver(store storage.Store) (*starboard.ConfigResolver, error) {
	ttl := time.Duration(helpers.ConfigInt("cache.config_ttl_seconds", 60)) * time.Second

	var codec *goredisCache.Codec
	if cache.HasRedisClient() {
		codec = cache.GetRedisCacheCodec()
	}
	resolver, err := starboard.NewConfigResolver(store, codec, ttl)
	if err != nil {
		return nil, err
	}
	resolver.Log = cache.GetLogger().WithField("module", "resolver")
	return resolver, nil
}

func newRestContainer(store storage.Store, resolver *starboard.ConfigResolver, log *logrus.Logger) *restful.Container {
	wsContainer := restful.NewContainer()

	for _, service := range rest.NewRestServices(&rest.Starboard{
		Configs: resolver,
		Store:   store,
		Log:     log.WithField("module", "rest"),
	}) {
		wsContainer.Add(service)
	}

	allowedOrigins := strings.Fields(helpers.ConfigString("rest.allowed_origins", ""))
	wsContainer.Filter(func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		// Add CORS header
		if origin := req.Request.Header.Get("Origin"); origin != "" {
			for _, allowed := range allowedOrigins {
				if allowed == origin {
					resp.AddHeader("Access-Control-Allow-Origin", origin)
					resp.AddHeader("Access-Control-Allow-Methods", "GET, OPTIONS")
					resp.AddHeader("Access-Control-Max-Age", "1000")
					resp.AddHeader("Access-Control-Allow-Headers", "origin, content-type, accept, Authorization")
				}
			}
		}
		// Log request and time
		now := time.Now()
		chain.ProcessFilter(req, resp)
		log.WithField("module", "rest").Debugf("received api request: %s %s (took %v)",
			req.Request.Method, req.Request.URL, time.Since(now))
	})
	wsContainer.Filter(wsContainer.OPTIONSFilter)

	return wsContainer
}

func discordLogger(log *logrus.Entry) func(msgL, caller int, format string, a ...interface{}) {
	return func(msgL, caller int, format string, a ...interface{}) {
		pc, file, line, _ := runtime.Caller(caller)

		files := strings.Split(file, "/")
		file = files[len(files)-1]

		name := runtime.FuncForPC(pc).Name()
		fns := strings.Split(name, ".")
		name = fns[len(fns)-1]

		msg := format
		if strings.Contains(msg, "%") {
			msg = fmt.Sprintf(format, a...)
		}

		switch msgL {
		case discordgo.LogError:
			log.Errorf("%s:%d:%s() %s", file, line, name, msg)
		case discordgo.LogWarning:
			log.Warnf("%s:%d:%s() %s", file, line, name, msg)
		case discordgo.LogInformational:
			log.Infof("%s:%d:%s() %s", file, line, name, msg)
		case discordgo.LogDebug:
			log.Debugf("%s:%d:%s() %s", file, line, name, msg)
		}
	}
}
