package modules

import (
	"fmt"
	"strings"

	"github.com/Seklfreak/starboard/cache"
	"github.com/Seklfreak/starboard/helpers"
	"github.com/Seklfreak/starboard/metrics"
	"github.com/Seklfreak/starboard/ratelimits"
	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

// Init builds the command lookup and initializes the plugins
func Init(session *discordgo.Session) error {
	err := checkDuplicateCommands()
	if err != nil {
		return err
	}

	pluginCache = make(map[string]*Plugin)
	extendedPluginCache = make(map[string]*ExtendedPlugin)
	log := cache.GetLogger().WithField("module", "modules")

	for i := range PluginList {
		ref := &PluginList[i]
		for _, cmd := range (*ref).Commands() {
			pluginCache[cmd] = ref
		}
		log.Infof("[PLUG] %T reacts to [ %s ]", *ref, strings.Join((*ref).Commands(), " "))
		(*ref).Init(session)
	}

	for i := range PluginExtendedList {
		ref := &PluginExtendedList[i]
		for _, cmd := range (*ref).Commands() {
			extendedPluginCache[cmd] = ref
		}
		log.Infof("[EXTENDED-PLUG] %T reacts to [ %s ]", *ref, strings.Join((*ref).Commands(), " "))
		(*ref).Init(session)
	}

	log.Infof("Initializer finished. Loaded %d plugins and %d extended plugins", len(PluginList), len(PluginExtendedList))
	return nil
}

// Uninit deinitializes the extended plugins
func Uninit(session *discordgo.Session) {
	for _, extendedPlugin := range PluginExtendedList {
		extendedPlugin.Uninit(session)
	}
}

// CallBotPlugin runs the plugin registered for command
// content - The content without command
func CallBotPlugin(command string, content string, msg *discordgo.Message) {
	// Defer a recovery in case anything panics
	defer helpers.RecoverDiscord(msg)

	// Consume a key for this action
	if ratelimits.Container.Drain(1, msg.Author.ID) != nil {
		return
	}

	// Track metrics
	metrics.CommandsExecuted.Add(1)

	if ref, ok := pluginCache[command]; ok {
		(*ref).Action(command, content, msg, cache.GetSession())
	}
	if ref, ok := extendedPluginCache[command]; ok {
		(*ref).Action(command, content, msg, cache.GetSession())
	}
}

// HasCommand reports whether any plugin listens to command
func HasCommand(command string) bool {
	if _, ok := pluginCache[command]; ok {
		return true
	}
	_, ok := extendedPluginCache[command]
	return ok
}

func CallExtendedPluginOnMessageDelete(message *discordgo.MessageDelete) {
	defer helpers.Recover()

	for _, extendedPlugin := range PluginExtendedList {
		extendedPlugin.OnMessageDelete(message, cache.GetSession())
	}
}

func CallExtendedPluginOnReactionAdd(reaction *discordgo.MessageReactionAdd) {
	defer helpers.Recover()

	for _, extendedPlugin := range PluginExtendedList {
		extendedPlugin.OnReactionAdd(reaction, cache.GetSession())
	}
}

func CallExtendedPluginOnReactionRemove(reaction *discordgo.MessageReactionRemove) {
	defer helpers.Recover()

	for _, extendedPlugin := range PluginExtendedList {
		extendedPlugin.OnReactionRemove(reaction, cache.GetSession())
	}
}

func CallExtendedPluginOnReactionRemoveAll(reaction *discordgo.MessageReactionRemoveAll) {
	defer helpers.Recover()

	for _, extendedPlugin := range PluginExtendedList {
		extendedPlugin.OnReactionRemoveAll(reaction, cache.GetSession())
	}
}

func checkDuplicateCommands() error {
	cmds := make(map[string]string)

	check := func(plug BaseModule, commands []string) error {
		for _, cmd := range commands {
			t := fmt.Sprintf("%T", plug)
			if occupant, ok := cmds[cmd]; ok {
				return errors.Errorf("failed to load %s because '%s' was already registered by %s", t, cmd, occupant)
			}
			cmds[cmd] = t
		}
		return nil
	}

	for _, plug := range PluginList {
		if err := check(plug, plug.Commands()); err != nil {
			return err
		}
	}
	for _, plug := range PluginExtendedList {
		if err := check(plug, plug.Commands()); err != nil {
			return err
		}
	}
	return nil
}
