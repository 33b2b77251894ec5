package helpers

import (
	"strconv"
	"strings"

	"github.com/Seklfreak/starboard/cache"
	"github.com/bwmarrin/discordgo"
)

var botAdmins []string

// SetBotAdmins replaces the list of users allowed everywhere
func SetBotAdmins(ids []string) {
	botAdmins = ids
}

// IsBotAdmin checks if $id is in $botAdmins
func IsBotAdmin(id string) bool {
	for _, s := range botAdmins {
		if s == id {
			return true
		}
	}

	return false
}

// CanManageServer checks if the author of $msg owns the guild or holds
// MANAGE_SERVER (or ADMINISTRATOR)
func CanManageServer(msg *discordgo.Message) bool {
	if msg.Author == nil {
		return false
	}
	if IsBotAdmin(msg.Author.ID) {
		return true
	}

	permissions, err := cache.GetSession().State.UserChannelPermissions(msg.Author.ID, msg.ChannelID)
	if err != nil {
		permissions, err = cache.GetSession().UserChannelPermissions(msg.Author.ID, msg.ChannelID)
		if err != nil {
			return false
		}
	}

	return permissions&discordgo.PermissionManageServer == discordgo.PermissionManageServer ||
		permissions&discordgo.PermissionAdministrator == discordgo.PermissionAdministrator
}

// GetDiscordColorFromHex turns ffd700 into the int discord expects
func GetDiscordColorFromHex(hex string) int {
	color, err := strconv.ParseInt(strings.TrimPrefix(hex, "#"), 16, 0)
	if err != nil {
		return 0
	}
	return int(color)
}

// ChannelIDFromMention strips <#...> from a channel mention
func ChannelIDFromMention(mention string) string {
	return strings.TrimSuffix(strings.TrimPrefix(mention, "<#"), ">")
}
