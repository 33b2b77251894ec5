package starboard

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type EventKind int

const (
	VoteAdded EventKind = iota
	VoteRemoved
	AllVotesCleared
	MessageDeleted
)

func (k EventKind) String() string {
	switch k {
	case VoteAdded:
		return "vote_added"
	case VoteRemoved:
		return "vote_removed"
	case AllVotesCleared:
		return "all_votes_cleared"
	case MessageDeleted:
		return "message_deleted"
	}
	return "unknown"
}

// VoteEvent is one gateway notification about votes on a message.
// VoterID, VoterIsBot and Emoji are empty for AllVotesCleared and MessageDeleted.
type VoteEvent struct {
	ID         string
	Kind       EventKind
	GuildID    string
	ChannelID  string
	MessageID  string
	VoterID    string
	VoterIsBot bool
	// Emoji in message format, <:name:id> for custom emoji
	Emoji string
}

func NewVoteEvent(kind EventKind, guildID, channelID, messageID string) VoteEvent {
	return VoteEvent{
		ID:        uuid.New().String(),
		Kind:      kind,
		GuildID:   guildID,
		ChannelID: channelID,
		MessageID: messageID,
	}
}

func (e VoteEvent) fields() logrus.Fields {
	fields := logrus.Fields{
		"event_id":   e.ID,
		"kind":       e.Kind.String(),
		"guild_id":   e.GuildID,
		"message_id": e.MessageID,
	}
	if e.VoterID != "" {
		fields["voter_id"] = e.VoterID
	}
	return fields
}
