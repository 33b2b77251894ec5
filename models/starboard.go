package models

import (
	"time"

	"github.com/pkg/errors"
)

const (
	StarboardVotesTable   MongoDbCollection = "starboard_votes"
	StarboardMirrorsTable MongoDbCollection = "starboard_mirrors"
	StarboardConfigTable  MongoDbCollection = "starboard_config"

	DefaultStarboardThreshold = 2
	DefaultStarboardEmoji     = "⭐"
)

// VoteRecord is one voter's endorsement of one message
type VoteRecord struct {
	MessageID string    `bson:"message_id" json:"message_id"`
	VoterID   string    `bson:"voter_id" json:"voter_id"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// StarboardConfig holds the per guild starboard settings
type StarboardConfig struct {
	GuildID         string `bson:"guild_id" json:"guild_id" msgpack:"guild_id"`
	MirrorChannelID string `bson:"mirror_channel_id" json:"mirror_channel_id" msgpack:"mirror_channel_id"`
	Threshold       int    `bson:"threshold" json:"threshold" msgpack:"threshold"`
	VoteEmoji       string `bson:"vote_emoji" json:"vote_emoji" msgpack:"vote_emoji"`
	SelfVoteAllowed bool   `bson:"self_vote_allowed" json:"self_vote_allowed" msgpack:"self_vote_allowed"`
	Enabled         bool   `bson:"enabled" json:"enabled" msgpack:"enabled"`
}

func (c StarboardConfig) Default(guildID string) StarboardConfig {
	return StarboardConfig{
		GuildID:   guildID,
		Threshold: DefaultStarboardThreshold,
		VoteEmoji: DefaultStarboardEmoji,
		Enabled:   true,
	}
}

// Validate checks the invariants every stored config has to hold
func (c StarboardConfig) Validate() error {
	if c.GuildID == "" {
		return errors.New("starboard config without guild id")
	}
	if c.Threshold < 1 {
		return errors.Errorf("starboard threshold must be at least 1, got %d", c.Threshold)
	}
	if c.VoteEmoji == "" {
		return errors.New("starboard vote emoji must not be empty")
	}
	return nil
}

// Usable reports whether events for this guild should be processed at all.
// Enabled without a destination channel counts as not usable.
func (c *StarboardConfig) Usable() bool {
	return c != nil && c.Enabled && c.MirrorChannelID != ""
}

type MirrorState int

const (
	MirrorStateUnmirrored MirrorState = iota
	MirrorStateMirrored
)

func (s MirrorState) String() string {
	switch s {
	case MirrorStateMirrored:
		return "mirrored"
	default:
		return "unmirrored"
	}
}

// MirrorRecord links an original message to the message posted on the starboard
type MirrorRecord struct {
	ID                int64     `bson:"seq" json:"id"`
	GuildID           string    `bson:"guild_id" json:"guild_id"`
	OriginalMessageID string    `bson:"original_message_id" json:"original_message_id"`
	OriginalChannelID string    `bson:"original_channel_id" json:"original_channel_id"`
	MirrorMessageID   string    `bson:"mirror_message_id" json:"mirror_message_id"`
	MirrorChannelID   string    `bson:"mirror_channel_id" json:"mirror_channel_id"`
	StarCount         int       `bson:"star_count" json:"star_count"`
	CreatedAt         time.Time `bson:"created_at" json:"created_at"`
}

// State derives the lifecycle state from a possibly nil record
func (r *MirrorRecord) State() MirrorState {
	if r == nil || r.MirrorMessageID == "" {
		return MirrorStateUnmirrored
	}
	return MirrorStateMirrored
}
