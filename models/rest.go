package models

var (
	ISO8601 = "2006-01-02T15:04:05-0700"
)

type Rest_Starboard_Config struct {
	GuildID         string
	MirrorChannelID string
	Threshold       int
	VoteEmoji       string
	SelfVoteAllowed bool
	Enabled         bool
}

type Rest_Starboard_Mirror struct {
	ID                int64
	GuildID           string
	OriginalMessageID string
	OriginalChannelID string
	MirrorMessageID   string
	MirrorChannelID   string
	StarCount         int
	CreatedAt         string
	JumpURL           string
	Voters            []string `json:",omitempty"`
}

type Rest_Starboard_Top struct {
	Entries []Rest_Starboard_Mirror
	Count   int
}

func NewRestStarboardConfig(config StarboardConfig) Rest_Starboard_Config {
	return Rest_Starboard_Config{
		GuildID:         config.GuildID,
		MirrorChannelID: config.MirrorChannelID,
		Threshold:       config.Threshold,
		VoteEmoji:       config.VoteEmoji,
		SelfVoteAllowed: config.SelfVoteAllowed,
		Enabled:         config.Enabled,
	}
}

func NewRestStarboardMirror(record MirrorRecord, jumpURL string) Rest_Starboard_Mirror {
	var createdAt string
	if !record.CreatedAt.IsZero() {
		createdAt = record.CreatedAt.UTC().Format(ISO8601)
	}
	return Rest_Starboard_Mirror{
		ID:                record.ID,
		GuildID:           record.GuildID,
		OriginalMessageID: record.OriginalMessageID,
		OriginalChannelID: record.OriginalChannelID,
		MirrorMessageID:   record.MirrorMessageID,
		MirrorChannelID:   record.MirrorChannelID,
		StarCount:         record.StarCount,
		CreatedAt:         createdAt,
		JumpURL:           jumpURL,
	}
}
