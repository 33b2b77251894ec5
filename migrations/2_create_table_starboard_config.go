package migrations

import (
	"context"
	"database/sql"
)

func m2_create_table_starboard_config(ctx context.Context, tx *sql.Tx) error {
	return CreateTableIfNotExists(ctx, tx, "starboard_config", `CREATE TABLE starboard_config (
		guild_id TEXT PRIMARY KEY,
		mirror_channel_id TEXT,
		threshold INTEGER NOT NULL DEFAULT 2,
		vote_emoji TEXT NOT NULL DEFAULT '⭐',
		self_vote_allowed BOOLEAN NOT NULL DEFAULT FALSE,
		enabled BOOLEAN NOT NULL DEFAULT TRUE
	)`)
}
