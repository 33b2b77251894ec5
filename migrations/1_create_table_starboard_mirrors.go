package migrations

import (
	"context"
	"database/sql"
)

func m1_create_table_starboard_mirrors(ctx context.Context, tx *sql.Tx) error {
	err := CreateTableIfNotExists(ctx, tx, "starboard_mirrors", `CREATE TABLE starboard_mirrors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		guild_id TEXT NOT NULL,
		original_message_id TEXT NOT NULL UNIQUE,
		original_channel_id TEXT NOT NULL,
		mirror_message_id TEXT,
		mirror_channel_id TEXT,
		star_count INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		"CREATE INDEX IF NOT EXISTS starboard_mirrors_guild_stars ON starboard_mirrors (guild_id, star_count)")
	return err
}
