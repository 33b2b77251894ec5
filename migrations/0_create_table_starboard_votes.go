package migrations

import (
	"context"
	"database/sql"
)

func m0_create_table_starboard_votes(ctx context.Context, tx *sql.Tx) error {
	err := CreateTableIfNotExists(ctx, tx, "starboard_votes", `CREATE TABLE starboard_votes (
		id INTEGER PRIMARY KEY,
		message_id TEXT NOT NULL,
		voter_id TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		UNIQUE(message_id, voter_id)
	)`)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		"CREATE INDEX IF NOT EXISTS starboard_votes_message_id ON starboard_votes (message_id)")
	return err
}
