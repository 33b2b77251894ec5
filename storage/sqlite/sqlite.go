// Package sqlite is the default starboard storage backend.
package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/Seklfreak/starboard/migrations"
	"github.com/Seklfreak/starboard/models"
	"github.com/Seklfreak/starboard/storage"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the migrations
func Open(ctx context.Context, path string, log *logrus.Entry) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}

	pragmas := []string{
		"_pragma=busy_timeout(5000)",
		"_pragma=journal_mode(WAL)",
		"_pragma=synchronous(NORMAL)",
		"_txlock=immediate",
	}
	db, err := sql.Open("sqlite", path+"?"+strings.Join(pragmas, "&"))
	if err != nil {
		return nil, errors.Wrap(err, "opening sqlite db")
	}
	// one writer at a time, sqlite serializes them anyway
	db.SetMaxOpenConns(1)

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "pinging sqlite db")
	}

	if err = migrations.Run(ctx, db, log); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) AddVote(ctx context.Context, messageID, voterID string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO starboard_votes (message_id, voter_id, created_at) VALUES (?, ?, ?)",
		messageID, voterID, time.Now().UnixNano())
	if err != nil {
		return false, storage.Wrap(err, "add vote")
	}
	return affected(result, "add vote")
}

func (s *Store) RemoveVote(ctx context.Context, messageID, voterID string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM starboard_votes WHERE message_id = ? AND voter_id = ?",
		messageID, voterID)
	if err != nil {
		return false, storage.Wrap(err, "remove vote")
	}
	return affected(result, "remove vote")
}

func (s *Store) CountVotes(ctx context.Context, messageID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM starboard_votes WHERE message_id = ?", messageID).Scan(&count)
	if err != nil {
		return 0, storage.Wrap(err, "count votes")
	}
	return count, nil
}

func (s *Store) HasVoted(ctx context.Context, messageID, voterID string) (bool, error) {
	var found int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM starboard_votes WHERE message_id = ? AND voter_id = ? LIMIT 1",
		messageID, voterID).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, storage.Wrap(err, "has voted")
	}
	return true, nil
}

func (s *Store) ClearVotes(ctx context.Context, messageID string) (int, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM starboard_votes WHERE message_id = ?", messageID)
	if err != nil {
		return 0, storage.Wrap(err, "clear votes")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, storage.Wrap(err, "clear votes")
	}
	return int(n), nil
}

func (s *Store) Voters(ctx context.Context, messageID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT voter_id FROM starboard_votes WHERE message_id = ? ORDER BY created_at, id", messageID)
	if err != nil {
		return nil, storage.Wrap(err, "list voters")
	}
	defer rows.Close()

	voters := make([]string, 0)
	for rows.Next() {
		var voterID string
		if err = rows.Scan(&voterID); err != nil {
			return nil, storage.Wrap(err, "list voters")
		}
		voters = append(voters, voterID)
	}
	return voters, storage.Wrap(rows.Err(), "list voters")
}

const mirrorColumns = `id, guild_id, original_message_id, original_channel_id,
	COALESCE(mirror_message_id, ''), COALESCE(mirror_channel_id, ''), star_count, created_at`

func scanMirror(row interface{ Scan(...interface{}) error }) (*models.MirrorRecord, error) {
	var record models.MirrorRecord
	var createdAt int64
	err := row.Scan(
		&record.ID,
		&record.GuildID,
		&record.OriginalMessageID,
		&record.OriginalChannelID,
		&record.MirrorMessageID,
		&record.MirrorChannelID,
		&record.StarCount,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	record.CreatedAt = time.Unix(0, createdAt).UTC()
	return &record, nil
}

func (s *Store) GetMirror(ctx context.Context, originalMessageID string) (*models.MirrorRecord, error) {
	record, err := scanMirror(s.db.QueryRowContext(ctx,
		"SELECT "+mirrorColumns+" FROM starboard_mirrors WHERE original_message_id = ?",
		originalMessageID))
	if err == sql.ErrNoRows {
		return nil, storage.Wrap(storage.ErrNotFound, "get mirror")
	}
	if err != nil {
		return nil, storage.Wrap(err, "get mirror")
	}
	return record, nil
}

func (s *Store) CreateMirror(ctx context.Context, record *models.MirrorRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, `INSERT INTO starboard_mirrors
		(guild_id, original_message_id, original_channel_id, mirror_message_id, mirror_channel_id, star_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (original_message_id) DO NOTHING`,
		record.GuildID,
		record.OriginalMessageID,
		record.OriginalChannelID,
		nullable(record.MirrorMessageID),
		nullable(record.MirrorChannelID),
		record.StarCount,
		record.CreatedAt.UnixNano(),
	)
	if err != nil {
		return storage.Wrap(err, "create mirror")
	}

	inserted, err := affected(result, "create mirror")
	if err != nil {
		return err
	}
	if !inserted {
		return storage.Wrap(storage.ErrDuplicate, "create mirror")
	}

	record.ID, err = result.LastInsertId()
	return storage.Wrap(err, "create mirror")
}

func (s *Store) UpdateMirrorCount(ctx context.Context, originalMessageID string, count int) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE starboard_mirrors SET star_count = ? WHERE original_message_id = ?",
		count, originalMessageID)
	if err != nil {
		return storage.Wrap(err, "update mirror count")
	}

	updated, err := affected(result, "update mirror count")
	if err != nil {
		return err
	}
	if !updated {
		return storage.Wrap(storage.ErrNotFound, "update mirror count")
	}
	return nil
}

func (s *Store) DeleteMirror(ctx context.Context, originalMessageID string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM starboard_mirrors WHERE original_message_id = ?", originalMessageID)
	if err != nil {
		return false, storage.Wrap(err, "delete mirror")
	}
	return affected(result, "delete mirror")
}

func (s *Store) TopMirrors(ctx context.Context, guildID string, limit int) ([]models.MirrorRecord, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+mirrorColumns+` FROM starboard_mirrors WHERE guild_id = ?
		ORDER BY star_count DESC, id ASC LIMIT ?`, guildID, limit)
	if err != nil {
		return nil, storage.Wrap(err, "top mirrors")
	}
	defer rows.Close()

	records := make([]models.MirrorRecord, 0)
	for rows.Next() {
		record, err := scanMirror(rows)
		if err != nil {
			return nil, storage.Wrap(err, "top mirrors")
		}
		records = append(records, *record)
	}
	return records, storage.Wrap(rows.Err(), "top mirrors")
}

func (s *Store) GetConfig(ctx context.Context, guildID string) (*models.StarboardConfig, error) {
	var config models.StarboardConfig
	err := s.db.QueryRowContext(ctx, `SELECT guild_id, COALESCE(mirror_channel_id, ''), threshold,
		vote_emoji, self_vote_allowed, enabled FROM starboard_config WHERE guild_id = ?`, guildID).Scan(
		&config.GuildID,
		&config.MirrorChannelID,
		&config.Threshold,
		&config.VoteEmoji,
		&config.SelfVoteAllowed,
		&config.Enabled,
	)
	if err == sql.ErrNoRows {
		return nil, storage.Wrap(storage.ErrNotFound, "get config")
	}
	if err != nil {
		return nil, storage.Wrap(err, "get config")
	}
	return &config, nil
}

func (s *Store) SetConfig(ctx context.Context, config models.StarboardConfig) error {
	if err := config.Validate(); err != nil {
		return storage.Wrap(err, "set config")
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO starboard_config
		(guild_id, mirror_channel_id, threshold, vote_emoji, self_vote_allowed, enabled)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (guild_id) DO UPDATE SET
			mirror_channel_id = excluded.mirror_channel_id,
			threshold = excluded.threshold,
			vote_emoji = excluded.vote_emoji,
			self_vote_allowed = excluded.self_vote_allowed,
			enabled = excluded.enabled`,
		config.GuildID,
		nullable(config.MirrorChannelID),
		config.Threshold,
		config.VoteEmoji,
		config.SelfVoteAllowed,
		config.Enabled,
	)
	return storage.Wrap(err, "set config")
}

func affected(result sql.Result, op string) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, storage.Wrap(err, op)
	}
	return n > 0, nil
}

func nullable(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}
