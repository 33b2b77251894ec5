// Package storage holds the persistence contracts of the starboard: votes,
// mirror records and per guild configs. Every mutation is a single atomic
// operation in the backing store so concurrent event handlers never split a
// read-modify-write across two calls.
package storage

import (
	"context"

	"github.com/Seklfreak/starboard/models"
)

type VoteStore interface {
	// AddVote inserts the vote, reports false if the pair already existed
	AddVote(ctx context.Context, messageID, voterID string) (added bool, err error)
	// RemoveVote deletes the vote, reports false if there was none
	RemoveVote(ctx context.Context, messageID, voterID string) (removed bool, err error)
	CountVotes(ctx context.Context, messageID string) (int, error)
	HasVoted(ctx context.Context, messageID, voterID string) (bool, error)
	// ClearVotes purges every vote on the message and returns how many were removed
	ClearVotes(ctx context.Context, messageID string) (int, error)
	// Voters lists the voter ids, oldest vote first
	Voters(ctx context.Context, messageID string) ([]string, error)
}

type MirrorStore interface {
	// GetMirror returns ErrNotFound if the message is not mirrored
	GetMirror(ctx context.Context, originalMessageID string) (*models.MirrorRecord, error)
	// CreateMirror fills in ID and CreatedAt, returns ErrDuplicate if a record
	// for the original message exists already
	CreateMirror(ctx context.Context, record *models.MirrorRecord) error
	// UpdateMirrorCount returns ErrNotFound if the record is gone
	UpdateMirrorCount(ctx context.Context, originalMessageID string, count int) error
	DeleteMirror(ctx context.Context, originalMessageID string) (deleted bool, err error)
	// TopMirrors lists the guild's records with the highest counts first
	TopMirrors(ctx context.Context, guildID string, limit int) ([]models.MirrorRecord, error)
}

type ConfigStore interface {
	// GetConfig returns ErrNotFound if the guild has no starboard config
	GetConfig(ctx context.Context, guildID string) (*models.StarboardConfig, error)
	SetConfig(ctx context.Context, config models.StarboardConfig) error
}

// Store bundles all three tables of one backend
type Store interface {
	VoteStore
	MirrorStore
	ConfigStore
	Close() error
}
