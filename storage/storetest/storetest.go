// Package storetest runs the same behavioural checks against every storage
// backend.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/Seklfreak/starboard/models"
	"github.com/Seklfreak/starboard/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run executes the suite, newStore must return an empty store
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("VoteIdempotent", func(t *testing.T) { testVoteIdempotent(t, newStore(t)) })
	t.Run("VoteLastActionWins", func(t *testing.T) { testVoteLastActionWins(t, newStore(t)) })
	t.Run("VoteConcurrentAdds", func(t *testing.T) { testVoteConcurrentAdds(t, newStore(t)) })
	t.Run("ClearVotes", func(t *testing.T) { testClearVotes(t, newStore(t)) })
	t.Run("MirrorLifecycle", func(t *testing.T) { testMirrorLifecycle(t, newStore(t)) })
	t.Run("TopMirrors", func(t *testing.T) { testTopMirrors(t, newStore(t)) })
	t.Run("Config", func(t *testing.T) { testConfig(t, newStore(t)) })
}

func testVoteIdempotent(t *testing.T, store storage.Store) {
	ctx := context.Background()

	added, err := store.AddVote(ctx, "m1", "u1")
	require.NoError(t, err)
	assert.True(t, added)

	for i := 0; i < 3; i++ {
		added, err = store.AddVote(ctx, "m1", "u1")
		require.NoError(t, err)
		assert.False(t, added)
	}

	count, err := store.CountVotes(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	voted, err := store.HasVoted(ctx, "m1", "u1")
	require.NoError(t, err)
	assert.True(t, voted)

	voted, err = store.HasVoted(ctx, "m1", "u2")
	require.NoError(t, err)
	assert.False(t, voted)

	removed, err := store.RemoveVote(ctx, "m1", "u2")
	require.NoError(t, err)
	assert.False(t, removed)
}

func testVoteLastActionWins(t *testing.T, store storage.Store) {
	ctx := context.Background()

	type action struct {
		voter string
		add   bool
	}
	actions := []action{
		{"a", true}, {"b", true}, {"a", false}, {"c", true},
		{"b", true}, {"d", false}, {"c", false}, {"a", true}, {"d", true},
	}
	last := make(map[string]bool)
	for _, a := range actions {
		var err error
		if a.add {
			_, err = store.AddVote(ctx, "m", a.voter)
		} else {
			_, err = store.RemoveVote(ctx, "m", a.voter)
		}
		require.NoError(t, err)
		last[a.voter] = a.add
	}

	expected := 0
	for _, add := range last {
		if add {
			expected++
		}
	}
	count, err := store.CountVotes(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, expected, count)

	voters, err := store.Voters(ctx, "m")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "d"}, voters)
}

func testVoteConcurrentAdds(t *testing.T, store storage.Store) {
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.AddVote(ctx, "m", fmt.Sprintf("u%d", i%5))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	count, err := store.CountVotes(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func testClearVotes(t *testing.T, store storage.Store) {
	ctx := context.Background()

	for _, voter := range []string{"u1", "u2", "u3"} {
		_, err := store.AddVote(ctx, "m1", voter)
		require.NoError(t, err)
	}
	_, err := store.AddVote(ctx, "m2", "u1")
	require.NoError(t, err)

	cleared, err := store.ClearVotes(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 3, cleared)

	count, err := store.CountVotes(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	count, err = store.CountVotes(ctx, "m2")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func testMirrorLifecycle(t *testing.T, store storage.Store) {
	ctx := context.Background()

	_, err := store.GetMirror(ctx, "orig")
	assert.True(t, storage.IsNotFound(err), "expected not found, got %v", err)

	record := &models.MirrorRecord{
		GuildID:           "g",
		OriginalMessageID: "orig",
		OriginalChannelID: "c",
		MirrorMessageID:   "mirror1",
		MirrorChannelID:   "sb",
		StarCount:         3,
	}
	require.NoError(t, store.CreateMirror(ctx, record))
	firstID := record.ID
	assert.NotZero(t, firstID)
	assert.False(t, record.CreatedAt.IsZero())

	err = store.CreateMirror(ctx, &models.MirrorRecord{OriginalMessageID: "orig", MirrorMessageID: "mirror2"})
	assert.True(t, storage.IsDuplicate(err), "expected duplicate, got %v", err)

	require.NoError(t, store.UpdateMirrorCount(ctx, "orig", 5))
	got, err := store.GetMirror(ctx, "orig")
	require.NoError(t, err)
	assert.Equal(t, 5, got.StarCount)
	assert.Equal(t, "mirror1", got.MirrorMessageID)
	assert.Equal(t, "sb", got.MirrorChannelID)
	assert.Equal(t, models.MirrorStateMirrored, got.State())

	deleted, err := store.DeleteMirror(ctx, "orig")
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = store.DeleteMirror(ctx, "orig")
	require.NoError(t, err)
	assert.False(t, deleted)

	err = store.UpdateMirrorCount(ctx, "orig", 1)
	assert.True(t, storage.IsNotFound(err), "expected not found, got %v", err)

	again := &models.MirrorRecord{GuildID: "g", OriginalMessageID: "orig", MirrorMessageID: "mirror3", MirrorChannelID: "sb", StarCount: 3}
	require.NoError(t, store.CreateMirror(ctx, again))
	assert.NotEqual(t, firstID, again.ID)
}

func testTopMirrors(t *testing.T, store storage.Store) {
	ctx := context.Background()

	for i, count := range []int{3, 9, 5, 7} {
		require.NoError(t, store.CreateMirror(ctx, &models.MirrorRecord{
			GuildID:           "g",
			OriginalMessageID: fmt.Sprintf("o%d", i),
			MirrorMessageID:   fmt.Sprintf("m%d", i),
			StarCount:         count,
		}))
	}
	require.NoError(t, store.CreateMirror(ctx, &models.MirrorRecord{
		GuildID: "other", OriginalMessageID: "x", MirrorMessageID: "y", StarCount: 100,
	}))

	top, err := store.TopMirrors(ctx, "g", 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, 9, top[0].StarCount)
	assert.Equal(t, 7, top[1].StarCount)
	assert.Equal(t, 5, top[2].StarCount)
}

func testConfig(t *testing.T, store storage.Store) {
	ctx := context.Background()

	_, err := store.GetConfig(ctx, "g")
	assert.True(t, storage.IsNotFound(err), "expected not found, got %v", err)

	config := models.StarboardConfig{}.Default("g")
	config.MirrorChannelID = "sb"
	require.NoError(t, store.SetConfig(ctx, config))

	config.Threshold = 4
	config.SelfVoteAllowed = true
	require.NoError(t, store.SetConfig(ctx, config))

	got, err := store.GetConfig(ctx, "g")
	require.NoError(t, err)
	assert.Equal(t, config, *got)

	config.Threshold = 0
	assert.Error(t, store.SetConfig(ctx, config))
}
