package starboard

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/Seklfreak/starboard/models"
	"github.com/Seklfreak/starboard/storage"
	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemovalDuringSendRetractsNewMirror(t *testing.T) {
	f := newFixture(t, 2, false)
	f.add("u1")

	// u2 takes the vote back while the mirror for u2's vote is on its way
	f.api.beforeSend = func() {
		f.remove("u2")
	}
	f.add("u2")

	assert.Equal(t, 1, f.count())
	assert.Nil(t, f.mirror())
	sent, _, deletes := f.api.counts()
	assert.Equal(t, 1, sent)
	assert.Equal(t, 1, deletes)
	assert.Nil(t, f.api.get(testMirror, "mirror-1"))

	f.add("u2")
	record := f.mirror()
	require.NotNil(t, record)
	assert.Equal(t, "mirror-2", record.MirrorMessageID)
	assert.Equal(t, 2, record.StarCount)
}

func TestVotesDuringSendAreShownAfterCreate(t *testing.T) {
	f := newFixture(t, 2, false)
	f.add("u1")

	// stored by a handler that did not get to look at the mirror yet
	f.api.beforeSend = func() {
		_, err := f.store.AddVote(context.Background(), testMessage, "u3")
		require.NoError(t, err)
	}
	f.add("u2")

	record := f.mirror()
	require.NotNil(t, record)
	assert.Equal(t, 3, record.StarCount)
	assert.Equal(t, "⭐ 3", f.mirrorEmbed().Footer.Text)
}

// rivalStore lets another process insert the mirror record right before us
type rivalStore struct {
	*storage.MemoryStore
	api      *fakeAPI
	original *discordgo.Message
}

func (s *rivalStore) CreateMirror(ctx context.Context, record *models.MirrorRecord) error {
	messageID, err := s.api.SendEmbed(ctx, record.MirrorChannelID, Render(s.original, record.GuildID, 1, "⭐").Embed())
	if err != nil {
		return err
	}

	rival := *record
	rival.MirrorMessageID = messageID
	rival.StarCount = 1
	err = s.MemoryStore.CreateMirror(ctx, &rival)
	if err != nil {
		return err
	}
	return storage.Wrap(storage.ErrDuplicate, "create mirror")
}

func TestDuplicateRecordFromOtherProcess(t *testing.T) {
	f := newFixture(t, 2, false)
	f.rec.store = &rivalStore{
		MemoryStore: f.store,
		api:         f.api,
		original:    f.api.get(testChannel, testMessage),
	}

	f.add("u1", "u2")

	sent, edits, deletes := f.api.counts()
	assert.Equal(t, 2, sent)
	assert.Equal(t, 1, edits)
	assert.Equal(t, 1, deletes)

	// our own message is gone, the other process' mirror shows our count
	assert.Nil(t, f.api.get(testMirror, "mirror-1"))
	record := f.mirror()
	require.NotNil(t, record)
	assert.Equal(t, "mirror-2", record.MirrorMessageID)
	assert.Equal(t, 2, record.StarCount)
	assert.Equal(t, "⭐ 2", f.mirrorEmbed().Footer.Text)
}

type trackingLocker struct {
	Locker
	held int32
}

func (l *trackingLocker) Lock(ctx context.Context, key string) (func(), error) {
	unlock, err := l.Locker.Lock(ctx, key)
	if err != nil {
		return nil, err
	}
	atomic.AddInt32(&l.held, 1)
	return func() {
		atomic.AddInt32(&l.held, -1)
		unlock()
	}, nil
}

func TestNoFetchUnderLock(t *testing.T) {
	f := newFixture(t, 1, true)
	locker := &trackingLocker{Locker: NewKeyedLocker()}
	f.rec.locker = locker

	var fetches, fetchesLocked int32
	f.api.onFetch = func(channelID, messageID string) {
		atomic.AddInt32(&fetches, 1)
		if atomic.LoadInt32(&locker.held) > 0 {
			atomic.AddInt32(&fetchesLocked, 1)
		}
	}

	f.add("u1", "u2")

	require.NotNil(t, f.mirror())
	assert.Equal(t, "⭐ 2", f.mirrorEmbed().Footer.Text)
	assert.NotZero(t, atomic.LoadInt32(&fetches))
	assert.Zero(t, atomic.LoadInt32(&fetchesLocked))
	assert.Zero(t, atomic.LoadInt32(&locker.held))
}
