package rest

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Seklfreak/starboard/models"
	"github.com/Seklfreak/starboard/starboard"
	"github.com/Seklfreak/starboard/storage"
	"github.com/emicklei/go-restful"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContainer(t *testing.T) (*restful.Container, *storage.MemoryStore) {
	store := storage.NewMemoryStore()
	resolver, err := starboard.NewConfigResolver(store, nil, time.Minute)
	require.NoError(t, err)

	log := logrus.New()
	log.Out = ioutil.Discard

	container := restful.NewContainer()
	for _, service := range NewRestServices(&Starboard{Configs: resolver, Store: store, Log: logrus.NewEntry(log)}) {
		container.Add(service)
	}
	return container, store
}

func get(t *testing.T, container *restful.Container, path string, into interface{}) int {
	request := httptest.NewRequest(http.MethodGet, path, nil)
	request.Header.Set("Accept", restful.MIME_JSON)
	recorder := httptest.NewRecorder()
	container.ServeHTTP(recorder, request)

	if into != nil && recorder.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), into))
	}
	return recorder.Code
}

func TestGetConfig(t *testing.T) {
	container, store := newTestContainer(t)

	assert.Equal(t, http.StatusNotFound, get(t, container, "/starboard/g1/config", nil))

	config := models.StarboardConfig{}.Default("g1")
	config.MirrorChannelID = "board"
	require.NoError(t, store.SetConfig(context.Background(), config))

	var result models.Rest_Starboard_Config
	assert.Equal(t, http.StatusOK, get(t, container, "/starboard/g1/config", &result))
	assert.Equal(t, "board", result.MirrorChannelID)
	assert.Equal(t, 2, result.Threshold)
	assert.Equal(t, "⭐", result.VoteEmoji)
}

func TestGetTopAndMirror(t *testing.T) {
	container, store := newTestContainer(t)
	ctx := context.Background()

	for i, count := range []int{4, 9, 6} {
		require.NoError(t, store.CreateMirror(ctx, &models.MirrorRecord{
			GuildID:           "g1",
			OriginalMessageID: []string{"m1", "m2", "m3"}[i],
			OriginalChannelID: "c1",
			MirrorMessageID:   []string{"x1", "x2", "x3"}[i],
			MirrorChannelID:   "board",
			StarCount:         count,
		}))
	}
	_, err := store.AddVote(ctx, "m2", "u1")
	require.NoError(t, err)

	var top models.Rest_Starboard_Top
	assert.Equal(t, http.StatusOK, get(t, container, "/starboard/g1/top?limit=2", &top))
	require.Equal(t, 2, top.Count)
	assert.Equal(t, "m2", top.Entries[0].OriginalMessageID)
	assert.Equal(t, "m3", top.Entries[1].OriginalMessageID)
	assert.Equal(t, "https://discord.com/channels/g1/c1/m2", top.Entries[0].JumpURL)

	assert.Equal(t, http.StatusBadRequest, get(t, container, "/starboard/g1/top?limit=zero", nil))

	var empty models.Rest_Starboard_Top
	assert.Equal(t, http.StatusOK, get(t, container, "/starboard/other/top", &empty))
	assert.Equal(t, 0, empty.Count)
	assert.NotNil(t, empty.Entries)

	var mirror models.Rest_Starboard_Mirror
	assert.Equal(t, http.StatusOK, get(t, container, "/starboard/mirror/m2", &mirror))
	assert.Equal(t, 9, mirror.StarCount)
	assert.Equal(t, []string{"u1"}, mirror.Voters)
	assert.NotEmpty(t, mirror.CreatedAt)

	assert.Equal(t, http.StatusNotFound, get(t, container, "/starboard/mirror/nope", nil))
}
