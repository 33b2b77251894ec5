package starboard

import (
	"context"
	"io/ioutil"
	"net/http"
	"strings"
	"testing"

	"github.com/Seklfreak/starboard/storage"
	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restError(status int, code int) *discordgo.RESTError {
	err := &discordgo.RESTError{
		Response: &http.Response{StatusCode: status, Status: http.StatusText(status)},
	}
	if code != 0 {
		err.Message = &discordgo.APIErrorMessage{Code: code}
	}
	return err
}

func TestIsNotFound(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		notFound bool
	}{
		{"nil", nil, false},
		{"404 status", restError(http.StatusNotFound, 0), true},
		{"unknown message code", restError(http.StatusBadRequest, discordgo.ErrCodeUnknownMessage), true},
		{"unknown channel code", restError(http.StatusForbidden, discordgo.ErrCodeUnknownChannel), true},
		{"wrapped in RemoteError", remoteError(restError(http.StatusNotFound, 0), "fetch message"), true},
		{"wrapped twice", errors.Wrap(remoteError(restError(http.StatusBadRequest, discordgo.ErrCodeUnknownMessage), "edit embed"), "update"), true},
		{"missing permissions", restError(http.StatusForbidden, discordgo.ErrCodeMissingPermissions), false},
		{"server error", remoteError(restError(http.StatusInternalServerError, 0), "send embed"), false},
		{"storage not found", storage.Wrap(storage.ErrNotFound, "get mirror"), false},
		{"plain error", errBoom, false},
	}

	for _, c := range cases {
		assert.Equal(t, c.notFound, IsNotFound(c.err), c.name)
	}
}

type stubTransport struct {
	status int
	body   string
	calls  int
}

func (s *stubTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.calls++
	return &http.Response{
		StatusCode: s.status,
		Status:     http.StatusText(s.status),
		Header:     make(http.Header),
		Body:       ioutil.NopCloser(strings.NewReader(s.body)),
		Request:    req,
	}, nil
}

func stubbedAPI(t *testing.T, transport *stubTransport) *DiscordAPI {
	session, err := discordgo.New("Bot test")
	require.NoError(t, err)
	session.Client = &http.Client{Transport: transport}
	session.MaxRestRetries = 0
	return NewDiscordAPI(session)
}

func TestDeleteMessage(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		ok     bool
	}{
		{"deleted", http.StatusNoContent, "", true},
		{"already deleted", http.StatusNotFound, `{"message": "Unknown Message", "code": 10008}`, true},
		{"unknown channel", http.StatusNotFound, `{"message": "Unknown Channel", "code": 10003}`, true},
		{"missing permissions", http.StatusForbidden, `{"message": "Missing Permissions", "code": 50013}`, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			transport := &stubTransport{status: c.status, body: c.body}
			api := stubbedAPI(t, transport)

			err := api.DeleteMessage(context.Background(), "c1", "m1")
			assert.Equal(t, 1, transport.calls)
			if c.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var remote *RemoteError
			assert.True(t, errors.As(err, &remote))
			assert.Equal(t, "delete message", remote.Op)
			assert.False(t, IsNotFound(err))
		})
	}
}

func TestFetchMessageNotFound(t *testing.T) {
	transport := &stubTransport{status: http.StatusNotFound, body: `{"message": "Unknown Message", "code": 10008}`}
	api := stubbedAPI(t, transport)

	_, err := api.FetchMessage(context.Background(), "c1", "m1")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}
