package starboard

import (
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

// RemoteError wraps a failed call against the discord API
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("discord: %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Cause() error  { return e.Err }
func (e *RemoteError) Unwrap() error { return e.Err }

func remoteError(err error, op string) error {
	if err == nil {
		return nil
	}
	return &RemoteError{Op: op, Err: err}
}

// IsNotFound reports whether err means the message or channel does not exist
// (anymore) on discord
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var errD *discordgo.RESTError
	if !errors.As(err, &errD) {
		return false
	}
	if errD.Response != nil && errD.Response.StatusCode == http.StatusNotFound {
		return true
	}
	if errD.Message != nil {
		switch errD.Message.Code {
		case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel:
			return true
		}
	}
	return false
}
