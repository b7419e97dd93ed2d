// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import (
	"errors"
	"fmt"

	"github.com/llehouerou/wavecast/internal/backend"
)

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Startup
	OpConfigLoad  Op = "load configuration"
	OpStorageOpen Op = "open session storage"
	OpInitialize  Op = "initialize player"

	// Session operations
	OpSessionRestore Op = "restore session"
	OpSessionSave    Op = "save session"
	OpSessionClear   Op = "clear session"

	// Queue operations
	OpQueueSet    Op = "replace queue"
	OpQueueAdd    Op = "add to queue"
	OpQueueRemove Op = "remove from queue"

	// Playback operations
	OpPlaybackStart Op = "start playback"
	OpPlaybackPause Op = "pause playback"
	OpPlaybackSkip  Op = "skip track"
	OpPlaybackSeek  Op = "seek"
	OpRatingSet     Op = "rate track"

	// Remote receiver
	OpRemoteConnect    Op = "connect to receiver"
	OpRemoteDisconnect Op = "disconnect from receiver"
	OpRemoteDiscover   Op = "discover receivers"

	// Last.fm
	OpLastfmAuth       Op = "authenticate with Last.fm"
	OpLastfmScrobble   Op = "scrobble"
	OpLastfmNowPlaying Op = "update now playing"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, describe(err))
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, describe(err))
}

// describe shortens backend control errors to their cause.
func describe(err error) error {
	var ce *backend.ControlError
	if !errors.As(err, &ce) {
		return err
	}
	switch {
	case errors.Is(err, backend.ErrNotConnected):
		return errors.New("no receiver connected")
	case errors.Is(err, backend.ErrClosed):
		return errors.New("player is shutting down")
	}
	return fmt.Errorf("%s player: %w", ce.Source, ce.Err)
}
