package lastfm

import (
	"errors"
	"fmt"
	"time"

	"github.com/shkh/lastfm-go/lastfm"
)

const authURL = "https://www.last.fm/api/auth/?api_key=%s&token=%s"

// ErrNotLinked is returned by calls that need a linked account.
var ErrNotLinked = errors.New("no Last.fm account linked")

// Client talks to Last.fm for one API account and, once linked, one user.
type Client struct {
	api    *lastfm.Api
	apiKey string
	linked bool
}

// New creates a client for the given API credentials.
func New(apiKey, apiSecret string) *Client {
	return &Client{api: lastfm.New(apiKey, apiSecret), apiKey: apiKey}
}

// Link uses sessionKey, as returned by Authorize, for later calls.
func (c *Client) Link(sessionKey string) {
	c.api.SetSession(sessionKey)
	c.linked = sessionKey != ""
}

// Linked reports whether a session key is set.
func (c *Client) Linked() bool { return c.linked }

// RequestToken starts the desktop auth flow.
func (c *Client) RequestToken() (string, error) {
	token, err := c.api.GetToken()
	if err != nil {
		return "", fmt.Errorf("request token: %w", err)
	}
	return token, nil
}

// AuthURL is the page where the user approves token.
func (c *Client) AuthURL(token string) string {
	return fmt.Sprintf(authURL, c.apiKey, token)
}

// Authorize trades an approved token for a session and links the client.
// A failed user lookup leaves the username empty.
func (c *Client) Authorize(token string) (Session, error) {
	if err := c.api.LoginWithToken(token); err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	s := Session{SessionKey: c.api.GetSessionKey(), LinkedAt: time.Now()}
	c.Link(s.SessionKey)

	if info, err := c.api.User.GetInfo(nil); err == nil {
		s.Username = info.Name
	}
	return s, nil
}

// UpdateNowPlaying announces st as the track being listened to.
func (c *Client) UpdateNowPlaying(st ScrobbleTrack) error {
	if !c.linked {
		return ErrNotLinked
	}
	if _, err := c.api.Track.UpdateNowPlaying(st.params(false)); err != nil {
		return fmt.Errorf("update now playing: %w", err)
	}
	return nil
}

// Scrobble records a listen of st.
func (c *Client) Scrobble(st ScrobbleTrack) error {
	if !c.linked {
		return ErrNotLinked
	}
	if _, err := c.api.Track.Scrobble(st.params(true)); err != nil {
		return fmt.Errorf("scrobble: %w", err)
	}
	return nil
}
