package lastfm

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/llehouerou/wavecast/internal/kv"
)

// Storage keys of the linked account.
const (
	KeyUsername   = "lastfm.username"
	KeySessionKey = "lastfm.sessionKey"
	KeyLinkedAt   = "lastfm.linkedAt"
)

// Session is a linked Last.fm account.
type Session struct {
	Username   string
	SessionKey string
	LinkedAt   time.Time
}

// LoadSession returns the stored session, or nil if no account is linked.
func LoadSession(ctx context.Context, store kv.Store) (*Session, error) {
	key, err := store.Get(ctx, KeySessionKey)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil //nolint:nilnil // nil session means not linked, not an error
	}
	if err != nil {
		return nil, err
	}

	s := &Session{SessionKey: key}
	if name, err := store.Get(ctx, KeyUsername); err == nil {
		s.Username = name
	}
	if raw, err := store.Get(ctx, KeyLinkedAt); err == nil {
		if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
			s.LinkedAt = time.Unix(unix, 0)
		}
	}
	return s, nil
}

// SaveSession stores the session after a successful login.
func SaveSession(ctx context.Context, store kv.Store, username, sessionKey string) error {
	return store.Set(ctx, map[string]string{
		KeyUsername:   username,
		KeySessionKey: sessionKey,
		KeyLinkedAt:   strconv.FormatInt(time.Now().Unix(), 10),
	})
}

// DeleteSession unlinks the account.
func DeleteSession(ctx context.Context, store kv.Store) error {
	return store.Delete(ctx, KeyUsername, KeySessionKey, KeyLinkedAt)
}
