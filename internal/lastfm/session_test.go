package lastfm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/wavecast/internal/kv"
)

func TestLoadSession_NotLinked(t *testing.T) {
	s, err := LoadSession(context.Background(), kv.NewMemory())
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestSaveLoadDeleteSession(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()

	require.NoError(t, SaveSession(ctx, store, "alice", "sk-123"))

	s, err := LoadSession(ctx, store)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "alice", s.Username)
	assert.Equal(t, "sk-123", s.SessionKey)
	assert.False(t, s.LinkedAt.IsZero())

	require.NoError(t, DeleteSession(ctx, store))
	s, err = LoadSession(ctx, store)
	require.NoError(t, err)
	assert.Nil(t, s)
}
