package notify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/wavecast/internal/playback"
)

func TestNowPlaying(t *testing.T) {
	dir := t.TempDir()
	cover := filepath.Join(dir, "cover.jpg")
	require.NoError(t, os.WriteFile(cover, []byte("img"), 0o600))

	n := nowPlaying(playback.Track{
		Title:   "Song",
		Artists: []string{"A"},
		Album:   "LP",
		URL:     filepath.Join(dir, "song.mp3"),
	}, 7)

	assert.Equal(t, "Song", n.Title)
	assert.Equal(t, "A - LP", n.Body)
	assert.Equal(t, cover, n.Icon)
	assert.Equal(t, uint32(7), n.ReplacesID)
	assert.Equal(t, UrgencyLow, n.Urgency)
	assert.True(t, n.Transient)
	assert.Equal(t, int32(trackTimeout), n.Timeout)
}

func TestNowPlaying_RemoteArtworkIsNotAnIcon(t *testing.T) {
	n := nowPlaying(playback.Track{Title: "Stream", ArtworkURL: "https://cdn/a.jpg"}, 0)
	assert.Empty(t, n.Icon)
	assert.Empty(t, n.Body)
}

func TestDiscard(t *testing.T) {
	id, err := discard{}.Notify(Notification{Title: "x"})
	require.NoError(t, err)
	assert.Zero(t, id)
}
