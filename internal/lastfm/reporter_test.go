package lastfm

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/llehouerou/wavecast/internal/playback"
)

type fakeScrobbler struct {
	mu         sync.Mutex
	authed     bool
	nowPlaying []ScrobbleTrack
	scrobbles  []ScrobbleTrack
	err        error
}

func (f *fakeScrobbler) Linked() bool { return f.authed }

func (f *fakeScrobbler) UpdateNowPlaying(t ScrobbleTrack) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nowPlaying = append(f.nowPlaying, t)
	return f.err
}

func (f *fakeScrobbler) Scrobble(t ScrobbleTrack) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrobbles = append(f.scrobbles, t)
	return f.err
}

func song(id string) playback.Track {
	return playback.Track{
		ID:       id,
		Title:    "Song " + id,
		Artists:  []string{"Artist", "Featured"},
		Album:    "Album",
		Duration: 200 * time.Second,
	}
}

func newTestReporter(t *testing.T, f *fakeScrobbler) *Reporter {
	r := NewReporter(f, zaptest.NewLogger(t))
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return start }
	return r
}

func TestReporter_ScrobblesOncePerActivation(t *testing.T) {
	f := &fakeScrobbler{authed: true}
	r := newTestReporter(t, f)

	r.NowPlaying(song("a"))
	r.NowPlaying(song("a"))
	r.Scrobble(song("a"))
	r.Scrobble(song("a"))
	r.Wait()

	require.Len(t, f.nowPlaying, 1)
	require.Len(t, f.scrobbles, 1)
	got := f.scrobbles[0]
	assert.Equal(t, "Artist", got.Artist)
	assert.Equal(t, "Song a", got.Track)
	assert.Equal(t, "Album", got.Album)
	assert.Equal(t, 200*time.Second, got.Duration)
	assert.Equal(t, 2024, got.Timestamp.Year())

	st := r.State()
	assert.Equal(t, "a", st.TrackID)
	assert.True(t, st.Scrobbled)
	assert.True(t, st.NowPlayingSent)
}

func TestReporter_NewTrackResetsState(t *testing.T) {
	f := &fakeScrobbler{authed: true}
	r := newTestReporter(t, f)

	r.NowPlaying(song("a"))
	r.Scrobble(song("a"))
	r.NowPlaying(song("b"))
	r.Scrobble(song("b"))
	r.Wait()

	assert.Len(t, f.nowPlaying, 2)
	assert.Len(t, f.scrobbles, 2)
	assert.Equal(t, "b", r.State().TrackID)
}

func TestReporter_Unauthenticated(t *testing.T) {
	f := &fakeScrobbler{}
	r := newTestReporter(t, f)

	r.NowPlaying(song("a"))
	r.Scrobble(song("a"))
	r.Wait()

	assert.Empty(t, f.nowPlaying)
	assert.Empty(t, f.scrobbles)
}

func TestReporter_SkipsTracksWithoutArtist(t *testing.T) {
	f := &fakeScrobbler{authed: true}
	r := newTestReporter(t, f)

	r.Scrobble(playback.Track{ID: "x", Title: "Untitled"})
	r.Wait()

	assert.Empty(t, f.scrobbles)
}

func TestReporter_FailureIsNotRetried(t *testing.T) {
	f := &fakeScrobbler{authed: true, err: errors.New("service offline")}
	r := newTestReporter(t, f)

	r.Scrobble(song("a"))
	r.Wait()
	r.Scrobble(song("a"))
	r.Wait()

	assert.Len(t, f.scrobbles, 1)
}

func TestNewScrobbleTrack_FallsBackToAlbumArtist(t *testing.T) {
	st := NewScrobbleTrack(playback.Track{ID: "x", Title: "T", AlbumArtist: "Various"}, time.Time{})
	assert.Equal(t, "Various", st.Artist)
	assert.True(t, st.Valid())
}

func TestScrobbleTrack_Params(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	st := NewScrobbleTrack(playback.Track{
		Title:       "Song",
		Artists:     []string{"Band"},
		Album:       "Album",
		AlbumArtist: "Various",
		Duration:    200 * time.Second,
	}, at)

	np := st.params(false)
	assert.Equal(t, "Band", np["artist"])
	assert.Equal(t, "Song", np["track"])
	assert.Equal(t, "Various", np["albumArtist"])
	assert.Equal(t, 200, np["duration"])
	assert.NotContains(t, np, "timestamp")

	assert.Equal(t, at.Unix(), st.params(true)["timestamp"])

	st.AlbumArtist = "Band"
	assert.NotContains(t, st.params(false), "albumArtist")
}

func TestClient_RequiresLink(t *testing.T) {
	c := New("key", "secret")
	assert.False(t, c.Linked())
	assert.ErrorIs(t, c.Scrobble(ScrobbleTrack{Artist: "a", Track: "b"}), ErrNotLinked)
	assert.ErrorIs(t, c.UpdateNowPlaying(ScrobbleTrack{Artist: "a", Track: "b"}), ErrNotLinked)

	c.Link("sk")
	assert.True(t, c.Linked())
	assert.Equal(t, "https://www.last.fm/api/auth/?api_key=key&token=tok", c.AuthURL("tok"))
}
