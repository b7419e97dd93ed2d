package lastfm

import (
	"time"

	"github.com/shkh/lastfm-go/lastfm"

	"github.com/llehouerou/wavecast/internal/playback"
)

// ScrobbleTrack is the Last.fm view of a queue entry.
type ScrobbleTrack struct {
	Artist      string
	Track       string
	Album       string
	AlbumArtist string
	Duration    time.Duration
	Timestamp   time.Time // activation start
}

// NewScrobbleTrack builds the scrobble payload for t started at startedAt.
func NewScrobbleTrack(t playback.Track, startedAt time.Time) ScrobbleTrack {
	artist := ""
	if len(t.Artists) > 0 {
		artist = t.Artists[0]
	}
	if artist == "" {
		artist = t.AlbumArtist
	}
	return ScrobbleTrack{
		Artist:      artist,
		Track:       t.Title,
		Album:       t.Album,
		AlbumArtist: t.AlbumArtist,
		Duration:    t.Duration,
		Timestamp:   startedAt,
	}
}

// Valid reports whether Last.fm would accept the track.
func (t ScrobbleTrack) Valid() bool {
	return t.Artist != "" && t.Track != ""
}

// params builds the track.* call arguments; scrobbles also carry the
// activation start.
func (t ScrobbleTrack) params(scrobble bool) lastfm.P {
	p := lastfm.P{"artist": t.Artist, "track": t.Track}
	if scrobble {
		p["timestamp"] = t.Timestamp.Unix()
	}
	if t.Album != "" {
		p["album"] = t.Album
	}
	if t.AlbumArtist != "" && t.AlbumArtist != t.Artist {
		p["albumArtist"] = t.AlbumArtist
	}
	if t.Duration > 0 {
		p["duration"] = int(t.Duration.Seconds())
	}
	return p
}

// ScrobbleState tracks the scrobbling status of the current track.
type ScrobbleState struct {
	TrackID        string    // ID of current track (for dedup)
	StartedAt      time.Time // When playback started
	Scrobbled      bool      // Whether this track has been scrobbled
	NowPlayingSent bool      // Whether now playing was sent
}
