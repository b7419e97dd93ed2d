package playback

import (
	"encoding/json"
	"strings"
	"time"
)

// MaxRating is the highest rating a track can hold.
const MaxRating = 5

// Track is one entry of the playing queue.
// Identity is ID; two queue entries with the same ID are the same track.
type Track struct {
	ID          string
	Title       string
	Artists     []string
	Album       string
	AlbumArtist string
	Duration    time.Duration
	URL         string // playable location handed to the backends
	ArtworkURL  string
	Path        string // service-relative path, used for lyrics lookup

	// Display-only technical info.
	Bitrate int
	Size    int64
	Format  string

	Rating    int
	PlayCount int
	Palette   Palette
}

// Palette is the cached set of colors derived from a track's artwork.
type Palette []string

// Artist returns the artists joined for display.
func (t Track) Artist() string {
	return strings.Join(t.Artists, ", ")
}

// Equal reports whether t and o refer to the same track.
func (t Track) Equal(o Track) bool {
	return t.ID == o.ID
}

// WithPlayCount returns a copy of t with its play count set.
func (t Track) WithPlayCount(n int) Track {
	t.PlayCount = max(n, 0)
	return t
}

// WithRating returns a copy of t with a clamped rating.
func (t Track) WithRating(r int) Track {
	t.Rating = ClampRating(r)
	return t
}

// ClampRating bounds r to [0, MaxRating].
func ClampRating(r int) int {
	return min(max(r, 0), MaxRating)
}

type trackJSON struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Artists     []string `json:"artists,omitempty"`
	Album       string   `json:"album,omitempty"`
	AlbumArtist string   `json:"albumArtist,omitempty"`
	Duration    float64  `json:"duration"`
	URL         string   `json:"url"`
	ArtworkURL  string   `json:"artwork,omitempty"`
	Path        string   `json:"path,omitempty"`
	Bitrate     int      `json:"bitrate,omitempty"`
	Size        int64    `json:"size,omitempty"`
	Format      string   `json:"format,omitempty"`
	Rating      int      `json:"rating"`
	PlayCount   int      `json:"plays"`
	Palette     []string `json:"palette,omitempty"`
}

// MarshalJSON encodes the duration as float seconds.
func (t Track) MarshalJSON() ([]byte, error) {
	return json.Marshal(trackJSON{
		ID:          t.ID,
		Title:       t.Title,
		Artists:     t.Artists,
		Album:       t.Album,
		AlbumArtist: t.AlbumArtist,
		Duration:    t.Duration.Seconds(),
		URL:         t.URL,
		ArtworkURL:  t.ArtworkURL,
		Path:        t.Path,
		Bitrate:     t.Bitrate,
		Size:        t.Size,
		Format:      t.Format,
		Rating:      t.Rating,
		PlayCount:   t.PlayCount,
		Palette:     t.Palette,
	})
}

// UnmarshalJSON decodes a track written by MarshalJSON.
func (t *Track) UnmarshalJSON(data []byte) error {
	var j trackJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	*t = Track{
		ID:          j.ID,
		Title:       j.Title,
		Artists:     j.Artists,
		Album:       j.Album,
		AlbumArtist: j.AlbumArtist,
		Duration:    Seconds(j.Duration),
		URL:         j.URL,
		ArtworkURL:  j.ArtworkURL,
		Path:        j.Path,
		Bitrate:     j.Bitrate,
		Size:        j.Size,
		Format:      j.Format,
		Rating:      ClampRating(j.Rating),
		PlayCount:   max(j.PlayCount, 0),
		Palette:     j.Palette,
	}
	return nil
}

// Seconds converts float seconds to a Duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
