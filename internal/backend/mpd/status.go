package mpd

import (
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/fhs/gompd/v2/mpd"

	"github.com/llehouerou/wavecast/internal/backend"
	"github.com/llehouerou/wavecast/internal/playback"
)

// parseStatus normalizes the attributes of an MPD "status" response.
//
// MPD reports "stop" both before anything played and after the last song
// finished; the latter has a non-empty playlist but no current song.
func parseStatus(attrs mpd.Attrs) backend.MediaStatus {
	s := backend.MediaStatus{
		QueueLength: atoi(attrs["playlistlength"], 0),
		Index:       atoi(attrs["song"], playback.NoIndex),
	}
	if !playback.ValidIndex(s.Index, s.QueueLength) {
		s.Index = playback.NoIndex
	}

	switch attrs["state"] {
	case "play":
		s.State = playback.StatePlaying
	case "pause":
		s.State = playback.StatePaused
	default:
		switch {
		case s.QueueLength == 0:
			s.State = playback.StateIdle
		case s.Index == playback.NoIndex:
			s.State = playback.StateEnded
		default:
			s.State = playback.StateStopped
		}
	}

	elapsed, duration := parseTimes(attrs)
	s.Progress = playback.Progress{
		Position: elapsed,
		Buffered: duration,
		Duration: duration,
	}
	return s
}

// parseTimes reads elapsed and duration, falling back to the legacy
// "time" attribute ("elapsed:total" in whole seconds).
func parseTimes(attrs mpd.Attrs) (elapsed, duration time.Duration) {
	elapsed = seconds(attrs["elapsed"])
	duration = seconds(attrs["duration"])
	if legacy, ok := attrs["time"]; ok && (elapsed == 0 || duration == 0) {
		e, d, _ := strings.Cut(legacy, ":")
		if elapsed == 0 {
			elapsed = seconds(e)
		}
		if duration == 0 {
			duration = seconds(d)
		}
	}
	return elapsed, duration
}

// toTrack builds a queue entry from a playlistinfo item.
func toTrack(attrs mpd.Attrs) playback.Track {
	file := attrs["file"]
	t := playback.Track{
		ID:          file,
		Title:       attrs["Title"],
		Album:       attrs["Album"],
		AlbumArtist: attrs["AlbumArtist"],
		URL:         file,
		Duration:    seconds(attrs["duration"]),
		Format:      strings.TrimPrefix(strings.ToLower(path.Ext(file)), "."),
	}
	if t.Duration == 0 {
		t.Duration = seconds(attrs["Time"])
	}
	if t.Title == "" {
		t.Title = path.Base(file)
	}
	if artist := attrs["Artist"]; artist != "" {
		t.Artists = []string{artist}
	}
	return t
}

func atoi(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func seconds(s string) time.Duration {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0
	}
	return playback.Seconds(f)
}
