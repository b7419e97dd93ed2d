// Package notify announces track changes as freedesktop desktop
// notifications.
package notify

import (
	"strings"

	"github.com/llehouerou/wavecast/internal/artwork"
	"github.com/llehouerou/wavecast/internal/playback"
)

// Urgency is the freedesktop urgency hint.
type Urgency byte

const (
	UrgencyLow Urgency = iota
	UrgencyNormal
	UrgencyCritical
)

// trackTimeout is how long a now-playing popup stays up, in ms.
const trackTimeout = 5000

// Notification is one popup. A non-zero ReplacesID updates that popup in
// place instead of stacking a new one.
type Notification struct {
	Title      string
	Body       string
	Icon       string // image path or icon name
	Timeout    int32  // ms; -1 leaves it to the server
	ReplacesID uint32
	Urgency    Urgency
	Transient  bool // keep out of the notification history
}

// Notifier shows a notification and returns the id the server gave it.
// Without a notification server Notify returns 0 and no error.
type Notifier interface {
	Notify(n Notification) (uint32, error)
}

type discard struct{}

func (discard) Notify(Notification) (uint32, error) { return 0, nil }

// nowPlaying builds the popup for t, replacing the one shown for the
// previous track.
func nowPlaying(t playback.Track, replaces uint32) Notification {
	var body []string
	if artist := t.Artist(); artist != "" {
		body = append(body, artist)
	}
	if t.Album != "" {
		body = append(body, t.Album)
	}
	return Notification{
		Title:      t.Title,
		Body:       strings.Join(body, " - "),
		Icon:       artwork.Path(t),
		Timeout:    trackTimeout,
		ReplacesID: replaces,
		Urgency:    UrgencyLow,
		Transient:  true,
	}
}
