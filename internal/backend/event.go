package backend

import "github.com/llehouerou/wavecast/internal/playback"

// Kind identifies the payload carried by an Event.
type Kind int

const (
	TrackChanged Kind = iota + 1
	ProgressUpdated
	StateChanged
	QueueEnded
	Connected
	Disconnected
	MediaStatusUpdated
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case TrackChanged:
		return "TrackChanged"
	case ProgressUpdated:
		return "ProgressUpdated"
	case StateChanged:
		return "StateChanged"
	case QueueEnded:
		return "QueueEnded"
	case Connected:
		return "Connected"
	case Disconnected:
		return "Disconnected"
	case MediaStatusUpdated:
		return "MediaStatus"
	default:
		return "Unknown"
	}
}

// Event is the tagged union every adapter emits. Which fields are meaningful
// depends on Kind:
//
//   - TrackChanged: Index, Track
//   - ProgressUpdated: Progress
//   - StateChanged: State
//   - QueueEnded: none
//   - Connected, MediaStatusUpdated: Status
//   - Disconnected: Err (nil for a requested disconnect)
type Event struct {
	Source   Source
	Kind     Kind
	Index    int
	Track    *playback.Track
	Progress playback.Progress
	State    playback.State
	Status   MediaStatus
	Err      error
}

// Lifecycle reports whether e is a remote connection lifecycle event.
func (e Event) Lifecycle() bool {
	return e.Kind == Connected || e.Kind == Disconnected
}

// NewTrackChanged builds a TrackChanged event.
func NewTrackChanged(src Source, index int, t playback.Track) Event {
	return Event{Source: src, Kind: TrackChanged, Index: index, Track: &t}
}

// NewProgress builds a ProgressUpdated event.
func NewProgress(src Source, p playback.Progress) Event {
	return Event{Source: src, Kind: ProgressUpdated, Progress: p}
}

// NewStateChanged builds a StateChanged event.
func NewStateChanged(src Source, s playback.State) Event {
	return Event{Source: src, Kind: StateChanged, State: s}
}

// NewQueueEnded builds a QueueEnded event.
func NewQueueEnded(src Source) Event {
	return Event{Source: src, Kind: QueueEnded}
}

// NewConnected builds a Connected event carrying the receiver status.
func NewConnected(src Source, s MediaStatus) Event {
	return Event{Source: src, Kind: Connected, Status: s}
}

// NewDisconnected builds a Disconnected event. err is nil when the
// disconnect was requested.
func NewDisconnected(src Source, err error) Event {
	return Event{Source: src, Kind: Disconnected, Err: err}
}

// NewMediaStatus builds a MediaStatusUpdated event.
func NewMediaStatus(src Source, s MediaStatus) Event {
	return Event{Source: src, Kind: MediaStatusUpdated, Status: s}
}
