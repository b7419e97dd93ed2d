package player

import "time"

// Interface is the engine contract the local backend drives.
type Interface interface {
	// Play loads location and starts playback.
	Play(location string) error
	// Load loads location paused at the start.
	Load(location string) error
	Stop()
	Pause()
	Resume()
	State() State
	Position() time.Duration
	Duration() time.Duration
	SeekTo(position time.Duration) error
	SetVolume(level float64)
	Volume() float64
	// FinishedChan receives once each time a loaded track plays to its end.
	FinishedChan() <-chan struct{}
}

// Verify Player implements Interface at compile time.
var _ Interface = (*Player)(nil)
