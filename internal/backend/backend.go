// Package backend defines the contract shared by the playback backends the
// session coordinator drives: the on-device engine and a remote receiver.
package backend

import (
	"context"
	"time"

	"github.com/llehouerou/wavecast/internal/playback"
)

// Source tags which backend an event or error comes from.
type Source int

const (
	Local Source = iota
	Remote
)

// String returns the source name.
func (s Source) String() string {
	switch s {
	case Local:
		return "local"
	case Remote:
		return "remote"
	default:
		return "unknown"
	}
}

// Adapter is the control surface and event stream of one playback backend.
// Every control call either succeeds or returns a *ControlError.
type Adapter interface {
	Source() Source

	SetQueue(ctx context.Context, tracks []playback.Track) error
	// Add inserts track at index at; a negative index appends.
	Add(ctx context.Context, track playback.Track, at int) error
	Remove(ctx context.Context, index int) error
	SkipTo(ctx context.Context, index int) error
	SeekTo(ctx context.Context, position time.Duration) error
	SetVolume(ctx context.Context, level float64) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error

	Queue(ctx context.Context) ([]playback.Track, error)
	ActiveIndex(ctx context.Context) (int, error)

	// Events delivers events in emission order. It is closed by Close.
	Events() <-chan Event
	Close() error
}

// LocalBackend is the on-device backend. It stays the durable owner of the queue
// even while a remote receiver renders audio.
type LocalBackend interface {
	Adapter
	// UpdateTrack replaces per-track metadata (rating, play count) at index.
	UpdateTrack(ctx context.Context, index int, track playback.Track) error
}

// RemoteBackend is a discoverable receiver with an explicit connection lifecycle.
type RemoteBackend interface {
	Adapter
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	MediaStatus(ctx context.Context) (MediaStatus, error)
}

// MediaStatus is a receiver's native state, normalized.
type MediaStatus struct {
	QueueLength int
	Index       int
	State       playback.State
	Progress    playback.Progress
}

// Empty reports whether the receiver holds no queue.
func (s MediaStatus) Empty() bool {
	return s.QueueLength == 0
}
