package local

import (
	"slices"

	"github.com/llehouerou/wavecast/internal/playback"
)

// Queue is an ordered track list with a current position.
type Queue struct {
	tracks       []playback.Track
	currentIndex int // playback.NoIndex if empty
}

// NewQueue creates a new empty queue.
func NewQueue() *Queue {
	return &Queue{currentIndex: playback.NoIndex}
}

// Current returns the current track, or false if none.
func (q *Queue) Current() (playback.Track, bool) {
	return playback.TrackAt(q.tracks, q.currentIndex)
}

// CurrentIndex returns the index of the current track (NoIndex if none).
func (q *Queue) CurrentIndex() int {
	return q.currentIndex
}

// HasNext returns true if there's a track after the current one.
func (q *Queue) HasNext() bool {
	return q.currentIndex < len(q.tracks)-1
}

// Next advances to the next track and returns it.
// Returns false if there is no next track.
func (q *Queue) Next() (playback.Track, bool) {
	if !q.HasNext() {
		return playback.Track{}, false
	}
	q.currentIndex++
	return q.Current()
}

// JumpTo sets the current index. It returns false for an invalid index.
func (q *Queue) JumpTo(index int) (playback.Track, bool) {
	if !playback.ValidIndex(index, len(q.tracks)) {
		return playback.Track{}, false
	}
	q.currentIndex = index
	return q.Current()
}

// Replace swaps in tracks and sets the index to 0 (NoIndex if empty).
func (q *Queue) Replace(tracks []playback.Track) {
	q.tracks = playback.CloneQueue(tracks)
	q.currentIndex = playback.NormalizeIndex(0, len(q.tracks))
}

// Insert adds track at index at; an out-of-range index appends. The current
// track keeps its identity, so the index shifts when inserting before it.
func (q *Queue) Insert(track playback.Track, at int) int {
	if at < 0 || at > len(q.tracks) {
		at = len(q.tracks)
	}
	q.tracks = slices.Insert(q.tracks, at, track)
	switch {
	case q.currentIndex == playback.NoIndex:
		q.currentIndex = 0
	case at <= q.currentIndex:
		q.currentIndex++
	}
	return at
}

// RemoveAt removes the track at index and adjusts the current index.
// It reports whether the current track was the one removed.
func (q *Queue) RemoveAt(index int) (removedCurrent, ok bool) {
	if !playback.ValidIndex(index, len(q.tracks)) {
		return false, false
	}
	q.tracks = slices.Delete(q.tracks, index, index+1)

	switch {
	case q.currentIndex > index:
		q.currentIndex--
	case q.currentIndex == index:
		// Removed current track - stay at same index (now points to next)
		removedCurrent = true
		q.currentIndex = playback.NormalizeIndex(q.currentIndex, len(q.tracks))
	}
	return removedCurrent, true
}

// Update replaces the track at index.
func (q *Queue) Update(index int, track playback.Track) bool {
	if !playback.ValidIndex(index, len(q.tracks)) {
		return false
	}
	q.tracks[index] = track
	return true
}

// Tracks returns a copy of all tracks.
func (q *Queue) Tracks() []playback.Track {
	return playback.CloneQueue(q.tracks)
}

// Len returns the number of tracks in the queue.
func (q *Queue) Len() int {
	return len(q.tracks)
}

// IsEmpty returns true if the queue has no tracks.
func (q *Queue) IsEmpty() bool {
	return len(q.tracks) == 0
}
