package playback

import "time"

// NoIndex is the active index of an empty queue.
const NoIndex = -1

// Progress is the playback position inside the active track.
type Progress struct {
	Position time.Duration
	Buffered time.Duration
	Duration time.Duration
}

// CloneQueue returns a copy of q that shares no backing array with it.
func CloneQueue(q []Track) []Track {
	if q == nil {
		return nil
	}
	out := make([]Track, len(q))
	copy(out, q)
	return out
}

// NormalizeIndex enforces the active index invariant for a queue of length n:
// NoIndex when empty, otherwise a value in [0, n).
func NormalizeIndex(idx, n int) int {
	if n == 0 {
		return NoIndex
	}
	if idx < 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	return idx
}

// ValidIndex reports whether idx addresses an entry of a queue of length n.
func ValidIndex(idx, n int) bool {
	return idx >= 0 && idx < n
}

// TrackAt returns the track at idx, or false if idx is out of range.
func TrackAt(q []Track, idx int) (Track, bool) {
	if !ValidIndex(idx, len(q)) {
		return Track{}, false
	}
	return q[idx], true
}
