// Package session holds the in-memory model of the now-playing session.
//
// Store has no I/O and no package-level instance: the coordinator owns one
// and is its only writer. Observers read snapshots or subscribe to changes.
package session

import (
	"slices"
	"sync"

	"github.com/llehouerou/wavecast/internal/lyrics"
	"github.com/llehouerou/wavecast/internal/playback"
)

// Snapshot is an immutable view of the session. Slices are never shared
// with the store or with other snapshots.
type Snapshot struct {
	Queue         []playback.Track
	ActiveIndex   int
	State         playback.State
	Progress      playback.Progress
	Rating        int
	PlayCount     int
	Palette       playback.Palette
	Lyrics        string
	LyricsLines   []lyrics.Line
	LyricsVisible bool
}

// ActiveTrack returns the active track, or false when the queue is empty.
func (s Snapshot) ActiveTrack() (playback.Track, bool) {
	return playback.TrackAt(s.Queue, s.ActiveIndex)
}

func (s Snapshot) clone() Snapshot {
	s.Queue = playback.CloneQueue(s.Queue)
	s.Palette = slices.Clone(s.Palette)
	s.LyricsLines = slices.Clone(s.LyricsLines)
	return s
}

// Store is the authoritative session model.
type Store struct {
	mu   sync.RWMutex
	snap Snapshot

	subsMu sync.Mutex
	subs   []*Subscription
}

// NewStore creates an empty, idle store.
func NewStore() *Store {
	return &Store{snap: Snapshot{ActiveIndex: playback.NoIndex, State: playback.StateIdle}}
}

// update applies fn to a copy of the current snapshot, installs it and
// notifies subscribers.
func (s *Store) update(fn func(*Snapshot)) {
	s.mu.Lock()
	next := s.snap.clone()
	fn(&next)
	s.snap = next
	s.mu.Unlock()

	s.notify(next)
}

// Actions

// SetQueue replaces the queue and re-validates the active index.
func (s *Store) SetQueue(tracks []playback.Track) {
	s.update(func(n *Snapshot) {
		n.Queue = playback.CloneQueue(tracks)
		n.ActiveIndex = playback.NormalizeIndex(n.ActiveIndex, len(n.Queue))
		n.syncActiveReadModel()
	})
}

// SetActiveTrackIndex moves the active index. Out-of-range values are
// clamped; an empty queue always yields NoIndex.
func (s *Store) SetActiveTrackIndex(idx int) {
	s.update(func(n *Snapshot) {
		n.ActiveIndex = playback.NormalizeIndex(idx, len(n.Queue))
		n.syncActiveReadModel()
	})
}

// SetPlaybackState sets the playback state.
func (s *Store) SetPlaybackState(st playback.State) {
	s.update(func(n *Snapshot) { n.State = st })
}

// SetProgress sets the progress of the active track.
func (s *Store) SetProgress(p playback.Progress) {
	s.update(func(n *Snapshot) { n.Progress = p })
}

// SetTrackRating sets the rating of every queue entry with id.
func (s *Store) SetTrackRating(id string, rating int) {
	rating = playback.ClampRating(rating)
	s.update(func(n *Snapshot) {
		for i := range n.Queue {
			if n.Queue[i].ID == id {
				n.Queue[i].Rating = rating
			}
		}
		n.syncActiveReadModel()
	})
}

// SetTrackPlayCount sets the play count of every queue entry with id.
func (s *Store) SetTrackPlayCount(id string, count int) {
	count = max(count, 0)
	s.update(func(n *Snapshot) {
		for i := range n.Queue {
			if n.Queue[i].ID == id {
				n.Queue[i].PlayCount = count
			}
		}
		n.syncActiveReadModel()
	})
}

// SetPalette caches a palette on every queue entry with id.
func (s *Store) SetPalette(id string, p playback.Palette) {
	s.update(func(n *Snapshot) {
		for i := range n.Queue {
			if n.Queue[i].ID == id {
				n.Queue[i].Palette = slices.Clone(p)
			}
		}
		n.syncActiveReadModel()
	})
}

// SetLyrics replaces the lyrics text and its parsed lines.
func (s *Store) SetLyrics(text string, lines []lyrics.Line) {
	s.update(func(n *Snapshot) {
		n.Lyrics = text
		n.LyricsLines = slices.Clone(lines)
	})
}

// SetLyricsVisible toggles lyrics visibility.
func (s *Store) SetLyricsVisible(visible bool) {
	s.update(func(n *Snapshot) { n.LyricsVisible = visible })
}

// Reset returns the store to its initial empty, idle state.
func (s *Store) Reset() {
	s.update(func(n *Snapshot) {
		*n = Snapshot{ActiveIndex: playback.NoIndex, State: playback.StateIdle}
	})
}

// syncActiveReadModel copies the active track's counters into the read model.
func (n *Snapshot) syncActiveReadModel() {
	t, ok := n.ActiveTrack()
	if !ok {
		n.Rating, n.PlayCount, n.Palette = 0, 0, nil
		return
	}
	n.Rating = t.Rating
	n.PlayCount = t.PlayCount
	n.Palette = slices.Clone(t.Palette)
}

// Reads

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.clone()
}

// Queue returns a copy of the queue.
func (s *Store) Queue() []playback.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return playback.CloneQueue(s.snap.Queue)
}

// ActiveIndex returns the active index or NoIndex.
func (s *Store) ActiveIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.ActiveIndex
}

// ActiveTrack returns the active track, or false when the queue is empty.
func (s *Store) ActiveTrack() (playback.Track, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.ActiveTrack()
}

// State returns the playback state.
func (s *Store) State() playback.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.State
}

// Progress returns the active track's progress.
func (s *Store) Progress() playback.Progress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Progress
}

func (s *Store) Rating() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Rating
}

func (s *Store) PlayCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.PlayCount
}

func (s *Store) Palette() playback.Palette {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.snap.Palette)
}

func (s *Store) Lyrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Lyrics
}

func (s *Store) LyricsVisible() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.LyricsVisible
}

// IsEmpty reports whether the queue holds no track.
func (s *Store) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snap.Queue) == 0
}
