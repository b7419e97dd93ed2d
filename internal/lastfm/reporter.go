package lastfm

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/llehouerou/wavecast/internal/playback"
)

// Scrobbler is the part of Client the Reporter needs.
type Scrobbler interface {
	Linked() bool
	UpdateNowPlaying(track ScrobbleTrack) error
	Scrobble(track ScrobbleTrack) error
}

// Reporter sends now-playing updates and scrobbles in the background,
// at most once each per track activation.
type Reporter struct {
	client Scrobbler
	log    *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	state ScrobbleState
	wg    sync.WaitGroup
}

// NewReporter creates a reporter. A nil logger discards output.
func NewReporter(client Scrobbler, log *zap.Logger) *Reporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reporter{client: client, log: log.Named("lastfm"), now: time.Now}
}

// NowPlaying starts a new activation for t and announces it.
func (r *Reporter) NowPlaying(t playback.Track) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.TrackID == t.ID && r.state.NowPlayingSent {
		return
	}
	r.state = ScrobbleState{TrackID: t.ID, StartedAt: r.now(), NowPlayingSent: true}
	st := NewScrobbleTrack(t, r.state.StartedAt)
	r.send("now playing", t.ID, st, r.client.UpdateNowPlaying)
}

// Scrobble submits t once for the current activation.
func (r *Reporter) Scrobble(t playback.Track) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.TrackID != t.ID {
		r.state = ScrobbleState{TrackID: t.ID, StartedAt: r.now()}
	}
	if r.state.Scrobbled {
		return
	}
	r.state.Scrobbled = true
	st := NewScrobbleTrack(t, r.state.StartedAt)
	r.send("scrobble", t.ID, st, r.client.Scrobble)
}

// State returns the scrobble state of the current activation.
func (r *Reporter) State() ScrobbleState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Wait blocks until in-flight requests finish.
func (r *Reporter) Wait() {
	r.wg.Wait()
}

func (r *Reporter) send(what, id string, st ScrobbleTrack, fn func(ScrobbleTrack) error) {
	if !r.client.Linked() {
		return
	}
	if !st.Valid() {
		r.log.Debug("skip "+what+": missing artist or title", zap.String("track", id))
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := fn(st); err != nil {
			r.log.Warn(what+" failed", zap.String("track", id), zap.Error(err))
			return
		}
		r.log.Debug(what+" sent", zap.String("track", id))
	}()
}
