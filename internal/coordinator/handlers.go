package coordinator

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/llehouerou/wavecast/internal/backend"
	"github.com/llehouerou/wavecast/internal/lyrics"
	"github.com/llehouerou/wavecast/internal/metadata"
	"github.com/llehouerou/wavecast/internal/playback"
)

func (c *Coordinator) onEvent(e backend.Event) {
	if e.Lifecycle() {
		if e.Source == backend.Remote {
			c.onLifecycle(e)
		}
		return
	}

	if !c.isAuthoritative(e.Source) {
		// Local stays the durable queue owner while muted behind a receiver.
		if e.Source == backend.Local {
			switch e.Kind {
			case backend.TrackChanged:
				c.schedulePersist()
			case backend.QueueEnded:
				c.clearPersisted()
			}
		}
		return
	}

	switch e.Kind {
	case backend.TrackChanged:
		c.onTrackChanged(e)
	case backend.ProgressUpdated:
		c.onProgress(e.Progress)
	case backend.StateChanged:
		c.store.SetPlaybackState(e.State)
	case backend.QueueEnded:
		c.onQueueEnded()
	case backend.MediaStatusUpdated:
		c.store.SetPlaybackState(e.Status.State)
		if e.Status.State.IsActive() {
			c.store.SetProgress(e.Status.Progress)
		}
	}
}

func (c *Coordinator) onLifecycle(e backend.Event) {
	switch e.Kind {
	case backend.Connected:
		c.onConnected(e.Status)
	case backend.Disconnected:
		c.onDisconnected(e.Err)
	}
}

// onConnected hands playback to the receiver. A receiver that already holds
// a queue keeps it; otherwise the local session is pushed to it.
func (c *Coordinator) onConnected(status backend.MediaStatus) {
	ctx, cancel := c.callCtx()
	defer cancel()

	if !status.Empty() {
		c.log.Info("adopting receiver session",
			zap.Int("queue", status.QueueLength),
			zap.Stringer("state", status.State))
		c.mute(ctx)
		c.adopt(ctx, status)
		c.setAuthority(RemoteAuthoritative)
		return
	}

	snap := c.store.Snapshot()
	c.mute(ctx)
	if len(snap.Queue) == 0 {
		c.setAuthority(RemoteAuthoritative)
		return
	}

	err := c.handOff(ctx, snap.Queue, snap.ActiveIndex, snap.Progress.Position)
	if err != nil {
		c.log.Warn("hand-off to receiver failed, staying local", zap.Error(err))
		c.unmute(ctx)
		return
	}
	c.setAuthority(RemoteAuthoritative)
}

// handOff pushes queue to the receiver and starts it at idx and pos.
// adopt takes over the receiver's queue and current track as a new
// activation. A position already past the threshold counts as registered.
func (c *Coordinator) adopt(ctx context.Context, status backend.MediaStatus) {
	q, err := c.remote.Queue(ctx)
	if err != nil {
		c.log.Warn("read receiver queue", zap.Error(err))
		q = nil
	}
	idx := status.Index
	if !playback.ValidIndex(idx, len(q)) {
		idx = playback.NoIndex
	}
	c.store.SetQueue(q)
	c.store.SetActiveTrackIndex(idx)
	c.store.SetPlaybackState(status.State)
	c.store.SetProgress(status.Progress)

	t, ok := c.store.ActiveTrack()
	if !ok {
		c.active = noActive
		c.activation.Reset("")
		return
	}
	c.active = activeKey{index: idx, id: t.ID}
	c.beginActivation(t, status.State == playback.StatePlaying)
	c.activation.TryClaim(status.Progress.Position)
}

func (c *Coordinator) handOff(ctx context.Context, queue []playback.Track, idx int, pos time.Duration) error {
	if err := c.remote.SetQueue(ctx, queue); err != nil {
		return err
	}
	if err := c.remote.SkipTo(ctx, playback.NormalizeIndex(idx, len(queue))); err != nil {
		return err
	}
	if pos > 0 {
		if err := c.remote.SeekTo(ctx, pos); err != nil {
			return err
		}
	}
	return c.remote.Play(ctx)
}

func (c *Coordinator) onDisconnected(cause error) {
	ctx, cancel := c.callCtx()
	defer cancel()

	if cause != nil {
		c.log.Warn("receiver lost", zap.Error(cause))
	}
	c.unmute(ctx)
	c.setAuthority(LocalAuthoritative)
}

func (c *Coordinator) mute(ctx context.Context) {
	if err := c.local.SetVolume(ctx, 0); err != nil {
		c.log.Warn("mute local", zap.Error(err))
	}
}

func (c *Coordinator) unmute(ctx context.Context) {
	if err := c.local.SetVolume(ctx, 1); err != nil {
		c.log.Warn("unmute local", zap.Error(err))
	}
}

// onTrackChanged applies an authoritative track change. A repeated
// announcement of the current activation only refreshes the queue.
func (c *Coordinator) onTrackChanged(e backend.Event) {
	ctx, cancel := c.callCtx()
	defer cancel()
	b := c.backendFor(e.Source)

	idx, err := b.ActiveIndex(ctx)
	if err != nil {
		c.log.Debug("read active index", zap.Error(err))
		idx = e.Index
	}
	if idx != e.Index || e.Track == nil {
		// A newer change is already queued behind this one.
		c.log.Debug("superseded track change",
			zap.Int("event", e.Index),
			zap.Int("current", idx))
		c.syncQueue(ctx, b, idx, nil)
		c.schedulePersist()
		return
	}

	c.syncQueue(ctx, b, idx, e.Track)

	key := activeKey{index: idx, id: e.Track.ID}
	if key != c.active {
		c.active = key
		c.beginActivation(*e.Track, true)
	}
	c.schedulePersist()
}

// syncQueue copies the queue and index of b into the store, falling back to
// the event payload when b cannot be read.
func (c *Coordinator) syncQueue(ctx context.Context, b backend.Adapter, idx int, t *playback.Track) {
	q, err := b.Queue(ctx)
	if err != nil {
		c.log.Debug("read queue", zap.Stringer("source", b.Source()), zap.Error(err))
		q = c.store.Queue()
		if t != nil && !playback.ValidIndex(idx, len(q)) {
			q = []playback.Track{*t}
			idx = 0
		}
	}
	c.store.SetQueue(q)
	c.store.SetActiveTrackIndex(idx)
}

// beginActivation starts tracking a newly active track: registration flag,
// lyrics, palette and now-playing.
func (c *Coordinator) beginActivation(t playback.Track, announce bool) {
	c.activation.Reset(t.ID)
	c.log.Debug("activation", zap.String("track", t.ID), zap.String("title", t.Title))

	c.store.SetLyricsVisible(false)
	c.fetchLyrics(t)
	c.fetchPalette(t)
	if announce && c.scrobbler != nil {
		c.scrobbler.NowPlaying(t)
	}
}

func (c *Coordinator) fetchLyrics(t playback.Track) {
	if c.meta == nil || t.Path == "" {
		c.store.SetLyrics("", nil)
		return
	}
	meta, id, path := c.meta, t.ID, t.Path
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		text, err := meta.Lyrics(ctx, path)
		c.post(lyricsResult{trackID: id, text: text, err: err})
	}()
}

func (c *Coordinator) onLyrics(r lyricsResult) {
	if !c.isActive(r.trackID) {
		c.log.Debug("discard stale lyrics", zap.String("track", r.trackID))
		return
	}
	if r.err != nil {
		if !errors.Is(r.err, metadata.ErrNotFound) {
			c.log.Debug("fetch lyrics", zap.String("track", r.trackID), zap.Error(r.err))
		}
		c.store.SetLyrics("", nil)
		c.store.SetLyricsVisible(false)
		return
	}
	parsed := lyrics.Parse(r.text)
	c.store.SetLyrics(r.text, parsed.Lines)
	c.store.SetLyricsVisible(len(parsed.Lines) > 0)
}

func (c *Coordinator) fetchPalette(t playback.Track) {
	if c.palettes == nil || len(t.Palette) > 0 || t.ArtworkURL == "" {
		return
	}
	src := c.palettes
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		p, err := src.Palette(ctx, t)
		c.post(paletteResult{trackID: t.ID, palette: p, err: err})
	}()
}

func (c *Coordinator) onPalette(r paletteResult) {
	if !c.isActive(r.trackID) {
		c.log.Debug("discard stale palette", zap.String("track", r.trackID))
		return
	}
	if r.err != nil {
		c.log.Debug("extract palette", zap.String("track", r.trackID), zap.Error(r.err))
		return
	}
	c.store.SetPalette(r.trackID, r.palette)
}

func (c *Coordinator) isActive(id string) bool {
	t, ok := c.store.ActiveTrack()
	return ok && t.ID == id
}

// onProgress records progress and registers a play once per activation.
func (c *Coordinator) onProgress(p playback.Progress) {
	c.store.SetProgress(p)

	t, ok := c.store.ActiveTrack()
	if !ok || t.ID != c.activation.TrackID() {
		return
	}
	if !c.activation.TryClaim(p.Position) {
		return
	}
	c.registerPlay(t)
}

func (c *Coordinator) registerPlay(t playback.Track) {
	count := t.PlayCount + 1
	c.log.Info("play registered", zap.String("track", t.ID), zap.Int("plays", count))
	c.store.SetTrackPlayCount(t.ID, count)
	c.updateLocalTrack(t.WithPlayCount(count))

	if c.meta != nil {
		meta, id := c.meta, t.ID
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
			defer cancel()
			plays, err := meta.ReportPlay(ctx, id)
			c.post(reportResult{trackID: id, plays: plays, err: err})
		}()
	}
	if c.scrobbler != nil {
		c.scrobbler.Scrobble(t)
	}
}

// updateLocalTrack pushes per-track metadata of the active entry to the
// local backend when the local queue holds that track at the same index.
func (c *Coordinator) updateLocalTrack(t playback.Track) {
	idx := c.store.ActiveIndex()
	if idx == playback.NoIndex {
		return
	}
	ctx, cancel := c.callCtx()
	defer cancel()
	q, err := c.local.Queue(ctx)
	if err != nil || !playback.ValidIndex(idx, len(q)) || q[idx].ID != t.ID {
		return
	}
	if err := c.local.UpdateTrack(ctx, idx, t); err != nil {
		c.log.Debug("update local track", zap.String("track", t.ID), zap.Error(err))
	}
}

// onReport reconciles the service's play count. The local increment is
// never rolled back.
func (c *Coordinator) onReport(r reportResult) {
	if r.err != nil {
		c.log.Warn("report play", zap.String("track", r.trackID), zap.Error(r.err))
		return
	}
	t, ok := c.store.ActiveTrack()
	if !ok || t.ID != r.trackID || r.plays <= t.PlayCount {
		return
	}
	c.store.SetTrackPlayCount(r.trackID, r.plays)
	c.updateLocalTrack(t.WithPlayCount(r.plays))
}

func (c *Coordinator) onQueueEnded() {
	c.log.Info("queue ended")
	c.active = noActive
	c.clearPersisted()
	c.store.SetPlaybackState(playback.StateEnded)
}

// clearPersisted drops any armed save and deletes the persisted session.
func (c *Coordinator) clearPersisted() {
	c.cancelPersist()
	if c.gateway == nil {
		return
	}
	ctx, cancel := c.callCtx()
	defer cancel()
	if err := c.gateway.Clear(ctx); err != nil {
		c.log.Warn("clear persisted session", zap.Error(err))
	}
}
