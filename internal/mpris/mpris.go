//go:build linux

package mpris

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"
	"go.uber.org/zap"

	"github.com/llehouerou/wavecast/internal/artwork"
	"github.com/llehouerou/wavecast/internal/playback"
	"github.com/llehouerou/wavecast/internal/session"
)

const busName = "wavecast"

// controlTimeout bounds a control call issued from D-Bus.
const controlTimeout = 5 * time.Second

// Adapter exposes the session over MPRIS on the D-Bus session bus.
type Adapter struct {
	server *server.Server
}

// New creates and starts a new MPRIS adapter.
func New(store *session.Store, ctrl Controller, log *zap.Logger) (*Adapter, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &Adapter{
		server: server.NewServer(busName, &rootAdapter{}, newPlayerAdapter(store, ctrl)),
	}
	log = log.Named("mpris")

	go func() {
		if err := a.server.Listen(); err != nil {
			log.Warn("mpris server stopped", zap.Error(err))
		}
	}()

	return a, nil
}

// Close stops the adapter and releases D-Bus resources.
func (a *Adapter) Close() error {
	return a.server.Stop()
}

// rootAdapter implements OrgMprisMediaPlayer2Adapter.
type rootAdapter struct{}

func (r *rootAdapter) Raise() error {
	return nil // Not supported
}

func (r *rootAdapter) Quit() error {
	return nil // Not supported - app manages its own lifecycle
}

func (r *rootAdapter) CanQuit() (bool, error) {
	return false, nil
}

func (r *rootAdapter) CanRaise() (bool, error) {
	return false, nil
}

func (r *rootAdapter) HasTrackList() (bool, error) {
	return false, nil
}

func (r *rootAdapter) Identity() (string, error) {
	return "wavecast", nil
}

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"file", "http", "https"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{"audio/mpeg", "audio/flac", "audio/ogg", "audio/wav"}, nil
}

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter over the
// session read model. Commands go through the coordinator.
type playerAdapter struct {
	store *session.Store
	ctrl  Controller
}

func newPlayerAdapter(store *session.Store, ctrl Controller) *playerAdapter {
	return &playerAdapter{store: store, ctrl: ctrl}
}

func (p *playerAdapter) call(fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), controlTimeout)
	defer cancel()
	return fn(ctx)
}

func (p *playerAdapter) skip(delta int) error {
	snap := p.store.Snapshot()
	idx := snap.ActiveIndex + delta
	if !playback.ValidIndex(idx, len(snap.Queue)) {
		return nil
	}
	return p.call(func(ctx context.Context) error { return p.ctrl.SkipTo(ctx, idx) })
}

func (p *playerAdapter) Next() error {
	return p.skip(1)
}

func (p *playerAdapter) Previous() error {
	return p.skip(-1)
}

func (p *playerAdapter) Pause() error {
	return p.call(p.ctrl.Pause)
}

func (p *playerAdapter) PlayPause() error {
	if p.store.State() == playback.StatePlaying {
		return p.call(p.ctrl.Pause)
	}
	return p.call(p.ctrl.Play)
}

// Stop pauses; the queue and position survive.
func (p *playerAdapter) Stop() error {
	return p.call(p.ctrl.Pause)
}

func (p *playerAdapter) Play() error {
	return p.call(p.ctrl.Play)
}

func (p *playerAdapter) Seek(offset types.Microseconds) error {
	pos := p.store.Progress().Position + time.Duration(offset)*time.Microsecond
	return p.seekTo(pos)
}

func (p *playerAdapter) SetPosition(_ string, position types.Microseconds) error {
	return p.seekTo(time.Duration(position) * time.Microsecond)
}

func (p *playerAdapter) seekTo(pos time.Duration) error {
	pos = max(pos, 0)
	return p.call(func(ctx context.Context) error { return p.ctrl.SeekTo(ctx, pos) })
}

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(_ string) error {
	return nil // Not supported
}

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	switch p.store.State() {
	case playback.StatePlaying, playback.StateBuffering:
		return types.PlaybackStatusPlaying, nil
	case playback.StatePaused:
		return types.PlaybackStatusPaused, nil
	}
	return types.PlaybackStatusStopped, nil
}

func (p *playerAdapter) Rate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) SetRate(_ float64) error {
	return nil // Not supported
}

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	track, ok := p.store.ActiveTrack()
	if !ok {
		return types.Metadata{}, nil
	}

	meta := types.Metadata{
		TrackId:    dbus.ObjectPath(formatTrackID(track.ID)),
		Length:     types.Microseconds(track.Duration.Microseconds()),
		Title:      track.Title,
		Artist:     track.Artists,
		Album:      track.Album,
		UseCount:   track.PlayCount,
		UserRating: float64(track.Rating) / playback.MaxRating,
	}
	if track.AlbumArtist != "" {
		meta.AlbumArtist = []string{track.AlbumArtist}
	}
	meta.ArtUrl = artwork.URL(track)

	return meta, nil
}

func (p *playerAdapter) Volume() (float64, error) {
	return 1.0, nil // Volume control not exposed
}

func (p *playerAdapter) SetVolume(_ float64) error {
	return nil // Not supported
}

func (p *playerAdapter) Position() (int64, error) {
	return p.store.Progress().Position.Microseconds(), nil
}

func (p *playerAdapter) MinimumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) MaximumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) CanGoNext() (bool, error) {
	snap := p.store.Snapshot()
	return playback.ValidIndex(snap.ActiveIndex+1, len(snap.Queue)), nil
}

func (p *playerAdapter) CanGoPrevious() (bool, error) {
	return p.store.ActiveIndex() > 0, nil
}

func (p *playerAdapter) CanPlay() (bool, error) {
	return !p.store.IsEmpty(), nil
}

func (p *playerAdapter) CanPause() (bool, error) {
	return true, nil
}

func (p *playerAdapter) CanSeek() (bool, error) {
	return !p.store.IsEmpty(), nil
}

func (p *playerAdapter) CanControl() (bool, error) {
	return true, nil
}

func formatTrackID(id string) string {
	h := fnv.New64a()
	h.Write([]byte(id))
	return fmt.Sprintf("/org/mpris/MediaPlayer2/Track/%x", h.Sum64())
}
