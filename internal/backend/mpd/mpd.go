// Package mpd drives a Music Player Daemon as the remote playback receiver.
package mpd

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fhs/gompd/v2/mpd"
	"go.uber.org/zap"

	"github.com/llehouerou/wavecast/internal/backend"
	"github.com/llehouerou/wavecast/internal/playback"
)

const (
	DefaultAddress      = "localhost:6600"
	DefaultPollInterval = time.Second
	eventBuffer         = 256
)

// Subsystems the watcher idles on.
var watched = []string{"player", "playlist", "mixer"}

// conn is the subset of *mpd.Client the adapter uses.
type conn interface {
	Status() (mpd.Attrs, error)
	PlaylistInfo(start, end int) ([]mpd.Attrs, error)
	Clear() error
	Add(uri string) error
	AddID(uri string, pos int) (int, error)
	Delete(start, end int) error
	Play(pos int) error
	Pause(pause bool) error
	SeekCur(d time.Duration, relative bool) error
	SetVolume(volume int) error
	Close() error
}

type watcher interface {
	Events() <-chan string
	Errors() <-chan error
	Close() error
}

type idleWatcher struct{ w *mpd.Watcher }

func (i idleWatcher) Events() <-chan string { return i.w.Event }
func (i idleWatcher) Errors() <-chan error  { return i.w.Error }
func (i idleWatcher) Close() error          { return i.w.Close() }

type (
	dialFunc  func(network, addr, password string) (conn, error)
	watchFunc func(network, addr, password string, names ...string) (watcher, error)
)

func dialClient(network, addr, password string) (conn, error) {
	return mpd.DialAuthenticated(network, addr, password)
}

func watchIdle(network, addr, password string, names ...string) (watcher, error) {
	w, err := mpd.NewWatcher(network, addr, password, names...)
	if err != nil {
		return nil, err
	}
	return idleWatcher{w: w}, nil
}

// Options configures an Adapter.
type Options struct {
	Address      string
	Password     string
	PollInterval time.Duration
	Logger       *zap.Logger
}

// session is one live connection. It is replaced on every Connect.
type session struct {
	conn    conn
	watcher watcher
	stop    chan struct{}
	done    chan struct{}
}

// Adapter implements backend.RemoteBackend over an MPD server.
type Adapter struct {
	mu     sync.Mutex
	opts   Options
	sess   *session
	last   backend.MediaStatus
	tracks []playback.Track // mirror of the server playlist
	closed bool

	dial  dialFunc
	watch watchFunc

	log      *zap.Logger
	events   *backend.Outbox
	stopOnce sync.Once
}

// New returns a disconnected adapter for the server at opts.Address.
func New(opts Options) *Adapter {
	if opts.Address == "" {
		opts.Address = DefaultAddress
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Adapter{
		opts:   opts,
		dial:   dialClient,
		watch:  watchIdle,
		log:    opts.Logger.Named("mpd").With(zap.String("addr", opts.Address)),
		events: backend.NewOutbox(eventBuffer),
	}
}

func (a *Adapter) Source() backend.Source { return backend.Remote }

func (a *Adapter) Events() <-chan backend.Event { return a.events.Events() }

func network(addr string) string {
	if strings.HasPrefix(addr, "/") {
		return "unix"
	}
	return "tcp"
}

// Connect dials the server and starts watching it. Connecting while
// connected is a no-op.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return backend.Fail(backend.Remote, "Connect", backend.ErrClosed)
	}
	if a.sess != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return backend.Fail(backend.Remote, "Connect", err)
	}

	netw := network(a.opts.Address)
	c, err := a.dial(netw, a.opts.Address, a.opts.Password)
	if err != nil {
		return unavailable("Connect", err)
	}
	attrs, err := c.Status()
	if err != nil {
		_ = c.Close()
		return unavailable("Connect", err)
	}
	w, err := a.watch(netw, a.opts.Address, a.opts.Password, watched...)
	if err != nil {
		_ = c.Close()
		return unavailable("Connect", err)
	}

	a.sess = &session{
		conn:    c,
		watcher: w,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	a.last = parseStatus(attrs)
	a.tracks = a.fetchTracks(c, a.last.QueueLength)
	a.log.Info("connected",
		zap.Int("queue", a.last.QueueLength),
		zap.Stringer("state", a.last.State))
	a.emit(backend.NewConnected(backend.Remote, a.last))

	go a.loop(a.sess)
	return nil
}

// Disconnect closes the connection and emits Disconnected with a nil error.
func (a *Adapter) Disconnect(_ context.Context) error {
	a.mu.Lock()
	sess := a.sess
	if sess == nil {
		a.mu.Unlock()
		return nil
	}
	a.sess = nil
	close(sess.stop)
	a.mu.Unlock()

	<-sess.done
	a.release(sess)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.log.Info("disconnected")
	a.emit(backend.NewDisconnected(backend.Remote, nil))
	return nil
}

func (a *Adapter) loop(sess *session) {
	defer close(sess.done)
	ticker := time.NewTicker(a.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sess.stop:
			return
		case subsystem, ok := <-sess.watcher.Events():
			if !ok {
				a.lost(sess, errors.New("watcher closed"))
				return
			}
			a.log.Debug("idle event", zap.String("subsystem", subsystem))
			if !a.refresh(sess, true) {
				return
			}
		case err := <-sess.watcher.Errors():
			a.lost(sess, err)
			return
		case <-ticker.C:
			// The poll doubles as a keepalive.
			if !a.refresh(sess, false) {
				return
			}
		}
	}
}

// refresh polls the server status. full reports every change; otherwise only
// progress is emitted, and only while playing. It returns false once sess
// is no longer live.
func (a *Adapter) refresh(sess *session, full bool) bool {
	a.mu.Lock()
	if a.sess != sess {
		a.mu.Unlock()
		return false
	}
	attrs, err := sess.conn.Status()
	if err != nil {
		a.mu.Unlock()
		a.lost(sess, err)
		return false
	}
	defer a.mu.Unlock()

	s := parseStatus(attrs)
	if !full {
		if s.State == playback.StatePlaying {
			a.last.Progress = s.Progress
			a.emit(backend.NewProgress(backend.Remote, s.Progress))
		}
		return true
	}
	a.apply(sess, s)
	return true
}

// apply emits the differences between the last seen status and s.
func (a *Adapter) apply(sess *session, s backend.MediaStatus) {
	prev := a.last
	a.last = s

	if s.QueueLength != len(a.tracks) {
		a.tracks = a.fetchTracks(sess.conn, s.QueueLength)
	}
	if s.Index != prev.Index && s.Index != playback.NoIndex {
		if t, ok := playback.TrackAt(a.tracks, s.Index); ok {
			a.emit(backend.NewTrackChanged(backend.Remote, s.Index, t))
		}
	}
	if s.State != prev.State {
		// A freshly loaded playlist also reports stop without a song.
		if s.State == playback.StateEnded && prev.State.IsActive() {
			a.emit(backend.NewQueueEnded(backend.Remote))
		}
		a.emit(backend.NewStateChanged(backend.Remote, s.State))
	}
	if s.State == playback.StatePlaying || s.State == playback.StatePaused {
		a.emit(backend.NewProgress(backend.Remote, s.Progress))
	}
	a.emit(backend.NewMediaStatus(backend.Remote, s))
}

// lost tears down sess after a connection failure.
func (a *Adapter) lost(sess *session, cause error) {
	a.mu.Lock()
	if a.sess != sess {
		a.mu.Unlock()
		return
	}
	a.sess = nil
	a.mu.Unlock()

	a.release(sess)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.log.Warn("connection lost", zap.Error(cause))
	a.emit(backend.NewDisconnected(backend.Remote, unavailable("watch", cause)))
}

func (a *Adapter) release(sess *session) {
	if err := sess.watcher.Close(); err != nil {
		a.log.Debug("close watcher", zap.Error(err))
	}
	if err := sess.conn.Close(); err != nil {
		a.log.Debug("close connection", zap.Error(err))
	}
}

// fetchTracks reads the server playlist, keeping the metadata of tracks
// this adapter queued itself.
func (a *Adapter) fetchTracks(c conn, n int) []playback.Track {
	if n == 0 {
		return nil
	}
	items, err := c.PlaylistInfo(-1, -1)
	if err != nil {
		a.log.Debug("read playlist", zap.Error(err))
		return a.tracks
	}
	known := make(map[string]playback.Track, len(a.tracks))
	for _, t := range a.tracks {
		known[location(t)] = t
	}
	out := make([]playback.Track, len(items))
	for i, item := range items {
		if t, ok := known[item["file"]]; ok {
			out[i] = t
			continue
		}
		out[i] = toTrack(item)
	}
	return out
}

// emit queues e in order without blocking. Callers hold a.mu.
func (a *Adapter) emit(e backend.Event) {
	if a.closed {
		return
	}
	a.events.Push(e)
}

// begin locks the adapter for a control call on a live connection.
func (a *Adapter) begin(op string) (conn, func(), error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil, nil, backend.Fail(backend.Remote, op, backend.ErrClosed)
	}
	if a.sess == nil {
		a.mu.Unlock()
		return nil, nil, backend.Fail(backend.Remote, op, backend.ErrNotConnected)
	}
	return a.sess.conn, a.mu.Unlock, nil
}

func location(t playback.Track) string {
	if t.URL != "" {
		return t.URL
	}
	return t.Path
}

func unavailable(op string, err error) error {
	return backend.Fail(backend.Remote, op, fmt.Errorf("%w: %w", backend.ErrUnavailable, err))
}

func rejected(op string, err error) error {
	return backend.Fail(backend.Remote, op, fmt.Errorf("%w: %w", backend.ErrRejected, err))
}

// SetQueue replaces the server playlist.
func (a *Adapter) SetQueue(_ context.Context, tracks []playback.Track) error {
	c, unlock, err := a.begin("SetQueue")
	if err != nil {
		return err
	}
	defer unlock()

	if err := c.Clear(); err != nil {
		return unavailable("SetQueue", err)
	}
	a.tracks = nil
	for _, t := range tracks {
		if err := c.Add(location(t)); err != nil {
			return rejected("SetQueue", fmt.Errorf("add %s: %w", t.ID, err))
		}
		a.tracks = append(a.tracks, t)
	}
	return nil
}

func (a *Adapter) Add(_ context.Context, track playback.Track, at int) error {
	c, unlock, err := a.begin("Add")
	if err != nil {
		return err
	}
	defer unlock()

	if at < 0 || at > len(a.tracks) {
		at = len(a.tracks)
	}
	if _, err := c.AddID(location(track), at); err != nil {
		return rejected("Add", err)
	}
	a.tracks = slices.Insert(a.tracks, at, track)
	return nil
}

func (a *Adapter) Remove(_ context.Context, index int) error {
	c, unlock, err := a.begin("Remove")
	if err != nil {
		return err
	}
	defer unlock()

	if !playback.ValidIndex(index, len(a.tracks)) {
		return backend.Fail(backend.Remote, "Remove", backend.ErrOutOfRange)
	}
	if err := c.Delete(index, index+1); err != nil {
		return rejected("Remove", err)
	}
	a.tracks = slices.Delete(a.tracks, index, index+1)
	return nil
}

// SkipTo starts playback at index.
func (a *Adapter) SkipTo(_ context.Context, index int) error {
	c, unlock, err := a.begin("SkipTo")
	if err != nil {
		return err
	}
	defer unlock()

	if !playback.ValidIndex(index, len(a.tracks)) {
		return backend.Fail(backend.Remote, "SkipTo", backend.ErrOutOfRange)
	}
	if err := c.Play(index); err != nil {
		return rejected("SkipTo", err)
	}
	return nil
}

func (a *Adapter) SeekTo(_ context.Context, position time.Duration) error {
	c, unlock, err := a.begin("SeekTo")
	if err != nil {
		return err
	}
	defer unlock()

	if err := c.SeekCur(max(position, 0), false); err != nil {
		return rejected("SeekTo", err)
	}
	return nil
}

// SetVolume maps level in [0,1] to the server's 0..100 mixer range.
func (a *Adapter) SetVolume(_ context.Context, level float64) error {
	c, unlock, err := a.begin("SetVolume")
	if err != nil {
		return err
	}
	defer unlock()

	if err := c.SetVolume(volumePercent(level)); err != nil {
		return rejected("SetVolume", err)
	}
	return nil
}

func volumePercent(level float64) int {
	level = min(max(level, 0), 1)
	return int(level*100 + 0.5)
}

// Play resumes when paused, otherwise starts the current song.
func (a *Adapter) Play(_ context.Context) error {
	c, unlock, err := a.begin("Play")
	if err != nil {
		return err
	}
	defer unlock()

	if a.last.State == playback.StatePaused {
		err = c.Pause(false)
	} else {
		err = c.Play(-1)
	}
	if err != nil {
		return rejected("Play", err)
	}
	return nil
}

func (a *Adapter) Pause(_ context.Context) error {
	c, unlock, err := a.begin("Pause")
	if err != nil {
		return err
	}
	defer unlock()

	if err := c.Pause(true); err != nil {
		return rejected("Pause", err)
	}
	return nil
}

func (a *Adapter) Queue(_ context.Context) ([]playback.Track, error) {
	_, unlock, err := a.begin("Queue")
	if err != nil {
		return nil, err
	}
	defer unlock()
	return playback.CloneQueue(a.tracks), nil
}

func (a *Adapter) ActiveIndex(ctx context.Context) (int, error) {
	s, err := a.MediaStatus(ctx)
	if err != nil {
		return playback.NoIndex, err
	}
	return s.Index, nil
}

// MediaStatus reads the current server status.
func (a *Adapter) MediaStatus(_ context.Context) (backend.MediaStatus, error) {
	c, unlock, err := a.begin("MediaStatus")
	if err != nil {
		return backend.MediaStatus{}, err
	}
	defer unlock()

	attrs, err := c.Status()
	if err != nil {
		return backend.MediaStatus{}, unavailable("MediaStatus", err)
	}
	return parseStatus(attrs), nil
}

// Close disconnects without emitting and closes the event stream.
func (a *Adapter) Close() error {
	a.stopOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		sess := a.sess
		a.sess = nil
		a.mu.Unlock()

		if sess != nil {
			close(sess.stop)
			<-sess.done
			a.release(sess)
		}
		a.events.Close()
	})
	return nil
}

var _ backend.RemoteBackend = (*Adapter)(nil)
