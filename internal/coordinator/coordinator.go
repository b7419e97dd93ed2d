// Package coordinator keeps one logical playback session consistent across
// the local engine and an optional remote receiver.
//
// All session state is owned by a single loop goroutine. Backend events,
// lifecycle signals, user commands and the results of asynchronous side
// effects all arrive on one inbox and are handled in order.
package coordinator

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/llehouerou/wavecast/internal/backend"
	"github.com/llehouerou/wavecast/internal/metadata"
	"github.com/llehouerou/wavecast/internal/persist"
	"github.com/llehouerou/wavecast/internal/playback"
	"github.com/llehouerou/wavecast/internal/registration"
	"github.com/llehouerou/wavecast/internal/session"
)

const (
	DefaultPersistDelay = time.Second

	inboxSize      = 256
	controlTimeout = 10 * time.Second
	fetchTimeout   = 15 * time.Second
)

// ErrStopped is returned by commands issued after Run returned.
var ErrStopped = errors.New("coordinator stopped")

// Authority names the backend whose events drive the session.
type Authority int32

const (
	LocalAuthoritative Authority = iota
	RemoteAuthoritative
)

func (a Authority) String() string {
	if a == RemoteAuthoritative {
		return "remote"
	}
	return "local"
}

// PaletteSource derives a palette from a track's artwork.
type PaletteSource interface {
	Palette(ctx context.Context, t playback.Track) (playback.Palette, error)
}

// Scrobbler mirrors listens to an external service.
type Scrobbler interface {
	NowPlaying(t playback.Track)
	Scrobble(t playback.Track)
}

// Options configures a Coordinator. Only Local, Store and Gateway are
// required.
type Options struct {
	Local   backend.LocalBackend
	Remote  backend.RemoteBackend
	Store   *session.Store
	Gateway *persist.Gateway

	Metadata  metadata.Service
	Palettes  PaletteSource
	Scrobbler Scrobbler

	PersistDelay      time.Duration
	RegisterThreshold time.Duration
	Logger            *zap.Logger
}

// activeKey identifies the activation the coordinator last accepted.
type activeKey struct {
	index int
	id    string
}

var noActive = activeKey{index: playback.NoIndex}

// Coordinator is the single writer of the session store.
type Coordinator struct {
	local      backend.LocalBackend
	remote     backend.RemoteBackend
	store      *session.Store
	gateway    *persist.Gateway
	activation *registration.Activation

	meta      metadata.Service
	palettes  PaletteSource
	scrobbler Scrobbler

	persistDelay time.Duration
	log          *zap.Logger

	inbox   chan any
	stopped chan struct{}
	running atomic.Bool
	runCtx  context.Context

	// Loop-owned state.
	authority    Authority
	active       activeKey
	pendingWrite uint64

	// Mirrors for readers outside the loop.
	authorityView atomic.Int32
	recoveryView  atomic.Int32
}

// New creates a coordinator. Call Run to start processing.
func New(opts Options) *Coordinator {
	if opts.PersistDelay <= 0 {
		opts.PersistDelay = DefaultPersistDelay
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Store == nil {
		opts.Store = session.NewStore()
	}
	return &Coordinator{
		local:        opts.Local,
		remote:       opts.Remote,
		store:        opts.Store,
		gateway:      opts.Gateway,
		activation:   registration.NewActivation(opts.RegisterThreshold),
		meta:         opts.Metadata,
		palettes:     opts.Palettes,
		scrobbler:    opts.Scrobbler,
		persistDelay: opts.PersistDelay,
		log:          opts.Logger.Named("coordinator"),
		inbox:        make(chan any, inboxSize),
		stopped:      make(chan struct{}),
		runCtx:       context.Background(),
		active:       noActive,
	}
}

// Store returns the read model the coordinator maintains.
func (c *Coordinator) Store() *session.Store { return c.store }

// Authority reports which backend currently drives the session.
func (c *Coordinator) Authority() Authority {
	return Authority(c.authorityView.Load())
}

// Messages handled by the loop.
type (
	eventMsg struct{ event backend.Event }

	lyricsResult struct {
		trackID string
		text    string
		err     error
	}

	paletteResult struct {
		trackID string
		palette playback.Palette
		err     error
	}

	reportResult struct {
		trackID string
		plays   int
		err     error
	}

	persistDue struct{ token uint64 }

	command struct {
		ctx   context.Context
		fn    func(context.Context) error
		reply chan error
	}
)

// Run processes the inbox until ctx is done. It may be called once.
func (c *Coordinator) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return errors.New("coordinator already running")
	}
	defer close(c.stopped)
	c.runCtx = ctx

	c.forward(c.local.Events())
	if c.remote != nil {
		c.forward(c.remote.Events())
	}

	c.log.Debug("running")
	for {
		select {
		case <-ctx.Done():
			c.log.Debug("stopping")
			return ctx.Err()
		case m := <-c.inbox:
			c.handle(m)
		}
	}
}

// forward fans one adapter's stream into the inbox, keeping its order.
func (c *Coordinator) forward(events <-chan backend.Event) {
	go func() {
		for e := range events {
			if !c.post(eventMsg{event: e}) {
				return
			}
		}
	}()
}

// post delivers m to the loop. It reports false once the loop has stopped.
func (c *Coordinator) post(m any) bool {
	select {
	case c.inbox <- m:
		return true
	case <-c.stopped:
		return false
	}
}

// do runs fn on the loop and waits for its result.
func (c *Coordinator) do(ctx context.Context, fn func(context.Context) error) error {
	cmd := command{ctx: ctx, fn: fn, reply: make(chan error, 1)}
	select {
	case c.inbox <- cmd:
	case <-c.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-c.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) handle(m any) {
	switch m := m.(type) {
	case eventMsg:
		c.onEvent(m.event)
	case command:
		m.reply <- m.fn(m.ctx)
	case lyricsResult:
		c.onLyrics(m)
	case paletteResult:
		c.onPalette(m)
	case reportResult:
		c.onReport(m)
	case persistDue:
		c.onPersistDue(m)
	default:
		c.log.Warn("unknown message", zap.Any("msg", m))
	}
}

// callCtx bounds a backend call issued from the loop.
func (c *Coordinator) callCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.runCtx, controlTimeout)
}

func (c *Coordinator) setAuthority(a Authority) {
	if c.authority == a {
		return
	}
	c.log.Info("authority changed",
		zap.Stringer("from", c.authority),
		zap.Stringer("to", a))
	c.authority = a
	c.authorityView.Store(int32(a))
}

// authoritative returns the backend that currently drives the session.
func (c *Coordinator) authoritative() backend.Adapter {
	if c.authority == RemoteAuthoritative && c.remote != nil {
		return c.remote
	}
	return c.local
}

func (c *Coordinator) backendFor(src backend.Source) backend.Adapter {
	if src == backend.Remote && c.remote != nil {
		return c.remote
	}
	return c.local
}

func (c *Coordinator) isAuthoritative(src backend.Source) bool {
	if c.authority == RemoteAuthoritative {
		return src == backend.Remote
	}
	return src == backend.Local
}

// snapshot returns the durable view of the current session.
func (c *Coordinator) snapshot() persist.Session {
	snap := c.store.Snapshot()
	return persist.Session{
		Queue:       snap.Queue,
		ActiveIndex: snap.ActiveIndex,
		Position:    snap.Progress.Position,
	}
}

// schedulePersist arms a deferred save. Each call supersedes the previous
// one; only the latest token is honored when its timer fires.
func (c *Coordinator) schedulePersist() {
	if c.gateway == nil {
		return
	}
	c.pendingWrite++
	token := c.pendingWrite
	time.AfterFunc(c.persistDelay, func() {
		c.post(persistDue{token: token})
	})
}

// cancelPersist invalidates any armed save.
func (c *Coordinator) cancelPersist() {
	c.pendingWrite++
}

func (c *Coordinator) onPersistDue(m persistDue) {
	if m.token != c.pendingWrite {
		return
	}
	s := c.snapshot()
	if len(s.Queue) == 0 {
		return
	}
	c.gateway.Save(s)
}
