// Package local adapts the on-device audio engine to the backend contract.
package local

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/llehouerou/wavecast/internal/backend"
	"github.com/llehouerou/wavecast/internal/playback"
	"github.com/llehouerou/wavecast/internal/player"
)

const (
	DefaultProgressInterval = time.Second
	eventBuffer             = 256
)

var errEmptyQueue = errors.New("queue is empty")

// Options configures an Adapter.
type Options struct {
	ProgressInterval time.Duration
	Logger           *zap.Logger
}

// Adapter owns the durable queue and drives a player.Interface engine.
type Adapter struct {
	mu     sync.Mutex
	engine player.Interface
	queue  *Queue
	state  playback.State
	closed bool

	interval time.Duration
	log      *zap.Logger
	events   *backend.Outbox
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New starts an adapter over engine. Call Close to release it.
func New(engine player.Interface, opts Options) *Adapter {
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	a := &Adapter{
		engine:   engine,
		queue:    NewQueue(),
		state:    playback.StateIdle,
		interval: opts.ProgressInterval,
		log:      opts.Logger.Named("local"),
		events:   backend.NewOutbox(eventBuffer),
		stop:     make(chan struct{}),
	}
	a.wg.Add(1)
	go a.run()
	return a
}

func (a *Adapter) Source() backend.Source { return backend.Local }

func (a *Adapter) Events() <-chan backend.Event { return a.events.Events() }

func (a *Adapter) run() {
	defer a.wg.Done()
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stop:
			return
		case <-ticker.C:
			a.tick()
		case <-a.engine.FinishedChan():
			a.advance()
		}
	}
}

func (a *Adapter) tick() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || a.engine.State() != player.Playing {
		return
	}
	a.emit(backend.NewProgress(backend.Local, a.progress()))
}

// advance moves to the next track after the engine finished one.
func (a *Adapter) advance() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}

	next, ok := a.queue.Next()
	if !ok {
		a.emit(backend.NewQueueEnded(backend.Local))
		a.setState(playback.StateEnded)
		return
	}
	if err := a.engine.Play(location(next)); err != nil {
		a.log.Warn("play next track", zap.String("track", next.ID), zap.Error(err))
		a.setState(playback.StateStopped)
	} else {
		a.setState(playback.StatePlaying)
	}
	a.emit(backend.NewTrackChanged(backend.Local, a.queue.CurrentIndex(), next))
}

// emit queues e in order without blocking. Callers hold a.mu.
func (a *Adapter) emit(e backend.Event) {
	a.events.Push(e)
}

func (a *Adapter) setState(s playback.State) {
	if a.state == s {
		return
	}
	a.state = s
	a.emit(backend.NewStateChanged(backend.Local, s))
}

func (a *Adapter) progress() playback.Progress {
	d := a.engine.Duration()
	if d == 0 {
		if t, ok := a.queue.Current(); ok {
			d = t.Duration
		}
	}
	return playback.Progress{Position: a.engine.Position(), Buffered: d, Duration: d}
}

// begin locks the adapter for a control call.
func (a *Adapter) begin(op string) (func(), error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil, backend.Fail(backend.Local, op, backend.ErrClosed)
	}
	return a.mu.Unlock, nil
}

func location(t playback.Track) string {
	if t.URL != "" {
		return t.URL
	}
	return t.Path
}

func unavailable(op string, err error) error {
	return backend.Fail(backend.Local, op, fmt.Errorf("%w: %w", backend.ErrUnavailable, err))
}

// load loads the current track, starting it when play is set.
func (a *Adapter) load(op string, play bool) error {
	t, ok := a.queue.Current()
	if !ok {
		return backend.Fail(backend.Local, op, fmt.Errorf("%w: %w", backend.ErrRejected, errEmptyQueue))
	}
	var err error
	if play {
		err = a.engine.Play(location(t))
	} else {
		err = a.engine.Load(location(t))
	}
	if err != nil {
		a.setState(playback.StateStopped)
		return unavailable(op, err)
	}
	if play {
		a.setState(playback.StatePlaying)
	} else {
		a.setState(playback.StatePaused)
	}
	return nil
}

// SetQueue replaces the queue and stops the engine.
func (a *Adapter) SetQueue(_ context.Context, tracks []playback.Track) error {
	unlock, err := a.begin("SetQueue")
	if err != nil {
		return err
	}
	defer unlock()

	a.engine.Stop()
	a.queue.Replace(tracks)
	if t, ok := a.queue.Current(); ok {
		a.setState(playback.StateStopped)
		a.emit(backend.NewTrackChanged(backend.Local, a.queue.CurrentIndex(), t))
	} else {
		a.setState(playback.StateIdle)
	}
	return nil
}

func (a *Adapter) Add(_ context.Context, track playback.Track, at int) error {
	unlock, err := a.begin("Add")
	if err != nil {
		return err
	}
	defer unlock()

	wasEmpty := a.queue.IsEmpty()
	a.queue.Insert(track, at)
	if wasEmpty {
		a.setState(playback.StateStopped)
		a.emit(backend.NewTrackChanged(backend.Local, 0, track))
	}
	return nil
}

func (a *Adapter) Remove(_ context.Context, index int) error {
	unlock, err := a.begin("Remove")
	if err != nil {
		return err
	}
	defer unlock()

	wasPlaying := a.engine.State() == player.Playing
	removedCurrent, ok := a.queue.RemoveAt(index)
	if !ok {
		return backend.Fail(backend.Local, "Remove", backend.ErrOutOfRange)
	}
	if !removedCurrent {
		return nil
	}

	a.engine.Stop()
	t, ok := a.queue.Current()
	if !ok {
		a.setState(playback.StateIdle)
		return nil
	}
	a.emit(backend.NewTrackChanged(backend.Local, a.queue.CurrentIndex(), t))
	if wasPlaying {
		return a.load("Remove", true)
	}
	a.setState(playback.StateStopped)
	return nil
}

// SkipTo makes index current. The engine keeps playing if it was, otherwise
// the track is loaded paused.
func (a *Adapter) SkipTo(_ context.Context, index int) error {
	unlock, err := a.begin("SkipTo")
	if err != nil {
		return err
	}
	defer unlock()

	t, ok := a.queue.JumpTo(index)
	if !ok {
		return backend.Fail(backend.Local, "SkipTo", backend.ErrOutOfRange)
	}
	wasPlaying := a.engine.State() == player.Playing
	a.emit(backend.NewTrackChanged(backend.Local, index, t))
	return a.load("SkipTo", wasPlaying)
}

// SeekTo seeks the current track, loading it paused if needed.
func (a *Adapter) SeekTo(_ context.Context, position time.Duration) error {
	unlock, err := a.begin("SeekTo")
	if err != nil {
		return err
	}
	defer unlock()

	if a.engine.State() == player.Stopped {
		if err := a.load("SeekTo", false); err != nil {
			return err
		}
	}
	if err := a.engine.SeekTo(position); err != nil {
		return unavailable("SeekTo", err)
	}
	a.emit(backend.NewProgress(backend.Local, a.progress()))
	return nil
}

func (a *Adapter) SetVolume(_ context.Context, level float64) error {
	unlock, err := a.begin("SetVolume")
	if err != nil {
		return err
	}
	defer unlock()

	a.engine.SetVolume(player.ClampVolume(level))
	return nil
}

// Play resumes the loaded track or starts the current one.
func (a *Adapter) Play(_ context.Context) error {
	unlock, err := a.begin("Play")
	if err != nil {
		return err
	}
	defer unlock()

	switch a.engine.State() {
	case player.Playing:
		return nil
	case player.Paused:
		a.engine.Resume()
		a.setState(playback.StatePlaying)
		return nil
	default:
		return a.load("Play", true)
	}
}

func (a *Adapter) Pause(_ context.Context) error {
	unlock, err := a.begin("Pause")
	if err != nil {
		return err
	}
	defer unlock()

	if a.engine.State() == player.Playing {
		a.engine.Pause()
		a.setState(playback.StatePaused)
	}
	return nil
}

func (a *Adapter) Queue(_ context.Context) ([]playback.Track, error) {
	unlock, err := a.begin("Queue")
	if err != nil {
		return nil, err
	}
	defer unlock()
	return a.queue.Tracks(), nil
}

func (a *Adapter) ActiveIndex(_ context.Context) (int, error) {
	unlock, err := a.begin("ActiveIndex")
	if err != nil {
		return playback.NoIndex, err
	}
	defer unlock()
	return a.queue.CurrentIndex(), nil
}

// UpdateTrack replaces per-track metadata without touching playback.
func (a *Adapter) UpdateTrack(_ context.Context, index int, track playback.Track) error {
	unlock, err := a.begin("UpdateTrack")
	if err != nil {
		return err
	}
	defer unlock()

	if !a.queue.Update(index, track) {
		return backend.Fail(backend.Local, "UpdateTrack", backend.ErrOutOfRange)
	}
	return nil
}

// Close stops the engine and closes the event stream.
func (a *Adapter) Close() error {
	a.stopOnce.Do(func() {
		close(a.stop)

		a.mu.Lock()
		a.closed = true
		a.mu.Unlock()

		a.wg.Wait()
		a.engine.Stop()
		a.events.Close()
	})
	return nil
}

var _ backend.LocalBackend = (*Adapter)(nil)
