// Package persist saves and restores the playback session so it survives
// process death.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/llehouerou/wavecast/internal/kv"
	"github.com/llehouerou/wavecast/internal/playback"
)

// Storage keys. Each is written and read independently.
const (
	KeyQueue       = "queue"
	KeyActiveIndex = "activeTrackIndex"
	KeyPosition    = "playPosition"
)

const writeTimeout = 5 * time.Second

// Session is the durable snapshot used to resume after a restart.
type Session struct {
	Queue       []playback.Track
	ActiveIndex int
	Position    time.Duration
}

// Gateway reads and writes the persisted session. Write and read failures are
// logged and degrade to "no session"; nothing here is fatal.
type Gateway struct {
	store kv.Store
	log   *zap.Logger

	mu      sync.Mutex
	pending *Session
	done    chan struct{} // non-nil while the writer goroutine runs
}

// New returns a Gateway over store.
func New(store kv.Store, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{store: store, log: log.Named("persist")}
}

// Save schedules an asynchronous write of s and returns immediately.
// Writes are serialized and coalesced: while one is in flight only the most
// recent pending session is kept.
func (g *Gateway) Save(s Session) {
	s.Queue = playback.CloneQueue(s.Queue)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending = &s
	if g.done == nil {
		g.done = make(chan struct{})
		go g.drain(g.done)
	}
}

func (g *Gateway) drain(done chan struct{}) {
	for {
		g.mu.Lock()
		s := g.pending
		g.pending = nil
		if s == nil {
			g.done = nil
			g.mu.Unlock()
			close(done)
			return
		}
		g.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := g.write(ctx, *s); err != nil {
			g.log.Warn("save session", zap.Error(err))
		}
		cancel()
	}
}

// SaveNow writes s synchronously, superseding any pending asynchronous save.
func (g *Gateway) SaveNow(ctx context.Context, s Session) error {
	g.mu.Lock()
	g.pending = nil
	g.mu.Unlock()

	if err := g.Flush(ctx); err != nil {
		return err
	}
	if err := g.write(ctx, s); err != nil {
		g.log.Warn("save session now", zap.Error(err))
		return err
	}
	return nil
}

// Flush waits until no asynchronous write is pending or in flight.
func (g *Gateway) Flush(ctx context.Context) error {
	for {
		g.mu.Lock()
		done := g.done
		g.mu.Unlock()
		if done == nil {
			return nil
		}
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (g *Gateway) write(ctx context.Context, s Session) error {
	queue := s.Queue
	if queue == nil {
		queue = []playback.Track{}
	}
	data, err := json.Marshal(queue)
	if err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}
	return g.store.Set(ctx, map[string]string{
		KeyQueue:       string(data),
		KeyActiveIndex: strconv.Itoa(s.ActiveIndex),
		KeyPosition:    strconv.FormatFloat(s.Position.Seconds(), 'f', -1, 64),
	})
}

// ErrNoSession is returned by Lookup when nothing worth resuming is stored.
var ErrNoSession = errors.New("no persisted session")

// Load reads the persisted session. It returns false when any key is
// missing, the queue is empty, or a value cannot be parsed.
func (g *Gateway) Load(ctx context.Context) (*Session, bool) {
	s, err := g.Lookup(ctx)
	switch {
	case errors.Is(err, ErrNoSession):
		g.log.Debug("no persisted session")
		return nil, false
	case err != nil:
		g.log.Warn("load session", zap.Error(err))
		return nil, false
	}
	return s, true
}

// Lookup is Load with the failure cause: ErrNoSession when keys are
// missing or the queue is empty, a read or parse error otherwise.
func (g *Gateway) Lookup(ctx context.Context) (*Session, error) {
	s, err := g.read(ctx)
	switch {
	case errors.Is(err, kv.ErrNotFound):
		return nil, ErrNoSession
	case err != nil:
		return nil, err
	case len(s.Queue) == 0:
		return nil, ErrNoSession
	}
	return s, nil
}

func (g *Gateway) read(ctx context.Context) (*Session, error) {
	rawQueue, err := g.store.Get(ctx, KeyQueue)
	if err != nil {
		return nil, err
	}
	rawIndex, err := g.store.Get(ctx, KeyActiveIndex)
	if err != nil {
		return nil, err
	}
	rawPos, err := g.store.Get(ctx, KeyPosition)
	if err != nil {
		return nil, err
	}

	var queue []playback.Track
	if err := json.Unmarshal([]byte(rawQueue), &queue); err != nil {
		return nil, fmt.Errorf("decode %s: %w", KeyQueue, err)
	}
	idx, err := strconv.Atoi(rawIndex)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", KeyActiveIndex, err)
	}
	secs, err := strconv.ParseFloat(rawPos, 64)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", KeyPosition, err)
	}

	return &Session{
		Queue:       queue,
		ActiveIndex: idx,
		Position:    playback.Seconds(max(secs, 0)),
	}, nil
}

// Clear drops any pending write and deletes the persisted session.
func (g *Gateway) Clear(ctx context.Context) error {
	g.mu.Lock()
	g.pending = nil
	g.mu.Unlock()

	if err := g.Flush(ctx); err != nil {
		return err
	}
	if err := g.store.Delete(ctx, KeyQueue, KeyActiveIndex, KeyPosition); err != nil {
		g.log.Warn("clear session", zap.Error(err))
		return err
	}
	return nil
}
