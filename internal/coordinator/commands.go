package coordinator

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/llehouerou/wavecast/internal/playback"
)

var (
	// ErrNoRemote is returned by Connect and Disconnect when no receiver is
	// configured.
	ErrNoRemote      = errors.New("no remote receiver configured")
	ErrNoActiveTrack = errors.New("no active track")
)

// Play resumes playback on the authoritative backend.
func (c *Coordinator) Play(ctx context.Context) error {
	return c.do(ctx, func(ctx context.Context) error {
		return c.control("play", c.authoritative().Play(ctx))
	})
}

// Pause pauses the authoritative backend.
func (c *Coordinator) Pause(ctx context.Context) error {
	return c.do(ctx, func(ctx context.Context) error {
		return c.control("pause", c.authoritative().Pause(ctx))
	})
}

// SkipTo activates the queue entry at index. Re-selecting the active entry
// keeps its activation; only a change of index starts a new one.
func (c *Coordinator) SkipTo(ctx context.Context, index int) error {
	return c.do(ctx, func(ctx context.Context) error {
		return c.control("skip", c.authoritative().SkipTo(ctx, index))
	})
}

// SeekTo moves the playback position of the active track.
func (c *Coordinator) SeekTo(ctx context.Context, position time.Duration) error {
	return c.do(ctx, func(ctx context.Context) error {
		return c.control("seek", c.authoritative().SeekTo(ctx, max(position, 0)))
	})
}

// SetQueue replaces the queue. The local backend always receives it; the
// receiver does too while it is authoritative.
func (c *Coordinator) SetQueue(ctx context.Context, tracks []playback.Track) error {
	return c.do(ctx, func(ctx context.Context) error {
		if err := c.local.SetQueue(ctx, tracks); err != nil {
			return c.control("set queue", err)
		}
		c.active = noActive
		if c.authority == RemoteAuthoritative {
			if err := c.remote.SetQueue(ctx, tracks); err != nil {
				c.log.Warn("push queue to receiver", zap.Error(err))
			}
		}
		c.afterQueueEdit(ctx)
		return nil
	})
}

// Add inserts t at index at; a negative index appends.
func (c *Coordinator) Add(ctx context.Context, t playback.Track, at int) error {
	return c.do(ctx, func(ctx context.Context) error {
		if err := c.local.Add(ctx, t, at); err != nil {
			return c.control("add", err)
		}
		if c.authority == RemoteAuthoritative {
			if err := c.remote.Add(ctx, t, at); err != nil {
				c.log.Warn("add to receiver", zap.Error(err))
			}
		}
		c.afterQueueEdit(ctx)
		return nil
	})
}

// Remove deletes the queue entry at index.
func (c *Coordinator) Remove(ctx context.Context, index int) error {
	return c.do(ctx, func(ctx context.Context) error {
		if err := c.local.Remove(ctx, index); err != nil {
			return c.control("remove", err)
		}
		if c.authority == RemoteAuthoritative {
			if err := c.remote.Remove(ctx, index); err != nil {
				c.log.Warn("remove from receiver", zap.Error(err))
			}
		}
		c.afterQueueEdit(ctx)
		return nil
	})
}

// afterQueueEdit mirrors the local queue into the store. The local backend
// owns the queue regardless of authority.
func (c *Coordinator) afterQueueEdit(ctx context.Context) {
	idx, err := c.local.ActiveIndex(ctx)
	if err != nil {
		idx = c.store.ActiveIndex()
	}
	c.syncQueue(ctx, c.local, idx, nil)
	if c.store.IsEmpty() {
		c.active = noActive
		c.clearPersisted()
		return
	}
	c.schedulePersist()
}

// SetRating rates the active track.
func (c *Coordinator) SetRating(ctx context.Context, rating int) error {
	return c.do(ctx, func(ctx context.Context) error {
		t, ok := c.store.ActiveTrack()
		if !ok {
			return ErrNoActiveTrack
		}
		t = t.WithRating(rating)
		c.store.SetTrackRating(t.ID, t.Rating)
		c.updateLocalTrack(t)
		c.schedulePersist()
		return nil
	})
}

// Connect opens the receiver connection. Authority moves once the receiver
// reports Connected.
func (c *Coordinator) Connect(ctx context.Context) error {
	if c.remote == nil {
		return ErrNoRemote
	}
	return c.remote.Connect(ctx)
}

// Disconnect closes the receiver connection.
func (c *Coordinator) Disconnect(ctx context.Context) error {
	if c.remote == nil {
		return ErrNoRemote
	}
	return c.remote.Disconnect(ctx)
}

// Background persists the session immediately. It is the last durability
// point before the process may be killed.
func (c *Coordinator) Background(ctx context.Context) error {
	return c.do(ctx, func(ctx context.Context) error {
		if c.gateway == nil {
			return nil
		}
		s := c.snapshot()
		if len(s.Queue) == 0 || s.ActiveIndex == playback.NoIndex {
			return nil
		}
		c.cancelPersist()
		return c.gateway.SaveNow(ctx, s)
	})
}

// Foreground marks the return of the process to the foreground.
func (c *Coordinator) Foreground(ctx context.Context) error {
	return c.do(ctx, func(context.Context) error {
		c.log.Debug("foreground")
		return nil
	})
}

// control logs a failed control call and returns err unchanged. Authority
// is never changed here; the next authoritative event reflects the real
// backend state.
func (c *Coordinator) control(op string, err error) error {
	if err != nil {
		c.log.Warn("control failed",
			zap.String("op", op),
			zap.Stringer("authority", c.authority),
			zap.Error(err))
	}
	return err
}
