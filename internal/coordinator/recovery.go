package coordinator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/llehouerou/wavecast/internal/persist"
	"github.com/llehouerou/wavecast/internal/playback"
)

// Recovery is the cold-start state.
type Recovery int32

const (
	NoSession Recovery = iota
	Restoring
	Resumed
	RestoreFailed
)

func (r Recovery) String() string {
	switch r {
	case NoSession:
		return "NoSession"
	case Restoring:
		return "Restoring"
	case Resumed:
		return "Resumed"
	case RestoreFailed:
		return "RestoreFailed"
	default:
		return "Unknown"
	}
}

// Recovery reports the cold-start state.
func (c *Coordinator) Recovery() Recovery {
	return Recovery(c.recoveryView.Load())
}

func (c *Coordinator) setRecovery(r Recovery) {
	c.log.Debug("recovery", zap.Stringer("state", r))
	c.recoveryView.Store(int32(r))
}

// Restore loads the persisted session into the local backend, paused at
// the saved position. Without a persisted session it is a no-op. On any
// failure the persisted session is cleared and the error returned.
func (c *Coordinator) Restore(ctx context.Context) error {
	return c.do(ctx, c.restore)
}

func (c *Coordinator) restore(ctx context.Context) error {
	if c.gateway == nil || c.Recovery() != NoSession {
		return nil
	}
	s, err := c.gateway.Lookup(ctx)
	if errors.Is(err, persist.ErrNoSession) {
		return nil
	}
	c.setRecovery(Restoring)
	if err != nil {
		return c.fail(ctx, fmt.Errorf("load session: %w", err))
	}

	idx := playback.NormalizeIndex(s.ActiveIndex, len(s.Queue))
	if err := c.local.SetQueue(ctx, s.Queue); err != nil {
		return c.fail(ctx, err)
	}
	if err := c.local.SkipTo(ctx, idx); err != nil {
		return c.fail(ctx, err)
	}
	if s.Position > 0 {
		if err := c.local.SeekTo(ctx, s.Position); err != nil {
			return c.fail(ctx, err)
		}
	}

	c.store.SetQueue(s.Queue)
	c.store.SetActiveTrackIndex(idx)
	c.store.SetPlaybackState(playback.StatePaused)
	c.store.SetProgress(playback.Progress{
		Position: s.Position,
		Duration: s.Queue[idx].Duration,
	})

	t := s.Queue[idx]
	c.active = activeKey{index: idx, id: t.ID}
	c.beginActivation(t, false)
	// A resume past the threshold already counted its play before the
	// process died.
	c.activation.TryClaim(s.Position)

	c.log.Info("session restored",
		zap.Int("tracks", len(s.Queue)),
		zap.Int("index", idx),
		zap.Duration("position", s.Position))
	c.setRecovery(Resumed)
	return nil
}

// fail leaves no partial state behind: the persisted session is dropped so
// the next start does not retry it.
func (c *Coordinator) fail(ctx context.Context, cause error) error {
	c.setRecovery(RestoreFailed)
	c.log.Warn("restore failed", zap.Error(cause))

	c.active = noActive
	c.clearPersisted()
	c.store.Reset()
	if err := c.local.SetQueue(ctx, nil); err != nil {
		c.log.Debug("reset local queue", zap.Error(err))
	}

	c.setRecovery(NoSession)
	return cause
}
