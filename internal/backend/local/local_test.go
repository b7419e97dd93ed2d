package local

import (
	"context"
	"errors"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/wavecast/internal/backend"
	"github.com/llehouerou/wavecast/internal/playback"
	"github.com/llehouerou/wavecast/internal/player"
)

func tracks(ids ...string) []playback.Track {
	out := make([]playback.Track, len(ids))
	for i, id := range ids {
		out[i] = playback.Track{ID: id, URL: "/music/" + id + ".flac", Duration: 3 * time.Minute}
	}
	return out
}

func newAdapter(t *testing.T) (*Adapter, *player.Mock) {
	t.Helper()
	engine := player.NewMock()
	a := New(engine, Options{ProgressInterval: time.Second})
	t.Cleanup(func() { a.Close() })
	return a, engine
}

// drain returns every event emitted so far. Call it inside a bubble.
func drain(a *Adapter) []backend.Event {
	synctest.Wait()
	var out []backend.Event
	for {
		select {
		case e := <-a.Events():
			out = append(out, e)
		default:
			return out
		}
	}
}

func kinds(events []backend.Event) []backend.Kind {
	out := make([]backend.Kind, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}

func TestSetQueue_StopsEngineAndAnnouncesFirstTrack(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		a, engine := newAdapter(t)

		require.NoError(t, a.SetQueue(ctx, tracks("t1", "t2")))

		assert.Equal(t, player.Stopped, engine.State())
		idx, _ := a.ActiveIndex(ctx)
		assert.Equal(t, 0, idx)

		events := drain(a)
		require.Equal(t, []backend.Kind{backend.StateChanged, backend.TrackChanged}, kinds(events))
		assert.Equal(t, "t1", events[1].Track.ID)
		assert.Equal(t, backend.Local, events[1].Source)
	})
}

func TestSetQueue_Empty(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		a, _ := newAdapter(t)

		require.NoError(t, a.SetQueue(ctx, nil))

		idx, _ := a.ActiveIndex(ctx)
		assert.Equal(t, playback.NoIndex, idx)
		assert.Empty(t, drain(a))
	})
}

func TestQueue_ReturnsCopy(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		a, _ := newAdapter(t)
		_ = a.SetQueue(ctx, tracks("t1"))

		q, err := a.Queue(ctx)
		require.NoError(t, err)
		q[0].ID = "mutated"

		q, _ = a.Queue(ctx)
		assert.Equal(t, "t1", q[0].ID)
	})
}

func TestSkipTo_PausedLoadsWithoutPlaying(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		a, engine := newAdapter(t)
		_ = a.SetQueue(ctx, tracks("t1", "t2", "t3"))

		require.NoError(t, a.SkipTo(ctx, 1))

		assert.Equal(t, []string{"/music/t2.flac"}, engine.LoadCalls())
		assert.Empty(t, engine.PlayCalls())
		assert.Equal(t, player.Paused, engine.State())
	})
}

func TestSkipTo_PlayingKeepsPlaying(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		a, engine := newAdapter(t)
		_ = a.SetQueue(ctx, tracks("t1", "t2"))
		require.NoError(t, a.Play(ctx))

		require.NoError(t, a.SkipTo(ctx, 1))

		assert.Equal(t, []string{"/music/t1.flac", "/music/t2.flac"}, engine.PlayCalls())
		assert.Equal(t, player.Playing, engine.State())
	})
}

func TestSkipTo_OutOfRange(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		a, _ := newAdapter(t)
		_ = a.SetQueue(ctx, tracks("t1"))

		err := a.SkipTo(ctx, 5)

		var ce *backend.ControlError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, backend.Local, ce.Source)
		assert.ErrorIs(t, err, backend.ErrOutOfRange)
	})
}

func TestPlay_EmptyQueueIsRejected(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		a, _ := newAdapter(t)
		err := a.Play(context.Background())
		assert.ErrorIs(t, err, backend.ErrRejected)
	})
}

func TestPlay_EngineFailureIsUnavailable(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		a, engine := newAdapter(t)
		_ = a.SetQueue(ctx, tracks("t1"))
		engine.SetPlayError(errors.New("no audio device"))

		err := a.Play(ctx)
		assert.ErrorIs(t, err, backend.ErrUnavailable)
	})
}

func TestPauseThenPlayResumes(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		a, engine := newAdapter(t)
		_ = a.SetQueue(ctx, tracks("t1"))
		_ = a.Play(ctx)

		require.NoError(t, a.Pause(ctx))
		assert.Equal(t, player.Paused, engine.State())

		require.NoError(t, a.Play(ctx))
		assert.Equal(t, player.Playing, engine.State())
		assert.Len(t, engine.PlayCalls(), 1, "resume should not reload the track")
	})
}

func TestSeekTo_LoadsStoppedTrack(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		a, engine := newAdapter(t)
		_ = a.SetQueue(ctx, tracks("t1", "t2"))
		drain(a)

		require.NoError(t, a.SeekTo(ctx, 42*time.Second))

		assert.Equal(t, []time.Duration{42 * time.Second}, engine.SeekCalls())
		assert.Equal(t, player.Paused, engine.State())

		events := drain(a)
		require.NotEmpty(t, events)
		last := events[len(events)-1]
		assert.Equal(t, backend.ProgressUpdated, last.Kind)
		assert.Equal(t, 42*time.Second, last.Progress.Position)
	})
}

func TestProgress_TicksOnlyWhilePlaying(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		a, engine := newAdapter(t)
		_ = a.SetQueue(ctx, tracks("t1"))

		time.Sleep(3*time.Second + 500*time.Millisecond)
		synctest.Wait()
		assert.NotContains(t, kinds(drain(a)), backend.ProgressUpdated)

		_ = a.Play(ctx)
		engine.SetPosition(12 * time.Second)
		drain(a)

		time.Sleep(3 * time.Second)
		synctest.Wait()

		var progress []backend.Event
		for _, e := range drain(a) {
			if e.Kind == backend.ProgressUpdated {
				progress = append(progress, e)
			}
		}
		require.Len(t, progress, 3)
		assert.Equal(t, 12*time.Second, progress[0].Progress.Position)
		assert.Equal(t, 3*time.Minute, progress[0].Progress.Duration, "falls back to track duration")
	})
}

func TestFinished_AdvancesToNextTrack(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		a, engine := newAdapter(t)
		_ = a.SetQueue(ctx, tracks("t1", "t2"))
		_ = a.Play(ctx)
		drain(a)

		engine.SimulateFinished()
		synctest.Wait()

		events := drain(a)
		require.Contains(t, kinds(events), backend.TrackChanged)
		for _, e := range events {
			if e.Kind == backend.TrackChanged {
				assert.Equal(t, 1, e.Index)
				assert.Equal(t, "t2", e.Track.ID)
			}
		}
		assert.Equal(t, player.Playing, engine.State())
	})
}

func TestFinished_LastTrackEndsQueue(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		a, engine := newAdapter(t)
		_ = a.SetQueue(ctx, tracks("t1"))
		_ = a.Play(ctx)
		drain(a)

		engine.SimulateFinished()
		synctest.Wait()

		events := drain(a)
		require.Equal(t, []backend.Kind{backend.QueueEnded, backend.StateChanged}, kinds(events))
		assert.Equal(t, playback.StateEnded, events[1].State)
	})
}

func TestAdd_ToEmptyQueueAnnouncesTrack(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		a, _ := newAdapter(t)

		require.NoError(t, a.Add(ctx, tracks("t1")[0], -1))
		require.NoError(t, a.Add(ctx, tracks("t0")[0], 0))

		q, _ := a.Queue(ctx)
		assert.Equal(t, "t0", q[0].ID)
		idx, _ := a.ActiveIndex(ctx)
		assert.Equal(t, 1, idx, "current track keeps its identity")

		changes := 0
		for _, e := range drain(a) {
			if e.Kind == backend.TrackChanged {
				changes++
			}
		}
		assert.Equal(t, 1, changes)
	})
}

func TestRemove_CurrentTrackMovesToNext(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		a, engine := newAdapter(t)
		_ = a.SetQueue(ctx, tracks("t1", "t2", "t3"))
		_ = a.Play(ctx)
		drain(a)

		require.NoError(t, a.Remove(ctx, 0))

		q, _ := a.Queue(ctx)
		assert.Len(t, q, 2)
		assert.Equal(t, player.Playing, engine.State())
		assert.Equal(t, "/music/t2.flac", engine.PlayCalls()[1])
		assert.Contains(t, kinds(drain(a)), backend.TrackChanged)

		assert.ErrorIs(t, a.Remove(ctx, 9), backend.ErrOutOfRange)
	})
}

func TestUpdateTrack(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		a, _ := newAdapter(t)
		_ = a.SetQueue(ctx, tracks("t1"))

		updated := tracks("t1")[0].WithPlayCount(4)
		require.NoError(t, a.UpdateTrack(ctx, 0, updated))

		q, _ := a.Queue(ctx)
		assert.Equal(t, 4, q[0].PlayCount)
		assert.ErrorIs(t, a.UpdateTrack(ctx, 3, updated), backend.ErrOutOfRange)
	})
}

func TestSetVolume_Clamps(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		a, engine := newAdapter(t)

		require.NoError(t, a.SetVolume(ctx, 0))
		assert.InDelta(t, 0.0, engine.Volume(), 1e-9)

		require.NoError(t, a.SetVolume(ctx, 7))
		assert.InDelta(t, 1.0, engine.Volume(), 1e-9)
	})
}

func TestClose_ClosesEventsAndRejectsCalls(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		a, _ := newAdapter(t)

		require.NoError(t, a.Close())
		require.NoError(t, a.Close())

		_, open := <-a.Events()
		assert.False(t, open)
		assert.ErrorIs(t, a.Play(ctx), backend.ErrClosed)
	})
}

func TestControls_DoNotWaitForAnUnreadEventStream(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		a, _ := newAdapter(t)
		require.NoError(t, a.SetQueue(ctx, tracks("t1", "t2")))

		for i := range 2 * eventBuffer {
			require.NoError(t, a.SkipTo(ctx, i%2))
		}

		idx, err := a.ActiveIndex(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, idx)
	})
}
