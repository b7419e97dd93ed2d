package persist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/llehouerou/wavecast/internal/kv"
	"github.com/llehouerou/wavecast/internal/playback"
)

func tracks(ids ...string) []playback.Track {
	out := make([]playback.Track, len(ids))
	for i, id := range ids {
		out[i] = playback.Track{ID: id, Title: "Title " + id, Duration: 3 * time.Minute}
	}
	return out
}

func newGateway(t *testing.T, store kv.Store) *Gateway {
	t.Helper()
	return New(store, zaptest.NewLogger(t))
}

func TestSaveNow_LoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	g := newGateway(t, kv.NewMemory())

	want := Session{Queue: tracks("t1", "t2", "t3"), ActiveIndex: 1, Position: 42 * time.Second}
	require.NoError(t, g.SaveNow(ctx, want))

	got, ok := g.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, []string{"t1", "t2", "t3"}, ids(got.Queue))
	assert.Equal(t, 1, got.ActiveIndex)
	assert.Equal(t, 42*time.Second, got.Position)
}

func TestSaveNow_KeyLayout(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	g := newGateway(t, store)

	require.NoError(t, g.SaveNow(ctx, Session{Queue: tracks("t1"), ActiveIndex: 0, Position: 1500 * time.Millisecond}))

	idx, _ := store.Get(ctx, KeyActiveIndex)
	pos, _ := store.Get(ctx, KeyPosition)
	queue, _ := store.Get(ctx, KeyQueue)
	assert.Equal(t, "0", idx)
	assert.Equal(t, "1.5", pos)
	assert.Contains(t, queue, `"id":"t1"`)
}

func TestLoad_NoSession(t *testing.T) {
	_, ok := newGateway(t, kv.NewMemory()).Load(context.Background())
	assert.False(t, ok)
}

func TestLoad_ToleratesMissingKeys(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
	}{
		{"queue only", map[string]string{KeyQueue: `[{"id":"t1"}]`}},
		{"no queue", map[string]string{KeyActiveIndex: "0", KeyPosition: "1"}},
		{"no position", map[string]string{KeyQueue: `[{"id":"t1"}]`, KeyActiveIndex: "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := kv.NewMemory()
			require.NoError(t, store.Set(ctx, tt.values))

			_, ok := newGateway(t, store).Load(ctx)
			assert.False(t, ok)
		})
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
	}{
		{"empty queue", map[string]string{KeyQueue: `[]`, KeyActiveIndex: "0", KeyPosition: "0"}},
		{"corrupt queue", map[string]string{KeyQueue: `[{`, KeyActiveIndex: "0", KeyPosition: "0"}},
		{"bad index", map[string]string{KeyQueue: `[{"id":"t1"}]`, KeyActiveIndex: "one", KeyPosition: "0"}},
		{"bad position", map[string]string{KeyQueue: `[{"id":"t1"}]`, KeyActiveIndex: "0", KeyPosition: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := kv.NewMemory()
			require.NoError(t, store.Set(ctx, tt.values))

			_, ok := newGateway(t, store).Load(ctx)
			assert.False(t, ok)
		})
	}
}

func TestLookup_DistinguishesMissingFromCorrupt(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	g := newGateway(t, store)

	_, err := g.Lookup(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, store.Set(ctx, map[string]string{KeyQueue: `[]`, KeyActiveIndex: "0", KeyPosition: "0"}))
	_, err = g.Lookup(ctx)
	assert.ErrorIs(t, err, ErrNoSession, "empty queue")

	require.NoError(t, store.Set(ctx, map[string]string{KeyQueue: `{`}))
	_, err = g.Lookup(ctx)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSession)
}

func TestLoad_StoreErrorIsNotFatal(t *testing.T) {
	store := &failingStore{err: errors.New("disk on fire")}
	_, ok := newGateway(t, store).Load(context.Background())
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	g := newGateway(t, store)

	require.NoError(t, g.SaveNow(ctx, Session{Queue: tracks("t1"), ActiveIndex: 0}))
	require.NoError(t, g.Clear(ctx))

	_, ok := g.Load(ctx)
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}

func TestSave_AsyncThenFlush(t *testing.T) {
	ctx := context.Background()
	g := newGateway(t, kv.NewMemory())

	g.Save(Session{Queue: tracks("t1", "t2"), ActiveIndex: 1, Position: 5 * time.Second})
	require.NoError(t, g.Flush(ctx))

	got, ok := g.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, 1, got.ActiveIndex)
}

func TestSave_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	store := newGatedStore()
	g := newGateway(t, store)

	g.Save(Session{Queue: tracks("a"), ActiveIndex: 0})
	<-store.entered // first write is in flight

	g.Save(Session{Queue: tracks("b"), ActiveIndex: 0})
	g.Save(Session{Queue: tracks("c"), ActiveIndex: 0})
	close(store.release)

	require.NoError(t, g.Flush(ctx))

	writes := store.queues()
	require.Len(t, writes, 2, "intermediate save should be coalesced")
	assert.Contains(t, writes[0], `"id":"a"`)
	assert.Contains(t, writes[1], `"id":"c"`)
}

func TestSave_DoesNotAliasCallerQueue(t *testing.T) {
	ctx := context.Background()
	g := newGateway(t, kv.NewMemory())

	q := tracks("t1")
	g.Save(Session{Queue: q, ActiveIndex: 0})
	q[0].ID = "mutated"
	require.NoError(t, g.Flush(ctx))

	got, ok := g.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, "t1", got.Queue[0].ID)
}

func TestClear_DropsPendingSave(t *testing.T) {
	ctx := context.Background()
	store := newGatedStore()
	g := newGateway(t, store)

	g.Save(Session{Queue: tracks("a"), ActiveIndex: 0})
	<-store.entered
	g.Save(Session{Queue: tracks("b"), ActiveIndex: 0})

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(store.release)
	}()
	require.NoError(t, g.Clear(ctx))

	_, ok := g.Load(ctx)
	assert.False(t, ok, "pending save must not resurrect a cleared session")
	assert.Len(t, store.queues(), 1)
}

func ids(q []playback.Track) []string {
	out := make([]string, len(q))
	for i, t := range q {
		out[i] = t.ID
	}
	return out
}

type failingStore struct{ err error }

func (s *failingStore) Get(context.Context, string) (string, error) { return "", s.err }
func (s *failingStore) Set(context.Context, map[string]string) error { return s.err }
func (s *failingStore) Delete(context.Context, ...string) error { return s.err }
func (s *failingStore) Close() error { return nil }

// gatedStore blocks every Set until release is closed.
type gatedStore struct {
	*kv.Memory
	entered chan struct{}
	release chan struct{}

	mu     sync.Mutex
	writes []string
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		Memory:  kv.NewMemory(),
		entered: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (s *gatedStore) Set(ctx context.Context, values map[string]string) error {
	s.entered <- struct{}{}
	<-s.release
	s.mu.Lock()
	s.writes = append(s.writes, values[KeyQueue])
	s.mu.Unlock()
	return s.Memory.Set(ctx, values)
}

func (s *gatedStore) queues() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.writes...)
}
