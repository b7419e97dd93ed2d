// internal/backend/mock.go
package backend

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/llehouerou/wavecast/internal/playback"
)

const mockEventBuffer = 64

// Mock is a test double implementing both LocalBackend and RemoteBackend.
type Mock struct {
	mu sync.Mutex

	source    Source
	queue     []playback.Track
	index     int
	position  time.Duration
	volume    float64
	playing   bool
	connected bool
	status    MediaStatus
	statusErr error

	failures map[string]error
	calls    []string
	volumes  []float64
	seeks    []time.Duration
	updates  map[int]playback.Track

	events chan Event
	closed bool
}

// NewMock creates a mock backend for the given source.
func NewMock(src Source) *Mock {
	return &Mock{
		source:   src,
		index:    playback.NoIndex,
		volume:   1,
		failures: make(map[string]error),
		updates:  make(map[int]playback.Track),
		events:   make(chan Event, mockEventBuffer),
	}
}

func (m *Mock) Source() Source { return m.source }

func (m *Mock) record(op string) error {
	m.calls = append(m.calls, op)
	if err, ok := m.failures[op]; ok {
		return Fail(m.source, op, err)
	}
	if m.closed {
		return Fail(m.source, op, ErrClosed)
	}
	return nil
}

func (m *Mock) SetQueue(_ context.Context, tracks []playback.Track) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("SetQueue"); err != nil {
		return err
	}
	m.queue = playback.CloneQueue(tracks)
	m.index = playback.NormalizeIndex(0, len(m.queue))
	return nil
}

func (m *Mock) Add(_ context.Context, track playback.Track, at int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("Add"); err != nil {
		return err
	}
	if at < 0 || at > len(m.queue) {
		at = len(m.queue)
	}
	m.queue = slices.Insert(m.queue, at, track)
	if m.index == playback.NoIndex {
		m.index = 0
	} else if at <= m.index {
		m.index++
	}
	return nil
}

func (m *Mock) Remove(_ context.Context, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("Remove"); err != nil {
		return err
	}
	if !playback.ValidIndex(index, len(m.queue)) {
		return Fail(m.source, "Remove", ErrOutOfRange)
	}
	m.queue = slices.Delete(m.queue, index, index+1)
	if index < m.index {
		m.index--
	}
	m.index = playback.NormalizeIndex(m.index, len(m.queue))
	return nil
}

func (m *Mock) SkipTo(_ context.Context, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("SkipTo"); err != nil {
		return err
	}
	if !playback.ValidIndex(index, len(m.queue)) {
		return Fail(m.source, "SkipTo", ErrOutOfRange)
	}
	m.index = index
	m.position = 0
	return nil
}

func (m *Mock) SeekTo(_ context.Context, position time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("SeekTo"); err != nil {
		return err
	}
	m.position = position
	m.seeks = append(m.seeks, position)
	return nil
}

func (m *Mock) SetVolume(_ context.Context, level float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("SetVolume"); err != nil {
		return err
	}
	m.volume = level
	m.volumes = append(m.volumes, level)
	return nil
}

func (m *Mock) Play(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("Play"); err != nil {
		return err
	}
	m.playing = true
	return nil
}

func (m *Mock) Pause(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("Pause"); err != nil {
		return err
	}
	m.playing = false
	return nil
}

func (m *Mock) Queue(_ context.Context) ([]playback.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failures["Queue"]; ok {
		return nil, Fail(m.source, "Queue", err)
	}
	return playback.CloneQueue(m.queue), nil
}

func (m *Mock) ActiveIndex(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failures["ActiveIndex"]; ok {
		return playback.NoIndex, Fail(m.source, "ActiveIndex", err)
	}
	return m.index, nil
}

func (m *Mock) UpdateTrack(_ context.Context, index int, track playback.Track) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("UpdateTrack"); err != nil {
		return err
	}
	if !playback.ValidIndex(index, len(m.queue)) {
		return Fail(m.source, "UpdateTrack", ErrOutOfRange)
	}
	m.queue[index] = track
	m.updates[index] = track
	return nil
}

func (m *Mock) Connect(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("Connect"); err != nil {
		return err
	}
	m.connected = true
	return nil
}

func (m *Mock) Disconnect(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("Disconnect"); err != nil {
		return err
	}
	m.connected = false
	return nil
}

func (m *Mock) MediaStatus(_ context.Context) (MediaStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statusErr != nil {
		return MediaStatus{}, Fail(m.source, "MediaStatus", m.statusErr)
	}
	return m.status, nil
}

func (m *Mock) Events() <-chan Event {
	return m.events
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	close(m.events)
	return nil
}

// Test helpers

// Emit delivers e on the event stream, stamping the mock's source.
func (m *Mock) Emit(e Event) {
	e.Source = m.source
	m.events <- e
}

// FailOn makes every later call to op fail with err. A nil err clears it.
func (m *Mock) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// SetState preloads the queue and active index without recording a call.
func (m *Mock) SetState(tracks []playback.Track, index int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = playback.CloneQueue(tracks)
	m.index = index
}

// SetMediaStatus sets what MediaStatus returns.
func (m *Mock) SetMediaStatus(s MediaStatus, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = s
	m.statusErr = err
}

// Calls returns every recorded control call in order.
func (m *Mock) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// CallCount returns how many times op was called.
func (m *Mock) CallCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == op {
			n++
		}
	}
	return n
}

// Volume returns the last volume set.
func (m *Mock) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

// Volumes returns every volume set, in order.
func (m *Mock) Volumes() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.volumes)
}

// Seeks returns every seek position, in order.
func (m *Mock) Seeks() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.seeks)
}

// Updated returns the last track pushed with UpdateTrack at index.
func (m *Mock) Updated(index int) (playback.Track, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.updates[index]
	return t, ok
}

// IsPlaying reports whether Play was called more recently than Pause.
func (m *Mock) IsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

// Position returns the last seek target (reset by SkipTo).
func (m *Mock) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

// Verify Mock implements both backend kinds at compile time.
var (
	_ LocalBackend  = (*Mock)(nil)
	_ RemoteBackend = (*Mock)(nil)
)
