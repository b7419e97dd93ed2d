// Package player is the on-device audio engine built on beep.
package player

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
)

// ErrNotLoaded is returned by operations that need a loaded track.
var ErrNotLoaded = errors.New("no track loaded")

var (
	speakerMu          sync.Mutex
	speakerInitialized bool
	speakerSampleRate  beep.SampleRate
)

// Player plays one track at a time through the system speaker.
type Player struct {
	mu sync.Mutex

	state       State
	ctrl        *beep.Ctrl
	volume      *effects.Volume
	streamer    beep.StreamSeekCloser
	format      beep.Format
	volumeLevel float64
	generation  uint64

	finishedCh chan struct{}
	httpClient *http.Client
}

// New creates a stopped player at full volume.
func New() *Player {
	return &Player{
		state:       Stopped,
		volumeLevel: 1,
		finishedCh:  make(chan struct{}, 1),
		httpClient:  &http.Client{Timeout: 5 * time.Minute},
	}
}

func (p *Player) Play(location string) error {
	return p.load(location, false)
}

func (p *Player) Load(location string) error {
	return p.load(location, true)
}

func (p *Player) load(location string, paused bool) error {
	p.Stop()

	// Drain any stale finish signal from previous track
	select {
	case <-p.finishedCh:
	default:
	}

	src, err := openSource(p.httpClient, location)
	if err != nil {
		return err
	}
	streamer, format, err := decode(src)
	if err != nil {
		src.Close()
		return fmt.Errorf("decode %s: %w", location, err)
	}

	if err := initSpeaker(format.SampleRate); err != nil {
		streamer.Close()
		return err
	}

	// Resample if the track's sample rate differs from the speaker's
	var playStreamer beep.Streamer = streamer
	if format.SampleRate != speakerSampleRate {
		playStreamer = beep.Resample(4, format.SampleRate, speakerSampleRate, streamer)
	}

	p.mu.Lock()
	p.generation++
	gen := p.generation
	p.streamer = streamer
	p.format = format
	p.ctrl = &beep.Ctrl{Streamer: playStreamer, Paused: paused}
	p.volume = &effects.Volume{
		Streamer: p.ctrl,
		Base:     2,
		Volume:   levelToVolume(p.volumeLevel),
		Silent:   p.volumeLevel <= 0,
	}
	if paused {
		p.state = Paused
	} else {
		p.state = Playing
	}
	vol := p.volume
	p.mu.Unlock()

	speaker.Play(beep.Seq(vol, beep.Callback(func() {
		// The callback runs with the speaker locked; p.mu is taken after it
		// elsewhere, so hand off to avoid lock inversion.
		go p.finished(gen)
	})))
	return nil
}

// finished marks the track of generation gen as played to its end.
func (p *Player) finished(gen uint64) {
	p.mu.Lock()
	stale := gen != p.generation
	if !stale {
		p.state = Stopped
	}
	p.mu.Unlock()
	if stale {
		return
	}
	select {
	case p.finishedCh <- struct{}{}:
	default:
	}
}

func initSpeaker(rate beep.SampleRate) error {
	speakerMu.Lock()
	defer speakerMu.Unlock()
	if speakerInitialized {
		return nil
	}
	if err := speaker.Init(rate, rate.N(time.Second/10)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}
	speakerSampleRate = rate
	speakerInitialized = true
	return nil
}

// Stop stops playback and releases the decoder.
func (p *Player) Stop() {
	p.mu.Lock()
	if p.state == Stopped && p.streamer == nil {
		p.mu.Unlock()
		return
	}
	p.generation++
	streamer := p.streamer
	p.streamer = nil
	p.ctrl = nil
	p.volume = nil
	p.state = Stopped
	p.mu.Unlock()

	speaker.Clear()
	if streamer != nil {
		streamer.Close()
	}
}

// Pause pauses playback.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.state.CanPause() || p.ctrl == nil {
		return
	}
	speaker.Lock()
	p.ctrl.Paused = true
	speaker.Unlock()
	p.state = Paused
}

// Resume resumes paused playback.
func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.state.CanResume() || p.ctrl == nil {
		return
	}
	speaker.Lock()
	p.ctrl.Paused = false
	speaker.Unlock()
	p.state = Playing
}

func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Position returns the current playback position.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.streamer == nil {
		return 0
	}
	speaker.Lock()
	pos := p.streamer.Position()
	speaker.Unlock()
	return p.format.SampleRate.D(pos)
}

// Duration returns the length of the loaded track.
func (p *Player) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.streamer == nil {
		return 0
	}
	return p.format.SampleRate.D(p.streamer.Len())
}

// SeekTo moves to an absolute position, clamped to the track bounds.
func (p *Player) SeekTo(position time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.streamer == nil {
		return ErrNotLoaded
	}
	n := p.format.SampleRate.N(max(position, 0))
	n = min(n, max(p.streamer.Len()-1, 0))

	speaker.Lock()
	defer speaker.Unlock()
	return p.streamer.Seek(n)
}

// FinishedChan returns the channel signaled when a track ends.
func (p *Player) FinishedChan() <-chan struct{} {
	return p.finishedCh
}
