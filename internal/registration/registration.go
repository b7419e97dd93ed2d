// Package registration decides when a listen counts as a play.
//
// A play is registered at most once per activation: the period during which
// one track stays active. The rule mirrors scrobble thresholds, reduced to a
// fixed position.
package registration

import (
	"sync"
	"sync/atomic"
	"time"
)

// Threshold is the position after which an activation counts as a play.
const Threshold = 10 * time.Second

// ShouldRegister applies the default threshold.
func ShouldRegister(position time.Duration, registered bool) bool {
	return ShouldRegisterAt(position, registered, Threshold)
}

// ShouldRegisterAt reports whether a play must be registered now.
func ShouldRegisterAt(position time.Duration, registered bool, threshold time.Duration) bool {
	return position >= threshold && !registered
}

// Activation holds the registration flag of the current activation.
// The zero value is usable and uses Threshold.
type Activation struct {
	threshold  time.Duration
	registered atomic.Bool

	mu      sync.Mutex
	trackID string
}

// NewActivation creates an activation flag with a custom threshold.
// A non-positive threshold falls back to Threshold.
func NewActivation(threshold time.Duration) *Activation {
	if threshold <= 0 {
		threshold = Threshold
	}
	return &Activation{threshold: threshold}
}

// Reset starts a new activation for trackID with the flag cleared.
func (a *Activation) Reset(trackID string) {
	a.mu.Lock()
	a.trackID = trackID
	a.mu.Unlock()
	a.registered.Store(false)
}

// TrackID returns the track of the current activation.
func (a *Activation) TrackID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.trackID
}

// Registered reports whether the current activation already registered a play.
func (a *Activation) Registered() bool {
	return a.registered.Load()
}

// TryClaim evaluates the rule at position and, when it fires, flips the flag
// before returning true. Concurrent callers observe exactly one true.
func (a *Activation) TryClaim(position time.Duration) bool {
	threshold := a.threshold
	if threshold <= 0 {
		threshold = Threshold
	}
	if !ShouldRegisterAt(position, a.registered.Load(), threshold) {
		return false
	}
	return a.registered.CompareAndSwap(false, true)
}
