package player

// State is the engine's transport state. Play and Load leave it Playing and
// Paused respectively; Stop and the end of the stream leave it Stopped.
// Transitions that make no sense from the current state are ignored.
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

var stateNames = [...]string{Stopped: "Stopped", Playing: "Playing", Paused: "Paused"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// CanPause reports whether Pause has an effect in s.
func (s State) CanPause() bool { return s == Playing }

// CanResume reports whether Resume has an effect in s.
func (s State) CanResume() bool { return s == Paused }
