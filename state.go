package tether

// State is the phase of a watched root's synchronizer.
type State int32

const (
	// StateIdle means no mutation records are waiting.
	StateIdle State = iota

	// StateCollecting means records are queued and a delivery is scheduled.
	// Further records join the same batch.
	StateCollecting

	// StateApplying means a batch is being applied. Records arriving now are
	// queued for the next batch.
	StateApplying

	// StateStopped means the root is no longer observed.
	StateStopped
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCollecting:
		return "collecting"
	case StateApplying:
		return "applying"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
