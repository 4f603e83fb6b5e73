package model

// State is the observed condition of a resource on the host.
type State string

const (
	// StateAbsent indicates the resource does not exist.
	StateAbsent State = "absent"
	// StatePresent indicates the resource matches its desired state.
	StatePresent State = "present"
	// StateMismatched indicates the resource exists but differs from the desired state.
	StateMismatched State = "mismatched"
	// StateUnknown indicates the state could not be determined.
	StateUnknown State = "unknown"
)

// IsValid reports whether the state is one of the known constants.
func (s State) IsValid() bool {
	switch s {
	case StateAbsent, StatePresent, StateMismatched, StateUnknown:
		return true
	default:
		return false
	}
}

// Satisfied reports whether no convergence is needed.
func (s State) Satisfied() bool {
	return s == StatePresent
}

// NeedsCreate reports whether converge must build the resource from scratch.
// Unknown is treated as absent so that an unreachable collaborator never
// causes a resource to be silently skipped.
func (s State) NeedsCreate() bool {
	return s == StateAbsent || s == StateUnknown || s == ""
}
