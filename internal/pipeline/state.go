package pipeline

// State identifies a request's position in its lifecycle.
//
// Each request walks Received → Generating → Validating → Executing →
// Completed, or drops to Failed from any non-terminal state. Completed
// and Failed are terminal; there is no retry within a request.
type State string

const (
	StateReceived   State = "RECEIVED"
	StateGenerating State = "GENERATING"
	StateValidating State = "VALIDATING"
	StateExecuting  State = "EXECUTING"
	StateCompleted  State = "COMPLETED"
	StateFailed     State = "FAILED"
)

// IsTerminal reports whether the state ends the request's state machine.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// allowedTransition encodes the legal state machine edges.
func allowedTransition(from, to State) bool {
	if to == StateFailed {
		// Any non-terminal state may fail.
		return !from.IsTerminal()
	}
	switch from {
	case StateReceived:
		return to == StateGenerating
	case StateGenerating:
		return to == StateValidating
	case StateValidating:
		return to == StateExecuting
	case StateExecuting:
		return to == StateCompleted
	default:
		return false
	}
}
