package pipeline

import "fmt"

// State is a batch lifecycle stage.
type State string

// Batch lifecycle stages.
const (
	StateInit           State = "init"
	StatePerSectionLoop State = "per_section_loop"
	StateAggregating    State = "aggregating"
	StateFailed         State = "failed"
	StateDone           State = "done"
)

// isValidTransition enforces the allowed batch state machine edges.
func isValidTransition(from, to State) bool {
	switch from {
	case StateInit:
		return to == StatePerSectionLoop || to == StateFailed
	case StatePerSectionLoop:
		return to == StateAggregating || to == StateFailed
	case StateAggregating:
		return to == StateDone || to == StateFailed
	case StateFailed:
		return to == StateDone
	default:
		return false
	}
}

// stateMachine tracks one batch run.
type stateMachine struct {
	current State
	history []State
}

func newStateMachine() *stateMachine {
	return &stateMachine{current: StateInit, history: []State{StateInit}}
}

func (m *stateMachine) transition(to State) error {
	if !isValidTransition(m.current, to) {
		return fmt.Errorf("invalid transition: %s -> %s", m.current, to)
	}

	m.current = to
	m.history = append(m.history, to)

	return nil
}

// States returns the stages visited so far, in order.
func (m *stateMachine) States() []State {
	out := make([]State, len(m.history))
	copy(out, m.history)

	return out
}
