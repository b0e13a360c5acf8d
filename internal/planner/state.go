// Package planner runs one planning episode once enough of the map has been observed.
//
// The Orchestrator moves through WaitingForCloud, WaitingForOccupancy, Planning and Done.
// Sensor scans arrive asynchronously through OnObservation; Tick, called at a fixed rate
// by Run, checks readiness and runs the planning pipeline exactly once.
package planner

import (
	"go.uber.org/atomic"
)

// State is the episode state.
type State int32

// Episode states, in the only order they are entered.
const (
	WaitingForCloud State = iota
	WaitingForOccupancy
	Planning
	Done
)

func (s State) String() string {
	switch s {
	case WaitingForCloud:
		return "waiting_for_cloud"
	case WaitingForOccupancy:
		return "waiting_for_occupancy"
	case Planning:
		return "planning"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// stateMachine only allows forward, single step transitions, so each state is entered
// at most once.
type stateMachine struct {
	v atomic.Int32
}

func (m *stateMachine) load() State {
	return State(m.v.Load())
}

// advance moves from `from` to the next state and reports whether this call did it.
func (m *stateMachine) advance(from State) bool {
	if from >= Done {
		return false
	}
	return m.v.CompareAndSwap(int32(from), int32(from+1))
}
