// Package search finds a path across a traversability graph with a pluggable heuristic.
package search

import (
	"reactive-planner/internal/geom"
)

// State is the view of a search node a heuristic evaluates.
type State struct {
	Index int
	Pose  geom.Pose
}

// Heuristic guides the search and decides when it is done.
type Heuristic interface {
	// Evaluate returns the estimated cost from s to the goal.
	Evaluate(s State) float64
	// IsGoal reports whether s is an acceptable terminus.
	IsGoal(s State) bool
}

// DistanceHeuristic estimates cost as straight line distance to the goal position and
// accepts any node within Tolerance of it.
type DistanceHeuristic struct {
	Goal      geom.Pose
	Tolerance float64
}

func (h *DistanceHeuristic) Evaluate(s State) float64 {
	return s.Pose.Distance(h.Goal)
}

func (h *DistanceHeuristic) IsGoal(s State) bool {
	return s.Pose.Distance(h.Goal) <= h.Tolerance
}
