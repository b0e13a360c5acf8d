package search

import (
	"reactive-planner/internal/geom"
)

// SolutionNode is one waypoint of a found path. Next is the index of the following
// node in the owning Solution, or -1 for the terminal node.
type SolutionNode struct {
	Index   int // graph node
	Pose    geom.Pose
	Sensors []geom.Pose
	Next    int
}

// Solution owns the chain of waypoints from start to goal.
type Solution struct {
	Nodes []SolutionNode
	Head  int
}

// Len returns the number of waypoints in the chain.
func (s *Solution) Len() int {
	if s == nil {
		return 0
	}
	n := 0
	for i := s.Head; i >= 0; i = s.Nodes[i].Next {
		n++
	}
	return n
}

// Walk calls fn for each node from the head until fn returns false or the chain ends.
// The second argument is the following node, nil at the terminal node.
func (s *Solution) Walk(fn func(n, next *SolutionNode) bool) {
	if s == nil {
		return
	}
	for i := s.Head; i >= 0; i = s.Nodes[i].Next {
		var next *SolutionNode
		if j := s.Nodes[i].Next; j >= 0 {
			next = &s.Nodes[j]
		}
		if !fn(&s.Nodes[i], next) {
			return
		}
	}
}

// newSolution builds a chain over the graph indices in path order.
func newSolution(path []int, poses []geom.Pose, sensors [][]geom.Pose) *Solution {
	sol := &Solution{Nodes: make([]SolutionNode, len(path)), Head: 0}
	for k, idx := range path {
		n := SolutionNode{Index: idx, Pose: poses[idx], Next: k + 1}
		if idx < len(sensors) {
			n.Sensors = sensors[idx]
		}
		if k == len(path)-1 {
			n.Next = -1
		}
		sol.Nodes[k] = n
	}
	return sol
}
