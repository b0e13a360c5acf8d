// Package path turns a search solution into the waypoint data the planner reports.
package path

import (
	"github.com/golang/geo/r3"

	"reactive-planner/internal/geom"
	"reactive-planner/internal/search"
)

// Path is the reconstructed solution.
//
// RobotPoses and SensorPoses hold both endpoints of every segment in order, so every
// interior waypoint appears twice. A single waypoint chain yields its pose once.
type Path struct {
	Found       bool
	Waypoints   int
	Segments    [][2]r3.Vector
	RobotPoses  []geom.Pose
	SensorPoses []geom.Pose
	Length      float64
}

// Reconstruct walks sol from head to terminal node. A nil solution gives an empty,
// not found path.
func Reconstruct(sol *search.Solution) Path {
	var p Path
	if sol == nil || len(sol.Nodes) == 0 {
		return p
	}
	p.Found = true
	p.Waypoints = sol.Len()
	if p.Waypoints == 1 {
		head := sol.Nodes[sol.Head]
		p.RobotPoses = append(p.RobotPoses, head.Pose)
		p.SensorPoses = append(p.SensorPoses, head.Sensors...)
		return p
	}

	sol.Walk(func(n, next *search.SolutionNode) bool {
		if next == nil {
			return false
		}
		p.Segments = append(p.Segments, [2]r3.Vector{n.Pose.Position, next.Pose.Position})
		p.RobotPoses = append(p.RobotPoses, n.Pose, next.Pose)
		p.SensorPoses = append(p.SensorPoses, n.Sensors...)
		p.SensorPoses = append(p.SensorPoses, next.Sensors...)
		p.Length += next.Pose.Distance(n.Pose)
		return true
	})
	return p
}

// Points returns the distinct waypoint positions in order.
func (p Path) Points() []r3.Vector {
	if len(p.Segments) == 0 {
		if len(p.RobotPoses) == 1 {
			return []r3.Vector{p.RobotPoses[0].Position}
		}
		return nil
	}
	points := make([]r3.Vector, 0, len(p.Segments)+1)
	points = append(points, p.Segments[0][0])
	for _, s := range p.Segments {
		points = append(points, s[1])
	}
	return points
}
