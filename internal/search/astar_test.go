package search

import (
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"reactive-planner/internal/geom"
	"reactive-planner/internal/graph"
)

type allClear struct{}

func (allClear) SegmentClear(a, b r3.Vector, clearance float64) bool { return true }

func problemOn(t *testing.T, positions []r3.Vector, radius float64, start int, goal r3.Vector, tol float64) Problem {
	t.Helper()
	b := &graph.Builder{Radius: radius, Checker: allClear{}, Logger: golog.NewTestLogger(t)}
	g, err := b.Build(positions)
	test.That(t, err, test.ShouldBeNil)
	poses := make([]geom.Pose, len(positions))
	sensors := make([][]geom.Pose, len(positions))
	for i, p := range positions {
		poses[i] = geom.NewPose(p, 0)
		sensors[i] = []geom.Pose{geom.NewPose(p.Add(r3.Vector{Z: 1}), 0)}
	}
	return Problem{
		Graph:     g,
		Start:     start,
		Poses:     poses,
		Sensors:   sensors,
		Heuristic: &DistanceHeuristic{Goal: geom.NewPose(goal, 0), Tolerance: tol},
	}
}

func row(n int) []r3.Vector {
	out := make([]r3.Vector, n)
	for i := range out {
		out[i] = r3.Vector{X: float64(i)}
	}
	return out
}

func TestAStarFindsShortestPath(t *testing.T) {
	// a square with a diagonal shortcut from corner to corner
	positions := []r3.Vector{{}, {X: 1}, {X: 1, Y: 1}, {Y: 1}, {X: 0.5, Y: 0.5}}
	p := problemOn(t, positions, 1.0, 0, r3.Vector{X: 1, Y: 1}, 0.01)

	sol, err := (&AStar{Logger: golog.NewTestLogger(t)}).Search(p)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sol, test.ShouldNotBeNil)
	test.That(t, sol.Len(), test.ShouldEqual, 3)

	var ids []int
	sol.Walk(func(n, next *SolutionNode) bool {
		ids = append(ids, n.Index)
		test.That(t, n.Sensors, test.ShouldHaveLength, 1)
		return true
	})
	test.That(t, ids, test.ShouldResemble, []int{0, 4, 2})
}

func TestAStarStartIsGoal(t *testing.T) {
	p := problemOn(t, row(3), 1.0, 1, r3.Vector{X: 1}, 0.5)
	sol, err := (&AStar{Logger: golog.NewTestLogger(t)}).Search(p)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sol.Len(), test.ShouldEqual, 1)
	test.That(t, sol.Nodes[sol.Head].Next, test.ShouldEqual, -1)
}

func TestAStarNoPath(t *testing.T) {
	p := problemOn(t, row(4), 0.5, 0, r3.Vector{X: 3}, 0.1)
	test.That(t, p.Graph.NumEdges(), test.ShouldEqual, 0)

	sol, err := (&AStar{Logger: golog.NewTestLogger(t)}).Search(p)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sol, test.ShouldBeNil)
	test.That(t, sol.Len(), test.ShouldEqual, 0)
}

func TestAStarGoalTolerance(t *testing.T) {
	// goal lies between samples; the nearest one within tolerance is accepted
	p := problemOn(t, row(5), 1.0, 0, r3.Vector{X: 3.4}, 0.5)
	sol, err := (&AStar{Logger: golog.NewTestLogger(t)}).Search(p)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sol.Len(), test.ShouldEqual, 4)
	last := -1
	sol.Walk(func(n, next *SolutionNode) bool {
		if next == nil {
			last = n.Index
		}
		return true
	})
	test.That(t, last, test.ShouldEqual, 3)
}

func TestGreedyFindsPath(t *testing.T) {
	p := problemOn(t, row(6), 1.0, 0, r3.Vector{X: 5}, 0.1)
	sol, err := (&AStar{Greedy: true, Logger: golog.NewTestLogger(t)}).Search(p)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sol.Len(), test.ShouldEqual, 6)
}

func TestProgressReports(t *testing.T) {
	p := problemOn(t, row(10), 1.0, 0, r3.Vector{X: 9}, 0.1)
	var reports []int
	engine := &AStar{
		ProgressEvery: 3,
		Progress:      func(tree [][2]r3.Vector) { reports = append(reports, len(tree)) },
		Logger:        golog.NewTestLogger(t),
	}
	sol, err := engine.Search(p)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sol.Len(), test.ShouldEqual, 10)
	test.That(t, reports, test.ShouldResemble, []int{2, 5, 8})
}

func TestInvalidProblem(t *testing.T) {
	engine := &AStar{Logger: golog.NewTestLogger(t)}
	_, err := engine.Search(Problem{})
	test.That(t, err, test.ShouldNotBeNil)

	p := problemOn(t, row(2), 1.0, 5, r3.Vector{}, 0.1)
	_, err = engine.Search(p)
	test.That(t, err, test.ShouldNotBeNil)

	p = problemOn(t, row(2), 1.0, 0, r3.Vector{}, 0.1)
	p.Heuristic = nil
	_, err = engine.Search(p)
	test.That(t, err, test.ShouldNotBeNil)
}
