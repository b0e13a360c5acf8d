package planner

import (
	"fmt"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"reactive-planner/internal/geom"
	"reactive-planner/internal/graph"
	"reactive-planner/internal/path"
	"reactive-planner/internal/search"
	"reactive-planner/internal/searchspace"
	"reactive-planner/internal/viz"
)

const (
	endpointScale = 0.3
	sampleScale   = 0.1
	edgeScale     = 0.02
	pathScale     = 0.05
	arrowLength   = 0.3
)

// plan runs generation, connection, search and reconstruction on one parameter snapshot.
func (o *Orchestrator) plan() error {
	params, err := o.source.Snapshot()
	if err != nil {
		return errors.Wrap(err, "reading planner parameters")
	}
	res := &Result{Params: params}
	defer o.store(res)

	start, goal := params.Start(), params.Goal()
	o.vis.PublishSpheres(viz.NSStart, []r3.Vector{start.Position}, viz.Blue, endpointScale)
	o.vis.PublishSpheres(viz.NSGoal, []r3.Vector{goal.Position}, viz.Orange, endpointScale)
	o.trigger()

	genStart := o.clk.Now()
	space, err := searchspace.Generate(searchspace.Grid{
		Origin:             geom.Pose{Orientation: geom.Identity},
		Size:               params.GridSize(),
		Resolution:         params.GridResolution,
		SampleOrientations: params.SampleOrientations,
		OrientationRes:     params.OrientationSamplingRes,
	}, o.robot, o.logger.Named("searchspace"))
	if err != nil {
		return errors.Wrap(err, "generating search space")
	}
	res.SearchSpaceSize = space.Len()
	positions := space.Positions()
	o.vis.PublishSpheres(viz.NSSearchSpace, positions, viz.Purple, sampleScale)
	o.trigger()

	builder := &graph.Builder{
		Radius:    params.ConnectionRad,
		Clearance: o.robot.Clearance(),
		Checker:   o.model,
		Logger:    o.logger.Named("graph"),
	}
	// one node per sample; headings of a cell sit at distance zero and are connected
	samples := space.Samples()
	nodes := make([]r3.Vector, len(samples))
	poses := make([]geom.Pose, len(samples), len(samples)+1)
	sensors := make([][]geom.Pose, len(samples), len(samples)+1)
	for i, sample := range samples {
		nodes[i] = sample.Pose.Position
		poses[i] = sample.Pose
		sensors[i] = sample.Sensors
	}
	g, err := builder.Build(nodes)
	if err != nil {
		return errors.Wrap(err, "connecting search space")
	}
	res.GenerationTime = o.clk.Since(genStart)
	o.logger.Infow("search space ready",
		"samples", space.Len(), "nodes", g.Len(), "edges", g.NumEdges(), "elapsed", res.GenerationTime)

	if params.VisualizeSearchSpace {
		o.vis.PublishLines(viz.NSConnections, g.LineSegments(), viz.Blue, edgeScale)
		o.trigger()
	}

	startIdx, _ := builder.Attach(g, start.Position)
	poses = append(poses, start)
	sensors = append(sensors, o.robot.SensorPoses(start))

	if o.graphFile != "" {
		if err := graph.Save(g, o.graphFile); err != nil {
			o.logger.Warnw("could not save graph", "file", o.graphFile, "error", err)
		}
	}
	res.Graph = g

	engine := o.engine(params, func(tree [][2]r3.Vector) {
		o.vis.PublishLines(viz.NSSearchTree, tree, viz.Green, edgeScale)
		o.trigger()
	})
	searchStart := o.clk.Now()
	sol, err := engine.Search(search.Problem{
		Graph:     g,
		Start:     startIdx,
		Poses:     poses,
		Sensors:   sensors,
		Heuristic: &search.DistanceHeuristic{Goal: goal, Tolerance: params.DistToGoal},
	})
	res.SearchTime = o.clk.Since(searchStart)
	if err != nil {
		return errors.Wrap(err, "searching")
	}
	o.logger.Infow("search finished", "elapsed", res.SearchTime)

	if sol == nil {
		o.logger.Warn("no path found")
	} else {
		o.logger.Infof("solution nodes: %s", describe(sol))
	}

	res.Path = path.Reconstruct(sol)
	o.logger.Infow("path", "found", res.Path.Found, "waypoints", res.Path.Waypoints, "distance", res.Path.Length)

	o.vis.PublishLines(viz.NSPath, res.Path.Segments, viz.Red, pathScale)
	o.trigger()
	o.vis.PublishArrows(viz.NSPathPoses, res.Path.RobotPoses, viz.Yellow, arrowLength)
	o.trigger()

	robotPoses, sensorPoses := space.RobotSensorPoses()
	o.vis.PublishArrows(viz.NSSpaceRobot, robotPoses, viz.Cyan, arrowLength)
	o.trigger()
	for _, sp := range sensorPoses {
		o.vis.PublishArrows(viz.NSSpaceSensors, sp, viz.DarkGrey, arrowLength)
	}
	o.trigger()
	return nil
}

func (o *Orchestrator) trigger() {
	if err := o.vis.Trigger(); err != nil {
		o.logger.Warnw("visualizer trigger failed", "error", err)
	}
}

func (o *Orchestrator) store(res *Result) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.result = res
}

func describe(sol *search.Solution) string {
	var sb strings.Builder
	sol.Walk(func(n, _ *search.SolutionNode) bool {
		if sb.Len() > 0 {
			sb.WriteString(" -> ")
		}
		p := n.Pose.Position
		fmt.Fprintf(&sb, "%d(%.2f, %.2f, %.2f)", n.Index, p.X, p.Y, p.Z)
		return true
	})
	return sb.String()
}
