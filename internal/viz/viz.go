// Package viz publishes planner markers (samples, edges, paths, poses) to a display backend.
//
// Publish calls are buffered; nothing is guaranteed visible until Trigger commits the batch.
package viz

import (
	"github.com/golang/geo/r3"
	"go.uber.org/multierr"

	"reactive-planner/internal/geom"
)

// Color of a marker.
type Color string

// Marker colors.
const (
	Blue     Color = "blue"
	Orange   Color = "orange"
	Purple   Color = "purple"
	Red      Color = "red"
	Yellow   Color = "yellow"
	Cyan     Color = "cyan"
	DarkGrey Color = "dark_grey"
	Green    Color = "green"
)

// Marker namespaces.
const (
	NSStart        = "start_pose"
	NSGoal         = "end_pose"
	NSSearchSpace  = "search_space_nodes"
	NSConnections  = "search_space_connections"
	NSSearchTree   = "search_tree"
	NSPath         = "path"
	NSPathPoses    = "path_poses"
	NSSpaceRobot   = "search_space_robot_poses"
	NSSpaceSensors = "search_space_sensor_poses"
)

// Kind of marker.
type Kind string

// Marker kinds.
const (
	Sphere Kind = "sphere"
	Line   Kind = "line"
	Arrow  Kind = "arrow"
)

// Marker is one published primitive.
type Marker struct {
	Namespace string
	Kind      Kind
	Color     Color
	Scale     float64
	Points    []r3.Vector // one for spheres, two for lines
	Pose      geom.Pose   // arrows
}

// Visualizer is a marker sink.
type Visualizer interface {
	PublishSpheres(ns string, points []r3.Vector, color Color, scale float64)
	PublishLines(ns string, lines [][2]r3.Vector, color Color, scale float64)
	PublishArrows(ns string, poses []geom.Pose, color Color, length float64)
	// Trigger commits everything published since the last call.
	Trigger() error
}

// Batch buffers markers until flushed. Sinks embed it.
type Batch struct {
	pending []Marker
}

func (b *Batch) PublishSpheres(ns string, points []r3.Vector, color Color, scale float64) {
	for _, p := range points {
		b.pending = append(b.pending, Marker{Namespace: ns, Kind: Sphere, Color: color, Scale: scale, Points: []r3.Vector{p}})
	}
}

func (b *Batch) PublishLines(ns string, lines [][2]r3.Vector, color Color, scale float64) {
	for _, l := range lines {
		b.pending = append(b.pending, Marker{Namespace: ns, Kind: Line, Color: color, Scale: scale, Points: []r3.Vector{l[0], l[1]}})
	}
}

func (b *Batch) PublishArrows(ns string, poses []geom.Pose, color Color, length float64) {
	for _, p := range poses {
		b.pending = append(b.pending, Marker{Namespace: ns, Kind: Arrow, Color: color, Scale: length, Pose: p, Points: []r3.Vector{p.Position}})
	}
}

// Flush returns and clears the pending markers.
func (b *Batch) Flush() []Marker {
	out := b.pending
	b.pending = nil
	return out
}

// multi fans every call out to several visualizers.
type multi []Visualizer

// Multi returns a Visualizer publishing to all of vs.
func Multi(vs ...Visualizer) Visualizer {
	return multi(vs)
}

func (m multi) PublishSpheres(ns string, points []r3.Vector, color Color, scale float64) {
	for _, v := range m {
		v.PublishSpheres(ns, points, color, scale)
	}
}

func (m multi) PublishLines(ns string, lines [][2]r3.Vector, color Color, scale float64) {
	for _, v := range m {
		v.PublishLines(ns, lines, color, scale)
	}
}

func (m multi) PublishArrows(ns string, poses []geom.Pose, color Color, length float64) {
	for _, v := range m {
		v.PublishArrows(ns, poses, color, length)
	}
}

func (m multi) Trigger() error {
	var err error
	for _, v := range m {
		err = multierr.Append(err, v.Trigger())
	}
	return err
}
