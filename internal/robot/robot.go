// Package robot describes the physical robot the planner searches poses for.
package robot

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"reactive-planner/internal/geom"
)

// Sensor is a sensor rigidly mounted on the robot body.
type Sensor struct {
	Name  string
	Mount geom.Pose // relative to the body center
}

// Robot is an immutable description of the robot used to size clearances
// and derive sensor viewpoints.
type Robot struct {
	name          string
	height        float64
	width         float64
	narrowestPath float64
	center        r3.Vector
	sensors       []Sensor
}

// New validates the dimensions and returns a robot descriptor.
func New(name string, height, width, narrowestPath float64, center r3.Vector, sensors ...Sensor) (*Robot, error) {
	if height <= 0 || width <= 0 {
		return nil, errors.Errorf("invalid robot dimensions h=%.3f w=%.3f", height, width)
	}
	if narrowestPath < 0 {
		return nil, errors.Errorf("invalid narrowest path %.3f", narrowestPath)
	}
	return &Robot{
		name:          name,
		height:        height,
		width:         width,
		narrowestPath: narrowestPath,
		center:        center,
		sensors:       append([]Sensor(nil), sensors...),
	}, nil
}

// Name returns the robot name.
func (r *Robot) Name() string {
	return r.name
}

// Height returns the body height.
func (r *Robot) Height() float64 {
	return r.height
}

// Width returns the body width.
func (r *Robot) Width() float64 {
	return r.width
}

// NarrowestPath returns the narrowest gap the robot fits through.
func (r *Robot) NarrowestPath() float64 {
	return r.narrowestPath
}

// Center returns the body center offset from the robot pose.
func (r *Robot) Center() r3.Vector {
	return r.center
}

// NumSensors returns the number of mounted sensors.
func (r *Robot) NumSensors() int {
	return len(r.sensors)
}

// Sensors returns a copy of the sensor mounts.
func (r *Robot) Sensors() []Sensor {
	return append([]Sensor(nil), r.sensors...)
}

// Clearance is the free radius required around a traversed segment.
func (r *Robot) Clearance() float64 {
	return r.width / 2
}

// Body returns the pose of the body center when the robot is at p.
func (r *Robot) Body(p geom.Pose) geom.Pose {
	return p.Compose(geom.Pose{Position: r.center, Orientation: geom.Identity})
}

// SensorPoses returns the viewpoint of every mounted sensor when the robot is at p.
// Mounts are offsets from the body center.
func (r *Robot) SensorPoses(p geom.Pose) []geom.Pose {
	body := r.Body(p)
	poses := make([]geom.Pose, 0, len(r.sensors))
	for _, s := range r.sensors {
		poses = append(poses, body.Compose(s.Mount))
	}
	return poses
}
