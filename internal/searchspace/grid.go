// Package searchspace generates the discrete set of robot poses the planner searches over.
package searchspace

import (
	"math"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"reactive-planner/internal/geom"
	"reactive-planner/internal/robot"
)

// Sample is a candidate robot pose and the viewpoints of its sensors at that pose.
type Sample struct {
	Pose    geom.Pose
	Sensors []geom.Pose
}

// Grid describes a regular sampling of a box.
type Grid struct {
	Origin             geom.Pose
	Size               r3.Vector
	Resolution         float64
	SampleOrientations bool
	OrientationRes     float64 // degrees
}

// Cells returns the number of spatial cells along each axis. An axis whose size is zero
// still holds one layer of samples.
func (g Grid) Cells() [3]int {
	axis := func(size float64) int {
		n := int(math.Ceil(size/g.Resolution - 1e-9))
		if n < 1 {
			return 1
		}
		return n
	}
	return [3]int{axis(g.Size.X), axis(g.Size.Y), axis(g.Size.Z)}
}

// Orientations returns how many headings are sampled per cell.
func (g Grid) Orientations() int {
	if !g.SampleOrientations {
		return 1
	}
	return int(math.Floor(360/g.OrientationRes + 1e-9))
}

func (g Grid) validate() error {
	if g.Resolution <= 0 || math.IsNaN(g.Resolution) {
		return errors.Errorf("invalid grid resolution (%.3f)", g.Resolution)
	}
	if g.Size.X < 0 || g.Size.Y < 0 || g.Size.Z < 0 {
		return errors.Errorf("invalid grid size %v", g.Size)
	}
	if g.SampleOrientations && (g.OrientationRes <= 0 || g.OrientationRes > 360) {
		return errors.Errorf("orientation sampling resolution must be in (0, 360], got %.2f", g.OrientationRes)
	}
	return nil
}

// SearchSpace is the ordered, immutable output of Generate. Samples of one spatial cell
// are contiguous, one per heading.
type SearchSpace struct {
	samples      []Sample
	orientations int
	numSensors   int
}

// Generate samples g for r. The order is x, then y, then z, then heading, and is stable
// for identical inputs.
func Generate(g Grid, r *robot.Robot, logger golog.Logger) (*SearchSpace, error) {
	if err := g.validate(); err != nil {
		return nil, err
	}
	cells := g.Cells()
	orientations := g.Orientations()
	total := cells[0] * cells[1] * cells[2] * orientations

	space := &SearchSpace{
		samples:      make([]Sample, 0, total),
		orientations: orientations,
		numSensors:   r.NumSensors(),
	}
	baseYaw := g.Origin.Yaw()
	for i := 0; i < cells[0]; i++ {
		for j := 0; j < cells[1]; j++ {
			for k := 0; k < cells[2]; k++ {
				pos := g.Origin.Position.Add(r3.Vector{
					X: float64(i) * g.Resolution,
					Y: float64(j) * g.Resolution,
					Z: float64(k) * g.Resolution,
				})
				for o := 0; o < orientations; o++ {
					yaw := baseYaw + geom.DegToRad(float64(o)*g.OrientationRes)
					pose := geom.NewPose(pos, yaw)
					pose.Phi = g.Origin.Phi
					space.samples = append(space.samples, Sample{Pose: pose, Sensors: r.SensorPoses(pose)})
				}
			}
		}
	}

	logger.Infow("generated search space",
		"cells", cells, "orientations", orientations, "samples", len(space.samples))
	return space, nil
}

// Len returns the number of samples.
func (s *SearchSpace) Len() int {
	return len(s.samples)
}

// Sample returns sample i.
func (s *SearchSpace) Sample(i int) Sample {
	return s.samples[i]
}

// Samples returns all samples in generation order.
func (s *SearchSpace) Samples() []Sample {
	return s.samples
}

// Orientations returns the number of samples per spatial cell.
func (s *SearchSpace) Orientations() int {
	return s.orientations
}

// Positions returns one position per spatial cell, in generation order.
func (s *SearchSpace) Positions() []r3.Vector {
	positions := make([]r3.Vector, 0, len(s.samples)/s.orientations)
	for i := 0; i < len(s.samples); i += s.orientations {
		positions = append(positions, s.samples[i].Pose.Position)
	}
	return positions
}

// RobotSensorPoses returns the robot pose of every sample and, per mounted sensor,
// that sensor's pose at every sample.
func (s *SearchSpace) RobotSensorPoses() ([]geom.Pose, [][]geom.Pose) {
	robotPoses := make([]geom.Pose, len(s.samples))
	sensorPoses := make([][]geom.Pose, s.numSensors)
	for j := range sensorPoses {
		sensorPoses[j] = make([]geom.Pose, len(s.samples))
	}
	for i, sample := range s.samples {
		robotPoses[i] = sample.Pose
		for j, p := range sample.Sensors {
			sensorPoses[j][i] = p
		}
	}
	return robotPoses, sensorPoses
}
