// Package config defines the planner settings and how they are read.
package config

import (
	"math"
	"os"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"reactive-planner/internal/geom"
	"reactive-planner/internal/robot"
)

// Params are the per-episode planning parameters. A value is taken once when planning
// starts and never changes afterward.
type Params struct {
	StartX float64 `yaml:"start_x"`
	StartY float64 `yaml:"start_y"`
	StartZ float64 `yaml:"start_z"`
	EndX   float64 `yaml:"end_x"`
	EndY   float64 `yaml:"end_y"`
	EndZ   float64 `yaml:"end_z"`

	ConnectionRad  float64 `yaml:"connection_rad"`
	GridResolution float64 `yaml:"grid_resolution"`
	GridSizeX      float64 `yaml:"grid_size_x"`
	GridSizeY      float64 `yaml:"grid_size_y"`
	GridSizeZ      float64 `yaml:"grid_size_z"`

	SampleOrientations     bool    `yaml:"sample_orientations"`
	OrientationSamplingRes float64 `yaml:"orientation_sampling_res"`
	DistToGoal             float64 `yaml:"dist_to_goal"`
	SearchAlgorithm        string  `yaml:"search_algorithm"`

	VisualizeSearchSpace    bool    `yaml:"visualize_search_space"`
	Debug                   bool    `yaml:"debug"`
	DebugDelay              float64 `yaml:"debug_delay"` // seconds
	TreeProgressDisplayFreq int     `yaml:"tree_progress_display_freq"`
}

// DefaultParams mirrors the defaults of the planning node.
func DefaultParams() Params {
	return Params{
		ConnectionRad:           1.5,
		GridResolution:          1.0,
		OrientationSamplingRes:  90,
		SearchAlgorithm:         "astar",
		TreeProgressDisplayFreq: -1,
	}
}

// Start returns the start pose.
func (p Params) Start() geom.Pose {
	return geom.Pose{Position: r3.Vector{X: p.StartX, Y: p.StartY, Z: p.StartZ}, Orientation: geom.Identity}
}

// Goal returns the goal pose.
func (p Params) Goal() geom.Pose {
	return geom.Pose{Position: r3.Vector{X: p.EndX, Y: p.EndY, Z: p.EndZ}, Orientation: geom.Identity}
}

// GridSize returns the extent of the sampled box.
func (p Params) GridSize() r3.Vector {
	return r3.Vector{X: p.GridSizeX, Y: p.GridSizeY, Z: p.GridSizeZ}
}

// DebugPause is how long the search pauses after each tree display in debug mode.
func (p Params) DebugPause() time.Duration {
	if !p.Debug || p.DebugDelay <= 0 {
		return 0
	}
	return time.Duration(p.DebugDelay * float64(time.Second))
}

// Validate checks the parameters can drive a planning episode.
func (p Params) Validate() error {
	if p.ConnectionRad <= 0 || math.IsNaN(p.ConnectionRad) {
		return errors.Errorf("connection_rad must be positive, got %.3f", p.ConnectionRad)
	}
	if p.GridResolution <= 0 || math.IsNaN(p.GridResolution) {
		return errors.Errorf("grid_resolution must be positive, got %.3f", p.GridResolution)
	}
	if p.GridSizeX < 0 || p.GridSizeY < 0 || p.GridSizeZ < 0 {
		return errors.New("grid size must not be negative")
	}
	if p.SampleOrientations && (p.OrientationSamplingRes <= 0 || p.OrientationSamplingRes > 360) {
		return errors.Errorf("orientation_sampling_res must be in (0, 360], got %.2f", p.OrientationSamplingRes)
	}
	if p.DistToGoal < 0 {
		return errors.Errorf("dist_to_goal must not be negative, got %.3f", p.DistToGoal)
	}
	switch p.SearchAlgorithm {
	case "", "astar", "greedy":
	default:
		return errors.Errorf("unknown search_algorithm %q", p.SearchAlgorithm)
	}
	return nil
}

// SensorConfig is a sensor mount on the robot.
type SensorConfig struct {
	Name  string     `yaml:"name"`
	At    [3]float64 `yaml:"at"`
	Yaw   float64    `yaml:"yaw_deg"`
	Pitch float64    `yaml:"pitch_deg"`
}

// RobotConfig describes the robot.
type RobotConfig struct {
	Name          string         `yaml:"name"`
	Height        float64        `yaml:"height"`
	Width         float64        `yaml:"width"`
	NarrowestPath float64        `yaml:"narrowest_path"`
	Center        [3]float64     `yaml:"center"`
	Sensors       []SensorConfig `yaml:"sensors"`
}

// Build returns the robot descriptor.
func (c RobotConfig) Build() (*robot.Robot, error) {
	sensors := make([]robot.Sensor, 0, len(c.Sensors))
	for _, s := range c.Sensors {
		yaw := geom.YawQuat(geom.DegToRad(s.Yaw))
		pitch := geom.PitchQuat(geom.DegToRad(s.Pitch))
		sensors = append(sensors, robot.Sensor{
			Name: s.Name,
			Mount: geom.Pose{
				Position:    r3.Vector{X: s.At[0], Y: s.At[1], Z: s.At[2]},
				Orientation: geom.Mul(yaw, pitch),
			},
		})
	}
	r, err := robot.New(c.Name, c.Height, c.Width, c.NarrowestPath,
		r3.Vector{X: c.Center[0], Y: c.Center[1], Z: c.Center[2]}, sensors...)
	return r, errors.Wrap(err, "failed to create robot")
}

// MapConfig sets up the occupancy map.
type MapConfig struct {
	Resolution    float64    `yaml:"resolution"`
	FreeBoxOrigin [3]float64 `yaml:"free_box_origin"`
	FreeBoxSize   [3]float64 `yaml:"free_box_size"`
}

// FreeBox returns the box marked free before any scan arrives.
func (c MapConfig) FreeBox() (r3.Vector, r3.Vector) {
	return r3.Vector{X: c.FreeBoxOrigin[0], Y: c.FreeBoxOrigin[1], Z: c.FreeBoxOrigin[2]},
		r3.Vector{X: c.FreeBoxSize[0], Y: c.FreeBoxSize[1], Z: c.FreeBoxSize[2]}
}

// File is the layout of the configuration file: the planning parameters at the top
// level plus the map and robot sections read once at startup.
type File struct {
	Params `yaml:",inline"`
	Map    MapConfig   `yaml:"map"`
	Robot  RobotConfig `yaml:"robot"`
}

// Default returns the configuration used when a field is absent from the file.
func Default() File {
	return File{
		Params: DefaultParams(),
		Map: MapConfig{
			Resolution:  0.15,
			FreeBoxSize: [3]float64{15, 15, 10},
		},
		Robot: RobotConfig{
			Name:          "Robot",
			Height:        0.9,
			Width:         0.5,
			NarrowestPath: 0.987,
			Center:        [3]float64{-0.3, 0, 0},
		},
	}
}

// Load reads filename over the defaults.
func Load(filename string) (File, error) {
	cfg := Default()
	data, err := os.ReadFile(filename)
	if err != nil {
		return cfg, errors.Wrap(err, "failed to read config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "failed to parse %s", filename)
	}
	return cfg, nil
}

// Source yields planning parameters.
type Source interface {
	Snapshot() (Params, error)
}

// FileSource re-reads the configuration file on every snapshot so the values in effect
// when planning starts are the ones used.
type FileSource struct {
	Path string
}

func (s FileSource) Snapshot() (Params, error) {
	cfg, err := Load(s.Path)
	if err != nil {
		return Params{}, err
	}
	return cfg.Params, cfg.Params.Validate()
}

// StaticSource always returns the same parameters.
type StaticSource Params

func (s StaticSource) Snapshot() (Params, error) {
	p := Params(s)
	return p, p.Validate()
}
