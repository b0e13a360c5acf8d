package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.viam.com/test"
)

const sample = `
start_x: 1.0
start_y: 2.0
end_x: 9.0
end_y: 9.5
end_z: 0.5
connection_rad: 1.2
grid_resolution: 0.5
grid_size_x: 10
grid_size_y: 10
sample_orientations: true
orientation_sampling_res: 45
dist_to_goal: 0.4
debug: true
debug_delay: 0.25
tree_progress_display_freq: 100
map:
  resolution: 0.2
robot:
  width: 0.6
  sensors:
    - name: front
      at: [0.3, 0, 0.5]
      pitch_deg: 20
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), "planner.yaml")
	test.That(t, os.WriteFile(filename, []byte(body), 0o644), test.ShouldBeNil)
	return filename
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	test.That(t, err, test.ShouldBeNil)

	test.That(t, cfg.Start().Position.Y, test.ShouldEqual, 2.0)
	test.That(t, cfg.Goal().Position.Z, test.ShouldEqual, 0.5)
	test.That(t, cfg.ConnectionRad, test.ShouldEqual, 1.2)
	test.That(t, cfg.GridSize().X, test.ShouldEqual, 10.0)
	test.That(t, cfg.GridSize().Z, test.ShouldEqual, 0.0)
	test.That(t, cfg.OrientationSamplingRes, test.ShouldEqual, 45.0)
	test.That(t, cfg.TreeProgressDisplayFreq, test.ShouldEqual, 100)
	test.That(t, cfg.DebugPause(), test.ShouldEqual, 250*time.Millisecond)
	test.That(t, cfg.SearchAlgorithm, test.ShouldEqual, "astar")
	test.That(t, cfg.Validate(), test.ShouldBeNil)

	// unset fields keep their defaults
	test.That(t, cfg.Map.Resolution, test.ShouldEqual, 0.2)
	test.That(t, cfg.Map.FreeBoxSize, test.ShouldResemble, [3]float64{15, 15, 10})
	test.That(t, cfg.Robot.Height, test.ShouldEqual, 0.9)
	test.That(t, cfg.Robot.Width, test.ShouldEqual, 0.6)

	r, err := cfg.Robot.Build()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r.NumSensors(), test.ShouldEqual, 1)
	test.That(t, r.Sensors()[0].Mount.Position.X, test.ShouldEqual, 0.3)
}

func TestDefaults(t *testing.T) {
	p := DefaultParams()
	test.That(t, p.OrientationSamplingRes, test.ShouldEqual, 90.0)
	test.That(t, p.TreeProgressDisplayFreq, test.ShouldEqual, -1)
	test.That(t, p.DebugPause(), test.ShouldEqual, time.Duration(0))
	test.That(t, p.Validate(), test.ShouldBeNil)
}

func TestValidate(t *testing.T) {
	for _, mutate := range []func(*Params){
		func(p *Params) { p.ConnectionRad = 0 },
		func(p *Params) { p.GridResolution = -1 },
		func(p *Params) { p.GridSizeY = -2 },
		func(p *Params) { p.SampleOrientations = true; p.OrientationSamplingRes = 400 },
		func(p *Params) { p.DistToGoal = -1 },
		func(p *Params) { p.SearchAlgorithm = "dijkstra" },
	} {
		p := DefaultParams()
		mutate(&p)
		test.That(t, p.Validate(), test.ShouldNotBeNil)
	}
}

func TestFileSourceRereads(t *testing.T) {
	filename := writeConfig(t, "end_x: 3\n")
	src := FileSource{Path: filename}

	p, err := src.Snapshot()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.EndX, test.ShouldEqual, 3.0)

	test.That(t, os.WriteFile(filename, []byte("end_x: 7\n"), 0o644), test.ShouldBeNil)
	p2, err := src.Snapshot()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p2.EndX, test.ShouldEqual, 7.0)
	// earlier snapshots are values and are not affected
	test.That(t, p.EndX, test.ShouldEqual, 3.0)

	test.That(t, os.WriteFile(filename, []byte("connection_rad: -1\n"), 0o644), test.ShouldBeNil)
	_, err = src.Snapshot()
	test.That(t, err, test.ShouldNotBeNil)

	_, err = FileSource{Path: filepath.Join(t.TempDir(), "none.yaml")}.Snapshot()
	test.That(t, err, test.ShouldNotBeNil)
}

func TestBadRobot(t *testing.T) {
	c := Default().Robot
	c.Width = 0
	_, err := c.Build()
	test.That(t, err, test.ShouldNotBeNil)
}
