package searchspace

import (
	"math"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"reactive-planner/internal/geom"
	"reactive-planner/internal/robot"
)

func testRobot(t *testing.T, sensors ...robot.Sensor) *robot.Robot {
	t.Helper()
	r, err := robot.New("Robot", 0.9, 0.5, 0.987, r3.Vector{X: -0.3}, sensors...)
	test.That(t, err, test.ShouldBeNil)
	return r
}

func origin() geom.Pose {
	return geom.Pose{Orientation: geom.Identity}
}

func TestFlatGridWithoutOrientations(t *testing.T) {
	g := Grid{Origin: origin(), Size: r3.Vector{X: 10, Y: 10, Z: 0}, Resolution: 1}
	space, err := Generate(g, testRobot(t), golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, space.Len(), test.ShouldEqual, 100)
	test.That(t, space.Orientations(), test.ShouldEqual, 1)
	test.That(t, space.Positions(), test.ShouldHaveLength, 100)

	for _, s := range space.Samples() {
		test.That(t, s.Pose.Yaw(), test.ShouldAlmostEqual, 0)
		test.That(t, s.Sensors, test.ShouldBeEmpty)
	}
}

func TestSampleCountsMatchDiscretization(t *testing.T) {
	for _, tc := range []struct {
		size r3.Vector
		res  float64
		want [3]int
	}{
		{r3.Vector{X: 10, Y: 10, Z: 0}, 1, [3]int{10, 10, 1}},
		{r3.Vector{X: 3, Y: 2.5, Z: 1}, 0.5, [3]int{6, 5, 2}},
		{r3.Vector{X: 1, Y: 1, Z: 1}, 0.3, [3]int{4, 4, 4}},
		{r3.Vector{X: 0.1, Y: 0, Z: 0}, 1, [3]int{1, 1, 1}},
	} {
		g := Grid{Origin: origin(), Size: tc.size, Resolution: tc.res}
		test.That(t, g.Cells(), test.ShouldResemble, tc.want)

		space, err := Generate(g, testRobot(t), golog.NewTestLogger(t))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, space.Len(), test.ShouldEqual, tc.want[0]*tc.want[1]*tc.want[2])
	}
}

func TestOrientationSampling(t *testing.T) {
	g := Grid{
		Origin:             origin(),
		Size:               r3.Vector{X: 2, Y: 2, Z: 0},
		Resolution:         1,
		SampleOrientations: true,
		OrientationRes:     90,
	}
	space, err := Generate(g, testRobot(t), golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, space.Len(), test.ShouldEqual, 4*4)
	test.That(t, space.Positions(), test.ShouldHaveLength, 4)

	// the headings of one cell are contiguous and share a position
	for o := 0; o < 4; o++ {
		s := space.Sample(o)
		test.That(t, s.Pose.Position, test.ShouldResemble, r3.Vector{})
		test.That(t, math.Cos(s.Pose.Yaw()), test.ShouldAlmostEqual, math.Cos(geom.DegToRad(float64(o)*90)))
		test.That(t, math.Sin(s.Pose.Yaw()), test.ShouldAlmostEqual, math.Sin(geom.DegToRad(float64(o)*90)))
	}
	test.That(t, space.Sample(4).Pose.Position, test.ShouldResemble, r3.Vector{Z: 0, Y: 1})
}

func TestDeterministicOrder(t *testing.T) {
	g := Grid{Origin: origin(), Size: r3.Vector{X: 2, Y: 3, Z: 1}, Resolution: 0.5, SampleOrientations: true, OrientationRes: 120}
	a, err := Generate(g, testRobot(t), golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	b, err := Generate(g, testRobot(t), golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, a.Samples(), test.ShouldResemble, b.Samples())
}

func TestSensorViewpoints(t *testing.T) {
	cam := robot.Sensor{Name: "cam", Mount: geom.Pose{Position: r3.Vector{X: 0.1, Z: 0.4}, Orientation: geom.Identity}}
	g := Grid{Origin: origin(), Size: r3.Vector{X: 1, Y: 1, Z: 0}, Resolution: 1, SampleOrientations: true, OrientationRes: 180}
	space, err := Generate(g, testRobot(t, cam, cam), golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, space.Len(), test.ShouldEqual, 2)

	robotPoses, sensorPoses := space.RobotSensorPoses()
	test.That(t, robotPoses, test.ShouldHaveLength, 2)
	test.That(t, sensorPoses, test.ShouldHaveLength, 2)
	test.That(t, sensorPoses[0], test.ShouldHaveLength, 2)
	// mounts hang off the body center, 0.3 behind the robot pose
	test.That(t, sensorPoses[0][0].Position.X, test.ShouldAlmostEqual, -0.2)
	test.That(t, sensorPoses[0][1].Position.X, test.ShouldAlmostEqual, 0.2)
	test.That(t, sensorPoses[1][1].Position.Z, test.ShouldAlmostEqual, 0.4)
}

func TestInvalidGrid(t *testing.T) {
	logger := golog.NewTestLogger(t)
	_, err := Generate(Grid{Origin: origin(), Size: r3.Vector{X: 1}, Resolution: 0}, testRobot(t), logger)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = Generate(Grid{Origin: origin(), Size: r3.Vector{X: -1}, Resolution: 1}, testRobot(t), logger)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = Generate(Grid{
		Origin: origin(), Size: r3.Vector{X: 1}, Resolution: 1, SampleOrientations: true, OrientationRes: 0,
	}, testRobot(t), logger)
	test.That(t, err, test.ShouldNotBeNil)
}
