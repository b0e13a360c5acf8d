package viz

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/paulmach/orb/geojson"
	"go.viam.com/test"

	"reactive-planner/internal/geom"
)

func TestRecorderCommitsOnTrigger(t *testing.T) {
	r := NewRecorder()
	r.PublishSpheres(NSStart, []r3.Vector{{X: 1}}, Blue, 0.3)
	test.That(t, r.Batches(), test.ShouldBeEmpty)

	test.That(t, r.Trigger(), test.ShouldBeNil)
	r.PublishLines(NSPath, [][2]r3.Vector{{{}, {X: 1}}, {{X: 1}, {X: 2}}}, Red, 0.05)
	r.PublishArrows(NSPathPoses, []geom.Pose{geom.NewPose(r3.Vector{}, 0)}, Yellow, 0.3)
	test.That(t, r.Trigger(), test.ShouldBeNil)

	batches := r.Batches()
	test.That(t, batches, test.ShouldHaveLength, 2)
	test.That(t, batches[0], test.ShouldHaveLength, 1)
	test.That(t, batches[1], test.ShouldHaveLength, 3)
	test.That(t, r.Namespace(NSPath), test.ShouldHaveLength, 2)
	test.That(t, r.Namespace(NSPath)[1].Points[1], test.ShouldResemble, r3.Vector{X: 2})
}

func TestMultiFansOut(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	v := Multi(a, b, NewLogSink(golog.NewTestLogger(t)))
	v.PublishSpheres(NSSearchSpace, []r3.Vector{{}, {X: 1}}, Purple, 0.1)
	test.That(t, v.Trigger(), test.ShouldBeNil)
	test.That(t, a.Namespace(NSSearchSpace), test.ShouldHaveLength, 2)
	test.That(t, b.Namespace(NSSearchSpace), test.ShouldHaveLength, 2)
}

func TestGeoJSONSink(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "markers.geojson")
	g := NewGeoJSONSink(filename)
	g.PublishSpheres(NSGoal, []r3.Vector{{X: 1, Y: 2, Z: 3}}, Orange, 0.3)
	g.PublishLines(NSPath, [][2]r3.Vector{{{}, {X: 3, Y: 4, Z: 1}}}, Red, 0.05)
	g.PublishArrows(NSPathPoses, []geom.Pose{geom.NewPose(r3.Vector{}, 0.5)}, Yellow, 0.3)
	test.That(t, g.Trigger(), test.ShouldBeNil)

	data, err := os.ReadFile(filename)
	test.That(t, err, test.ShouldBeNil)
	fc, err := geojson.UnmarshalFeatureCollection(data)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fc.Features, test.ShouldHaveLength, 3)
	test.That(t, fc.Features[0].Properties.MustString("ns"), test.ShouldEqual, NSGoal)
	test.That(t, fc.Features[1].Properties.MustFloat64("planar_length"), test.ShouldAlmostEqual, 5)
	test.That(t, fc.Features[2].Properties.MustFloat64("yaw"), test.ShouldAlmostEqual, 0.5)

	// later batches are appended to the same file
	g.PublishSpheres(NSStart, []r3.Vector{{}}, Blue, 0.3)
	test.That(t, g.Trigger(), test.ShouldBeNil)
	test.That(t, g.Features(), test.ShouldHaveLength, 4)
}
