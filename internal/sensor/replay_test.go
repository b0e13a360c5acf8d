package sensor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"go.viam.com/test"

	"reactive-planner/internal/occupancy"
)

func writeScan(t *testing.T, dir, name, body string) string {
	t.Helper()
	filename := filepath.Join(dir, name)
	test.That(t, os.WriteFile(filename, []byte(body), 0o644), test.ShouldBeNil)
	return filename
}

func TestReadScan(t *testing.T) {
	dir := t.TempDir()
	filename := writeScan(t, dir, "a.xyz", "# origin 1 2 0.5 90\n# a comment\n1 0 0\n\n2.5 -1 0.25\n")

	obs, err := ReadScan(filename)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, obs.Points, test.ShouldHaveLength, 2)
	test.That(t, obs.Points[1].X, test.ShouldEqual, 2.5)
	test.That(t, obs.Origin.Position.Y, test.ShouldEqual, 2.0)
	test.That(t, obs.Origin.Yaw(), test.ShouldAlmostEqual, 1.5707963267948966)

	bad := writeScan(t, dir, "bad.xyz", "1 2\n")
	_, err = ReadScan(bad)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "expected 3 coordinates")

	nan := writeScan(t, dir, "nan.xyz", "1 x 2\n")
	_, err = ReadScan(nan)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestReplayDeliversInOrder(t *testing.T) {
	dir := t.TempDir()
	writeScan(t, dir, "002.xyz", "2 0 0\n2 1 0\n")
	writeScan(t, dir, "001.xyz", "1 0 0\n")

	_, err := NewReplay(t.TempDir(), time.Millisecond, false, clock.New(), golog.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)

	r, err := NewReplay(dir, time.Millisecond, false, clock.New(), golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r.NumScans(), test.ShouldEqual, 2)

	var got []int
	err = r.Run(context.Background(), func(obs occupancy.Observation) {
		got = append(got, len(obs.Points))
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldResemble, []int{1, 2})
}

func TestReplayLoopStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	writeScan(t, dir, "001.xyz", "1 0 0\n")
	r, err := NewReplay(dir, time.Millisecond, true, clock.New(), golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	ctx, cancel := context.WithCancel(context.Background())
	delivered := 0
	err = r.Run(ctx, func(occupancy.Observation) {
		delivered++
		if delivered == 5 {
			cancel()
		}
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, delivered, test.ShouldEqual, 5)
}
