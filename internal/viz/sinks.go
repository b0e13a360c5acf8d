package viz

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Recorder keeps every committed batch in memory.
type Recorder struct {
	Batch

	mu      sync.Mutex
	batches [][]Marker
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Trigger() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, r.Flush())
	return nil
}

// Batches returns the committed batches in order.
func (r *Recorder) Batches() [][]Marker {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]Marker(nil), r.batches...)
}

// Namespace returns every committed marker in ns.
func (r *Recorder) Namespace(ns string) []Marker {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Marker
	for _, b := range r.batches {
		out = append(out, lo.Filter(b, func(m Marker, _ int) bool { return m.Namespace == ns })...)
	}
	return out
}

// LogSink summarizes each committed batch in the log.
type LogSink struct {
	Batch
	logger golog.Logger
}

// NewLogSink returns a sink that logs through logger.
func NewLogSink(logger golog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (l *LogSink) Trigger() error {
	markers := l.Flush()
	if len(markers) == 0 {
		return nil
	}
	counts := lo.CountValuesBy(markers, func(m Marker) string { return m.Namespace })
	l.logger.Debugw("published markers", "total", len(markers), "namespaces", counts)
	return nil
}

// GeoJSONSink writes all committed markers to a GeoJSON file, projected on the ground
// plane with heights kept in the feature properties. The file is rewritten on every Trigger.
type GeoJSONSink struct {
	Batch
	filename string
	fc       *geojson.FeatureCollection
}

// NewGeoJSONSink returns a sink writing to filename.
func NewGeoJSONSink(filename string) *GeoJSONSink {
	return &GeoJSONSink{filename: filename, fc: geojson.NewFeatureCollection()}
}

func (g *GeoJSONSink) Trigger() error {
	for _, m := range g.Flush() {
		g.fc.Append(toFeature(m))
	}
	data, err := g.fc.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "failed to marshal markers")
	}
	tmp, err := os.CreateTemp(filepath.Dir(g.filename), ".markers-*")
	if err != nil {
		return errors.Wrap(err, "failed to create marker file")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrap(err, "failed to write markers")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), g.filename)
}

// Features returns the committed features.
func (g *GeoJSONSink) Features() []*geojson.Feature {
	return g.fc.Features
}

func toFeature(m Marker) *geojson.Feature {
	planarPoint := func(p r3.Vector, _ int) orb.Point { return orb.Point{p.X, p.Y} }
	heights := lo.Map(m.Points, func(p r3.Vector, _ int) float64 { return p.Z })

	var f *geojson.Feature
	switch m.Kind {
	case Line:
		ls := orb.LineString(lo.Map(m.Points, planarPoint))
		f = geojson.NewFeature(ls)
		f.Properties["planar_length"] = planar.Length(ls)
	default:
		f = geojson.NewFeature(planarPoint(m.Points[0], 0))
	}
	f.Properties["ns"] = m.Namespace
	f.Properties["kind"] = string(m.Kind)
	f.Properties["color"] = string(m.Color)
	f.Properties["scale"] = m.Scale
	f.Properties["z"] = heights
	if m.Kind == Arrow {
		f.Properties["yaw"] = m.Pose.Yaw()
	}
	return f
}
