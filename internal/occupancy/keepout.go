package occupancy

import (
	"os"

	"github.com/golang/geo/r3"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"
	"github.com/pkg/errors"
)

// KeepOut is a vertical prism that the robot must never enter: a ground footprint
// extruded between MinZ and MaxZ.
type KeepOut struct {
	Footprint orb.Polygon
	MinZ      float64
	MaxZ      float64
}

// LoadKeepOuts reads keep-out volumes from a GeoJSON feature collection. Polygon and
// MultiPolygon features are accepted; the "min_z" and "max_z" properties give the
// vertical span (defaults 0 and 1).
func LoadKeepOuts(filename string) ([]KeepOut, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read keep-out file")
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", filename)
	}

	var volumes []KeepOut
	for _, feature := range fc.Features {
		minZ := feature.Properties.MustFloat64("min_z", 0)
		maxZ := feature.Properties.MustFloat64("max_z", 1)
		if maxZ < minZ {
			return nil, errors.Errorf("keep-out feature has max_z %.2f below min_z %.2f", maxZ, minZ)
		}

		switch g := feature.Geometry.(type) {
		case orb.Polygon:
			volumes = append(volumes, KeepOut{Footprint: g, MinZ: minZ, MaxZ: maxZ})
		case orb.MultiPolygon:
			for _, p := range g {
				volumes = append(volumes, KeepOut{Footprint: p, MinZ: minZ, MaxZ: maxZ})
			}
		}
	}
	return volumes, nil
}

// Simplify returns the volume with its footprint reduced by Douglas-Peucker to within
// epsilon of the original outline. Footprints that would degenerate are kept as they are.
func (k KeepOut) Simplify(epsilon float64) KeepOut {
	if epsilon <= 0 || len(k.Footprint) == 0 {
		return k
	}
	simplified, ok := simplify.DouglasPeucker(epsilon).Simplify(k.Footprint.Clone()).(orb.Polygon)
	if !ok || len(simplified) != len(k.Footprint) {
		return k
	}
	for _, ring := range simplified {
		if len(ring) < 4 {
			return k
		}
	}
	k.Footprint = simplified
	return k
}

// AddKeepOut rasterizes the volume into occupied voxels that observations never clear.
// It returns the number of voxels marked.
func (m *Map) AddKeepOut(k KeepOut) int {
	if len(k.Footprint) == 0 || len(k.Footprint[0]) < 3 {
		return 0
	}
	bound := k.Footprint.Bound()
	lo := m.keyOf(r3.Vector{X: bound.Min.X(), Y: bound.Min.Y(), Z: k.MinZ})
	hi := m.keyOf(r3.Vector{X: bound.Max.X(), Y: bound.Max.Y(), Z: k.MaxZ})

	m.mu.Lock()
	defer m.mu.Unlock()
	marked := 0
	for i := lo[0]; i <= hi[0]; i++ {
		for j := lo[1]; j <= hi[1]; j++ {
			c := m.centerOf(key{i, j, 0})
			if !planar.PolygonContains(k.Footprint, orb.Point{c.X, c.Y}) {
				continue
			}
			for l := lo[2]; l <= hi[2]; l++ {
				m.setLocked(key{i, j, l}, true)
				marked++
			}
		}
	}
	m.logger.Debugw("added keep-out volume", "voxels", marked, "min_z", k.MinZ, "max_z", k.MaxZ)
	return marked
}
