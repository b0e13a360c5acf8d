// Package occupancy maintains the voxel occupancy model built from streamed sensor scans.
//
// Occupied voxels are kept in an R-tree so the planner can ask whether a straight segment,
// inflated by the robot clearance, passes through any of them. The map is safe for one
// writer (the sensor stream) running concurrently with readers (the planner).
package occupancy

import (
	"math"
	"sync"

	"github.com/dhconnelly/rtreego"
	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"reactive-planner/internal/geom"
)

// Observation is one scan: points expressed in the sensor frame and the sensor pose in the world.
type Observation struct {
	Origin geom.Pose
	Points []r3.Vector
}

// Cell is an occupied voxel: its center and edge length.
type Cell struct {
	Center r3.Vector
	Size   float64
}

type key [3]int64

// cellEntry wraps an occupied voxel for R-tree storage
type cellEntry struct {
	key    key
	center r3.Vector
	bbox   rtreego.Rect
	static bool // keep-out cells are never cleared by observations
}

// Bounds implements rtreego.Spatial interface
func (c *cellEntry) Bounds() rtreego.Rect {
	return c.bbox
}

// Map is a voxel occupancy map.
type Map struct {
	logger     golog.Logger
	resolution float64

	mu       sync.RWMutex
	occupied map[key]*cellEntry
	tree     *rtreego.Rtree
	known    bool
	min, max r3.Vector
	inserted int
}

// NewMap creates an empty map with cubic voxels of the given edge length.
func NewMap(resolution float64, logger golog.Logger) (*Map, error) {
	if resolution <= 0 || math.IsNaN(resolution) {
		return nil, errors.Errorf("invalid map resolution (%.3f)", resolution)
	}
	return &Map{
		logger:     logger,
		resolution: resolution,
		occupied:   make(map[key]*cellEntry),
		tree:       rtreego.NewTree(3, 25, 50), // 3D, min 25, max 50 entries per node
	}, nil
}

// Resolution is the voxel edge length.
func (m *Map) Resolution() float64 {
	return m.resolution
}

func (m *Map) keyOf(p r3.Vector) key {
	return key{
		int64(math.Floor(p.X / m.resolution)),
		int64(math.Floor(p.Y / m.resolution)),
		int64(math.Floor(p.Z / m.resolution)),
	}
}

func (m *Map) centerOf(k key) r3.Vector {
	return r3.Vector{
		X: (float64(k[0]) + 0.5) * m.resolution,
		Y: (float64(k[1]) + 0.5) * m.resolution,
		Z: (float64(k[2]) + 0.5) * m.resolution,
	}
}

// MarkFree marks the box spanning origin to origin+extent as known free space.
// Occupied voxels inside the box that were not set by a keep-out volume are cleared.
func (m *Map) MarkFree(origin, extent r3.Vector) {
	lo := r3.Vector{X: math.Min(origin.X, origin.X+extent.X), Y: math.Min(origin.Y, origin.Y+extent.Y), Z: math.Min(origin.Z, origin.Z+extent.Z)}
	hi := r3.Vector{X: math.Max(origin.X, origin.X+extent.X), Y: math.Max(origin.Y, origin.Y+extent.Y), Z: math.Max(origin.Z, origin.Z+extent.Z)}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.grow(lo)
	m.grow(hi)

	cleared := 0
	for _, entry := range m.searchLocked(lo, hi) {
		c := entry.center
		if c.X < lo.X || c.X > hi.X || c.Y < lo.Y || c.Y > hi.Y || c.Z < lo.Z || c.Z > hi.Z {
			continue
		}
		if m.clearLocked(entry.key) {
			cleared++
		}
	}
	m.logger.Debugw("marked free", "min", lo, "max", hi, "cleared", cleared)
}

// InsertObservation transforms the scan into the world frame, marks every hit voxel occupied
// and clears voxels the beams passed through.
func (m *Map) InsertObservation(obs Observation) {
	origin := obs.Origin.Position
	hits := make(map[key]r3.Vector, len(obs.Points))
	for _, p := range obs.Points {
		w := origin.Add(geom.Rotate(obs.Origin.Orientation, p))
		if math.IsNaN(w.X) || math.IsNaN(w.Y) || math.IsNaN(w.Z) {
			continue
		}
		hits[m.keyOf(w)] = w
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.grow(origin)
	for k, w := range hits {
		m.castLocked(origin, w, hits)
		m.setLocked(k, false)
	}
	m.inserted++
	m.logger.Debugw("inserted observation", "points", len(obs.Points), "voxels", len(hits), "occupied", len(m.occupied))
}

// castLocked frees the voxels between origin and end, leaving any voxel hit by this scan.
func (m *Map) castLocked(origin, end r3.Vector, hits map[key]r3.Vector) {
	d := end.Sub(origin)
	length := d.Norm()
	if length == 0 {
		return
	}
	step := m.resolution / 2
	dir := d.Mul(1 / length)
	endKey := m.keyOf(end)
	for t := 0.0; t < length; t += step {
		k := m.keyOf(origin.Add(dir.Mul(t)))
		if k == endKey {
			break
		}
		if _, hit := hits[k]; hit {
			continue
		}
		m.clearLocked(k)
	}
}

func (m *Map) setLocked(k key, static bool) {
	if entry, ok := m.occupied[k]; ok {
		entry.static = entry.static || static
		return
	}
	c := m.centerOf(k)
	half := m.resolution / 2
	bbox, err := rtreego.NewRect(
		rtreego.Point{c.X - half, c.Y - half, c.Z - half},
		[]float64{m.resolution, m.resolution, m.resolution},
	)
	if err != nil {
		m.logger.Warnw("skipping voxel", "center", c, "error", err)
		return
	}
	entry := &cellEntry{key: k, center: c, bbox: bbox, static: static}
	m.occupied[k] = entry
	m.tree.Insert(entry)
	m.grow(c.Sub(r3.Vector{X: half, Y: half, Z: half}))
	m.grow(c.Add(r3.Vector{X: half, Y: half, Z: half}))
}

func (m *Map) clearLocked(k key) bool {
	entry, ok := m.occupied[k]
	if !ok || entry.static {
		return false
	}
	delete(m.occupied, k)
	m.tree.Delete(entry)
	return true
}

func (m *Map) grow(p r3.Vector) {
	if !m.known {
		m.min, m.max, m.known = p, p, true
		return
	}
	m.min = r3.Vector{X: math.Min(m.min.X, p.X), Y: math.Min(m.min.Y, p.Y), Z: math.Min(m.min.Z, p.Z)}
	m.max = r3.Vector{X: math.Max(m.max.X, p.X), Y: math.Max(m.max.Y, p.Y), Z: math.Max(m.max.Z, p.Z)}
}

// OccupiedCells returns every occupied voxel.
func (m *Map) OccupiedCells() []Cell {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cells := make([]Cell, 0, len(m.occupied))
	for _, entry := range m.occupied {
		cells = append(cells, Cell{Center: entry.center, Size: m.resolution})
	}
	return cells
}

// NumOccupied returns the number of occupied voxels.
func (m *Map) NumOccupied() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.occupied)
}

// NumObservations returns how many scans have been inserted.
func (m *Map) NumObservations() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inserted
}

// Extent returns the size of the known region along each axis. It is the zero vector
// while nothing is known.
func (m *Map) Extent() r3.Vector {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.known {
		return r3.Vector{}
	}
	return m.max.Sub(m.min)
}

// Occupied reports whether the voxel containing p is occupied.
func (m *Map) Occupied(p r3.Vector) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.occupied[m.keyOf(p)]
	return ok
}

// SegmentClear reports whether no occupied voxel lies within clearance of the segment a-b.
func (m *Map) SegmentClear(a, b r3.Vector, clearance float64) bool {
	seg := geom.Segment{P1: a, P2: b}
	// a voxel blocks when any part of it is within clearance; bound by its half diagonal
	reach := clearance + m.resolution*math.Sqrt(3)/2
	lo, hi := seg.Bounds(reach)

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, entry := range m.searchLocked(lo, hi) {
		if seg.DistanceToPoint(entry.center) <= clearance+m.resolution/2 {
			return false
		}
	}
	return true
}

func (m *Map) searchLocked(lo, hi r3.Vector) []*cellEntry {
	lengths := []float64{hi.X - lo.X, hi.Y - lo.Y, hi.Z - lo.Z}
	for i, l := range lengths {
		if l <= 0 {
			lengths[i] = m.resolution * 1e-3
		}
	}
	bbox, err := rtreego.NewRect(rtreego.Point{lo.X, lo.Y, lo.Z}, lengths)
	if err != nil {
		return nil
	}
	results := m.tree.SearchIntersect(bbox)
	entries := make([]*cellEntry, 0, len(results))
	for _, item := range results {
		entries = append(entries, item.(*cellEntry))
	}
	return entries
}
