package graph

import (
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Traversability answers whether the robot can move straight from a to b while keeping
// clearance from every obstacle.
type Traversability interface {
	SegmentClear(a, b r3.Vector, clearance float64) bool
}

// Builder connects nodes that lie within Radius of each other when the segment between
// them is traversable.
type Builder struct {
	Radius    float64
	Clearance float64
	Checker   Traversability
	Logger    golog.Logger
}

// Build creates the graph over positions. A graph with no edges is valid.
func (b *Builder) Build(positions []r3.Vector) (*Graph, error) {
	if b.Radius <= 0 {
		return nil, errors.Errorf("invalid connection radius (%.3f)", b.Radius)
	}
	startTime := time.Now()
	g := New(positions)

	edgeCount := 0
	rejectedEdges := 0
	for i := 0; i < len(g.Nodes); i++ {
		for j := i + 1; j < len(g.Nodes); j++ {
			if g.Nodes[i].Distance(g.Nodes[j]) > b.Radius {
				continue
			}
			if !b.Checker.SegmentClear(g.Nodes[i], g.Nodes[j], b.Clearance) {
				rejectedEdges++
				continue
			}
			g.Connect(i, j)
			edgeCount++
		}
	}

	b.Logger.Infow("connected search space",
		"nodes", len(g.Nodes),
		"edges", edgeCount,
		"rejected", rejectedEdges,
		"elapsed", time.Since(startTime))
	return g, nil
}

// Attach adds p as a new node and connects it to every existing node it can reach.
// It returns the new node index and whether at least one edge was made.
func (b *Builder) Attach(g *Graph, p r3.Vector) (int, bool) {
	id := g.AddNode(p)
	connected := false
	for i := 0; i < id; i++ {
		if p.Distance(g.Nodes[i]) > b.Radius {
			continue
		}
		if b.Checker.SegmentClear(p, g.Nodes[i], b.Clearance) {
			g.Connect(id, i)
			connected = true
		}
	}
	if !connected {
		b.Logger.Warnw("could not connect point to any graph node", "point", p)
	}
	return id, connected
}
