// Package graph connects search-space samples into a traversability graph.
package graph

import (
	"encoding/json"
	"os"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Edge represents a connection between two nodes with a cost
type Edge struct {
	To   int     `json:"to"`   // Index of the destination node
	Cost float64 `json:"cost"` // Euclidean distance
}

// Graph is an undirected graph over node positions. Node i of a graph built from a
// search space is sample i; nodes added later get the following indices.
type Graph struct {
	Nodes []r3.Vector `json:"nodes"`
	Edges [][]Edge    `json:"edges"`
}

// New returns a graph with the given nodes and no edges.
func New(nodes []r3.Vector) *Graph {
	return &Graph{
		Nodes: append([]r3.Vector(nil), nodes...),
		Edges: make([][]Edge, len(nodes)),
	}
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.Nodes)
}

// AddNode appends an unconnected node and returns its index.
func (g *Graph) AddNode(p r3.Vector) int {
	g.Nodes = append(g.Nodes, p)
	g.Edges = append(g.Edges, nil)
	return len(g.Nodes) - 1
}

// Connect adds the undirected edge i-j. Self edges and duplicates are ignored.
func (g *Graph) Connect(i, j int) bool {
	if i == j || g.HasEdge(i, j) {
		return false
	}
	cost := g.Nodes[i].Distance(g.Nodes[j])
	g.Edges[i] = append(g.Edges[i], Edge{To: j, Cost: cost})
	g.Edges[j] = append(g.Edges[j], Edge{To: i, Cost: cost})
	return true
}

// HasEdge reports whether i and j are connected.
func (g *Graph) HasEdge(i, j int) bool {
	for _, e := range g.Edges[i] {
		if e.To == j {
			return true
		}
	}
	return false
}

// Neighbors returns the edges leaving node i.
func (g *Graph) Neighbors(i int) []Edge {
	return g.Edges[i]
}

// NumEdges returns the number of undirected edges.
func (g *Graph) NumEdges() int {
	n := 0
	for _, edges := range g.Edges {
		n += len(edges)
	}
	return n / 2
}

// LineSegments returns every undirected edge once, as its two endpoints.
func (g *Graph) LineSegments() [][2]r3.Vector {
	lines := make([][2]r3.Vector, 0, g.NumEdges())
	for i, edges := range g.Edges {
		for _, e := range edges {
			if i < e.To {
				lines = append(lines, [2]r3.Vector{g.Nodes[i], g.Nodes[e.To]})
			}
		}
	}
	return lines
}

// Save serializes the graph to a JSON file
func Save(g *Graph, filename string) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal graph")
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write file")
	}
	return nil
}

// Load reads a graph written by Save.
func Load(filename string) (*Graph, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read file")
	}
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal graph")
	}
	if len(g.Edges) != len(g.Nodes) {
		return nil, errors.Errorf("graph has %d nodes but %d edge lists", len(g.Nodes), len(g.Edges))
	}
	return &g, nil
}
