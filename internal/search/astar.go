package search

import (
	"container/heap"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"reactive-planner/internal/geom"
	"reactive-planner/internal/graph"
)

// Problem is one search request.
type Problem struct {
	Graph     *graph.Graph
	Start     int
	Poses     []geom.Pose   // pose of every graph node
	Sensors   [][]geom.Pose // sensor viewpoints of every graph node, may be shorter than Poses
	Heuristic Heuristic
}

func (p Problem) validate() error {
	if p.Graph == nil {
		return errors.New("no graph to search")
	}
	if p.Heuristic == nil {
		return errors.New("no heuristic set")
	}
	if len(p.Poses) != p.Graph.Len() {
		return errors.Errorf("graph has %d nodes but %d poses", p.Graph.Len(), len(p.Poses))
	}
	if p.Start < 0 || p.Start >= p.Graph.Len() {
		return errors.Errorf("start node %d out of range", p.Start)
	}
	return nil
}

// Engine runs a search. It returns a nil solution and nil error when no path exists.
type Engine interface {
	Search(p Problem) (*Solution, error)
}

// ProgressFunc receives the tree edges explored so far.
type ProgressFunc func(tree [][2]r3.Vector)

// AStar is a best-first graph search ordered by cost so far plus the heuristic.
// With Greedy set only the heuristic orders the frontier.
type AStar struct {
	Greedy bool

	// ProgressEvery reports the tree to Progress every that many expansions; <= 0 disables.
	ProgressEvery int
	Progress      ProgressFunc
	// DebugDelay pauses after each progress report.
	DebugDelay time.Duration

	Clock  clock.Clock
	Logger golog.Logger
}

// node represents a node in the search frontier
type node struct {
	id     int
	g      float64 // Cost from start to this node
	h      float64 // Heuristic cost from this node to the goal
	f      float64 // Total cost
	parent *node
	index  int // Index in the heap
}

// priorityQueue implements heap.Interface for the frontier
type priorityQueue []*node

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	return pq[i].f < pq[j].f
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x interface{}) {
	n := len(*pq)
	nd := x.(*node)
	nd.index = n
	*pq = append(*pq, nd)
}

func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	nd := old[n-1]
	old[n-1] = nil
	nd.index = -1
	*pq = old[0 : n-1]
	return nd
}

func (a *AStar) clock() clock.Clock {
	if a.Clock == nil {
		return clock.New()
	}
	return a.Clock
}

func (a *AStar) score(n *node) {
	if a.Greedy {
		n.f = n.h
		return
	}
	n.f = n.g + n.h
}

// Search implements Engine.
func (a *AStar) Search(p Problem) (*Solution, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	state := func(id int) State { return State{Index: id, Pose: p.Poses[id]} }

	openSet := &priorityQueue{}
	heap.Init(openSet)
	start := &node{id: p.Start, h: p.Heuristic.Evaluate(state(p.Start))}
	a.score(start)
	heap.Push(openSet, start)

	closedSet := make(map[int]bool)
	openSetMap := map[int]*node{p.Start: start}
	var tree [][2]r3.Vector

	nodesExplored := 0
	for openSet.Len() > 0 {
		current := heap.Pop(openSet).(*node)
		delete(openSetMap, current.id)
		nodesExplored++

		if current.parent != nil {
			tree = append(tree, [2]r3.Vector{p.Graph.Nodes[current.parent.id], p.Graph.Nodes[current.id]})
		}
		if a.ProgressEvery > 0 && a.Progress != nil && nodesExplored%a.ProgressEvery == 0 {
			a.Progress(tree)
			if a.DebugDelay > 0 {
				a.clock().Sleep(a.DebugDelay)
			}
		}

		if p.Heuristic.IsGoal(state(current.id)) {
			var path []int
			for n := current; n != nil; n = n.parent {
				path = append([]int{n.id}, path...)
			}
			a.Logger.Infow("path found", "waypoints", len(path), "cost", current.g, "explored", nodesExplored)
			return newSolution(path, p.Poses, p.Sensors), nil
		}

		closedSet[current.id] = true

		for _, edge := range p.Graph.Neighbors(current.id) {
			if closedSet[edge.To] {
				continue
			}
			tentativeG := current.g + edge.Cost

			neighbor, exists := openSetMap[edge.To]
			if !exists {
				neighbor = &node{
					id:     edge.To,
					g:      tentativeG,
					h:      p.Heuristic.Evaluate(state(edge.To)),
					parent: current,
				}
				a.score(neighbor)
				heap.Push(openSet, neighbor)
				openSetMap[edge.To] = neighbor
			} else if tentativeG < neighbor.g {
				// Found a better path to this neighbor
				neighbor.g = tentativeG
				neighbor.parent = current
				a.score(neighbor)
				heap.Fix(openSet, neighbor.index)
			}
		}
	}

	a.Logger.Infow("no path found", "explored", nodesExplored)
	return nil, nil
}
