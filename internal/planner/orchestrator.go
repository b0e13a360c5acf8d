package planner

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"reactive-planner/internal/config"
	"reactive-planner/internal/graph"
	"reactive-planner/internal/occupancy"
	"reactive-planner/internal/path"
	"reactive-planner/internal/robot"
	"reactive-planner/internal/search"
	"reactive-planner/internal/viz"
)

// DefaultPollPeriod is the readiness poll period (10 Hz).
const DefaultPollPeriod = 100 * time.Millisecond

// OccupancyModel is the map the orchestrator reads and the sensor stream writes.
// Implementations must allow InsertObservation concurrently with the other methods.
type OccupancyModel interface {
	InsertObservation(obs occupancy.Observation)
	OccupiedCells() []occupancy.Cell
	Extent() r3.Vector
	SegmentClear(a, b r3.Vector, clearance float64) bool
}

// EngineFactory builds the search engine for an episode.
type EngineFactory func(p config.Params, progress search.ProgressFunc) search.Engine

// Options tune an Orchestrator. Zero values select the defaults.
type Options struct {
	PollPeriod time.Duration
	Clock      clock.Clock
	Engine     EngineFactory
	// GraphFile, when set, receives a JSON dump of the connected search space.
	GraphFile string
}

// Result is the outcome of the planning episode.
type Result struct {
	Params          config.Params
	SearchSpaceSize int
	Graph           *graph.Graph
	Path            path.Path
	GenerationTime  time.Duration
	SearchTime      time.Duration
}

// Orchestrator owns the state of one planning episode.
type Orchestrator struct {
	logger golog.Logger
	clk    clock.Clock
	period time.Duration

	model     OccupancyModel
	source    config.Source
	robot     *robot.Robot
	vis       viz.Visualizer
	engine    EngineFactory
	graphFile string

	state     stateMachine
	done      chan struct{}
	sizeLog   rate.Sometimes
	notSetLog rate.Sometimes

	mu     sync.Mutex
	result *Result
}

// New returns an orchestrator waiting for its first scan.
func New(
	model OccupancyModel,
	source config.Source,
	r *robot.Robot,
	vis viz.Visualizer,
	logger golog.Logger,
	opts Options,
) (*Orchestrator, error) {
	if model == nil || source == nil || r == nil || vis == nil {
		return nil, errors.New("orchestrator needs a map, a parameter source, a robot and a visualizer")
	}
	o := &Orchestrator{
		logger:    logger,
		clk:       opts.Clock,
		period:    opts.PollPeriod,
		model:     model,
		source:    source,
		robot:     r,
		vis:       vis,
		engine:    opts.Engine,
		graphFile: opts.GraphFile,
		done:      make(chan struct{}),
		sizeLog:   rate.Sometimes{Interval: time.Second},
		notSetLog: rate.Sometimes{Interval: time.Second},
	}
	if o.clk == nil {
		o.clk = clock.New()
	}
	if o.period <= 0 {
		o.period = DefaultPollPeriod
	}
	if o.engine == nil {
		o.engine = o.defaultEngine
	}
	return o, nil
}

func (o *Orchestrator) defaultEngine(p config.Params, progress search.ProgressFunc) search.Engine {
	return &search.AStar{
		Greedy:        p.SearchAlgorithm == "greedy",
		ProgressEvery: p.TreeProgressDisplayFreq,
		Progress:      progress,
		DebugDelay:    p.DebugPause(),
		Clock:         o.clk,
		Logger:        o.logger.Named("search"),
	}
}

// State returns the current episode state.
func (o *Orchestrator) State() State {
	return o.state.load()
}

// MapReady reports whether at least one scan has been received.
func (o *Orchestrator) MapReady() bool {
	return o.State() >= WaitingForOccupancy
}

// Done is closed once the episode reaches Done.
func (o *Orchestrator) Done() <-chan struct{} {
	return o.done
}

// Result returns the episode outcome once planning has finished.
func (o *Orchestrator) Result() (Result, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.result == nil {
		return Result{}, false
	}
	return *o.result, true
}

// OnObservation inserts a scan into the map. The first scan marks the map ready.
func (o *Orchestrator) OnObservation(obs occupancy.Observation) {
	o.model.InsertObservation(obs)
	if o.state.advance(WaitingForCloud) {
		o.logger.Infow("received first scan", "points", len(obs.Points))
	}
}

// Tick checks whether planning can start and, the one time it can, runs it to
// completion. It never blocks except while planning.
func (o *Orchestrator) Tick() error {
	state := o.State()
	if state >= Planning {
		return nil
	}

	cells := o.model.OccupiedCells()
	extent := o.model.Extent()
	o.sizeLog.Do(func() {
		o.logger.Infow("map size", "extent", extent, "occupied", len(cells), "state", state)
	})
	if state != WaitingForOccupancy || len(cells) == 0 {
		return nil
	}
	if extent.Norm() <= 0 {
		o.notSetLog.Do(func() {
			o.logger.Error("planner not set up: map is empty")
		})
		return nil
	}
	if !o.state.advance(WaitingForOccupancy) {
		return nil
	}

	o.logger.Infow("starting planning", "extent", extent, "occupied", len(cells))
	err := o.plan()
	o.state.advance(Planning)
	close(o.done)
	return err
}

// Run polls Tick at the configured rate until ctx is done. Reaching Done does not stop
// the loop; later ticks are no-ops.
func (o *Orchestrator) Run(ctx context.Context) error {
	ticker := o.clk.Ticker(o.period)
	defer ticker.Stop()
	for {
		if err := o.Tick(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
