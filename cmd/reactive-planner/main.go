// Package main runs one planning episode against replayed sensor scans.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"reactive-planner/internal/config"
	"reactive-planner/internal/logging"
	"reactive-planner/internal/occupancy"
	"reactive-planner/internal/planner"
	"reactive-planner/internal/sensor"
	"reactive-planner/internal/status"
	"reactive-planner/internal/viz"
)

const (
	flagConfig     = "config"
	flagScans      = "scans"
	flagScanRate   = "scan-rate"
	flagLoop       = "loop"
	flagKeepOut    = "keep-out"
	flagGeoJSONOut = "geojson-out"
	flagGraphOut   = "graph-out"
	flagHTTP       = "http"
	flagExitDone   = "exit-when-done"
	flagDebug      = "debug"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "reactive-planner",
		Usage: "plan a path once enough of the map has been observed",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  flagConfig,
				Usage: "planner YAML file, re-read when planning starts",
			},
			&cli.StringFlag{
				Name:     flagScans,
				Usage:    "directory of *.xyz scans to replay",
				Required: true,
			},
			&cli.Float64Flag{
				Name:  flagScanRate,
				Value: 2,
				Usage: "scans delivered per second",
			},
			&cli.BoolFlag{
				Name:  flagLoop,
				Usage: "replay the scans forever",
			},
			&cli.StringFlag{
				Name:  flagKeepOut,
				Usage: "GeoJSON file of keep-out volumes marked occupied at startup",
			},
			&cli.StringFlag{
				Name:  flagGeoJSONOut,
				Usage: "write visualization markers to this GeoJSON file",
			},
			&cli.StringFlag{
				Name:  flagGraphOut,
				Usage: "write the connected search space to this JSON file",
			},
			&cli.StringFlag{
				Name:  flagHTTP,
				Usage: "serve status on this address, e.g. :8080",
			},
			&cli.BoolFlag{
				Name:  flagExitDone,
				Usage: "exit once the planning episode has finished",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	logger, err := logging.NewLogger("planner", c.Bool(flagDebug))
	if err != nil {
		return err
	}

	cfg := config.Default()
	var source config.Source = config.StaticSource(cfg.Params)
	if filename := c.String(flagConfig); filename != "" {
		if cfg, err = config.Load(filename); err != nil {
			return err
		}
		source = config.FileSource{Path: filename}
	}
	if err := cfg.Params.Validate(); err != nil {
		return err
	}

	r, err := cfg.Robot.Build()
	if err != nil {
		return err
	}
	m, err := occupancy.NewMap(cfg.Map.Resolution, logger.Named("occupancy"))
	if err != nil {
		return err
	}
	m.MarkFree(cfg.Map.FreeBox())
	if filename := c.String(flagKeepOut); filename != "" {
		if err := addKeepOuts(m, filename, logger); err != nil {
			return err
		}
	}

	sinks := []viz.Visualizer{viz.NewLogSink(logger.Named("viz"))}
	if filename := c.String(flagGeoJSONOut); filename != "" {
		sinks = append(sinks, viz.NewGeoJSONSink(filename))
	}

	orch, err := planner.New(m, source, r, viz.Multi(sinks...), logger, planner.Options{
		GraphFile: c.String(flagGraphOut),
	})
	if err != nil {
		return err
	}

	rate := c.Float64(flagScanRate)
	if rate <= 0 {
		return errors.Errorf("--%s must be positive", flagScanRate)
	}
	replay, err := sensor.NewReplay(c.String(flagScans), time.Duration(float64(time.Second)/rate),
		c.Bool(flagLoop), clock.New(), logger.Named("sensor"))
	if err != nil {
		return err
	}
	logger.Infow("starting", "robot", r.Name(), "scans", replay.NumScans(), "map_resolution", m.Resolution())

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return replay.Run(ctx, orch.OnObservation)
	})
	g.Go(func() error {
		return orch.Run(ctx)
	})
	if addr := c.String(flagHTTP); addr != "" {
		srv := status.NewServer(orch, m, logger.Named("status"))
		g.Go(func() error {
			return srv.Serve(ctx, addr)
		})
	}
	exitWhenDone := c.Bool(flagExitDone)
	g.Go(func() error {
		select {
		case <-ctx.Done():
			return nil
		case <-orch.Done():
		}
		report(orch, logger)
		if exitWhenDone {
			stop()
		}
		return nil
	})
	return g.Wait()
}

func addKeepOuts(m *occupancy.Map, filename string, logger golog.Logger) error {
	keepOuts, err := occupancy.LoadKeepOuts(filename)
	if err != nil {
		return err
	}
	cells := 0
	for _, k := range keepOuts {
		// simplify to half a voxel before rasterizing
		cells += m.AddKeepOut(k.Simplify(m.Resolution() / 2))
	}
	logger.Infow("loaded keep-out volumes", "file", filename, "volumes", len(keepOuts), "cells", cells)
	return nil
}

func report(orch *planner.Orchestrator, logger golog.Logger) {
	res, ok := orch.Result()
	if !ok {
		logger.Warn("planning finished without a result")
		return
	}
	if !res.Path.Found {
		logger.Infow("episode finished, no path found", "samples", res.SearchSpaceSize)
		return
	}
	logger.Infow("episode finished",
		"waypoints", res.Path.Waypoints,
		"distance", res.Path.Length,
		"generation", res.GenerationTime,
		"search", res.SearchTime)
}
