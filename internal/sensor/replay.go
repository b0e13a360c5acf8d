// Package sensor streams recorded scans to the planner as if they came from a live sensor.
package sensor

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"reactive-planner/internal/geom"
	"reactive-planner/internal/occupancy"
)

// Handler receives each observation as it arrives.
type Handler func(occupancy.Observation)

// Replay delivers scans loaded from disk at a fixed interval.
type Replay struct {
	logger   golog.Logger
	clk      clock.Clock
	interval time.Duration
	scans    []occupancy.Observation
	loop     bool
}

// NewReplay loads every *.xyz file in dir, sorted by name.
func NewReplay(dir string, interval time.Duration, loop bool, clk clock.Clock, logger golog.Logger) (*Replay, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.xyz"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.Errorf("no scan files in %s", dir)
	}
	sort.Strings(files)

	scans := make([]occupancy.Observation, 0, len(files))
	for _, file := range files {
		obs, err := ReadScan(file)
		if err != nil {
			return nil, err
		}
		scans = append(scans, obs)
		logger.Debugw("loaded scan", "file", filepath.Base(file), "points", len(obs.Points))
	}
	return &Replay{logger: logger, clk: clk, interval: interval, scans: scans, loop: loop}, nil
}

// NumScans returns how many scans were loaded.
func (r *Replay) NumScans() int {
	return len(r.scans)
}

// Run delivers scans to h until they are exhausted (or forever when looping) or ctx is done.
func (r *Replay) Run(ctx context.Context, h Handler) error {
	ticker := r.clk.Ticker(r.interval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		if ctx.Err() != nil {
			return nil
		}
		if i == len(r.scans) {
			if !r.loop {
				r.logger.Infow("scan replay finished", "scans", len(r.scans))
				return nil
			}
			i = 0
		}
		h(r.scans[i])

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// ReadScan parses a scan file. Each line holds "x y z" in the sensor frame; an optional
// "# origin x y z yaw_deg" line sets the sensor pose. Blank lines and other comments are skipped.
func ReadScan(filename string) (occupancy.Observation, error) {
	f, err := os.Open(filename)
	if err != nil {
		return occupancy.Observation{}, errors.Wrap(err, "failed to open scan")
	}
	defer f.Close()

	obs := occupancy.Observation{Origin: geom.Pose{Orientation: geom.Identity}}
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, "#") {
			fields := strings.Fields(strings.TrimPrefix(text, "#"))
			if len(fields) == 5 && fields[0] == "origin" {
				v, err := parseFloats(fields[1:])
				if err != nil {
					return obs, errors.Wrapf(err, "%s:%d", filename, line)
				}
				obs.Origin = geom.NewPose(r3.Vector{X: v[0], Y: v[1], Z: v[2]}, geom.DegToRad(v[3]))
			}
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 3 {
			return obs, errors.Errorf("%s:%d: expected 3 coordinates, got %d", filename, line, len(fields))
		}
		v, err := parseFloats(fields)
		if err != nil {
			return obs, errors.Wrapf(err, "%s:%d", filename, line)
		}
		obs.Points = append(obs.Points, r3.Vector{X: v[0], Y: v[1], Z: v[2]})
	}
	if err := scanner.Err(); err != nil {
		return obs, errors.Wrap(err, "failed to read scan")
	}
	return obs, nil
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
