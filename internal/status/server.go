// Package status serves the planning episode state over HTTP.
package status

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"github.com/samber/lo"

	"reactive-planner/internal/planner"
)

// Episode is the view of the orchestrator the server reports on.
type Episode interface {
	State() planner.State
	MapReady() bool
	Result() (planner.Result, bool)
}

// MapStats reports the size of the occupancy map.
type MapStats interface {
	NumOccupied() int
	NumObservations() int
}

// Point is a position in responses.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func toPoint(v r3.Vector) Point {
	return Point{X: v.X, Y: v.Y, Z: v.Z}
}

// ResultResponse is the body of GET /result.
type ResultResponse struct {
	Success         bool    `json:"success"`
	Message         string  `json:"message,omitempty"`
	Path            []Point `json:"path"`
	Waypoints       int     `json:"waypoints"`
	Distance        float64 `json:"distance"`
	SearchSpaceSize int     `json:"searchSpaceSize"`
	GenerationMs    int64   `json:"generationMs"`
	SearchMs        int64   `json:"searchMs"`
}

// Server answers status requests.
type Server struct {
	episode Episode
	stats   MapStats
	logger  golog.Logger
}

// NewServer returns a server reporting on episode and the map behind stats.
func NewServer(episode Episode, stats MapStats, logger golog.Logger) *Server {
	return &Server{episode: episode, stats: stats, logger: logger}
}

// Handler returns the routes with CORS enabled for all origins.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/result", s.resultHandler)
	mux.HandleFunc("/graph", s.graphHandler)
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(mux)
}

// Serve listens on addr until ctx is done.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("status server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "status server")
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutting down status server")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// GET /health - episode state
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	_, planned := s.episode.Result()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"state":        s.episode.State().String(),
		"mapReady":     s.episode.MapReady(),
		"planned":      planned,
		"occupied":     s.stats.NumOccupied(),
		"observations": s.stats.NumObservations(),
	})
}

// GET /result - the planned path
func (s *Server) resultHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	res, ok := s.episode.Result()
	if !ok {
		http.Error(w, "Planning has not finished yet", http.StatusServiceUnavailable)
		return
	}

	response := ResultResponse{
		Success:         res.Path.Found,
		Path:            lo.Map(res.Path.Points(), func(v r3.Vector, _ int) Point { return toPoint(v) }),
		Waypoints:       res.Path.Waypoints,
		Distance:        res.Path.Length,
		SearchSpaceSize: res.SearchSpaceSize,
		GenerationMs:    res.GenerationTime.Milliseconds(),
		SearchMs:        res.SearchTime.Milliseconds(),
	}
	if !response.Success {
		response.Message = "No path found"
	}
	s.logger.Debugw("serving result", "found", response.Success, "waypoints", response.Waypoints)
	writeJSON(w, http.StatusOK, response)
}

// GET /graph - search space edges as line strings
func (s *Server) graphHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	res, ok := s.episode.Result()
	if !ok || res.Graph == nil {
		http.Error(w, "Search space not built yet", http.StatusServiceUnavailable)
		return
	}

	lines := lo.Map(res.Graph.LineSegments(), func(l [2]r3.Vector, _ int) [2]Point {
		return [2]Point{toPoint(l[0]), toPoint(l[1])}
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"lines":    lines,
		"numNodes": res.Graph.Len(),
		"numEdges": len(lines),
	})
}
