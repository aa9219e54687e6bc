package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/fieldsched/core/metrics"
	"github.com/kilianp07/fieldsched/core/model"
	"github.com/kilianp07/fieldsched/core/route"
)

// GeoapifyConfig configures the Geoapify routing client.
type GeoapifyConfig struct {
	APIKey string `json:"api_key" mapstructure:"api_key"`
	// BaseURL overrides the production endpoint, mainly for tests.
	BaseURL  string        `json:"base_url" mapstructure:"base_url"`
	Mode     string        `json:"mode" mapstructure:"mode"` // travel mode, default "drive"
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout"`
	Attempts uint          `json:"attempts" mapstructure:"attempts"`
}

const geoapifyBaseURL = "https://api.geoapify.com/v1"

// Geoapify implements route.Optimizer on the Geoapify route matrix API: one
// matrix request yields road distances and times between all stops, then the
// greedy ordering runs on real road data instead of great-circle estimates.
// It is meant to sit behind route.WithFallback.
type Geoapify struct {
	cfg GeoapifyConfig
	cli client
}

// NewGeoapify creates the client. The recorder is optional.
func NewGeoapify(cfg GeoapifyConfig, rec metrics.ProviderCallRecorder) (*Geoapify, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("geoapify: api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = geoapifyBaseURL
	}
	if cfg.Mode == "" {
		cfg.Mode = "drive"
	}
	return &Geoapify{
		cfg: cfg,
		cli: newClient(cfg.Timeout, cfg.Attempts, "routing", "geoapify", rec),
	}, nil
}

// Name implements route.Optimizer.
func (g *Geoapify) Name() string { return "geoapify" }

type matrixRequest struct {
	Mode    string      `json:"mode"`
	Sources []matrixLoc `json:"sources"`
	Targets []matrixLoc `json:"targets"`
}

type matrixLoc struct {
	Location [2]float64 `json:"location"` // lon, lat
}

type matrixResponse struct {
	SourcesToTargets [][]struct {
		Distance float64 `json:"distance"` // meters
		Time     float64 `json:"time"`     // seconds
	} `json:"sources_to_targets"`
}

// Optimize implements route.Optimizer. Any provider failure is reported as
// ErrOptimizationFailed so the fallback wrapper can take over.
func (g *Geoapify) Optimize(ctx context.Context, waypoints []model.Location, cons *route.Constraints) (route.Result, error) {
	if len(waypoints) < 2 {
		return route.Result{}, fmt.Errorf("%w: at least 2 waypoints required, got %d", model.ErrInvalidInput, len(waypoints))
	}
	for i, wp := range waypoints {
		if err := wp.Validate(); err != nil {
			return route.Result{}, fmt.Errorf("%w: waypoint %d: %v", model.ErrInvalidInput, i, err)
		}
	}

	// The matrix covers all waypoints plus the optional start as index n.
	nodes := make([]model.Location, len(waypoints))
	copy(nodes, waypoints)
	startIdx := -1
	if cons != nil && cons.StartLocation != nil {
		startIdx = len(nodes)
		nodes = append(nodes, *cons.StartLocation)
	}

	dist, dur, err := g.matrix(ctx, nodes)
	if err != nil {
		return route.Result{}, fmt.Errorf("%w: %v", route.ErrOptimizationFailed, err)
	}

	order := greedyOrder(len(waypoints), startIdx, dur)
	res := assembleFromMatrix(order, startIdx, dist, dur)

	identity := make([]int, len(waypoints))
	for i := range identity {
		identity[i] = i
	}
	base := assembleFromMatrix(identity, startIdx, dist, dur)
	res.Savings = route.Savings{
		Distance: base.TotalDistance - res.TotalDistance,
		Duration: base.TotalDuration - res.TotalDuration,
	}
	if err := route.CheckBounds(res, cons); err != nil {
		return route.Result{}, err
	}
	return res, nil
}

// matrix fetches the full pairwise distance (km) and duration matrices.
func (g *Geoapify) matrix(ctx context.Context, nodes []model.Location) ([][]float64, [][]time.Duration, error) {
	locs := make([]matrixLoc, len(nodes))
	for i, n := range nodes {
		locs[i] = matrixLoc{Location: [2]float64{n.Lng, n.Lat}}
	}
	body, err := json.Marshal(matrixRequest{Mode: g.cfg.Mode, Sources: locs, Targets: locs})
	if err != nil {
		return nil, nil, err
	}

	var resp matrixResponse
	url := fmt.Sprintf("%s/routematrix?apiKey=%s", g.cfg.BaseURL, g.cfg.APIKey)
	if err := g.cli.postJSON(ctx, url, body, &resp); err != nil {
		return nil, nil, err
	}
	if len(resp.SourcesToTargets) != len(nodes) {
		return nil, nil, fmt.Errorf("matrix has %d rows, want %d", len(resp.SourcesToTargets), len(nodes))
	}

	dist := make([][]float64, len(nodes))
	dur := make([][]time.Duration, len(nodes))
	for i, row := range resp.SourcesToTargets {
		if len(row) != len(nodes) {
			return nil, nil, fmt.Errorf("matrix row %d has %d cells, want %d", i, len(row), len(nodes))
		}
		dist[i] = make([]float64, len(nodes))
		dur[i] = make([]time.Duration, len(nodes))
		for j, cell := range row {
			dist[i][j] = cell.Distance / 1000
			dur[i][j] = time.Duration(cell.Time * float64(time.Second))
		}
	}
	return dist, dur, nil
}

// greedyOrder visits the nearest unvisited waypoint by road time, starting
// from startIdx when present, otherwise from waypoint 0. Ties break on the
// lower waypoint index.
func greedyOrder(n, startIdx int, dur [][]time.Duration) []int {
	visited := make([]bool, n)
	order := make([]int, 0, n)

	cur := 0
	if startIdx >= 0 {
		cur = startIdx
	} else {
		visited[0] = true
		order = append(order, 0)
	}

	for len(order) < n {
		best := -1
		for i := 0; i < n; i++ {
			if visited[i] {
				continue
			}
			if best == -1 || dur[cur][i] < dur[cur][best] {
				best = i
			}
		}
		visited[best] = true
		order = append(order, best)
		cur = best
	}
	return order
}

func assembleFromMatrix(order []int, startIdx int, dist [][]float64, dur [][]time.Duration) route.Result {
	res := route.Result{Order: order}
	var distances []float64

	prev := startIdx
	prevLabel := -1
	if startIdx < 0 {
		prev = order[0]
		prevLabel = order[0]
		order = order[1:]
	}
	for _, idx := range order {
		res.Legs = append(res.Legs, route.Leg{
			From:     prevLabel,
			To:       idx,
			Distance: dist[prev][idx],
			Duration: dur[prev][idx],
		})
		distances = append(distances, dist[prev][idx])
		res.TotalDuration += dur[prev][idx]
		prev, prevLabel = idx, idx
	}
	res.TotalDistance = floats.Sum(distances)
	return res
}
