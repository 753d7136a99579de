package models

import (
	"sort"
	"time"
)

// Edge is a channel between two node indices. U is the node that was attached
// when the edge was created; ordering carries no other meaning.
type Edge struct {
	U int `json:"u"`
	V int `json:"v"`
}

// Key returns the endpoints in ascending order, identifying the unordered pair
func (e Edge) Key() [2]int {
	if e.U < e.V {
		return [2]int{e.U, e.V}
	}
	return [2]int{e.V, e.U}
}

// DegreeDistribution summarises node degrees of a generated topology
type DegreeDistribution struct {
	ByNode    []int       `json:"by_node"`
	Frequency map[int]int `json:"frequency"`
}

// DegreePoint is one row of the empirical degree distribution
type DegreePoint struct {
	Degree      int     `json:"degree"`
	Count       int     `json:"count"`
	Probability float64 `json:"probability"`
}

// NewDegreeDistribution builds the frequency table for per-node degrees
func NewDegreeDistribution(degrees []int) DegreeDistribution {
	byNode := make([]int, len(degrees))
	copy(byNode, degrees)

	freq := make(map[int]int)
	for _, d := range byNode {
		freq[d]++
	}
	return DegreeDistribution{ByNode: byNode, Frequency: freq}
}

// Points returns the empirical P(degree), sorted by ascending degree
func (d DegreeDistribution) Points() []DegreePoint {
	total := len(d.ByNode)
	points := make([]DegreePoint, 0, len(d.Frequency))
	for degree, count := range d.Frequency {
		p := 0.0
		if total > 0 {
			p = float64(count) / float64(total)
		}
		points = append(points, DegreePoint{Degree: degree, Count: count, Probability: p})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Degree < points[j].Degree })
	return points
}

// MaxDegree returns the largest node degree, or 0 for an empty graph
func (d DegreeDistribution) MaxDegree() int {
	max := 0
	for _, deg := range d.ByNode {
		if deg > max {
			max = deg
		}
	}
	return max
}

// SuccessRatioSeries holds the running success ratio recorded every Interval trials.
// Ratios[i] was taken after (i+1)*Interval trials.
type SuccessRatioSeries struct {
	Interval int       `json:"interval"`
	Ratios   []float64 `json:"ratios"`
}

// Append records the ratio for the next checkpoint
func (s *SuccessRatioSeries) Append(ratio float64) {
	s.Ratios = append(s.Ratios, ratio)
}

// Len returns the number of recorded checkpoints
func (s SuccessRatioSeries) Len() int {
	return len(s.Ratios)
}

// Checkpoints returns the trial count at which each ratio was taken
func (s SuccessRatioSeries) Checkpoints() []int {
	out := make([]int, len(s.Ratios))
	for i := range s.Ratios {
		out[i] = (i + 1) * s.Interval
	}
	return out
}

// Last returns the most recent ratio
func (s SuccessRatioSeries) Last() (float64, bool) {
	if len(s.Ratios) == 0 {
		return 0, false
	}
	return s.Ratios[len(s.Ratios)-1], true
}

// RunStatus represents the status of a simulation run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Terminal reports whether the status can no longer change
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	}
	return false
}

// Run represents a simulation run submitted to the daemon
type Run struct {
	ID         string      `json:"id"`
	Status     RunStatus   `json:"status"`
	Seed       int64       `json:"seed,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	StartedAt  time.Time   `json:"started_at,omitempty"`
	EndedAt    time.Time   `json:"ended_at,omitempty"`
	Error      string      `json:"error,omitempty"`
	Summary    *RunSummary `json:"summary,omitempty"`
	Checkpoint int         `json:"checkpoint"`
}

// RunSummary contains the aggregated outcome of a finished run
type RunSummary struct {
	Users          int                `json:"users"`
	Edges          int                `json:"edges"`
	MaxDegree      int                `json:"max_degree"`
	ChannelsOpened int                `json:"channels_opened"`
	ChannelsFailed int                `json:"channels_failed"`
	CapacityMean   float64            `json:"capacity_mean"`
	CapacityStdDev float64            `json:"capacity_stddev"`
	CapacityMin    float64            `json:"capacity_min"`
	CapacityMax    float64            `json:"capacity_max"`
	Trials         int                `json:"trials"`
	Successes      int                `json:"successes"`
	SuccessRatio   float64            `json:"success_ratio"`
	Series         SuccessRatioSeries `json:"series"`
	Duration       time.Duration      `json:"duration"`
}

// MetricPoint represents a single metric data point
type MetricPoint struct {
	Timestamp time.Time         `json:"timestamp"`
	Name      string            `json:"name"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
}

// MetricsSummary represents a summary of collected metrics
type MetricsSummary struct {
	StartTime    time.Time               `json:"start_time"`
	EndTime      time.Time               `json:"end_time"`
	Duration     time.Duration           `json:"duration"`
	Metrics      map[string][]float64    `json:"metrics"`
	Aggregations map[string]*Aggregation `json:"aggregations,omitempty"`
}

// Aggregation represents aggregated statistics for a metric
type Aggregation struct {
	Count int64   `json:"count"`
	Sum   float64 `json:"sum"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
}
