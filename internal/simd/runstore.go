package simd

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/paynet-sim/internal/metrics"
	"github.com/GoSim-25-26J-441/paynet-sim/pkg/config"
	"github.com/GoSim-25-26J-441/paynet-sim/pkg/models"
	"github.com/GoSim-25-26J-441/paynet-sim/pkg/utils"
)

var (
	ErrRunExists     = errors.New("run already exists")
	ErrInvalidRunID  = errors.New("invalid run id")
	ErrInvalidConfig = errors.New("invalid run configuration")
)

// Callback is where a run's terminal state is reported
type Callback struct {
	URL    string
	Secret string
}

// RunRecord is a run together with its configuration and progress. Records
// returned by RunStore are snapshots and safe to read without locking.
type RunRecord struct {
	Run        *models.Run
	Config     *config.Config
	ConfigYAML string
	Series     models.SuccessRatioSeries
	Callback   Callback
	Collector  *metrics.Collector
}

func (r *RunRecord) snapshot() *RunRecord {
	run := *r.Run
	if r.Run.Summary != nil {
		summary := *r.Run.Summary
		run.Summary = &summary
	}
	out := *r
	out.Run = &run
	out.Series = models.SuccessRatioSeries{
		Interval: r.Series.Interval,
		Ratios:   append([]float64(nil), r.Series.Ratios...),
	}
	return &out
}

// RunStore holds every run submitted to the daemon
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]*RunRecord
}

func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string]*RunRecord),
	}
}

// Create parses configYAML and registers a pending run. An empty runID is
// replaced by a generated one.
func (s *RunStore) Create(runID, configYAML string, cb Callback) (*RunRecord, error) {
	if strings.ContainsAny(runID, "/:") {
		return nil, fmt.Errorf("%w: %q cannot contain '/' or ':'", ErrInvalidRunID, runID)
	}

	cfg, err := config.ParseConfigYAMLString(configYAML)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if runID == "" {
		runID = utils.GenerateRunID()
	}
	if _, exists := s.runs[runID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrRunExists, runID)
	}

	rec := &RunRecord{
		Run: &models.Run{
			ID:        runID,
			Status:    models.RunStatusPending,
			Seed:      cfg.Seed,
			CreatedAt: time.Now().UTC(),
		},
		Config:     cfg,
		ConfigYAML: configYAML,
		Series:     models.SuccessRatioSeries{Interval: cfg.Simulation.CheckpointInterval, Ratios: []float64{}},
		Callback:   cb,
	}
	s.runs[runID] = rec
	return rec.snapshot(), nil
}

func (s *RunStore) Get(runID string) (*RunRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.runs[runID]
	if !ok {
		return nil, false
	}
	return rec.snapshot(), true
}

// List returns runs ordered by creation time, newest first. An empty status
// matches every run.
func (s *RunStore) List(limit, offset int, status models.RunStatus) []*RunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	matched := make([]*RunRecord, 0, len(s.runs))
	for _, rec := range s.runs {
		if status != "" && rec.Run.Status != status {
			continue
		}
		matched = append(matched, rec)
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i].Run, matched[j].Run
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	if offset >= len(matched) {
		return []*RunRecord{}
	}
	end := min(offset+limit, len(matched))

	out := make([]*RunRecord, 0, end-offset)
	for _, rec := range matched[offset:end] {
		out = append(out, rec.snapshot())
	}
	return out
}

// SetStatus moves a run to status. A terminal run never changes again.
func (s *RunStore) SetStatus(runID string, status models.RunStatus, errMsg string) (*RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if rec.Run.Status.Terminal() {
		return nil, fmt.Errorf("%w: %s is %s", ErrRunTerminal, runID, rec.Run.Status)
	}

	rec.Run.Status = status
	if errMsg != "" {
		rec.Run.Error = errMsg
	}

	now := time.Now().UTC()
	switch {
	case status == models.RunStatusRunning:
		if rec.Run.StartedAt.IsZero() {
			rec.Run.StartedAt = now
		}
	case status.Terminal():
		rec.Run.EndedAt = now
	}

	return rec.snapshot(), nil
}

// AddCheckpoint appends a success ratio observed after trial checkpoint
func (s *RunStore) AddCheckpoint(runID string, checkpoint int, ratio float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	rec.Series.Append(ratio)
	rec.Run.Checkpoint = checkpoint
	return nil
}

func (s *RunStore) SetSummary(runID string, summary *models.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	rec.Run.Summary = summary
	return nil
}

func (s *RunStore) SetCollector(runID string, collector *metrics.Collector) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	rec.Collector = collector
	return nil
}
