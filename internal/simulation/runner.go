package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoSim-25-26J-441/paynet-sim/internal/capacity"
	"github.com/GoSim-25-26J-441/paynet-sim/internal/ledger"
	"github.com/GoSim-25-26J-441/paynet-sim/internal/metrics"
	"github.com/GoSim-25-26J-441/paynet-sim/internal/topology"
	"github.com/GoSim-25-26J-441/paynet-sim/pkg/config"
	"github.com/GoSim-25-26J-441/paynet-sim/pkg/logger"
	"github.com/GoSim-25-26J-441/paynet-sim/pkg/models"
	"github.com/GoSim-25-26J-441/paynet-sim/pkg/utils"
)

// Result is everything a run produced
type Result struct {
	Seed         int64
	Users        int
	Graph        *topology.Graph
	Distribution models.DegreeDistribution
	Capacities   []float64
	Channels     ChannelReport
	Series       models.SuccessRatioSeries
	Trials       int
	Successes    int
	StartedAt    time.Time
	Duration     time.Duration
}

// SuccessRatio returns the ratio over every trial that ran
func (r *Result) SuccessRatio() float64 {
	return utils.Ratio(r.Successes, r.Trials)
}

// Summary condenses the result for reporting
func (r *Result) Summary() *models.RunSummary {
	s := &models.RunSummary{
		Users:          r.Users,
		ChannelsOpened: r.Channels.Opened,
		ChannelsFailed: r.Channels.Failed,
		CapacityMean:   utils.Mean(r.Capacities),
		CapacityStdDev: utils.StdDev(r.Capacities),
		Trials:         r.Trials,
		Successes:      r.Successes,
		SuccessRatio:   r.SuccessRatio(),
		Series:         r.Series,
		Duration:       r.Duration,
	}
	s.CapacityMin, s.CapacityMax = utils.MinMax(r.Capacities)
	if r.Graph != nil {
		s.Edges = len(r.Graph.Edges)
		s.MaxDegree = r.Distribution.MaxDegree()
	}
	return s
}

// Runner executes the full pipeline against one ledger: create users,
// generate the topology, provision capacities, open channels and drive the
// trials. Every random draw comes from a single stream seeded from the
// configuration, in that order.
type Runner struct {
	ledger    ledger.Ledger
	logger    *slog.Logger
	registry  *metrics.Registry
	collector *metrics.Collector
	progress  ProgressReporter
}

// NewRunner creates a runner for the given ledger
func NewRunner(l ledger.Ledger) *Runner {
	return &Runner{
		ledger: l,
		logger: logger.Default,
	}
}

// WithLogger sets the logger passed to every stage
func (r *Runner) WithLogger(l *slog.Logger) *Runner {
	r.logger = logger.OrDefault(l)
	return r
}

// WithRegistry publishes run metrics to a Prometheus registry
func (r *Runner) WithRegistry(reg *metrics.Registry) *Runner {
	r.registry = reg
	return r
}

// WithCollector records run metrics into a run-local collector
func (r *Runner) WithCollector(c *metrics.Collector) *Runner {
	r.collector = c
	return r
}

// WithProgressReporter registers a checkpoint callback for the trial stage
func (r *Runner) WithProgressReporter(fn ProgressReporter) *Runner {
	r.progress = fn
	return r
}

// Run executes cfg. Invalid parameters are reported before any ledger call.
// Individual ledger failures are logged and never abort the run. On
// cancellation the partially filled result is returned with ctx.Err().
func (r *Runner) Run(ctx context.Context, cfg *config.Config) (*Result, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrInvalidParameter)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}

	rng := utils.NewRandSource(cfg.Seed)
	res := &Result{
		Seed:      rng.Seed(),
		StartedAt: time.Now(),
	}
	defer func() {
		res.Duration = time.Since(res.StartedAt)
	}()

	if r.collector != nil {
		r.collector.Start()
		defer r.collector.Stop()
	}

	log := r.logger.With("seed", res.Seed)
	log.Info("Starting run",
		"users", cfg.Network.Users,
		"attachment", cfg.Network.Attachment,
		"trials", cfg.Simulation.Trials,
		"interval", cfg.Simulation.CheckpointInterval)

	boot := Bootstrap{Ledger: r.ledger, Logger: log, Registry: r.registry}

	if _, err := boot.CreateUsers(ctx, cfg.Network.Users, cfg.Network.InitialBalance); err != nil {
		return res, fmt.Errorf("failed to create users: %w", err)
	}
	res.Users = cfg.Network.Users

	graph, err := topology.Generate(cfg.Network.Users, cfg.Network.Attachment, rng)
	if err != nil {
		return res, fmt.Errorf("failed to generate topology: %w", err)
	}
	if err := graph.Validate(); err != nil {
		return res, fmt.Errorf("generated topology is inconsistent: %w", err)
	}
	res.Graph = graph
	res.Distribution = graph.DegreeDistribution()
	r.registry.RecordTopology(graph.N, len(graph.Edges), res.Distribution.MaxDegree())
	log.Info("Topology generated",
		"edges", len(graph.Edges),
		"max_degree", res.Distribution.MaxDegree(),
		"degraded", len(graph.Degraded))

	capacities, err := capacity.Provision(graph.Edges, cfg.Network.CapacityMean, rng)
	if err != nil {
		return res, fmt.Errorf("failed to provision capacities: %w", err)
	}
	res.Capacities = capacities
	if r.collector != nil {
		now := time.Now()
		metrics.RecordDegrees(r.collector, graph.Degrees, now)
		metrics.RecordCapacities(r.collector, capacities, now)
	}

	report, err := boot.OpenChannels(ctx, graph.Edges, capacities, cfg.Network.CounterpartyCapacity)
	res.Channels = report
	if err != nil {
		return res, fmt.Errorf("failed to open channels: %w", err)
	}

	driver := NewDriver(r.ledger, rng).
		WithLogger(log).
		WithRegistry(r.registry).
		WithCollector(r.collector).
		WithProgressReporter(r.progress)

	out, err := driver.Simulate(ctx, cfg.Network.Users, cfg.Simulation.Trials, cfg.Simulation.CheckpointInterval, cfg.Simulation.TransferAmount)
	res.Series = out.Series
	res.Trials = out.Trials
	res.Successes = out.Successes
	if err != nil {
		return res, err
	}

	log.Info("Run completed",
		"trials", res.Trials,
		"successes", res.Successes,
		"success_ratio", res.SuccessRatio())
	return res, nil
}
