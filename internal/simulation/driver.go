// Package simulation bootstraps a payment-channel network on a ledger and
// measures how often random payments across it succeed.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoSim-25-26J-441/paynet-sim/internal/ledger"
	"github.com/GoSim-25-26J-441/paynet-sim/internal/metrics"
	"github.com/GoSim-25-26J-441/paynet-sim/pkg/logger"
	"github.com/GoSim-25-26J-441/paynet-sim/pkg/models"
	"github.com/GoSim-25-26J-441/paynet-sim/pkg/utils"
)

// ErrInvalidParameter is returned when trial parameters are out of range
var ErrInvalidParameter = errors.New("invalid simulation parameter")

// PairSource draws two distinct indices from [0, n)
type PairSource interface {
	Pair(n int) (int, int)
}

// ProgressReporter is called at every checkpoint with the number of trials
// completed so far and the cumulative success ratio.
type ProgressReporter func(checkpoint int, ratio float64)

// TrialRecord is the outcome of a single payment attempt. It lives only for
// the duration of one loop iteration.
type TrialRecord struct {
	Index     int
	Sender    int
	Receiver  int
	Succeeded bool
	Err       error
}

// Outcome is the full result of a trial loop
type Outcome struct {
	Series    models.SuccessRatioSeries
	Trials    int
	Successes int
}

// Ratio returns the success ratio over every completed trial
func (o *Outcome) Ratio() float64 {
	return utils.Ratio(o.Successes, o.Trials)
}

// Driver issues random unit payments against a ledger and records the running
// success ratio. A Driver is not safe for concurrent use.
type Driver struct {
	ledger    ledger.Ledger
	rng       PairSource
	logger    *slog.Logger
	registry  *metrics.Registry
	collector *metrics.Collector
	progress  ProgressReporter
}

// NewDriver creates a driver drawing sender/receiver pairs from rng
func NewDriver(l ledger.Ledger, rng PairSource) *Driver {
	return &Driver{
		ledger: l,
		rng:    rng,
		logger: logger.Default,
	}
}

// WithLogger sets the logger used for failed transfers
func (d *Driver) WithLogger(l *slog.Logger) *Driver {
	d.logger = logger.OrDefault(l)
	return d
}

// WithRegistry publishes transfer outcomes to a Prometheus registry
func (d *Driver) WithRegistry(r *metrics.Registry) *Driver {
	d.registry = r
	return d
}

// WithCollector records transfer outcomes into a run-local collector
func (d *Driver) WithCollector(c *metrics.Collector) *Driver {
	d.collector = c
	return d
}

// WithProgressReporter registers a checkpoint callback
func (d *Driver) WithProgressReporter(fn ProgressReporter) *Driver {
	d.progress = fn
	return d
}

// Run performs trials payments of amount between distinct random users in
// [0, n) and returns the success ratio taken every interval trials. The ratio
// for checkpoint i is recorded before trial i runs, so trials == 10 and
// interval == 5 yields a single entry. A failed transfer is logged and counted,
// never returned. If ctx is cancelled the partial series is returned together
// with ctx.Err().
func (d *Driver) Run(ctx context.Context, n, trials, interval int, amount float64) (models.SuccessRatioSeries, error) {
	out, err := d.Simulate(ctx, n, trials, interval, amount)
	return out.Series, err
}

// Simulate is Run returning the trial and success counts alongside the series
func (d *Driver) Simulate(ctx context.Context, n, trials, interval int, amount float64) (*Outcome, error) {
	out := &Outcome{Series: models.SuccessRatioSeries{Interval: interval, Ratios: []float64{}}}
	if err := validateTrials(n, trials, interval, amount); err != nil {
		return out, err
	}

	for i := 0; i < trials; i++ {
		if err := ctx.Err(); err != nil {
			d.logger.Info("Simulation cancelled", "trial", i, "successes", out.Successes)
			return out, err
		}

		if i != 0 && i%interval == 0 {
			d.checkpoint(out, i, utils.Ratio(out.Successes, i))
		}

		rec := d.trial(ctx, i, n, amount)
		out.Trials++
		if !rec.Succeeded {
			d.logger.Warn("Transfer failed",
				"sender", rec.Sender,
				"receiver", rec.Receiver,
				"amount", amount,
				"trial", rec.Index,
				"error", rec.Err)
			continue
		}
		out.Successes++
	}

	return out, nil
}

func (d *Driver) trial(ctx context.Context, i, n int, amount float64) TrialRecord {
	sender, receiver := d.rng.Pair(n)
	start := time.Now()
	err := d.ledger.Transfer(ctx, sender, receiver, amount)
	d.record(err == nil, time.Since(start))
	return TrialRecord{
		Index:     i,
		Sender:    sender,
		Receiver:  receiver,
		Succeeded: err == nil,
		Err:       err,
	}
}

func (d *Driver) checkpoint(out *Outcome, trial int, ratio float64) {
	out.Series.Append(ratio)
	d.logger.Debug("Checkpoint", "trial", trial, "success_ratio", ratio)
	d.registry.RecordCheckpoint(ratio)
	if d.collector != nil {
		metrics.RecordCheckpoint(d.collector, trial, ratio, time.Now())
	}
	if d.progress != nil {
		d.progress(trial, ratio)
	}
}

func (d *Driver) record(success bool, elapsed time.Duration) {
	status := metrics.StatusSuccess
	if !success {
		status = metrics.StatusFailure
	}
	d.registry.RecordTransfer(success)
	d.registry.RecordLedgerCall(ledger.OpTransfer, status, elapsed)
	if d.collector != nil {
		now := time.Now()
		metrics.RecordTransfer(d.collector, success, now)
		metrics.RecordLedgerCall(d.collector, ledger.OpTransfer, elapsed, now)
	}
}

func validateTrials(n, trials, interval int, amount float64) error {
	if n < 2 {
		return fmt.Errorf("%w: need at least 2 users, got %d", ErrInvalidParameter, n)
	}
	if trials < 0 {
		return fmt.Errorf("%w: trials cannot be negative, got %d", ErrInvalidParameter, trials)
	}
	if interval < 1 {
		return fmt.Errorf("%w: checkpoint interval must be at least 1, got %d", ErrInvalidParameter, interval)
	}
	if !(amount > 0) {
		return fmt.Errorf("%w: transfer amount must be positive, got %v", ErrInvalidParameter, amount)
	}
	return nil
}
