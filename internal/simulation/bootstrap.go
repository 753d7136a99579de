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

// ChannelReport counts channel openings by outcome
type ChannelReport struct {
	Opened int `json:"opened"`
	Failed int `json:"failed"`
}

// Bootstrap populates a ledger with users and channels. Failed ledger calls
// are logged with their operands and skipped.
type Bootstrap struct {
	Ledger   ledger.Ledger
	Logger   *slog.Logger
	Registry *metrics.Registry
}

// CreateUsers registers users 0..n-1 and funds each with initialBalance using
// the default logger.
func CreateUsers(ctx context.Context, l ledger.Ledger, n int, initialBalance float64) (int, error) {
	return Bootstrap{Ledger: l}.CreateUsers(ctx, n, initialBalance)
}

// OpenChannels opens one channel per edge using the default logger.
func OpenChannels(ctx context.Context, l ledger.Ledger, edges []models.Edge, capacities []float64, counterparty float64) (ChannelReport, error) {
	return Bootstrap{Ledger: l}.OpenChannels(ctx, edges, capacities, counterparty)
}

// UnknownUsers is returned by CreateUsers when the ledger cannot report its
// user count.
const UnknownUsers = -1

// CreateUsers registers users 0..n-1 as "User{i}" and funds each with
// initialBalance. A user the ledger already knows is funded all the same.
// It returns the number of users the ledger reports afterwards, or
// UnknownUsers when that count cannot be read.
func (b Bootstrap) CreateUsers(ctx context.Context, n int, initialBalance float64) (int, error) {
	if n < 0 {
		return 0, fmt.Errorf("%w: user count cannot be negative, got %d", ErrInvalidParameter, n)
	}
	log := logger.OrDefault(b.Logger)

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		start := time.Now()
		err := b.Ledger.RegisterUser(ctx, i, utils.UserDisplayName(i))
		b.observe(ledger.OpRegisterUser, err, start)
		if err != nil {
			if !errors.Is(err, ledger.ErrUserExists) {
				log.Warn("User registration failed", "user", i, "error", err)
				continue
			}
			log.Debug("User already registered", "user", i)
		}

		start = time.Now()
		err = b.Ledger.AddBalance(ctx, i, initialBalance)
		b.observe(ledger.OpAddBalance, err, start)
		if err != nil {
			log.Warn("Funding failed", "user", i, "amount", initialBalance, "error", err)
		}
	}

	start := time.Now()
	total, err := b.Ledger.TotalUsers(ctx)
	b.observe(ledger.OpTotalUsers, err, start)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		log.Warn("User count unavailable", "requested", n, "error", err)
		return UnknownUsers, nil
	}
	log.Info("Users created", "requested", n, "total", total)
	return total, nil
}

// OpenChannels opens a channel for every edge, funding the U side with
// capacities[k] and the V side with counterparty. Duplicate edges are
// rejected by the ledger and counted as failures.
func (b Bootstrap) OpenChannels(ctx context.Context, edges []models.Edge, capacities []float64, counterparty float64) (ChannelReport, error) {
	var report ChannelReport
	if len(edges) != len(capacities) {
		return report, fmt.Errorf("%w: %d edges but %d capacities", ErrInvalidParameter, len(edges), len(capacities))
	}
	log := logger.OrDefault(b.Logger)

	for k, e := range edges {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		start := time.Now()
		err := b.Ledger.CreateChannel(ctx, e.U, e.V, capacities[k], counterparty)
		b.observe(ledger.OpCreateChannel, err, start)
		if err != nil {
			log.Warn("Channel creation failed",
				"u", e.U,
				"v", e.V,
				"capacity_u", capacities[k],
				"capacity_v", counterparty,
				"error", err)
			report.Failed++
			continue
		}
		report.Opened++
	}

	b.Registry.RecordChannels(report.Opened, report.Failed)
	log.Info("Channels opened", "opened", report.Opened, "failed", report.Failed)
	return report, nil
}

func (b Bootstrap) observe(op string, err error, start time.Time) {
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusFailure
	}
	b.Registry.RecordLedgerCall(op, status, time.Since(start))
}
