package policy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoSim-25-26J-441/paynet-sim/internal/ledger"
	"github.com/GoSim-25-26J-441/paynet-sim/pkg/logger"
)

// ErrCircuitOpen is returned without calling the ledger while an operation's
// circuit is open.
var ErrCircuitOpen = fmt.Errorf("%w: circuit open", ledger.ErrUnavailable)

// retryable lists the operations that are safe to repeat: duplicates are
// rejected by the ledger or the call has no side effect. AddBalance and
// Transfer are never retried.
var retryable = map[string]bool{
	ledger.OpRegisterUser:    true,
	ledger.OpCreateChannel:   true,
	ledger.OpChannelBalances: true,
	ledger.OpFindPath:        true,
	ledger.OpTotalUsers:      true,
}

var _ ledger.Ledger = (*GuardedLedger)(nil)

// GuardedLedger applies the manager's policies to every call of the wrapped
// ledger. Only ledger.ErrUnavailable failures count against the circuit.
type GuardedLedger struct {
	next    ledger.Ledger
	retry   RetryPolicy
	breaker CircuitBreakerPolicy
	logger  *slog.Logger
	now     func() time.Time
}

// Guard wraps l. With no active policy l is returned unchanged.
func Guard(l ledger.Ledger, pm *Manager, log *slog.Logger) ledger.Ledger {
	if pm == nil || pm.Empty() {
		return l
	}
	return &GuardedLedger{
		next:    l,
		retry:   pm.GetRetry(),
		breaker: pm.GetCircuitBreaker(),
		logger:  logger.OrDefault(log),
		now:     time.Now,
	}
}

// Unwrap returns the guarded ledger
func (g *GuardedLedger) Unwrap() ledger.Ledger {
	return g.next
}

func (g *GuardedLedger) do(ctx context.Context, op string, operands []any, call func(context.Context) error) error {
	for attempt := 0; ; attempt++ {
		if g.breaker != nil && !g.breaker.AllowRequest(op, g.now()) {
			g.logger.Debug("Ledger call rejected",
				"operation", op,
				"circuit", g.breaker.CheckAndGetState(op, g.now()))
			return ledger.NewCallError(op, ErrCircuitOpen, operands...)
		}

		err := call(ctx)
		if g.breaker != nil {
			if isUnavailable(err) {
				g.breaker.RecordFailure(op, g.now())
			} else {
				g.breaker.RecordSuccess(op, g.now())
			}
		}

		if err == nil || g.retry == nil || !retryable[op] {
			return err
		}
		if !g.retry.ShouldRetry(attempt, err) {
			if attempt > 0 {
				g.logger.Warn("Ledger call failed after retries",
					"operation", op,
					"max_retries", g.retry.GetMaxRetries(),
					"error", err)
			}
			return err
		}

		wait := g.retry.GetBackoffDuration(attempt + 1)
		g.logger.Debug("Retrying ledger call",
			"operation", op,
			"attempt", attempt+1,
			"backoff", wait,
			"error", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}

func isUnavailable(err error) bool {
	return err != nil && errors.Is(err, ledger.ErrUnavailable)
}

func (g *GuardedLedger) RegisterUser(ctx context.Context, id int, displayName string) error {
	return g.do(ctx, ledger.OpRegisterUser, []any{id}, func(ctx context.Context) error {
		return g.next.RegisterUser(ctx, id, displayName)
	})
}

func (g *GuardedLedger) AddBalance(ctx context.Context, id int, amount float64) error {
	return g.do(ctx, ledger.OpAddBalance, []any{id, amount}, func(ctx context.Context) error {
		return g.next.AddBalance(ctx, id, amount)
	})
}

func (g *GuardedLedger) CreateChannel(ctx context.Context, u, v int, capacityU, capacityV float64) error {
	return g.do(ctx, ledger.OpCreateChannel, []any{u, v, capacityU, capacityV}, func(ctx context.Context) error {
		return g.next.CreateChannel(ctx, u, v, capacityU, capacityV)
	})
}

func (g *GuardedLedger) ChannelBalances(ctx context.Context, u, v int) (ledger.ChannelBalances, error) {
	var out ledger.ChannelBalances
	err := g.do(ctx, ledger.OpChannelBalances, []any{u, v}, func(ctx context.Context) error {
		var err error
		out, err = g.next.ChannelBalances(ctx, u, v)
		return err
	})
	return out, err
}

func (g *GuardedLedger) FindPath(ctx context.Context, sender, receiver int, amount float64) ([]int, error) {
	var path []int
	err := g.do(ctx, ledger.OpFindPath, []any{sender, receiver, amount}, func(ctx context.Context) error {
		var err error
		path, err = g.next.FindPath(ctx, sender, receiver, amount)
		return err
	})
	return path, err
}

func (g *GuardedLedger) Transfer(ctx context.Context, sender, receiver int, amount float64) error {
	return g.do(ctx, ledger.OpTransfer, []any{sender, receiver, amount}, func(ctx context.Context) error {
		return g.next.Transfer(ctx, sender, receiver, amount)
	})
}

func (g *GuardedLedger) TotalUsers(ctx context.Context) (int, error) {
	var n int
	err := g.do(ctx, ledger.OpTotalUsers, nil, func(ctx context.Context) error {
		var err error
		n, err = g.next.TotalUsers(ctx)
		return err
	})
	return n, err
}
