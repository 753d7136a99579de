// Package ledger defines the system of record consumed by the simulator:
// accounts, bilateral channels, route discovery and transfers.
package ledger

import (
	"context"
	"errors"
	"fmt"
)

// Ledger is the contract the simulator relies on. Every operation reports its
// outcome through the returned error; a nil error is success. Failures are
// *CallError values wrapping one of the sentinel errors below.
type Ledger interface {
	RegisterUser(ctx context.Context, id int, displayName string) error
	AddBalance(ctx context.Context, id int, amount float64) error
	CreateChannel(ctx context.Context, u, v int, capacityU, capacityV float64) error
	ChannelBalances(ctx context.Context, u, v int) (ChannelBalances, error)
	FindPath(ctx context.Context, sender, receiver int, amount float64) ([]int, error)
	Transfer(ctx context.Context, sender, receiver int, amount float64) error
	TotalUsers(ctx context.Context) (int, error)
}

// ChannelBalances holds the per-side token identifiers and balances of a
// channel, ordered as (u side, v side) for the pair that was queried.
type ChannelBalances struct {
	Tokens   []string  `json:"tokens"`
	Balances []float64 `json:"balances"`
}

var (
	ErrUserExists          = errors.New("user already registered")
	ErrUnknownUser         = errors.New("unknown user")
	ErrChannelExists       = errors.New("channel already exists")
	ErrUnknownChannel      = errors.New("unknown channel")
	ErrSameEndpoints       = errors.New("endpoints must differ")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrNoPath              = errors.New("no path with sufficient capacity")
	ErrUnavailable         = errors.New("ledger unavailable")
)

// CallError is a failed ledger operation together with the operands it was
// invoked with.
type CallError struct {
	Op       string
	Operands []any
	Err      error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("ledger %s %v: %v", e.Op, e.Operands, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// NewCallError wraps err for operation op. A nil err yields nil.
func NewCallError(op string, err error, operands ...any) error {
	if err == nil {
		return nil
	}
	var ce *CallError
	if errors.As(err, &ce) && ce.Op == op {
		return err
	}
	return &CallError{Op: op, Operands: operands, Err: err}
}

// Operation names used in CallError.Op
const (
	OpRegisterUser    = "register_user"
	OpAddBalance      = "add_balance"
	OpCreateChannel   = "create_channel"
	OpChannelBalances = "channel_balances"
	OpFindPath        = "find_path"
	OpTransfer        = "transfer"
	OpTotalUsers      = "total_users"
)
