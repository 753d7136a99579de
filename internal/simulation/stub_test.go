package simulation

import (
	"context"

	"github.com/GoSim-25-26J-441/paynet-sim/internal/ledger"
)

// stubLedger answers Transfer according to fail and records every call.
// TotalUsers reports total, or totalErr when set.
type stubLedger struct {
	fail     func(sender, receiver int) bool
	onCall   func(call int)
	calls    [][2]int
	total    int
	totalErr error
}

func (s *stubLedger) RegisterUser(context.Context, int, string) error {
	return nil
}

func (s *stubLedger) AddBalance(context.Context, int, float64) error {
	return nil
}

func (s *stubLedger) CreateChannel(context.Context, int, int, float64, float64) error {
	return nil
}

func (s *stubLedger) ChannelBalances(context.Context, int, int) (ledger.ChannelBalances, error) {
	return ledger.ChannelBalances{}, nil
}

func (s *stubLedger) FindPath(context.Context, int, int, float64) ([]int, error) {
	return nil, nil
}

func (s *stubLedger) TotalUsers(context.Context) (int, error) {
	if s.totalErr != nil {
		return 0, ledger.NewCallError(ledger.OpTotalUsers, s.totalErr)
	}
	return s.total, nil
}

func (s *stubLedger) Transfer(_ context.Context, sender, receiver int, amount float64) error {
	s.calls = append(s.calls, [2]int{sender, receiver})
	if s.onCall != nil {
		s.onCall(len(s.calls))
	}
	if s.fail != nil && s.fail(sender, receiver) {
		return ledger.NewCallError(ledger.OpTransfer, ledger.ErrNoPath, sender, receiver, amount)
	}
	return nil
}

func alwaysFail(int, int) bool { return true }

var _ ledger.Ledger = (*stubLedger)(nil)
