package simulation

import (
	"context"
	"errors"
	"testing"

	"github.com/GoSim-25-26J-441/paynet-sim/internal/ledger"
	"github.com/GoSim-25-26J-441/paynet-sim/internal/metrics"
	"github.com/GoSim-25-26J-441/paynet-sim/pkg/logger"
	"github.com/GoSim-25-26J-441/paynet-sim/pkg/models"
)

func quietBootstrap(l ledger.Ledger) Bootstrap {
	return Bootstrap{Ledger: l, Logger: logger.Discard()}
}

func TestCreateUsers(t *testing.T) {
	ctx := context.Background()
	mem := ledger.NewMemory()

	total, err := quietBootstrap(mem).CreateUsers(ctx, 5, 50000)
	if err != nil {
		t.Fatalf("CreateUsers: %v", err)
	}
	if total != 5 {
		t.Fatalf("expected 5 users, got %d", total)
	}
	for i := 0; i < 5; i++ {
		bal, ok := mem.Balance(i)
		if !ok || bal != 50000 {
			t.Fatalf("user %d: expected balance 50000, got %v (registered=%v)", i, bal, ok)
		}
	}
}

func TestCreateUsersSkipsFailures(t *testing.T) {
	ctx := context.Background()
	mem := ledger.NewMemory()
	if err := mem.RegisterUser(ctx, 2, "existing"); err != nil {
		t.Fatal(err)
	}

	total, err := quietBootstrap(mem).CreateUsers(ctx, 4, 100)
	if err != nil {
		t.Fatalf("registration failures must not abort: %v", err)
	}
	if total != 4 {
		t.Fatalf("expected 4 users, got %d", total)
	}
	if bal, _ := mem.Balance(2); bal != 100 {
		t.Fatalf("expected already registered user 2 to be funded with 100, got %v", bal)
	}
}

func TestCreateUsersUnknownTotal(t *testing.T) {
	stub := &stubLedger{totalErr: ledger.ErrUnavailable}

	total, err := quietBootstrap(stub).CreateUsers(context.Background(), 3, 100)
	if err != nil {
		t.Fatalf("a failed count must not abort: %v", err)
	}
	if total != UnknownUsers {
		t.Fatalf("expected UnknownUsers, got %d", total)
	}
}

func TestCreateUsersInvalidCount(t *testing.T) {
	_, err := quietBootstrap(ledger.NewMemory()).CreateUsers(context.Background(), -1, 100)
	if !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestOpenChannels(t *testing.T) {
	ctx := context.Background()
	mem := ledger.NewMemory()
	reg := metrics.NewRegistry()
	boot := Bootstrap{Ledger: mem, Logger: logger.Discard(), Registry: reg}

	if _, err := boot.CreateUsers(ctx, 4, 1000); err != nil {
		t.Fatal(err)
	}

	edges := []models.Edge{{U: 1, V: 0}, {U: 2, V: 0}, {U: 2, V: 1}, {U: 3, V: 2}, {U: 3, V: 2}}
	capacities := []float64{1, 2, 3, 4, 5}

	report, err := boot.OpenChannels(ctx, edges, capacities, 20)
	if err != nil {
		t.Fatalf("OpenChannels: %v", err)
	}
	if report.Opened != 4 || report.Failed != 1 {
		t.Fatalf("expected 4 opened and 1 failed (duplicate), got %+v", report)
	}

	cb, err := mem.ChannelBalances(ctx, 2, 1)
	if err != nil {
		t.Fatalf("ChannelBalances: %v", err)
	}
	if cb.Balances[0] != 3 || cb.Balances[1] != 20 {
		t.Fatalf("expected (3, 20) on channel 2-1, got %v", cb.Balances)
	}
	cb, _ = mem.ChannelBalances(ctx, 3, 2)
	if cb.Balances[0] != 4 {
		t.Fatalf("expected first opening of 3-2 to win with capacity 4, got %v", cb.Balances)
	}
}

func TestOpenChannelsLengthMismatch(t *testing.T) {
	_, err := OpenChannels(context.Background(), ledger.NewMemory(), []models.Edge{{U: 1, V: 0}}, nil, 20)
	if !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestOpenChannelsUnknownUsers(t *testing.T) {
	report, err := quietBootstrap(ledger.NewMemory()).OpenChannels(context.Background(),
		[]models.Edge{{U: 1, V: 0}, {U: 2, V: 1}}, []float64{1, 1}, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Opened != 0 || report.Failed != 2 {
		t.Fatalf("expected every opening to fail, got %+v", report)
	}
}
