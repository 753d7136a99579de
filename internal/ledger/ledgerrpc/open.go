package ledgerrpc

import (
	"fmt"

	"github.com/GoSim-25-26J-441/paynet-sim/internal/ledger"
	"github.com/GoSim-25-26J-441/paynet-sim/internal/policy"
	"github.com/GoSim-25-26J-441/paynet-sim/pkg/config"
)

// Open returns the ledger selected by cfg: a fresh in-memory ledger, or a
// client for a remote ledger service guarded by the configured retry and
// circuit breaker policies. The returned func releases it.
func Open(cfg config.LedgerConfig) (ledger.Ledger, func() error, error) {
	switch cfg.Backend {
	case config.LedgerBackendMemory, "":
		return ledger.NewMemory(), func() error { return nil }, nil
	case config.LedgerBackendGRPC:
		timeout, err := cfg.GetCallTimeout()
		if err != nil {
			return nil, nil, fmt.Errorf("invalid call_timeout %q: %w", cfg.CallTimeout, err)
		}
		pm, err := policy.NewPolicyManager(&cfg)
		if err != nil {
			return nil, nil, err
		}
		client, err := Dial(cfg.Address, timeout)
		if err != nil {
			return nil, nil, err
		}
		return policy.Guard(client, pm, nil), client.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown ledger backend %q", cfg.Backend)
}
