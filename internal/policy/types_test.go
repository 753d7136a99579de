package policy

import (
	"testing"

	"github.com/GoSim-25-26J-441/paynet-sim/pkg/config"
)

func TestNewPolicyManager(t *testing.T) {
	pm, err := NewPolicyManager(nil)
	if err != nil {
		t.Fatalf("NewPolicyManager(nil): %v", err)
	}
	if !pm.Empty() {
		t.Fatalf("expected no policies for nil config")
	}

	cfg := config.Default().Ledger
	pm, err = NewPolicyManager(&cfg)
	if err != nil {
		t.Fatalf("NewPolicyManager: %v", err)
	}
	if pm.GetRetry() == nil || pm.GetRetry().GetMaxRetries() != 2 {
		t.Fatalf("expected default retry policy, got %v", pm.GetRetry())
	}
	if pm.GetCircuitBreaker() != nil {
		t.Fatalf("expected no circuit breaker by default")
	}

	cfg.Retry.Enabled = false
	cfg.CircuitBreaker = &config.CircuitBreakerPolicy{
		Enabled:          true,
		FailureThreshold: 3,
		SuccessThreshold: 1,
		OpenTimeout:      "2s",
	}
	pm, err = NewPolicyManager(&cfg)
	if err != nil {
		t.Fatalf("NewPolicyManager: %v", err)
	}
	if pm.GetRetry() != nil {
		t.Fatalf("expected disabled retry policy to be dropped")
	}
	if pm.GetCircuitBreaker() == nil || !pm.GetCircuitBreaker().Enabled() {
		t.Fatalf("expected circuit breaker")
	}

	cfg.CircuitBreaker.OpenTimeout = "whenever"
	if _, err := NewPolicyManager(&cfg); err == nil {
		t.Fatalf("expected error for invalid open timeout")
	}
}
