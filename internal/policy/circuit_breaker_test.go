package policy

import (
	"testing"
	"time"

	"github.com/GoSim-25-26J-441/paynet-sim/internal/ledger"
	"github.com/GoSim-25-26J-441/paynet-sim/pkg/config"
)

const op = ledger.OpTransfer

func openCircuit(p CircuitBreakerPolicy, now time.Time) {
	p.RecordFailure(op, now)
	p.RecordFailure(op, now)
	p.RecordFailure(op, now)
}

func TestNewCircuitBreakerPolicy(t *testing.T) {
	policy := NewCircuitBreakerPolicy(true, 3, 2, 5*time.Second)
	if !policy.Enabled() {
		t.Fatalf("expected policy to be enabled")
	}
	if policy.Name() != "circuit_breaker" {
		t.Fatalf("expected name to be 'circuit_breaker', got %s", policy.Name())
	}

	if _, err := NewCircuitBreakerPolicyFromConfig(&config.CircuitBreakerPolicy{Enabled: true, OpenTimeout: "never"}); err == nil {
		t.Fatalf("expected error for invalid open timeout")
	}
}

func TestCircuitBreakerPolicyClosedState(t *testing.T) {
	policy := NewCircuitBreakerPolicy(true, 3, 2, 5*time.Second)
	now := time.Now()

	if !policy.AllowRequest(op, now) {
		t.Fatalf("expected request to be allowed in closed state")
	}
	if got := policy.CheckAndGetState(op, now); got != CircuitStateClosed {
		t.Fatalf("expected state to be closed, got %s", got)
	}
}

func TestCircuitBreakerPolicyOpenState(t *testing.T) {
	policy := NewCircuitBreakerPolicy(true, 3, 2, 5*time.Second)
	now := time.Now()

	openCircuit(policy, now)

	if got := policy.CheckAndGetState(op, now); got != CircuitStateOpen {
		t.Fatalf("expected state to be open after 3 failures, got %s", got)
	}
	if policy.AllowRequest(op, now.Add(time.Second)) {
		t.Fatalf("expected request to be rejected in open state")
	}
}

func TestCircuitBreakerPolicyRecovery(t *testing.T) {
	policy := NewCircuitBreakerPolicy(true, 3, 2, 100*time.Millisecond)
	now := time.Now()
	openCircuit(policy, now)

	later := now.Add(150 * time.Millisecond)
	if got := policy.CheckAndGetState(op, later); got != CircuitStateHalfOpen {
		t.Fatalf("expected state to be half-open after timeout, got %s", got)
	}
	if !policy.AllowRequest(op, later) {
		t.Fatalf("expected request to be allowed in half-open state")
	}

	policy.RecordSuccess(op, later)
	if got := policy.CheckAndGetState(op, later); got != CircuitStateHalfOpen {
		t.Fatalf("expected half-open after one success, got %s", got)
	}
	policy.RecordSuccess(op, later)
	if got := policy.CheckAndGetState(op, later); got != CircuitStateClosed {
		t.Fatalf("expected state to be closed after 2 successes, got %s", got)
	}
}

func TestCircuitBreakerPolicyFailureInHalfOpen(t *testing.T) {
	policy := NewCircuitBreakerPolicy(true, 3, 2, 100*time.Millisecond)
	now := time.Now()
	openCircuit(policy, now)

	later := now.Add(150 * time.Millisecond)
	if got := policy.CheckAndGetState(op, later); got != CircuitStateHalfOpen {
		t.Fatalf("expected state to be half-open after timeout, got %s", got)
	}

	policy.RecordFailure(op, later)
	if got := policy.CheckAndGetState(op, later); got != CircuitStateOpen {
		t.Fatalf("expected state to be open after failure in half-open state, got %s", got)
	}
}

func TestCircuitBreakerPolicySuccessResetsFailureCount(t *testing.T) {
	policy := NewCircuitBreakerPolicy(true, 3, 2, 5*time.Second)
	now := time.Now()

	policy.RecordFailure(op, now)
	policy.RecordFailure(op, now)
	policy.RecordSuccess(op, now)
	policy.RecordFailure(op, now)

	if got := policy.CheckAndGetState(op, now); got != CircuitStateClosed {
		t.Fatalf("expected state to remain closed after success reset failure count, got %s", got)
	}
}

func TestCircuitBreakerPolicyOperationsAreIndependent(t *testing.T) {
	policy := NewCircuitBreakerPolicy(true, 2, 1, 5*time.Second)
	now := time.Now()

	policy.RecordFailure(ledger.OpTransfer, now)
	policy.RecordFailure(ledger.OpTransfer, now)

	if got := policy.CheckAndGetState(ledger.OpTransfer, now); got != CircuitStateOpen {
		t.Fatalf("expected transfer circuit open, got %s", got)
	}
	if got := policy.CheckAndGetState(ledger.OpFindPath, now); got != CircuitStateClosed {
		t.Fatalf("expected find_path circuit closed, got %s", got)
	}
}

func TestCircuitBreakerPolicyWhenDisabled(t *testing.T) {
	policy := NewCircuitBreakerPolicy(false, 3, 2, 5*time.Second)
	now := time.Now()

	openCircuit(policy, now)
	if !policy.AllowRequest(op, now) {
		t.Fatalf("expected request to be allowed when disabled")
	}
	if got := policy.CheckAndGetState(op, now); got != CircuitStateClosed {
		t.Fatalf("expected state to be closed when disabled, got %s", got)
	}
}
