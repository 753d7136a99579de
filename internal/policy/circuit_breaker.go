package policy

import (
	"fmt"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/paynet-sim/pkg/config"
)

// circuitBreakerPolicy implements CircuitBreakerPolicy
type circuitBreakerPolicy struct {
	enabled bool
	// failureThreshold is the number of consecutive failures before opening the circuit
	failureThreshold int
	// successThreshold is the number of successes needed in half-open state to close
	successThreshold int
	// timeout is how long the circuit stays open before transitioning to half-open
	timeout time.Duration
	// circuits tracks circuit state per ledger operation
	circuits map[string]*circuitState
	mu       sync.RWMutex
}

// circuitState tracks the state of a circuit breaker for one operation
type circuitState struct {
	state           CircuitState
	failureCount    int
	successCount    int
	lastFailureTime time.Time
	lastStateChange time.Time
	mu              sync.Mutex
}

// NewCircuitBreakerPolicy creates a new circuit breaker policy
func NewCircuitBreakerPolicy(enabled bool, failureThreshold, successThreshold int, timeout time.Duration) CircuitBreakerPolicy {
	return &circuitBreakerPolicy{
		enabled:          enabled,
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		timeout:          timeout,
		circuits:         make(map[string]*circuitState),
	}
}

// NewCircuitBreakerPolicyFromConfig creates a circuit breaker policy from config
func NewCircuitBreakerPolicyFromConfig(cfg *config.CircuitBreakerPolicy) (CircuitBreakerPolicy, error) {
	timeout, err := cfg.GetOpenTimeout()
	if err != nil {
		return nil, fmt.Errorf("invalid circuit_breaker open_timeout %q: %w", cfg.OpenTimeout, err)
	}
	return NewCircuitBreakerPolicy(cfg.Enabled, cfg.FailureThreshold, cfg.SuccessThreshold, timeout), nil
}

func (p *circuitBreakerPolicy) Enabled() bool {
	return p.enabled
}

func (p *circuitBreakerPolicy) Name() string {
	return "circuit_breaker"
}

func (p *circuitBreakerPolicy) circuit(op string, now time.Time, create bool) *circuitState {
	p.mu.RLock()
	circuit, exists := p.circuits[op]
	p.mu.RUnlock()
	if exists || !create {
		return circuit
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if circuit, exists = p.circuits[op]; !exists {
		circuit = &circuitState{
			state:           CircuitStateClosed,
			lastStateChange: now,
		}
		p.circuits[op] = circuit
	}
	return circuit
}

// caller must hold circuit.mu
func (p *circuitBreakerPolicy) advance(circuit *circuitState, now time.Time) {
	if circuit.state == CircuitStateOpen && now.Sub(circuit.lastStateChange) >= p.timeout {
		circuit.state = CircuitStateHalfOpen
		circuit.successCount = 0
		circuit.lastStateChange = now
	}
}

func (p *circuitBreakerPolicy) AllowRequest(op string, now time.Time) bool {
	if !p.enabled {
		return true
	}

	circuit := p.circuit(op, now, true)
	circuit.mu.Lock()
	defer circuit.mu.Unlock()

	p.advance(circuit, now)
	return circuit.state != CircuitStateOpen
}

func (p *circuitBreakerPolicy) RecordSuccess(op string, now time.Time) {
	if !p.enabled {
		return
	}

	circuit := p.circuit(op, now, false)
	if circuit == nil {
		return
	}

	circuit.mu.Lock()
	defer circuit.mu.Unlock()

	switch circuit.state {
	case CircuitStateHalfOpen:
		circuit.successCount++
		if circuit.successCount >= p.successThreshold {
			circuit.state = CircuitStateClosed
			circuit.failureCount = 0
			circuit.lastStateChange = now
		}
	case CircuitStateClosed:
		circuit.failureCount = 0
	}
}

func (p *circuitBreakerPolicy) RecordFailure(op string, now time.Time) {
	if !p.enabled {
		return
	}

	circuit := p.circuit(op, now, true)
	circuit.mu.Lock()
	defer circuit.mu.Unlock()

	circuit.failureCount++
	circuit.lastFailureTime = now

	switch circuit.state {
	case CircuitStateHalfOpen:
		// any failure while probing reopens the circuit
		circuit.state = CircuitStateOpen
		circuit.successCount = 0
		circuit.lastStateChange = now
	case CircuitStateClosed:
		if circuit.failureCount >= p.failureThreshold {
			circuit.state = CircuitStateOpen
			circuit.lastStateChange = now
		}
	}
}

func (p *circuitBreakerPolicy) CheckAndGetState(op string, now time.Time) CircuitState {
	if !p.enabled {
		return CircuitStateClosed
	}

	circuit := p.circuit(op, now, false)
	if circuit == nil {
		return CircuitStateClosed
	}

	circuit.mu.Lock()
	defer circuit.mu.Unlock()

	p.advance(circuit, now)
	return circuit.state
}
