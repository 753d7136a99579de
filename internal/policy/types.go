// Package policy holds the resilience policies applied to calls against a
// remote ledger: retries with backoff and a per-operation circuit breaker.
package policy

import (
	"time"

	"github.com/GoSim-25-26J-441/paynet-sim/pkg/config"
)

// Policy represents a generic policy interface
type Policy interface {
	// Enabled returns whether the policy is enabled
	Enabled() bool
	// Name returns the policy name for identification
	Name() string
}

// RetryPolicy handles retry logic for failed ledger calls
type RetryPolicy interface {
	Policy
	// ShouldRetry determines if a call should be retried after attempt retries
	ShouldRetry(attempt int, err error) bool
	// GetBackoffDuration calculates the backoff duration for a retry attempt
	GetBackoffDuration(attempt int) time.Duration
	// GetMaxRetries returns the maximum number of retries allowed
	GetMaxRetries() int
}

// CircuitBreakerPolicy tracks ledger availability per operation
type CircuitBreakerPolicy interface {
	Policy
	// AllowRequest checks if a call should be allowed (circuit not open)
	AllowRequest(op string, now time.Time) bool
	// RecordSuccess records a call the ledger answered
	RecordSuccess(op string, now time.Time)
	// RecordFailure records a call that never reached the ledger
	RecordFailure(op string, now time.Time)
	// CheckAndGetState returns the current state, moving open to half-open once the timeout passed
	CheckAndGetState(op string, now time.Time) CircuitState
}

// CircuitState represents the state of a circuit breaker
type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"   // Normal operation
	CircuitStateOpen     CircuitState = "open"     // Failing, rejecting calls
	CircuitStateHalfOpen CircuitState = "halfopen" // Testing if the ledger recovered
)

// Manager manages all active policies
type Manager struct {
	retry          RetryPolicy
	circuitBreaker CircuitBreakerPolicy
}

// NewPolicyManager creates a policy manager from the ledger configuration.
// Disabled or absent policies are left nil.
func NewPolicyManager(cfg *config.LedgerConfig) (*Manager, error) {
	pm := &Manager{}
	if cfg == nil {
		return pm, nil
	}

	if cfg.Retry != nil && cfg.Retry.Enabled {
		pm.retry = NewRetryPolicyFromConfig(cfg.Retry)
	}
	if cfg.CircuitBreaker != nil && cfg.CircuitBreaker.Enabled {
		cb, err := NewCircuitBreakerPolicyFromConfig(cfg.CircuitBreaker)
		if err != nil {
			return nil, err
		}
		pm.circuitBreaker = cb
	}

	return pm, nil
}

// GetRetry returns the retry policy if enabled
func (pm *Manager) GetRetry() RetryPolicy {
	return pm.retry
}

// GetCircuitBreaker returns the circuit breaker policy if enabled
func (pm *Manager) GetCircuitBreaker() CircuitBreakerPolicy {
	return pm.circuitBreaker
}

// Empty reports whether no policy is active
func (pm *Manager) Empty() bool {
	return pm.retry == nil && pm.circuitBreaker == nil
}
