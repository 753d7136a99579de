package policy

import (
	"errors"
	"math"
	"time"

	"github.com/GoSim-25-26J-441/paynet-sim/internal/ledger"
	"github.com/GoSim-25-26J-441/paynet-sim/pkg/config"
)

// retryPolicy implements RetryPolicy
type retryPolicy struct {
	enabled    bool
	maxRetries int
	backoff    string // exponential, linear, constant
	baseMs     int
}

// NewRetryPolicyFromConfig creates a retry policy from config
func NewRetryPolicyFromConfig(cfg *config.RetryPolicy) RetryPolicy {
	return &retryPolicy{
		enabled:    cfg.Enabled,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.Backoff,
		baseMs:     cfg.BaseMs,
	}
}

// NewRetryPolicy creates a retry policy with explicit parameters
func NewRetryPolicy(enabled bool, maxRetries int, backoff string, baseMs int) RetryPolicy {
	return &retryPolicy{
		enabled:    enabled,
		maxRetries: maxRetries,
		backoff:    backoff,
		baseMs:     baseMs,
	}
}

func (p *retryPolicy) Enabled() bool {
	return p.enabled
}

func (p *retryPolicy) Name() string {
	return "retry"
}

// ShouldRetry only retries calls that failed because the ledger was
// unreachable. Ledger answers such as ErrNoPath are final.
func (p *retryPolicy) ShouldRetry(attempt int, err error) bool {
	if !p.enabled || err == nil {
		return false
	}
	if attempt >= p.maxRetries {
		return false
	}
	return errors.Is(err, ledger.ErrUnavailable)
}

func (p *retryPolicy) GetBackoffDuration(attempt int) time.Duration {
	if !p.enabled || attempt <= 0 {
		return 0
	}

	var durationMs int

	switch p.backoff {
	case "linear":
		// baseMs * attempt
		durationMs = p.baseMs * attempt
	case "constant":
		durationMs = p.baseMs
	default:
		// exponential: baseMs * 2^(attempt-1)
		durationMs = p.baseMs * int(math.Pow(2, float64(attempt-1)))
	}

	return time.Duration(durationMs) * time.Millisecond
}

func (p *retryPolicy) GetMaxRetries() int {
	return p.maxRetries
}
