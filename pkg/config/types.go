package config

import "time"

// Ledger backends
const (
	LedgerBackendMemory = "memory"
	LedgerBackendGRPC   = "grpc"
)

// Config represents a complete simulation run configuration
type Config struct {
	LogLevel   string           `yaml:"log_level"`
	LogFormat  string           `yaml:"log_format,omitempty"` // json or text
	Seed       int64            `yaml:"seed"`
	Network    NetworkConfig    `yaml:"network"`
	Simulation SimulationConfig `yaml:"simulation"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Output     OutputConfig     `yaml:"output"`
}

// NetworkConfig describes the generated channel network
type NetworkConfig struct {
	Users                int     `yaml:"users"`
	Attachment           int     `yaml:"attachment"` // edges per new node (m)
	InitialBalance       float64 `yaml:"initial_balance"`
	CapacityMean         float64 `yaml:"capacity_mean"`
	CounterpartyCapacity float64 `yaml:"counterparty_capacity"`
}

// SimulationConfig describes the transfer trials
type SimulationConfig struct {
	Trials             int     `yaml:"trials"`
	CheckpointInterval int     `yaml:"checkpoint_interval"`
	TransferAmount     float64 `yaml:"transfer_amount"`
}

// LedgerConfig selects the ledger the run talks to. Retry and CircuitBreaker
// only apply to the grpc backend.
type LedgerConfig struct {
	Backend        string                `yaml:"backend"`           // memory or grpc
	Address        string                `yaml:"address,omitempty"` // grpc target
	CallTimeout    string                `yaml:"call_timeout"`      // e.g., "5s"
	Retry          *RetryPolicy          `yaml:"retry,omitempty"`
	CircuitBreaker *CircuitBreakerPolicy `yaml:"circuit_breaker,omitempty"`
}

// RetryPolicy represents retry configuration for unavailable ledger calls
type RetryPolicy struct {
	Enabled    bool   `yaml:"enabled"`
	MaxRetries int    `yaml:"max_retries"`
	Backoff    string `yaml:"backoff"` // exponential, linear, constant
	BaseMs     int    `yaml:"base_ms"`
}

// CircuitBreakerPolicy represents circuit breaker configuration per ledger operation
type CircuitBreakerPolicy struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold int    `yaml:"failure_threshold"`
	SuccessThreshold int    `yaml:"success_threshold"`
	OpenTimeout      string `yaml:"open_timeout"` // e.g., "2s"
}

// GetOpenTimeout parses the open timeout string to time.Duration
func (c *CircuitBreakerPolicy) GetOpenTimeout() (time.Duration, error) {
	return time.ParseDuration(c.OpenTimeout)
}

// OutputConfig controls where report artifacts are written
type OutputConfig struct {
	Dir   string `yaml:"dir"`
	Clean bool   `yaml:"clean"`
}

// GetCallTimeout parses the call timeout string to time.Duration
func (l *LedgerConfig) GetCallTimeout() (time.Duration, error) {
	return time.ParseDuration(l.CallTimeout)
}

// Default returns the configuration of the reference experiment:
// 100 users, m=2, 1001 trials with a checkpoint every 100.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Network: NetworkConfig{
			Users:                100,
			Attachment:           2,
			InitialBalance:       50000,
			CapacityMean:         10,
			CounterpartyCapacity: 20,
		},
		Simulation: SimulationConfig{
			Trials:             1001,
			CheckpointInterval: 100,
			TransferAmount:     1,
		},
		Ledger: LedgerConfig{
			Backend:     LedgerBackendMemory,
			CallTimeout: "5s",
			Retry: &RetryPolicy{
				Enabled:    true,
				MaxRetries: 2,
				Backoff:    "exponential",
				BaseMs:     50,
			},
		},
		Output: OutputConfig{
			Dir:   "./results",
			Clean: true,
		},
	}
}
