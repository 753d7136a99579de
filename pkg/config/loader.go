package config

import (
	"fmt"
	"math"
	"os"
)

// LoadConfig loads and parses a configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := ParseConfigYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate performs validation on the configuration
func Validate(cfg *Config) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}
	if cfg.LogFormat != "" && cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return fmt.Errorf("invalid log_format: %s (must be json or text)", cfg.LogFormat)
	}

	if err := validateNetwork(&cfg.Network); err != nil {
		return fmt.Errorf("network validation failed: %w", err)
	}
	if err := validateSimulation(&cfg.Simulation); err != nil {
		return fmt.Errorf("simulation validation failed: %w", err)
	}
	if err := validateLedger(&cfg.Ledger); err != nil {
		return fmt.Errorf("ledger validation failed: %w", err)
	}
	if cfg.Output.Dir == "" {
		return fmt.Errorf("output dir cannot be empty")
	}

	return nil
}

// validateNetwork validates the topology and funding parameters
func validateNetwork(n *NetworkConfig) error {
	if n.Attachment < 1 {
		return fmt.Errorf("attachment must be at least 1, got %d", n.Attachment)
	}
	if n.Users < 2 {
		return fmt.Errorf("users must be at least 2, got %d", n.Users)
	}
	if n.Users < n.Attachment {
		return fmt.Errorf("users (%d) must not be less than attachment (%d)", n.Users, n.Attachment)
	}
	if n.InitialBalance < 0 || math.IsNaN(n.InitialBalance) {
		return fmt.Errorf("initial_balance cannot be negative, got %f", n.InitialBalance)
	}
	if !(n.CapacityMean > 0) {
		return fmt.Errorf("capacity_mean must be positive, got %f", n.CapacityMean)
	}
	if n.CounterpartyCapacity < 0 || math.IsNaN(n.CounterpartyCapacity) {
		return fmt.Errorf("counterparty_capacity cannot be negative, got %f", n.CounterpartyCapacity)
	}
	return nil
}

// validateSimulation validates the trial parameters
func validateSimulation(s *SimulationConfig) error {
	if s.Trials < 0 {
		return fmt.Errorf("trials cannot be negative, got %d", s.Trials)
	}
	if s.CheckpointInterval < 1 {
		return fmt.Errorf("checkpoint_interval must be at least 1, got %d", s.CheckpointInterval)
	}
	if !(s.TransferAmount > 0) {
		return fmt.Errorf("transfer_amount must be positive, got %f", s.TransferAmount)
	}
	return nil
}

// validateLedger validates the ledger selection
func validateLedger(l *LedgerConfig) error {
	switch l.Backend {
	case LedgerBackendMemory:
	case LedgerBackendGRPC:
		if l.Address == "" {
			return fmt.Errorf("address is required for the grpc backend")
		}
	default:
		return fmt.Errorf("invalid backend: %s (must be memory or grpc)", l.Backend)
	}

	timeout, err := l.GetCallTimeout()
	if err != nil {
		return fmt.Errorf("invalid call_timeout %s: %w", l.CallTimeout, err)
	}
	if timeout <= 0 {
		return fmt.Errorf("call_timeout must be positive, got %s", l.CallTimeout)
	}

	if l.Retry != nil {
		if l.Retry.MaxRetries < 0 {
			return fmt.Errorf("retry max_retries cannot be negative, got %d", l.Retry.MaxRetries)
		}
		validBackoffs := map[string]bool{
			"exponential": true,
			"linear":      true,
			"constant":    true,
		}
		if !validBackoffs[l.Retry.Backoff] {
			return fmt.Errorf("invalid backoff type: %s (must be exponential, linear, or constant)", l.Retry.Backoff)
		}
		if l.Retry.BaseMs < 0 {
			return fmt.Errorf("retry base_ms cannot be negative, got %d", l.Retry.BaseMs)
		}
	}

	if cb := l.CircuitBreaker; cb != nil && cb.Enabled {
		if cb.FailureThreshold < 1 {
			return fmt.Errorf("circuit_breaker failure_threshold must be at least 1, got %d", cb.FailureThreshold)
		}
		if cb.SuccessThreshold < 1 {
			return fmt.Errorf("circuit_breaker success_threshold must be at least 1, got %d", cb.SuccessThreshold)
		}
		openTimeout, err := cb.GetOpenTimeout()
		if err != nil {
			return fmt.Errorf("invalid circuit_breaker open_timeout %s: %w", cb.OpenTimeout, err)
		}
		if openTimeout <= 0 {
			return fmt.Errorf("circuit_breaker open_timeout must be positive, got %s", cb.OpenTimeout)
		}
	}
	return nil
}
