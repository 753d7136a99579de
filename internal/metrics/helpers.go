package metrics

import (
	"strconv"
	"time"
)

// Run-local metric names.
const (
	MetricTransferOutcome  = "transfer_outcome"
	MetricSuccessRatio     = "success_ratio"
	MetricChannelCapacity  = "channel_capacity"
	MetricNodeDegree       = "node_degree"
	MetricLedgerCallMillis = "ledger_call_ms"
)

// RecordTransfer records a payment attempt as 1 (delivered) or 0 (failed).
func RecordTransfer(collector *Collector, success bool, timestamp time.Time) {
	value := 0.0
	if success {
		value = 1
	}
	collector.Record(MetricTransferOutcome, value, timestamp, nil)
}

// RecordCheckpoint records the cumulative success ratio observed after checkpoint trials.
func RecordCheckpoint(collector *Collector, checkpoint int, ratio float64, timestamp time.Time) {
	collector.Record(MetricSuccessRatio, ratio, timestamp, CheckpointLabels(checkpoint))
	collector.Record(MetricSuccessRatio, ratio, timestamp, nil)
}

// RecordCapacities records the sampled capacity of every edge.
func RecordCapacities(collector *Collector, capacities []float64, timestamp time.Time) {
	for _, c := range capacities {
		collector.Record(MetricChannelCapacity, c, timestamp, nil)
	}
}

// RecordDegrees records the degree of every node.
func RecordDegrees(collector *Collector, degrees []int, timestamp time.Time) {
	for _, d := range degrees {
		collector.Record(MetricNodeDegree, float64(d), timestamp, nil)
	}
}

// RecordLedgerCall records the latency of one ledger operation.
func RecordLedgerCall(collector *Collector, operation string, duration time.Duration, timestamp time.Time) {
	collector.Record(MetricLedgerCallMillis, float64(duration)/float64(time.Millisecond), timestamp, OperationLabels(operation))
}

// CheckpointLabels creates a labels map for a checkpoint.
func CheckpointLabels(checkpoint int) map[string]string {
	return map[string]string{
		"checkpoint": strconv.Itoa(checkpoint),
	}
}

// OperationLabels creates a labels map for a ledger operation.
func OperationLabels(operation string) map[string]string {
	return map[string]string{
		"operation": operation,
	}
}

// TransferStats summarizes the transfer outcomes held by a collector.
type TransferStats struct {
	Attempts  int64   `json:"attempts"`
	Successes int64   `json:"successes"`
	Failures  int64   `json:"failures"`
	Ratio     float64 `json:"ratio"`
}

// SummarizeTransfers folds the recorded transfer outcomes into totals.
func SummarizeTransfers(collector *Collector) TransferStats {
	agg := collector.GetAggregation(MetricTransferOutcome, nil)
	if agg == nil {
		return TransferStats{}
	}
	successes := int64(agg.Sum)
	return TransferStats{
		Attempts:  agg.Count,
		Successes: successes,
		Failures:  agg.Count - successes,
		Ratio:     agg.Mean,
	}
}
