package metrics

import (
	"math"
	"testing"
	"time"
)

func TestNewCollector(t *testing.T) {
	c := NewCollector()
	if c == nil {
		t.Fatalf("expected non-nil collector")
	}
	if names := c.GetMetricNames(); len(names) != 0 {
		t.Fatalf("expected no metrics, got %v", names)
	}
}

func TestCollectorRecordAndGetTimeSeries(t *testing.T) {
	c := NewCollector()
	c.Start()

	now := time.Now()
	c.Record("test_metric", 10.0, now, nil)
	c.Record("test_metric", 20.0, now.Add(time.Second), nil)
	c.Record("test_metric", 30.0, now.Add(2*time.Second), nil)

	points := c.GetTimeSeries("test_metric", nil)
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}
	for i, want := range []float64{10, 20, 30} {
		if points[i].Value != want {
			t.Fatalf("point %d: expected %f, got %f", i, want, points[i].Value)
		}
	}

	// returned points are copies
	points[0].Value = 99
	if again := c.GetTimeSeries("test_metric", nil); again[0].Value != 10 {
		t.Fatalf("expected stored point to be unaffected, got %f", again[0].Value)
	}
}

func TestCollectorRecordWithLabels(t *testing.T) {
	c := NewCollector()

	labels := OperationLabels("transfer")
	c.Record(MetricLedgerCallMillis, 1.5, time.Now(), labels)

	points := c.GetTimeSeries(MetricLedgerCallMillis, labels)
	if len(points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(points))
	}
	if points[0].Labels["operation"] != "transfer" {
		t.Fatalf("expected operation label transfer, got %s", points[0].Labels["operation"])
	}
	if got := c.GetTimeSeries(MetricLedgerCallMillis, nil); got != nil {
		t.Fatalf("expected unlabelled series to be empty, got %d points", len(got))
	}
}

func TestCollectorLabelOrderIndependent(t *testing.T) {
	c := NewCollector()
	now := time.Now()

	c.Record("m", 1, now, map[string]string{"a": "1", "b": "2"})
	c.Record("m", 2, now, map[string]string{"b": "2", "a": "1"})

	if got := c.Values("m", map[string]string{"a": "1", "b": "2"}); len(got) != 2 {
		t.Fatalf("expected both points in one series, got %v", got)
	}
}

func TestCollectorGetAggregation(t *testing.T) {
	c := NewCollector()

	now := time.Now()
	for i, v := range []float64{10, 20, 30, 40, 50} {
		c.Record("test_metric", v, now.Add(time.Duration(i)*time.Second), nil)
	}

	agg := c.GetAggregation("test_metric", nil)
	if agg == nil {
		t.Fatalf("expected non-nil aggregation")
	}
	if agg.Count != 5 {
		t.Fatalf("expected count 5, got %d", agg.Count)
	}
	if agg.Sum != 150 || agg.Mean != 30 {
		t.Fatalf("expected sum 150 mean 30, got %f %f", agg.Sum, agg.Mean)
	}
	if agg.Min != 10 || agg.Max != 50 {
		t.Fatalf("expected min 10 max 50, got %f %f", agg.Min, agg.Max)
	}
	if agg.P50 != 30 {
		t.Fatalf("expected P50 30, got %f", agg.P50)
	}
	if math.Abs(agg.P95-48) > 1e-9 {
		t.Fatalf("expected P95 48, got %f", agg.P95)
	}
}

func TestCollectorGetOrComputeAggregationInvalidatedByRecord(t *testing.T) {
	c := NewCollector()
	now := time.Now()

	c.Record("m", 1, now, nil)
	first := c.GetOrComputeAggregation("m", nil)
	if first == nil || first.Count != 1 {
		t.Fatalf("expected cached aggregation over 1 point, got %+v", first)
	}
	if again := c.GetOrComputeAggregation("m", nil); again != first {
		t.Fatalf("expected cached aggregation to be reused")
	}

	c.Record("m", 3, now, nil)
	second := c.GetOrComputeAggregation("m", nil)
	if second.Count != 2 || second.Mean != 2 {
		t.Fatalf("expected fresh aggregation over 2 points, got %+v", second)
	}
}

func TestCollectorGetSummary(t *testing.T) {
	c := NewCollector()
	c.Start()

	now := time.Now()
	c.Record("a", 1, now, nil)
	c.Record("a", 2, now, map[string]string{"x": "y"})
	c.Record("b", 5, now, nil)
	time.Sleep(5 * time.Millisecond)
	c.Stop()

	summary := c.GetSummary()
	if summary.Duration <= 0 {
		t.Fatalf("expected positive duration, got %v", summary.Duration)
	}
	if len(summary.Metrics["a"]) != 2 {
		t.Fatalf("expected 2 values for a, got %v", summary.Metrics["a"])
	}
	if agg := summary.Aggregations["a"]; agg == nil || agg.Count != 1 {
		t.Fatalf("expected unlabelled aggregation for a over 1 point, got %+v", agg)
	}
	if agg := summary.Aggregations["b"]; agg == nil || agg.Mean != 5 {
		t.Fatalf("expected aggregation for b, got %+v", agg)
	}
}

func TestCollectorGetMetricNamesSorted(t *testing.T) {
	c := NewCollector()
	c.Record("zeta", 1, time.Now(), nil)
	c.Record("alpha", 1, time.Now(), nil)
	c.Record("mid", 1, time.Now(), nil)

	names := c.GetMetricNames()
	want := []string{"alpha", "mid", "zeta"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, names)
		}
	}
}

func TestCollectorGetLabelsForMetric(t *testing.T) {
	c := NewCollector()
	c.Record(MetricLedgerCallMillis, 1, time.Now(), OperationLabels("transfer"))
	c.Record(MetricLedgerCallMillis, 1, time.Now(), OperationLabels("create_channel"))
	c.Record(MetricLedgerCallMillis, 1, time.Now(), OperationLabels("transfer"))

	if got := c.GetLabelsForMetric(MetricLedgerCallMillis); len(got) != 2 {
		t.Fatalf("expected 2 label combinations, got %v", got)
	}
	if got := c.GetLabelsForMetric("missing"); len(got) != 0 {
		t.Fatalf("expected no labels for missing metric, got %v", got)
	}
}

func TestCollectorEmptyAggregation(t *testing.T) {
	c := NewCollector()
	if agg := c.GetAggregation("nonexistent", nil); agg != nil {
		t.Fatalf("expected nil aggregation for non-existent metric")
	}
	if agg := c.GetOrComputeAggregation("nonexistent", nil); agg != nil {
		t.Fatalf("expected nil aggregation for non-existent metric")
	}
}

func TestPercentileCalculation(t *testing.T) {
	tests := []struct {
		values []float64
		p      float64
		want   float64
	}{
		{nil, 0.5, 0},
		{[]float64{10}, 0.5, 10},
		{[]float64{10, 20}, 0.5, 15},
		{[]float64{10, 20, 30, 40, 50}, 0.5, 30},
		{[]float64{10, 20, 30, 40, 50}, 1.0, 50},
		{[]float64{10, 20, 30, 40, 50}, 0.0, 10},
	}
	for _, tt := range tests {
		if got := calculatePercentile(tt.values, tt.p); got != tt.want {
			t.Errorf("calculatePercentile(%v, %v) = %v, want %v", tt.values, tt.p, got, tt.want)
		}
	}
}

func TestHelperFunctions(t *testing.T) {
	c := NewCollector()
	now := time.Now()

	RecordTransfer(c, true, now)
	RecordTransfer(c, false, now)
	RecordTransfer(c, true, now)
	RecordTransfer(c, true, now)

	stats := SummarizeTransfers(c)
	if stats.Attempts != 4 || stats.Successes != 3 || stats.Failures != 1 {
		t.Fatalf("unexpected transfer stats %+v", stats)
	}
	if stats.Ratio != 0.75 {
		t.Fatalf("expected ratio 0.75, got %f", stats.Ratio)
	}

	RecordCheckpoint(c, 100, 0.5, now)
	if got := c.Values(MetricSuccessRatio, CheckpointLabels(100)); len(got) != 1 || got[0] != 0.5 {
		t.Fatalf("expected labelled checkpoint point, got %v", got)
	}
	if got := c.Values(MetricSuccessRatio, nil); len(got) != 1 {
		t.Fatalf("expected unlabelled ratio series, got %v", got)
	}

	RecordCapacities(c, []float64{1, 2, 3}, now)
	if agg := c.GetAggregation(MetricChannelCapacity, nil); agg == nil || agg.Mean != 2 {
		t.Fatalf("expected capacity mean 2, got %+v", agg)
	}

	RecordDegrees(c, []int{2, 2, 4}, now)
	if agg := c.GetAggregation(MetricNodeDegree, nil); agg == nil || agg.Max != 4 {
		t.Fatalf("expected max degree 4, got %+v", agg)
	}

	RecordLedgerCall(c, "transfer", 2*time.Millisecond, now)
	if got := c.Values(MetricLedgerCallMillis, OperationLabels("transfer")); len(got) != 1 || got[0] != 2 {
		t.Fatalf("expected 2ms ledger call, got %v", got)
	}
}

func TestSummarizeTransfersEmpty(t *testing.T) {
	if stats := SummarizeTransfers(NewCollector()); stats != (TransferStats{}) {
		t.Fatalf("expected zero stats, got %+v", stats)
	}
}
