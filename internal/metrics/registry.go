package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the Prometheus metrics exported by the simulator.
type Registry struct {
	// Driver metrics
	TransfersTotal *prometheus.CounterVec
	SuccessRatio   prometheus.Gauge
	Checkpoints    prometheus.Counter

	// Ledger metrics
	LedgerCallsTotal   *prometheus.CounterVec
	LedgerCallDuration *prometheus.HistogramVec

	// Topology metrics
	TopologyNodes     prometheus.Gauge
	TopologyEdges     prometheus.Gauge
	TopologyMaxDegree prometheus.Gauge
	ChannelsTotal     *prometheus.CounterVec

	// Run metrics
	RunsTotal   *prometheus.CounterVec
	RunsActive  prometheus.Gauge
	RunDuration prometheus.Histogram

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the process-wide metrics registry.
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a registry with every metric initialized.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
	}

	r.initDriverMetrics()
	r.initLedgerMetrics()
	r.initTopologyMetrics()
	r.initRunMetrics()
	r.initHTTPMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry.
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// RecordTransfer counts one payment attempt.
func (r *Registry) RecordTransfer(success bool) {
	if r == nil {
		return
	}
	r.TransfersTotal.WithLabelValues(outcome(success)).Inc()
}

// RecordCheckpoint publishes the ratio computed at a checkpoint.
func (r *Registry) RecordCheckpoint(ratio float64) {
	if r == nil {
		return
	}
	r.Checkpoints.Inc()
	r.SuccessRatio.Set(ratio)
}

// RecordLedgerCall counts one ledger operation and observes its latency.
func (r *Registry) RecordLedgerCall(operation, status string, duration time.Duration) {
	if r == nil {
		return
	}
	r.LedgerCallsTotal.WithLabelValues(operation, status).Inc()
	r.LedgerCallDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordTopology publishes the shape of a generated graph.
func (r *Registry) RecordTopology(nodes, edges, maxDegree int) {
	if r == nil {
		return
	}
	r.TopologyNodes.Set(float64(nodes))
	r.TopologyEdges.Set(float64(edges))
	r.TopologyMaxDegree.Set(float64(maxDegree))
}

// RecordChannels counts channel openings by outcome.
func (r *Registry) RecordChannels(opened, failed int) {
	if r == nil {
		return
	}
	r.ChannelsTotal.WithLabelValues(StatusSuccess).Add(float64(opened))
	r.ChannelsTotal.WithLabelValues(StatusFailure).Add(float64(failed))
}

// RunStarted marks a run as active.
func (r *Registry) RunStarted() {
	if r == nil {
		return
	}
	r.RunsActive.Inc()
}

// RunFinished records the terminal status and wall time of a run.
func (r *Registry) RunFinished(status string, duration time.Duration) {
	if r == nil {
		return
	}
	r.RunsActive.Dec()
	r.RunsTotal.WithLabelValues(status).Inc()
	r.RunDuration.Observe(duration.Seconds())
}

// RecordHTTPRequest records an HTTP request served by the daemon.
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if r == nil {
		return
	}
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Outcome label values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

func outcome(success bool) string {
	if success {
		return StatusSuccess
	}
	return StatusFailure
}
