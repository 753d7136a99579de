package simd

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/paynet-sim/internal/metrics"
	"github.com/GoSim-25-26J-441/paynet-sim/pkg/logger"
	"github.com/GoSim-25-26J-441/paynet-sim/pkg/models"
)

type HTTPServer struct {
	mux      *http.ServeMux
	store    *RunStore
	Executor *RunExecutor
	registry *metrics.Registry
}

// NewHTTPServer wires the run API. When registry is non-nil it is served on
// /metrics and every request is recorded in it.
func NewHTTPServer(store *RunStore, executor *RunExecutor, registry *metrics.Registry) *HTTPServer {
	s := &HTTPServer{
		mux:      http.NewServeMux(),
		store:    store,
		Executor: executor,
		registry: registry,
	}

	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/v1/runs", s.handleRuns)
	s.mux.HandleFunc("/v1/runs/", s.handleRunByID)
	if registry != nil {
		s.mux.Handle("/metrics", registry.Handler())
	}

	return s
}

func (s *HTTPServer) Handler() http.Handler {
	if s.registry == nil {
		return s.mux
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		s.mux.ServeHTTP(rw, r)
		s.registry.RecordHTTPRequest(r.Method, routeLabel(r.URL.Path), strconv.Itoa(rw.status), time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// routeLabel collapses run ids so the path label stays bounded
func routeLabel(path string) string {
	rest, ok := strings.CutPrefix(path, "/v1/runs/")
	if !ok || rest == "" {
		return path
	}
	switch {
	case strings.HasSuffix(rest, ":stop"):
		return "/v1/runs/{id}:stop"
	case strings.HasSuffix(rest, "/series"):
		return "/v1/runs/{id}/series"
	case strings.HasSuffix(rest, "/metrics"):
		return "/v1/runs/{id}/metrics"
	}
	return "/v1/runs/{id}"
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleRuns handles /v1/runs endpoint
func (s *HTTPServer) handleRuns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateRun(w, r)
	case http.MethodGet:
		s.handleListRuns(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleRunByID handles /v1/runs/{id} and related endpoints
func (s *HTTPServer) handleRunByID(w http.ResponseWriter, r *http.Request) {
	// /v1/runs/{id}, /v1/runs/{id}:stop, /v1/runs/{id}/series or /v1/runs/{id}/metrics
	path := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	if path == "" {
		s.writeError(w, http.StatusBadRequest, "run ID is required")
		return
	}

	if runID, ok := strings.CutSuffix(path, ":stop"); ok {
		if r.Method == http.MethodPost {
			s.handleStopRun(w, r, runID)
		} else {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	if runID, ok := strings.CutSuffix(path, "/series"); ok {
		if r.Method == http.MethodGet {
			s.handleGetSeries(w, r, runID)
		} else {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	if runID, ok := strings.CutSuffix(path, "/metrics"); ok {
		if r.Method == http.MethodGet {
			s.handleGetRunMetrics(w, r, runID)
		} else {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	if r.Method == http.MethodGet {
		s.handleGetRun(w, r, path)
	} else {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleCreateRun handles POST /v1/runs. The run starts immediately.
func (s *HTTPServer) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RunID          string `json:"run_id,omitempty"`
		ConfigYAML     string `json:"config_yaml"`
		CallbackURL    string `json:"callback_url,omitempty"`
		CallbackSecret string `json:"callback_secret,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	rec, err := s.store.Create(req.RunID, req.ConfigYAML, Callback{URL: req.CallbackURL, Secret: req.CallbackSecret})
	if err != nil {
		switch {
		case errors.Is(err, ErrRunExists):
			s.writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, ErrInvalidRunID), errors.Is(err, ErrInvalidConfig):
			s.writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	started, err := s.Executor.Start(rec.Run.ID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Info("run created (HTTP)", "run_id", started.Run.ID)
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"run": started.Run,
	})
}

// handleListRuns handles GET /v1/runs with pagination and filtering
func (s *HTTPServer) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = min(parsed, 1000)
		}
	}

	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	var statusFilter models.RunStatus
	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		statusFilter = models.RunStatus(strings.ToLower(statusStr))
	}

	recs := s.store.List(limit, offset, statusFilter)
	runs := make([]*models.Run, 0, len(recs))
	for _, rec := range recs {
		runs = append(runs, rec.Run)
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"runs": runs,
		"pagination": map[string]any{
			"limit":  limit,
			"offset": offset,
			"count":  len(runs),
		},
	})
}

// handleGetRun handles GET /v1/runs/{id}
func (s *HTTPServer) handleGetRun(w http.ResponseWriter, _ *http.Request, runID string) {
	rec, ok := s.store.Get(runID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"run":         rec.Run,
		"config_yaml": rec.ConfigYAML,
	})
}

// handleGetSeries handles GET /v1/runs/{id}/series
func (s *HTTPServer) handleGetSeries(w http.ResponseWriter, _ *http.Request, runID string) {
	rec, ok := s.store.Get(runID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}

	resp := map[string]any{
		"run_id":      rec.Run.ID,
		"status":      rec.Run.Status,
		"interval":    rec.Series.Interval,
		"checkpoints": rec.Series.Checkpoints(),
		"ratios":      rec.Series.Ratios,
	}
	if last, ok := rec.Series.Last(); ok {
		resp["last"] = last
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleGetRunMetrics handles GET /v1/runs/{id}/metrics.
// With ?name= it returns one series; any other query parameter selects labels.
func (s *HTTPServer) handleGetRunMetrics(w http.ResponseWriter, r *http.Request, runID string) {
	rec, ok := s.store.Get(runID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if rec.Collector == nil {
		s.writeError(w, http.StatusPreconditionFailed, "metrics not available")
		return
	}

	query := r.URL.Query()
	name := query.Get("name")
	if name == "" {
		summary := rec.Collector.GetSummary()
		s.writeJSON(w, http.StatusOK, map[string]any{
			"run_id":       rec.Run.ID,
			"metric_names": rec.Collector.GetMetricNames(),
			"transfers":    metrics.SummarizeTransfers(rec.Collector),
			"aggregations": summary.Aggregations,
		})
		return
	}

	if !slices.Contains(rec.Collector.GetMetricNames(), name) {
		s.writeError(w, http.StatusNotFound, "metric not found")
		return
	}

	var labels map[string]string
	for key, values := range query {
		if key == "name" || len(values) == 0 {
			continue
		}
		if labels == nil {
			labels = make(map[string]string)
		}
		labels[key] = values[0]
	}

	points := rec.Collector.GetTimeSeries(name, labels)
	if points == nil {
		points = []*models.MetricPoint{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"run_id":      rec.Run.ID,
		"name":        name,
		"labels":      rec.Collector.GetLabelsForMetric(name),
		"points":      points,
		"aggregation": rec.Collector.GetOrComputeAggregation(name, labels),
	})
}

// handleStopRun handles POST /v1/runs/{id}:stop
func (s *HTTPServer) handleStopRun(w http.ResponseWriter, _ *http.Request, runID string) {
	updated, err := s.Executor.Stop(runID)
	if err != nil {
		switch {
		case errors.Is(err, ErrRunNotFound):
			s.writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, ErrRunIDMissing):
			s.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrRunTerminal):
			s.writeError(w, http.StatusConflict, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	logger.Info("run cancelled (HTTP)", "run_id", runID)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"run": updated.Run,
	})
}

// Helper functions

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": message,
	})
}
