package simd

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/GoSim-25-26J-441/paynet-sim/internal/metrics"
	"github.com/GoSim-25-26J-441/paynet-sim/pkg/models"
	dto "github.com/prometheus/client_model/go"
)

func newTestHTTPServer(t *testing.T, reg *metrics.Registry) (*HTTPServer, *RunStore) {
	t.Helper()
	store, exec := newTestExecutor(t)
	exec.SetRegistry(reg)
	return NewHTTPServer(store, exec, reg), store
}

func do(t *testing.T, srv *HTTPServer, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = strings.NewReader(string(data))
	}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(rr, req)

	var resp map[string]any
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid json: %v (%s)", err, rr.Body.String())
		}
	}
	return rr, resp
}

func TestHTTPServerHealthz(t *testing.T) {
	srv, _ := newTestHTTPServer(t, nil)
	rr, body := do(t, srv, http.MethodGet, "/healthz", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if body["status"] != "ok" {
		t.Fatalf("expected status ok, got %v", body["status"])
	}
	if body["timestamp"] == "" {
		t.Fatalf("expected timestamp to be set")
	}
}

func TestHTTPServerCreateRunLifecycle(t *testing.T) {
	srv, _ := newTestHTTPServer(t, nil)

	rr, resp := do(t, srv, http.MethodPost, "/v1/runs", map[string]any{
		"run_id":      "run-1",
		"config_yaml": smallConfigYAML,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	run, ok := resp["run"].(map[string]any)
	if !ok {
		t.Fatalf("expected run in response")
	}
	if run["id"] != "run-1" {
		t.Fatalf("expected id run-1, got %v", run["id"])
	}
	if run["status"] != string(models.RunStatusRunning) {
		t.Fatalf("expected running, got %v", run["status"])
	}

	srv.Executor.Wait()

	rr, resp = do(t, srv, http.MethodGet, "/v1/runs/run-1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	run = resp["run"].(map[string]any)
	if run["status"] != string(models.RunStatusCompleted) {
		t.Fatalf("expected completed, got %v", run["status"])
	}
	if resp["config_yaml"] != smallConfigYAML {
		t.Fatalf("expected config_yaml echoed back")
	}

	rr, resp = do(t, srv, http.MethodGet, "/v1/runs/run-1/series", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if resp["interval"] != float64(10) {
		t.Fatalf("expected interval 10, got %v", resp["interval"])
	}
	checkpoints := resp["checkpoints"].([]any)
	ratios := resp["ratios"].([]any)
	if len(checkpoints) != 10 || len(ratios) != 10 {
		t.Fatalf("expected 10 checkpoints, got %d/%d", len(checkpoints), len(ratios))
	}
	if checkpoints[0] != float64(10) || checkpoints[9] != float64(100) {
		t.Fatalf("unexpected checkpoints %v", checkpoints)
	}
	if resp["last"] != ratios[9] {
		t.Fatalf("expected last %v, got %v", ratios[9], resp["last"])
	}

	rr, resp = do(t, srv, http.MethodGet, "/v1/runs/run-1/metrics", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	transfers := resp["transfers"].(map[string]any)
	if transfers["attempts"] != float64(101) {
		t.Fatalf("expected 101 attempts, got %v", transfers["attempts"])
	}
	names := resp["metric_names"].([]any)
	found := false
	for _, n := range names {
		if n == metrics.MetricSuccessRatio {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected %s among metric names %v", metrics.MetricSuccessRatio, names)
	}

	rr, resp = do(t, srv, http.MethodGet, "/v1/runs/run-1/metrics?name=success_ratio&checkpoint=100", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	points := resp["points"].([]any)
	if len(points) != 1 {
		t.Fatalf("expected 1 point for checkpoint 100, got %d", len(points))
	}
	if got := points[0].(map[string]any)["value"]; got != ratios[9] {
		t.Fatalf("expected checkpoint 100 ratio %v, got %v", ratios[9], got)
	}
	agg := resp["aggregation"].(map[string]any)
	if agg["count"] != float64(1) {
		t.Fatalf("expected aggregation over 1 point, got %v", agg["count"])
	}

	rr, _ = do(t, srv, http.MethodGet, "/v1/runs/run-1/metrics?name=missing", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown metric, got %d", rr.Code)
	}

	rr, _ = do(t, srv, http.MethodPost, "/v1/runs/run-1:stop", nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 stopping a finished run, got %d", rr.Code)
	}
}

func TestHTTPServerCreateRunErrors(t *testing.T) {
	srv, _ := newTestHTTPServer(t, nil)

	rr, _ := do(t, srv, http.MethodPost, "/v1/runs", map[string]any{"run_id": "dup", "config_yaml": longConfigYAML})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rr.Code)
	}

	tests := []struct {
		name string
		body any
		want int
	}{
		{"duplicate", map[string]any{"run_id": "dup", "config_yaml": smallConfigYAML}, http.StatusConflict},
		{"invalid id", map[string]any{"run_id": "a:b", "config_yaml": smallConfigYAML}, http.StatusBadRequest},
		{"invalid config", map[string]any{"config_yaml": "simulation:\n  checkpoint_interval: 0\n"}, http.StatusBadRequest},
		{"not json", "plain", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, resp := do(t, srv, http.MethodPost, "/v1/runs", tt.body)
			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rr.Code, rr.Body.String())
			}
			if resp["error"] == nil {
				t.Fatalf("expected error message")
			}
		})
	}
}

func TestHTTPServerStopRun(t *testing.T) {
	srv, store := newTestHTTPServer(t, nil)

	if rr, _ := do(t, srv, http.MethodPost, "/v1/runs", map[string]any{"run_id": "run-1", "config_yaml": longConfigYAML}); rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rr.Code)
	}

	rr, resp := do(t, srv, http.MethodPost, "/v1/runs/run-1:stop", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if resp["run"].(map[string]any)["status"] != string(models.RunStatusCancelled) {
		t.Fatalf("expected cancelled, got %v", resp["run"])
	}
	srv.Executor.Wait()

	rec, _ := store.Get("run-1")
	if rec.Run.Status != models.RunStatusCancelled {
		t.Fatalf("expected cancelled, got %s", rec.Run.Status)
	}

	rr, _ = do(t, srv, http.MethodPost, "/v1/runs/missing:stop", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	rr, _ = do(t, srv, http.MethodPost, "/v1/runs/:stop", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	rr, _ = do(t, srv, http.MethodGet, "/v1/runs/run-1:stop", nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestHTTPServerListRuns(t *testing.T) {
	srv, store := newTestHTTPServer(t, nil)
	for _, id := range []string{"a", "b", "c"} {
		if _, err := store.Create(id, smallConfigYAML, Callback{}); err != nil {
			t.Fatalf("Create error: %v", err)
		}
	}
	if _, err := store.SetStatus("b", models.RunStatusFailed, "boom"); err != nil {
		t.Fatalf("SetStatus error: %v", err)
	}

	rr, resp := do(t, srv, http.MethodGet, "/v1/runs?limit=2", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if runs := resp["runs"].([]any); len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	pagination := resp["pagination"].(map[string]any)
	if pagination["limit"] != float64(2) || pagination["count"] != float64(2) {
		t.Fatalf("unexpected pagination %v", pagination)
	}

	_, resp = do(t, srv, http.MethodGet, "/v1/runs?status=FAILED", nil)
	runs := resp["runs"].([]any)
	if len(runs) != 1 || runs[0].(map[string]any)["id"] != "b" {
		t.Fatalf("expected only run b, got %v", runs)
	}

	_, resp = do(t, srv, http.MethodGet, "/v1/runs?offset=10", nil)
	if runs := resp["runs"].([]any); len(runs) != 0 {
		t.Fatalf("expected empty page, got %d", len(runs))
	}
}

func TestHTTPServerNotFoundAndMethods(t *testing.T) {
	srv, store := newTestHTTPServer(t, nil)
	if _, err := store.Create("pending", smallConfigYAML, Callback{}); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/v1/runs/missing", http.StatusNotFound},
		{http.MethodGet, "/v1/runs/missing/series", http.StatusNotFound},
		{http.MethodGet, "/v1/runs/missing/metrics", http.StatusNotFound},
		{http.MethodGet, "/v1/runs/pending/metrics", http.StatusPreconditionFailed},
		{http.MethodGet, "/v1/runs/", http.StatusBadRequest},
		{http.MethodDelete, "/v1/runs", http.StatusMethodNotAllowed},
		{http.MethodDelete, "/v1/runs/pending", http.StatusMethodNotAllowed},
		{http.MethodPost, "/v1/runs/pending/series", http.StatusMethodNotAllowed},
		{http.MethodPost, "/v1/runs/pending/metrics", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rr, _ := do(t, srv, tt.method, tt.path, nil)
			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestHTTPServerMetricsEndpoint(t *testing.T) {
	reg := metrics.NewRegistry()
	srv, _ := newTestHTTPServer(t, reg)

	do(t, srv, http.MethodGet, "/healthz", nil)
	do(t, srv, http.MethodGet, "/v1/runs/abc", nil)
	do(t, srv, http.MethodGet, "/v1/runs/def", nil)

	var m dto.Metric
	if err := reg.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/v1/runs/{id}", "404").Write(&m); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if got := m.GetCounter().GetValue(); got != 2 {
		t.Fatalf("expected 2 requests on the templated route, got %v", got)
	}

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "paysim_http_requests_total") {
		t.Fatalf("expected http metrics in exposition")
	}
}

func TestRouteLabel(t *testing.T) {
	tests := map[string]string{
		"/healthz":           "/healthz",
		"/v1/runs":           "/v1/runs",
		"/v1/runs/":          "/v1/runs/",
		"/v1/runs/x":         "/v1/runs/{id}",
		"/v1/runs/x:stop":    "/v1/runs/{id}:stop",
		"/v1/runs/x/series":  "/v1/runs/{id}/series",
		"/v1/runs/x/metrics": "/v1/runs/{id}/metrics",
	}
	for path, want := range tests {
		if got := routeLabel(path); got != want {
			t.Errorf("routeLabel(%q) = %q, want %q", path, got, want)
		}
	}
}
