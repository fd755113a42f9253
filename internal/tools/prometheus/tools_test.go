package prometheus

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/obsbridge/mcp-prometheus/internal/server"
)

// TestLogger implements server.Logger for testing
type TestLogger struct{}

func (l *TestLogger) Debug(msg string, args ...interface{}) {}
func (l *TestLogger) Info(msg string, args ...interface{})  {}
func (l *TestLogger) Warn(msg string, args ...interface{})  {}
func (l *TestLogger) Error(msg string, args ...interface{}) {}

// newMockPrometheus serves the handful of API endpoints the tools touch.
func newMockPrometheus(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	writeJSON := func(w http.ResponseWriter, body string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	}

	mux.HandleFunc("/api/v1/status/buildinfo", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"status":"success","data":{"version":"2.50.0"}}`)
	})
	mux.HandleFunc("/api/v1/query", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("query") == "42" {
			writeJSON(w, `{"status":"success","data":{"resultType":"scalar","result":[1234567890.5,"42"]}}`)
			return
		}
		writeJSON(w, `{"status":"success","data":{"resultType":"vector","result":[
			{"metric":{"__name__":"up","job":"prometheus","instance":"localhost:9090"},"value":[1234567890.5,"1"]},
			{"metric":{"__name__":"up","job":"node","instance":"host-1:9100"},"value":[1234567890.5,"0"]},
			{"metric":{"__name__":"up","job":"node","instance":"host-2:9100"},"value":[1234567890.5,"1"]}
		]}}`)
	})
	mux.HandleFunc("/api/v1/query_range", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"status":"success","data":{"resultType":"matrix","result":[
			{"metric":{"__name__":"up","job":"prometheus"},"values":[[1234567800,"1"],[1234567860,"1"]]}
		]}}`)
	})
	mux.HandleFunc("/api/v1/label/__name__/values", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"status":"success","data":["storage_writes","compute_cpu","storage_reads"]}`)
	})
	mux.HandleFunc("/api/v1/metadata", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("metric") == "http_requests_total" {
			writeJSON(w, `{"status":"success","data":{"http_requests_total":[{"type":"counter","help":"Total HTTP requests","unit":""}]}}`)
			return
		}
		writeJSON(w, `{"status":"success","data":{}}`)
	})
	mux.HandleFunc("/api/v1/targets", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"status":"success","data":{
			"activeTargets":[
				{"discoveredLabels":{"__address__":"host-1:9100"},"labels":{"job":"node","instance":"host-1:9100"},"scrapePool":"node","scrapeUrl":"http://host-1:9100/metrics","globalUrl":"http://host-1:9100/metrics","lastError":"","lastScrape":"2024-05-01T12:00:00Z","lastScrapeDuration":0.01,"health":"up"},
				{"discoveredLabels":{"__address__":"host-2:9100"},"labels":{"job":"node","instance":"host-2:9100"},"scrapePool":"node","scrapeUrl":"http://host-2:9100/metrics","globalUrl":"http://host-2:9100/metrics","lastError":"connection refused","lastScrape":"2024-05-01T12:00:00Z","lastScrapeDuration":0.01,"health":"down"}
			],
			"droppedTargets":[
				{"discoveredLabels":{"__address__":"host-3:9100","job":"node","instance":"host-3:9100"}}
			]
		}}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestRegistry(t *testing.T, url string, opts ...server.ServerOption) *Registry {
	t.Helper()
	opts = append([]server.ServerOption{
		server.WithPrometheusConfig(server.PrometheusConfig{URL: url}),
		server.WithLogger(&TestLogger{}),
	}, opts...)
	sc, err := server.NewServerContext(context.Background(), opts...)
	if err != nil {
		t.Fatalf("Failed to create server context: %v", err)
	}
	t.Cleanup(func() { _ = sc.Shutdown() })

	r, err := NewRegistry(sc)
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}
	return r
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("result has no content")
	}
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	default:
		t.Fatalf("unexpected content type %T", res.Content[0])
		return ""
	}
}

func decodeToolError(t *testing.T, res *mcp.CallToolResult) ToolError {
	t.Helper()
	if !res.IsError {
		t.Fatalf("expected error payload, got success: %s", resultText(t, res))
	}
	var te ToolError
	if err := json.Unmarshal([]byte(resultText(t, res)), &te); err != nil {
		t.Fatalf("error payload is not valid JSON: %v", err)
	}
	return te
}

func TestRegisterPrometheusTools(t *testing.T) {
	s := mcpserver.NewMCPServer("test", "1.0.0")

	sc, err := server.NewServerContext(context.Background(),
		server.WithPrometheusConfig(server.PrometheusConfig{URL: "http://localhost:9090"}),
		server.WithLogger(&TestLogger{}),
	)
	if err != nil {
		t.Fatalf("Failed to create server context: %v", err)
	}
	defer sc.Shutdown()

	if err := RegisterPrometheusTools(s, sc); err != nil {
		t.Fatalf("Failed to register tools: %v", err)
	}
}

func TestNewRegistryAllowList(t *testing.T) {
	r := newTestRegistry(t, "http://localhost:9090",
		server.WithEnabledTools([]string{"list_metrics", "execute_query"}))

	names := r.ToolNames()
	if len(names) != 2 || names[0] != "list_metrics" || names[1] != "execute_query" {
		t.Errorf("enabled tools = %v, want [list_metrics execute_query]", names)
	}

	sc, err := server.NewServerContext(context.Background(),
		server.WithPrometheusConfig(server.PrometheusConfig{URL: "http://localhost:9090"}),
		server.WithEnabledTools([]string{"no_such_tool"}),
	)
	if err != nil {
		t.Fatalf("Failed to create server context: %v", err)
	}
	defer sc.Shutdown()
	if _, err := NewRegistry(sc); err == nil {
		t.Error("expected error for unknown tool name in allow-list")
	}
}

func TestClient(t *testing.T) {
	mockServer := newMockPrometheus(t)

	client, err := NewClient(server.PrometheusConfig{URL: mockServer.URL}, &TestLogger{})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	ctx := context.Background()

	t.Run("Query", func(t *testing.T) {
		res, err := client.Query(ctx, "up", "")
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if res.ResultType != "vector" {
			t.Errorf("resultType = %q, want vector", res.ResultType)
		}
	})

	t.Run("RangeQuery", func(t *testing.T) {
		res, err := client.RangeQuery(ctx, "up", "2023-01-01T00:00:00Z", "2023-01-01T01:00:00Z", "1m")
		if err != nil {
			t.Fatalf("RangeQuery failed: %v", err)
		}
		if res.ResultType != "matrix" {
			t.Errorf("resultType = %q, want matrix", res.ResultType)
		}
	})

	t.Run("RangeQueryValidation", func(t *testing.T) {
		_, err := client.RangeQuery(ctx, "up", "2023-01-01T01:00:00Z", "2023-01-01T00:00:00Z", "1m")
		var te *ToolError
		if !errors.As(err, &te) || te.Code != ErrValidation || te.Parameter != "start" {
			t.Errorf("start after end: got %v, want ValidationError on start", err)
		}

		_, err = client.RangeQuery(ctx, "up", "2023-01-01T00:00:00Z", "2023-01-01T01:00:00Z", "not-a-duration")
		if !errors.As(err, &te) || te.Code != ErrValidation || te.Parameter != "step" {
			t.Errorf("bad step: got %v, want ValidationError on step", err)
		}
	})

	t.Run("ListMetricNamesSorted", func(t *testing.T) {
		names, err := client.ListMetricNames(ctx)
		if err != nil {
			t.Fatalf("ListMetricNames failed: %v", err)
		}
		want := []string{"compute_cpu", "storage_reads", "storage_writes"}
		if len(names) != len(want) {
			t.Fatalf("names = %v, want %v", names, want)
		}
		for i := range want {
			if names[i] != want[i] {
				t.Errorf("names[%d] = %q, want %q (sorted)", i, names[i], want[i])
			}
		}
	})

	t.Run("MetricMetadata", func(t *testing.T) {
		records, err := client.MetricMetadata(ctx, "http_requests_total")
		if err != nil {
			t.Fatalf("MetricMetadata failed: %v", err)
		}
		if len(records) != 1 || records[0].Type != "counter" {
			t.Errorf("records = %+v, want one counter record", records)
		}
	})

	t.Run("MetricMetadataUnknown", func(t *testing.T) {
		records, err := client.MetricMetadata(ctx, "nonexistent_metric")
		if err != nil {
			t.Fatalf("unknown metric must not error, got: %v", err)
		}
		if records == nil || len(records) != 0 {
			t.Errorf("records = %v, want empty slice", records)
		}
	})

	t.Run("ScrapeTargets", func(t *testing.T) {
		targets, err := client.ScrapeTargets(ctx)
		if err != nil {
			t.Fatalf("ScrapeTargets failed: %v", err)
		}
		if len(targets) != 3 {
			t.Fatalf("targets = %d, want 3 (2 active + 1 dropped)", len(targets))
		}
		var dropped int
		for _, target := range targets {
			if target.Health == HealthDropped {
				dropped++
			}
		}
		if dropped != 1 {
			t.Errorf("dropped targets = %d, want 1", dropped)
		}
		for i := 1; i < len(targets); i++ {
			prev, cur := targets[i-1], targets[i]
			if prev.Job > cur.Job || (prev.Job == cur.Job && prev.Instance > cur.Instance) {
				t.Errorf("targets not sorted at %d: %s/%s > %s/%s", i, prev.Job, prev.Instance, cur.Job, cur.Instance)
			}
		}
	})
}

func TestClientErrorClassification(t *testing.T) {
	t.Run("QueryError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"status":"error","errorType":"bad_data","error":"parse error: unexpected end of input"}`))
		}))
		defer srv.Close()

		client, err := NewClient(server.PrometheusConfig{URL: srv.URL}, &TestLogger{})
		if err != nil {
			t.Fatalf("Failed to create client: %v", err)
		}
		_, err = client.Query(context.Background(), "up{", "")
		var te *ToolError
		if !errors.As(err, &te) || te.Code != ErrQuery {
			t.Errorf("backend rejection: got %v, want QueryError", err)
		}
	})

	t.Run("ConnectionError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := srv.URL
		srv.Close()

		client, err := NewClient(server.PrometheusConfig{URL: url}, &TestLogger{})
		if err != nil {
			t.Fatalf("Failed to create client: %v", err)
		}
		_, err = client.Query(context.Background(), "up", "")
		var te *ToolError
		if !errors.As(err, &te) || te.Code != ErrConnection {
			t.Errorf("unreachable backend: got %v, want ConnectionError", err)
		}
	})
}

func TestDispatchExecuteQueryPaginationAndCompact(t *testing.T) {
	mockServer := newMockPrometheus(t)
	r := newTestRegistry(t, mockServer.URL)

	res := r.Dispatch(context.Background(), "execute_query", map[string]interface{}{
		"query":   "up",
		"limit":   float64(1),
		"offset":  float64(0),
		"compact": true,
	})
	if res.IsError {
		t.Fatalf("expected success, got error: %s", resultText(t, res))
	}

	var envelope struct {
		ResultType string `json:"resultType"`
		Result     struct {
			LabelSets []map[string]string `json:"labelSets"`
			Series    []struct {
				LabelSet int               `json:"labelSet"`
				Samples  []json.RawMessage `json:"samples"`
			} `json:"series"`
		} `json:"result"`
		Pagination PageMetadata `json:"pagination"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &envelope); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}

	if envelope.ResultType != "compact_vector" {
		t.Errorf("resultType = %q, want compact_vector", envelope.ResultType)
	}
	if len(envelope.Result.Series) != 1 {
		t.Errorf("series length = %d, want 1", len(envelope.Result.Series))
	}
	if envelope.Pagination.Total != 3 {
		t.Errorf("total = %d, want 3", envelope.Pagination.Total)
	}
	if envelope.Pagination.Returned != 1 {
		t.Errorf("returned = %d, want 1", envelope.Pagination.Returned)
	}
	if !envelope.Pagination.HasMore {
		t.Error("hasMore = false, want true")
	}
}

func TestDispatchValidatesArgumentsBeforeBackendCall(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/status/buildinfo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","data":{"version":"2.50.0"}}`))
	})
	backendHit := func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("backend called at %s despite invalid arguments", r.URL.Path)
	}
	mux.HandleFunc("/api/v1/query", backendHit)
	mux.HandleFunc("/api/v1/label/__name__/values", backendHit)
	mux.HandleFunc("/api/v1/targets", backendHit)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	r := newTestRegistry(t, srv.URL)

	tests := []struct {
		name      string
		tool      string
		args      map[string]interface{}
		wantParam string
	}{
		{
			name:      "negative limit on scalar query",
			tool:      "execute_query",
			args:      map[string]interface{}{"query": "42", "limit": float64(-5)},
			wantParam: "limit",
		},
		{
			name:      "zero limit",
			tool:      "execute_query",
			args:      map[string]interface{}{"query": "up", "limit": float64(0)},
			wantParam: "limit",
		},
		{
			name:      "negative offset",
			tool:      "execute_query",
			args:      map[string]interface{}{"query": "42", "offset": float64(-1)},
			wantParam: "offset",
		},
		{
			name:      "invalid regex",
			tool:      "list_metrics",
			args:      map[string]interface{}{"filter_pattern": "("},
			wantParam: "filter_pattern",
		},
		{
			name:      "negative limit on targets",
			tool:      "get_targets",
			args:      map[string]interface{}{"limit": float64(-1)},
			wantParam: "limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Dispatch(context.Background(), tt.tool, tt.args)
			te := decodeToolError(t, res)
			if te.Code != ErrValidation {
				t.Errorf("error_code = %s, want %s", te.Code, ErrValidation)
			}
			if te.Parameter != tt.wantParam {
				t.Errorf("offending_parameter = %q, want %q", te.Parameter, tt.wantParam)
			}
		})
	}
}

func TestDispatchExecuteQueryScalar(t *testing.T) {
	mockServer := newMockPrometheus(t)
	r := newTestRegistry(t, mockServer.URL)

	res := r.Dispatch(context.Background(), "execute_query", map[string]interface{}{
		"query": "42",
		"limit": float64(5),
	})
	if res.IsError {
		t.Fatalf("expected success, got error: %s", resultText(t, res))
	}

	var envelope struct {
		ResultType string        `json:"resultType"`
		Pagination *PageMetadata `json:"pagination"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &envelope); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if envelope.ResultType != "scalar" {
		t.Errorf("resultType = %q, want scalar", envelope.ResultType)
	}
	if envelope.Pagination != nil {
		t.Errorf("pagination = %+v, want omitted for scalar results", envelope.Pagination)
	}
}

func TestDispatchListMetricsPrefix(t *testing.T) {
	mockServer := newMockPrometheus(t)
	r := newTestRegistry(t, mockServer.URL)

	res := r.Dispatch(context.Background(), "list_metrics", map[string]interface{}{
		"prefix": "storage_",
		"limit":  float64(20),
	})
	if res.IsError {
		t.Fatalf("expected success, got error: %s", resultText(t, res))
	}

	var envelope struct {
		Metrics    []string     `json:"metrics"`
		Pagination PageMetadata `json:"pagination"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &envelope); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}

	want := []string{"storage_reads", "storage_writes"}
	if len(envelope.Metrics) != len(want) {
		t.Fatalf("metrics = %v, want %v", envelope.Metrics, want)
	}
	for i := range want {
		if envelope.Metrics[i] != want[i] {
			t.Errorf("metrics[%d] = %q, want %q", i, envelope.Metrics[i], want[i])
		}
	}
	if envelope.Pagination.Total != 2 {
		t.Errorf("total = %d, want 2", envelope.Pagination.Total)
	}
	if envelope.Pagination.HasMore {
		t.Error("hasMore = true, want false")
	}
}

func TestDispatchInvalidRegex(t *testing.T) {
	mockServer := newMockPrometheus(t)
	r := newTestRegistry(t, mockServer.URL)

	res := r.Dispatch(context.Background(), "list_metrics", map[string]interface{}{
		"filter_pattern": "(",
	})
	te := decodeToolError(t, res)
	if te.Code != ErrValidation {
		t.Errorf("error_code = %s, want %s", te.Code, ErrValidation)
	}
	if te.Parameter != "filter_pattern" {
		t.Errorf("offending_parameter = %q, want filter_pattern", te.Parameter)
	}
}

func TestDispatchMissingRequiredParameter(t *testing.T) {
	mockServer := newMockPrometheus(t)
	r := newTestRegistry(t, mockServer.URL)

	res := r.Dispatch(context.Background(), "execute_query", map[string]interface{}{})
	te := decodeToolError(t, res)
	if te.Code != ErrValidation || te.Parameter != "query" {
		t.Errorf("got %+v, want ValidationError on query", te)
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	mockServer := newMockPrometheus(t)

	t.Run("nonexistent tool", func(t *testing.T) {
		r := newTestRegistry(t, mockServer.URL)
		res := r.Dispatch(context.Background(), "drop_database", nil)
		te := decodeToolError(t, res)
		if te.Code != ErrUnknownTool {
			t.Errorf("error_code = %s, want %s", te.Code, ErrUnknownTool)
		}
	})

	t.Run("disabled tool", func(t *testing.T) {
		r := newTestRegistry(t, mockServer.URL,
			server.WithEnabledTools([]string{"list_metrics"}))
		res := r.Dispatch(context.Background(), "execute_query", map[string]interface{}{"query": "up"})
		te := decodeToolError(t, res)
		if te.Code != ErrUnknownTool {
			t.Errorf("error_code = %s, want %s", te.Code, ErrUnknownTool)
		}
	})
}

func TestDispatchMetadataUnknownMetric(t *testing.T) {
	mockServer := newMockPrometheus(t)
	r := newTestRegistry(t, mockServer.URL)

	res := r.Dispatch(context.Background(), "get_metric_metadata", map[string]interface{}{
		"metric": "nonexistent_metric",
	})
	if res.IsError {
		t.Fatalf("unknown metric must not be an error, got: %s", resultText(t, res))
	}

	var envelope struct {
		Metric   string           `json:"metric"`
		Metadata []MetadataRecord `json:"metadata"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &envelope); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if envelope.Metadata == nil || len(envelope.Metadata) != 0 {
		t.Errorf("metadata = %v, want empty array", envelope.Metadata)
	}
}

func TestDispatchGetTargets(t *testing.T) {
	mockServer := newMockPrometheus(t)
	r := newTestRegistry(t, mockServer.URL)

	t.Run("active only excludes dropped", func(t *testing.T) {
		res := r.Dispatch(context.Background(), "get_targets", map[string]interface{}{
			"active_only": true,
		})
		if res.IsError {
			t.Fatalf("expected success, got error: %s", resultText(t, res))
		}
		var envelope struct {
			Targets    []Target     `json:"targets"`
			Pagination PageMetadata `json:"pagination"`
		}
		if err := json.Unmarshal([]byte(resultText(t, res)), &envelope); err != nil {
			t.Fatalf("payload is not valid JSON: %v", err)
		}
		if envelope.Pagination.Total != 2 {
			t.Errorf("total = %d, want 2 active targets", envelope.Pagination.Total)
		}
		for _, target := range envelope.Targets {
			if target.Health == HealthDropped {
				t.Errorf("dropped target leaked through active_only: %+v", target)
			}
		}
	})

	t.Run("pagination over job+instance order", func(t *testing.T) {
		res := r.Dispatch(context.Background(), "get_targets", map[string]interface{}{
			"limit":  float64(2),
			"offset": float64(1),
		})
		if res.IsError {
			t.Fatalf("expected success, got error: %s", resultText(t, res))
		}
		var envelope struct {
			Targets    []Target     `json:"targets"`
			Pagination PageMetadata `json:"pagination"`
		}
		if err := json.Unmarshal([]byte(resultText(t, res)), &envelope); err != nil {
			t.Fatalf("payload is not valid JSON: %v", err)
		}
		if envelope.Pagination.Total != 3 || envelope.Pagination.Returned != 2 {
			t.Errorf("pagination = %+v, want total 3 returned 2", envelope.Pagination)
		}
		if envelope.Pagination.HasMore {
			t.Error("hasMore = true, want false (offset 1 + returned 2 == total 3)")
		}
	})

	t.Run("compact drops discovery metadata", func(t *testing.T) {
		res := r.Dispatch(context.Background(), "get_targets", map[string]interface{}{
			"compact": true,
		})
		if res.IsError {
			t.Fatalf("expected success, got error: %s", resultText(t, res))
		}
		var envelope struct {
			Targets []map[string]interface{} `json:"targets"`
		}
		if err := json.Unmarshal([]byte(resultText(t, res)), &envelope); err != nil {
			t.Fatalf("payload is not valid JSON: %v", err)
		}
		if len(envelope.Targets) != 3 {
			t.Fatalf("targets = %d, want 3 (compaction never drops items)", len(envelope.Targets))
		}
		for _, target := range envelope.Targets {
			if _, present := target["discoveredLabels"]; present {
				t.Error("compact target still carries discoveredLabels")
			}
			if _, present := target["scrapeUrl"]; present {
				t.Error("compact target still carries scrapeUrl")
			}
		}
	})
}

func TestDispatchRangeQuery(t *testing.T) {
	mockServer := newMockPrometheus(t)
	r := newTestRegistry(t, mockServer.URL)

	res := r.Dispatch(context.Background(), "execute_range_query", map[string]interface{}{
		"query": "up",
		"start": "2023-01-01T00:00:00Z",
		"end":   "2023-01-01T01:00:00Z",
		"step":  "1m",
	})
	if res.IsError {
		t.Fatalf("expected success, got error: %s", resultText(t, res))
	}

	var envelope struct {
		ResultType string `json:"resultType"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &envelope); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if envelope.ResultType != "matrix" {
		t.Errorf("resultType = %q, want matrix", envelope.ResultType)
	}
}
