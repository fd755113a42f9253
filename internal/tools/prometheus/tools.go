package prometheus

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/common/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/obsbridge/mcp-prometheus/internal/server"
)

const tracerName = "github.com/obsbridge/mcp-prometheus/internal/tools/prometheus"

// toolHandler runs one validated tool invocation and returns the structured
// success payload or a classified error.
type toolHandler func(ctx context.Context, client *Client, args arguments) (interface{}, error)

type toolDef struct {
	tool    mcp.Tool
	handler toolHandler
}

// Registry holds the static tool table, the enabled allow-list, and the
// process-wide connection state. The backend client is built lazily on
// first dispatch and shared by every invocation afterwards; handlers carry
// no other mutable state, so concurrent dispatch is safe.
type Registry struct {
	sc    *server.ServerContext
	tools map[string]toolDef
	order []string

	clientOnce sync.Once
	client     *Client
	clientErr  error
}

// NewRegistry builds the registry restricted to the context's enabled tool
// allow-list. Unknown names in the allow-list are a startup error.
func NewRegistry(sc *server.ServerContext) (*Registry, error) {
	r := &Registry{
		sc:    sc,
		tools: make(map[string]toolDef),
	}

	all := toolTable()
	enabled := sc.EnabledTools()
	if len(enabled) == 0 {
		for _, def := range all {
			r.tools[def.tool.Name] = def
			r.order = append(r.order, def.tool.Name)
		}
		return r, nil
	}

	byName := make(map[string]toolDef, len(all))
	for _, def := range all {
		byName[def.tool.Name] = def
	}
	for _, name := range enabled {
		def, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown tool %q in allow-list", name)
		}
		if _, dup := r.tools[name]; dup {
			continue
		}
		r.tools[name] = def
		r.order = append(r.order, name)
	}
	return r, nil
}

// toolTable declares every tool this server can expose: name, schema, and
// handler. Built once at process start; dispatch is a map lookup.
func toolTable() []toolDef {
	return []toolDef{
		{
			tool: mcp.NewTool("execute_query",
				mcp.WithDescription("Execute a PromQL instant query against Prometheus with optional pagination and compact encoding"),
				mcp.WithString("query",
					mcp.Required(),
					mcp.Description("PromQL query string"),
				),
				mcp.WithString("time",
					mcp.Description("Optional RFC3339 or Unix timestamp (default: current time)"),
				),
				mcp.WithNumber("limit",
					mcp.Description("Maximum number of result elements to return (vector/matrix results only)"),
				),
				mcp.WithNumber("offset",
					mcp.Description("Number of result elements to skip (vector/matrix results only)"),
				),
				mcp.WithBoolean("compact",
					mcp.Description("Return the compact encoding: shared label sets referenced by index, samples as plain [timestamp, value] arrays"),
				),
			),
			handler: handleExecuteQuery,
		},
		{
			tool: mcp.NewTool("execute_range_query",
				mcp.WithDescription("Execute a PromQL range query with start time, end time, and step interval"),
				mcp.WithString("query",
					mcp.Required(),
					mcp.Description("PromQL query string"),
				),
				mcp.WithString("start",
					mcp.Required(),
					mcp.Description("Start time as RFC3339 or Unix timestamp"),
				),
				mcp.WithString("end",
					mcp.Required(),
					mcp.Description("End time as RFC3339 or Unix timestamp"),
				),
				mcp.WithString("step",
					mcp.Required(),
					mcp.Description("Query resolution step width (e.g., '15s', '1m', '1h')"),
				),
			),
			handler: handleExecuteRangeQuery,
		},
		{
			tool: mcp.NewTool("list_metrics",
				mcp.WithDescription("List available metrics in Prometheus with optional filtering and pagination"),
				mcp.WithString("prefix",
					mcp.Description("Keep only metric names starting with this prefix (case-sensitive)"),
				),
				mcp.WithString("filter_pattern",
					mcp.Description("Keep only metric names matching this regex"),
				),
				mcp.WithNumber("limit",
					mcp.Description("Maximum number of metric names to return"),
				),
				mcp.WithNumber("offset",
					mcp.Description("Number of metric names to skip"),
				),
			),
			handler: handleListMetrics,
		},
		{
			tool: mcp.NewTool("get_metric_metadata",
				mcp.WithDescription("Get metadata for a specific metric; an unknown metric yields an empty list"),
				mcp.WithString("metric",
					mcp.Required(),
					mcp.Description("The name of the metric to retrieve metadata for"),
				),
			),
			handler: handleGetMetricMetadata,
		},
		{
			tool: mcp.NewTool("get_targets",
				mcp.WithDescription("Get information about scrape targets with optional filtering and pagination"),
				mcp.WithBoolean("active_only",
					mcp.Description("Keep only actively scraped targets (exclude dropped ones)"),
				),
				mcp.WithNumber("limit",
					mcp.Description("Maximum number of targets to return"),
				),
				mcp.WithNumber("offset",
					mcp.Description("Number of targets to skip"),
				),
				mcp.WithBoolean("compact",
					mcp.Description("Return the compact target shape: job, instance, health, scrape pool, last scrape, last error; discovered labels and URLs are dropped"),
				),
			),
			handler: handleGetTargets,
		},
	}
}

// RegisterPrometheusTools registers the enabled Prometheus tools with the
// MCP server, all routed through the registry's dispatcher.
func RegisterPrometheusTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	r, err := NewRegistry(sc)
	if err != nil {
		return err
	}
	r.Register(s)
	return nil
}

// Register adds every enabled tool to the MCP server.
func (r *Registry) Register(s *mcpserver.MCPServer) {
	for _, name := range r.order {
		def := r.tools[name]
		s.AddTool(def.tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := map[string]interface{}{}
			if argsMap, ok := request.Params.Arguments.(map[string]interface{}); ok {
				args = argsMap
			}
			return r.Dispatch(ctx, request.Params.Name, args), nil
		})
	}
}

// ToolNames returns the enabled tool names in registration order.
func (r *Registry) ToolNames() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Dispatch validates and routes one tool invocation. It always returns a
// well-formed result: a JSON success payload, or a JSON ToolError payload
// with IsError set. Internal errors never escape this boundary.
func (r *Registry) Dispatch(ctx context.Context, name string, rawArgs map[string]interface{}) *mcp.CallToolResult {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "tools/"+name,
		trace.WithAttributes(attribute.String("mcp.tool", name)))
	defer span.End()

	def, ok := r.tools[name]
	if !ok {
		r.sc.Logger().Warn("Dispatch of unknown or disabled tool", "tool", name)
		return r.errorResult(span, unknownToolError(name))
	}

	client, err := r.getClient()
	if err != nil {
		return r.errorResult(span, err)
	}

	result, err := def.handler(ctx, client, rawArgs)
	if err != nil {
		r.sc.Logger().Error("Tool invocation failed", "tool", name, "error", err)
		return r.errorResult(span, err)
	}

	payload, err := json.Marshal(result)
	if err != nil {
		r.sc.Logger().Error("Failed to encode tool result", "tool", name, "error", err)
		return r.errorResult(span, queryError("failed to encode result: %v", err))
	}

	span.SetStatus(codes.Ok, "")
	return mcp.NewToolResultText(string(payload))
}

// getClient returns the process-wide client, building and probing it on
// first use. The probe result is informational only; a backend outage
// surfaces per call, never as a fatal condition.
func (r *Registry) getClient() (*Client, error) {
	r.clientOnce.Do(func() {
		r.client, r.clientErr = NewClient(r.sc.PrometheusConfig(), r.sc.Logger())
		if r.clientErr != nil {
			return
		}
		if err := r.client.Ping(r.sc.Context()); err != nil {
			r.sc.Logger().Warn("Prometheus reachability check failed", "error", err)
		} else {
			r.sc.Logger().Debug("Prometheus reachability check succeeded")
		}
	})
	if r.clientErr != nil {
		return nil, connectionError("Prometheus client unavailable: %v", r.clientErr)
	}
	return r.client, nil
}

func (r *Registry) errorResult(span trace.Span, err error) *mcp.CallToolResult {
	te := asToolError(err)
	span.SetStatus(codes.Error, te.Message)
	span.SetAttributes(attribute.String("mcp.error_code", string(te.Code)))

	payload, merr := json.Marshal(te)
	if merr != nil {
		payload = []byte(fmt.Sprintf(`{"error_code":%q,"message":"failed to encode error payload"}`, te.Code))
	}

	result := mcp.NewToolResultText(string(payload))
	result.IsError = true
	return result
}

// arguments wraps the raw JSON argument map with typed accessors that
// report the offending parameter on mismatch.
type arguments map[string]interface{}

func (a arguments) requiredString(name string) (string, error) {
	v, present := a[name]
	if !present {
		return "", validationError(name, "%s parameter is required", name)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", validationError(name, "%s parameter must be a non-empty string", name)
	}
	return s, nil
}

func (a arguments) optionalString(name string) (string, error) {
	v, present := a[name]
	if !present || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", validationError(name, "%s parameter must be a string", name)
	}
	return s, nil
}

func (a arguments) optionalInt(name string) (*int, error) {
	v, present := a[name]
	if !present || v == nil {
		return nil, nil
	}
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return nil, validationError(name, "%s parameter must be an integer", name)
		}
		i := int(n)
		return &i, nil
	case int:
		i := n
		return &i, nil
	case json.Number:
		i64, err := n.Int64()
		if err != nil {
			return nil, validationError(name, "%s parameter must be an integer", name)
		}
		i := int(i64)
		return &i, nil
	default:
		return nil, validationError(name, "%s parameter must be an integer", name)
	}
}

func (a arguments) optionalBool(name string) (bool, error) {
	v, present := a[name]
	if !present || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, validationError(name, "%s parameter must be a boolean", name)
	}
	return b, nil
}

// pageRequest extracts and validates the pagination bounds. Bad bounds fail
// here, before any backend call, regardless of the result type.
func (a arguments) pageRequest() (PageRequest, error) {
	limit, err := a.optionalInt("limit")
	if err != nil {
		return PageRequest{}, err
	}
	if limit != nil && *limit <= 0 {
		return PageRequest{}, validationError("limit", "limit must be a positive integer, got %d", *limit)
	}
	offset, err := a.optionalInt("offset")
	if err != nil {
		return PageRequest{}, err
	}
	if offset != nil && *offset < 0 {
		return PageRequest{}, validationError("offset", "offset must be non-negative, got %d", *offset)
	}
	return PageRequest{Limit: limit, Offset: offset}, nil
}

// queryEnvelope is the success payload shape of the query tools.
type queryEnvelope struct {
	ResultType string        `json:"resultType"`
	Result     interface{}   `json:"result"`
	Pagination *PageMetadata `json:"pagination,omitempty"`
}

// handleExecuteQuery runs an instant query. Pagination applies positionally
// over vector/matrix elements when limit or offset is given; scalar and
// string results ignore pagination. Compaction is opt-in and only changes
// the encoding, never which elements are present.
func handleExecuteQuery(ctx context.Context, client *Client, args arguments) (interface{}, error) {
	query, err := args.requiredString("query")
	if err != nil {
		return nil, err
	}
	timeParam, err := args.optionalString("time")
	if err != nil {
		return nil, err
	}
	page, err := args.pageRequest()
	if err != nil {
		return nil, err
	}
	compact, err := args.optionalBool("compact")
	if err != nil {
		return nil, err
	}

	res, err := client.Query(ctx, query, timeParam)
	if err != nil {
		return nil, err
	}

	value := res.Value
	var pagination *PageMetadata

	if page.Limit != nil || page.Offset != nil {
		switch v := value.(type) {
		case model.Vector:
			pr, perr := paginateAndFilter(v, FilterSpec{}, page, func(*model.Sample) string { return "" })
			if perr != nil {
				return nil, perr
			}
			value = model.Vector(pr.Items)
			meta := pr.PageMetadata
			pagination = &meta
		case model.Matrix:
			pr, perr := paginateAndFilter(v, FilterSpec{}, page, func(*model.SampleStream) string { return "" })
			if perr != nil {
				return nil, perr
			}
			value = model.Matrix(pr.Items)
			meta := pr.PageMetadata
			pagination = &meta
		default:
			// Scalar and string results have exactly one element; there is
			// nothing to paginate.
		}
	}

	envelope := queryEnvelope{
		ResultType: res.ResultType,
		Result:     value,
		Pagination: pagination,
	}
	if compact {
		if compacted, resultType, ok := compactValue(value); ok {
			envelope.ResultType = resultType
			envelope.Result = compacted
		}
	}
	return envelope, nil
}

// handleExecuteRangeQuery runs a range query. Range results are already
// bounded by the time window; no pagination or compaction applies.
func handleExecuteRangeQuery(ctx context.Context, client *Client, args arguments) (interface{}, error) {
	query, err := args.requiredString("query")
	if err != nil {
		return nil, err
	}
	start, err := args.requiredString("start")
	if err != nil {
		return nil, err
	}
	end, err := args.requiredString("end")
	if err != nil {
		return nil, err
	}
	step, err := args.requiredString("step")
	if err != nil {
		return nil, err
	}

	res, err := client.RangeQuery(ctx, query, start, end, step)
	if err != nil {
		return nil, err
	}

	return queryEnvelope{
		ResultType: res.ResultType,
		Result:     res.Value,
	}, nil
}

// metricsEnvelope is the success payload shape of list_metrics.
type metricsEnvelope struct {
	Metrics    []string     `json:"metrics"`
	Pagination PageMetadata `json:"pagination"`
}

func handleListMetrics(ctx context.Context, client *Client, args arguments) (interface{}, error) {
	prefix, err := args.optionalString("prefix")
	if err != nil {
		return nil, err
	}
	pattern, err := args.optionalString("filter_pattern")
	if err != nil {
		return nil, err
	}
	page, err := args.pageRequest()
	if err != nil {
		return nil, err
	}

	filter := FilterSpec{Prefix: prefix, Pattern: pattern}
	if _, err := filter.compile(); err != nil {
		return nil, err
	}

	names, err := client.ListMetricNames(ctx)
	if err != nil {
		return nil, err
	}

	pr, err := paginateAndFilter(names, filter, page,
		func(name string) string { return name })
	if err != nil {
		return nil, err
	}

	return metricsEnvelope{
		Metrics:    pr.Items,
		Pagination: pr.PageMetadata,
	}, nil
}

// metadataEnvelope is the success payload shape of get_metric_metadata.
type metadataEnvelope struct {
	Metric   string           `json:"metric"`
	Metadata []MetadataRecord `json:"metadata"`
}

func handleGetMetricMetadata(ctx context.Context, client *Client, args arguments) (interface{}, error) {
	metric, err := args.requiredString("metric")
	if err != nil {
		return nil, err
	}

	records, err := client.MetricMetadata(ctx, metric)
	if err != nil {
		return nil, err
	}

	return metadataEnvelope{
		Metric:   metric,
		Metadata: records,
	}, nil
}

// targetsEnvelope is the success payload shape of get_targets.
type targetsEnvelope struct {
	Targets    interface{}  `json:"targets"`
	Pagination PageMetadata `json:"pagination"`
}

func handleGetTargets(ctx context.Context, client *Client, args arguments) (interface{}, error) {
	activeOnly, err := args.optionalBool("active_only")
	if err != nil {
		return nil, err
	}
	compact, err := args.optionalBool("compact")
	if err != nil {
		return nil, err
	}
	page, err := args.pageRequest()
	if err != nil {
		return nil, err
	}

	targets, err := client.ScrapeTargets(ctx)
	if err != nil {
		return nil, err
	}

	if activeOnly {
		active := make([]Target, 0, len(targets))
		for _, t := range targets {
			if t.Health != HealthDropped {
				active = append(active, t)
			}
		}
		targets = active
	}

	pr, err := paginateAndFilter(targets, FilterSpec{}, page,
		func(t Target) string { return t.Job + "/" + t.Instance })
	if err != nil {
		return nil, err
	}

	envelope := targetsEnvelope{
		Targets:    pr.Items,
		Pagination: pr.PageMetadata,
	}
	if compact {
		envelope.Targets = compactTargets(pr.Items)
	}
	return envelope, nil
}
