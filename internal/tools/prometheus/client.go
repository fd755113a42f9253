package prometheus

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"

	"github.com/obsbridge/mcp-prometheus/internal/server"
)

// orgIDRoundTripper adds Organization ID header to requests for multi-tenant setups
type orgIDRoundTripper struct {
	orgID string
	rt    http.RoundTripper
}

func (o *orgIDRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if o.orgID != "" {
		req.Header.Set("X-Scope-OrgID", o.orgID)
	}
	return o.rt.RoundTrip(req)
}

// basicAuthRoundTripper adds basic authentication to requests
type basicAuthRoundTripper struct {
	username string
	password string
	rt       http.RoundTripper
}

func (b *basicAuthRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(b.username, b.password)
	return b.rt.RoundTrip(req)
}

// bearerTokenRoundTripper adds bearer token authentication to requests
type bearerTokenRoundTripper struct {
	token string
	rt    http.RoundTripper
}

func (b *bearerTokenRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+b.token)
	return b.rt.RoundTrip(req)
}

// Client wraps the official Prometheus client and normalizes its raw
// response shapes and errors into the adapter's uniform representation.
// Exactly one outbound HTTP call happens per method invocation; no retries.
type Client struct {
	client v1.API
	config server.PrometheusConfig
	logger server.Logger
}

// NewClient creates a new Prometheus client using the official client
// library. When both a bearer token and basic credentials are configured,
// the bearer token takes precedence.
func NewClient(config server.PrometheusConfig, logger server.Logger) (*Client, error) {
	logger.Debug("Creating new Prometheus client", "url", config.URL, "orgID", config.OrgID)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Start with default transport
	roundTripper := http.DefaultTransport

	// Add authentication layer; bearer token wins over basic auth
	if config.Token != "" {
		roundTripper = &bearerTokenRoundTripper{
			token: config.Token,
			rt:    roundTripper,
		}
		logger.Debug("Using bearer token authentication")
	} else if config.Username != "" && config.Password != "" {
		roundTripper = &basicAuthRoundTripper{
			username: config.Username,
			password: config.Password,
			rt:       roundTripper,
		}
		logger.Debug("Using basic authentication", "username", config.Username)
	} else {
		logger.Debug("No authentication configured")
	}

	// Add organization ID layer if specified
	if config.OrgID != "" {
		roundTripper = &orgIDRoundTripper{
			orgID: config.OrgID,
			rt:    roundTripper,
		}
		logger.Debug("Using organization ID", "orgID", config.OrgID)
	}

	promClient, err := api.NewClient(api.Config{
		Address:      config.URL,
		RoundTripper: roundTripper,
	})
	if err != nil {
		logger.Error("Failed to create Prometheus client", "error", err, "url", config.URL)
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}

	logger.Debug("Successfully created Prometheus client", "address", config.URL)

	return &Client{
		client: v1.NewAPI(promClient),
		config: config,
		logger: logger,
	}, nil
}

// Ping performs a lightweight reachability check against the backend.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := c.client.Buildinfo(ctx); err != nil {
		return classifyError(err, "reachability check failed")
	}
	return nil
}

// QueryResult carries a query result together with its backend result type
// (vector, matrix, scalar, string). Value is the closed tagged variant from
// the common model; consumers switch over all cases.
type QueryResult struct {
	ResultType string
	Value      model.Value
}

// Query executes an instant PromQL query. timeParam is RFC3339 or a Unix
// timestamp; empty means the backend's current time.
func (c *Client) Query(ctx context.Context, query, timeParam string) (*QueryResult, error) {
	queryTime := time.Now()
	if timeParam != "" {
		parsed, err := parseTime(timeParam)
		if err != nil {
			return nil, validationError("time", "invalid time parameter: %v", err)
		}
		queryTime = parsed
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	result, warnings, err := c.client.Query(ctx, query, queryTime)
	if err != nil {
		return nil, classifyError(err, "failed to execute query")
	}

	if len(warnings) > 0 {
		c.logger.Warn("Query returned warnings", "warnings", warnings)
	}

	return &QueryResult{
		ResultType: result.Type().String(),
		Value:      result,
	}, nil
}

// RangeQuery executes a range PromQL query. Start and end are RFC3339 or
// Unix timestamps; step is a duration string (e.g. "15s", "1m", "1h").
func (c *Client) RangeQuery(ctx context.Context, query, start, end, step string) (*QueryResult, error) {
	startTime, err := parseTime(start)
	if err != nil {
		return nil, validationError("start", "invalid start time: %v", err)
	}

	endTime, err := parseTime(end)
	if err != nil {
		return nil, validationError("end", "invalid end time: %v", err)
	}

	if startTime.After(endTime) {
		return nil, validationError("start", "start time %s is after end time %s", start, end)
	}

	stepDuration, err := model.ParseDuration(step)
	if err != nil {
		return nil, validationError("step", "invalid step duration: %v", err)
	}
	if stepDuration <= 0 {
		return nil, validationError("step", "step must be a positive duration, got %s", step)
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	queryRange := v1.Range{
		Start: startTime,
		End:   endTime,
		Step:  time.Duration(stepDuration),
	}

	result, warnings, err := c.client.QueryRange(ctx, query, queryRange)
	if err != nil {
		return nil, classifyError(err, "failed to execute range query")
	}

	if len(warnings) > 0 {
		c.logger.Warn("Range query returned warnings", "warnings", warnings)
	}

	return &QueryResult{
		ResultType: result.Type().String(),
		Value:      result,
	}, nil
}

// ListMetricNames lists all metric names known to the backend, sorted
// lexicographically so pagination over them is stable.
func (c *Client) ListMetricNames(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	labelValues, warnings, err := c.client.LabelValues(ctx, "__name__", nil, time.Time{}, time.Time{})
	if err != nil {
		return nil, classifyError(err, "failed to list metrics")
	}

	if len(warnings) > 0 {
		c.logger.Warn("List metrics returned warnings", "warnings", warnings)
	}

	metrics := make([]string, len(labelValues))
	for i, labelValue := range labelValues {
		metrics[i] = string(labelValue)
	}
	sort.Strings(metrics)

	return metrics, nil
}

// MetadataRecord is one metadata entry for a metric.
type MetadataRecord struct {
	Type string `json:"type"`
	Help string `json:"help"`
	Unit string `json:"unit"`
}

// MetricMetadata returns the metadata records for one metric. An unknown
// metric yields an empty slice, not an error.
func (c *Client) MetricMetadata(ctx context.Context, metric string) ([]MetadataRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	metadata, err := c.client.Metadata(ctx, metric, "")
	if err != nil {
		return nil, classifyError(err, "failed to get metric metadata")
	}

	records := []MetadataRecord{}
	for _, md := range metadata[metric] {
		records = append(records, MetadataRecord{
			Type: string(md.Type),
			Help: md.Help,
			Unit: md.Unit,
		})
	}

	return records, nil
}

// HealthDropped marks targets the backend discovered but dropped before
// scraping; they carry no scrape state.
const HealthDropped = "dropped"

// Target is the adapter's uniform scrape target representation.
type Target struct {
	Job                string            `json:"job"`
	Instance           string            `json:"instance"`
	Health             string            `json:"health"`
	Labels             map[string]string `json:"labels,omitempty"`
	DiscoveredLabels   map[string]string `json:"discoveredLabels,omitempty"`
	ScrapePool         string            `json:"scrapePool,omitempty"`
	ScrapeURL          string            `json:"scrapeUrl,omitempty"`
	LastScrape         time.Time         `json:"lastScrape"`
	LastScrapeDuration float64           `json:"lastScrapeDuration,omitempty"`
	LastError          string            `json:"lastError,omitempty"`
}

// ScrapeTargets returns every scrape target as one uniform collection,
// sorted by job then instance for stable pagination. Dropped targets carry
// health "dropped" and only their discovered labels. A target's own scrape
// failure shows up in its health/lastError fields, never as a call error.
func (c *Client) ScrapeTargets(ctx context.Context) ([]Target, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	targets, err := c.client.Targets(ctx)
	if err != nil {
		return nil, classifyError(err, "failed to get targets")
	}

	result := make([]Target, 0, len(targets.Active)+len(targets.Dropped))
	for _, t := range targets.Active {
		labels := make(map[string]string, len(t.Labels))
		for name, value := range t.Labels {
			labels[string(name)] = string(value)
		}
		result = append(result, Target{
			Job:                string(t.Labels[model.JobLabel]),
			Instance:           string(t.Labels[model.InstanceLabel]),
			Health:             string(t.Health),
			Labels:             labels,
			DiscoveredLabels:   t.DiscoveredLabels,
			ScrapePool:         t.ScrapePool,
			ScrapeURL:          t.ScrapeURL,
			LastScrape:         t.LastScrape,
			LastScrapeDuration: t.LastScrapeDuration,
			LastError:          t.LastError,
		})
	}
	for _, t := range targets.Dropped {
		result = append(result, Target{
			Job:              t.DiscoveredLabels[string(model.JobLabel)],
			Instance:         t.DiscoveredLabels[string(model.InstanceLabel)],
			Health:           HealthDropped,
			DiscoveredLabels: t.DiscoveredLabels,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Job != result[j].Job {
			return result[i].Job < result[j].Job
		}
		return result[i].Instance < result[j].Instance
	})

	return result, nil
}

// parseTime accepts RFC3339 or a Unix timestamp in seconds (integral or
// fractional).
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if sec, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Unix(int64(sec), int64((sec-float64(int64(sec)))*1e9)), nil
	}
	return time.Time{}, fmt.Errorf("%q is neither RFC3339 nor a Unix timestamp", s)
}

// classifyError maps client library failures onto the adapter's taxonomy.
// The v1 API only produces *v1.Error when the backend answered (4xx/5xx,
// bad data, exec errors), so those become QueryError; anything else never
// reached the backend and becomes ConnectionError.
func classifyError(err error, msg string) error {
	var apiErr *v1.Error
	if errors.As(err, &apiErr) {
		return queryError("%s: %v", msg, err)
	}
	return connectionError("%s: %v", msg, err)
}
