// Package prometheus provides MCP tools for interacting with Prometheus servers.
//
// This package implements the following MCP tools:
//
// Query Tools:
//   - execute_query: Execute PromQL instant queries with optional pagination
//     and a compact result encoding
//   - execute_range_query: Execute PromQL range queries with time bounds
//
// Discovery Tools:
//   - list_metrics: List available metrics with prefix/regex filtering and pagination
//   - get_metric_metadata: Get metadata for specific metrics
//   - get_targets: Get information about scrape targets with pagination
//
// Every invocation is dispatched through a static registry: the tool is
// looked up in the enabled allow-list, arguments are validated against the
// declared schema, and the handler result (or classified error) is wrapped
// as a JSON payload. Errors carry a stable error_code
// (ValidationError, ConnectionError, QueryError, UnknownToolError) plus the
// offending parameter where one exists.
//
// Authentication Support:
//   - Basic authentication via username/password
//   - Bearer token authentication (takes precedence when both are set)
//   - Multi-tenant organization ID headers
//
// Example tool usage:
//
//	execute_query: {"query": "up", "limit": 10, "compact": true}
//	execute_range_query: {"query": "rate(http_requests_total[5m])", "start": "2023-01-01T00:00:00Z", "end": "2023-01-01T01:00:00Z", "step": "1m"}
//	list_metrics: {"prefix": "storage_", "limit": 20}
//	get_metric_metadata: {"metric": "http_requests_total"}
//	get_targets: {"active_only": true}
package prometheus
