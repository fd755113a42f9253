// Package cmd provides the command-line interface for the MCP Prometheus server.
//
// This package implements the Cobra CLI framework to provide commands for:
// - Starting the MCP server with various transport options (stdio, sse, http)
// - Managing server configuration and lifecycle
//
// The main entry point is the serve command which starts the MCP server and
// registers the enabled Prometheus tools for querying metrics, discovering
// metrics metadata, and retrieving target information.
//
// Environment Variables:
//   - PROMETHEUS_URL: Required Prometheus server URL
//   - PROMETHEUS_SERVICE: Optional in-cluster Service (namespace/name[:port])
//     used to resolve the URL when PROMETHEUS_URL is unset
//   - PROMETHEUS_USERNAME: Optional basic auth username
//   - PROMETHEUS_PASSWORD: Optional basic auth password
//   - PROMETHEUS_TOKEN: Optional bearer token (wins over basic auth)
//   - PROMETHEUS_ORGID: Optional organization ID for multi-tenant setups
//   - OAUTH_CLIENT_SECRET: OIDC client secret when OAuth protection is enabled
//   - OTEL_EXPORTER_OTLP_ENDPOINT: Optional OTLP endpoint enabling tracing
//
// Example usage:
//
//	mcp-prometheus serve --transport stdio
//	mcp-prometheus serve --transport sse --http-addr :8080
//	mcp-prometheus serve --enable-tools list_metrics,execute_query
package cmd
