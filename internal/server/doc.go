// Package server provides the core server infrastructure for the MCP Prometheus server.
//
// This package contains:
// - ServerContext: Configuration and shared resources management
// - Logger interface: Structured logging abstraction
// - PrometheusConfig: connection settings collected once from the environment
// - OAuthHTTPServer: optional OAuth 2.1 protection for HTTP transports
// - ResolveServiceURL: optional in-cluster Prometheus URL discovery
//
// The ServerContext manages the lifecycle of the server and provides
// thread-safe access to configuration such as debug mode, the Prometheus
// connection settings, and the enabled tool allow-list. The configuration is
// validated once at startup; a missing PROMETHEUS_URL is a fatal
// ConfigurationError.
//
// Example usage:
//
//	ctx := context.Background()
//	serverContext, err := server.NewServerContext(ctx,
//	    server.WithDebugMode(true),
//	    server.WithLogger(logger),
//	)
package server
