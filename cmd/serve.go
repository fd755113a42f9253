package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/obsbridge/mcp-prometheus/internal/server"
	"github.com/obsbridge/mcp-prometheus/internal/telemetry"
	"github.com/obsbridge/mcp-prometheus/internal/tools/prometheus"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// shutdownTimeout bounds graceful shutdown of the HTTP transports.
const shutdownTimeout = 30 * time.Second

// simpleLogger provides basic logging for the server
type simpleLogger struct {
	debug bool
}

func (l *simpleLogger) Debug(msg string, args ...interface{}) {
	if l.debug {
		log.Printf("[DEBUG] %s %v", msg, args)
	}
}

func (l *simpleLogger) Info(msg string, args ...interface{}) {
	log.Printf("[INFO] %s %v", msg, args)
}

func (l *simpleLogger) Warn(msg string, args ...interface{}) {
	log.Printf("[WARN] %s %v", msg, args)
}

func (l *simpleLogger) Error(msg string, args ...interface{}) {
	log.Printf("[ERROR] %s %v", msg, args)
}

// newServeCmd creates the Cobra command for starting the MCP server.
func newServeCmd() *cobra.Command {
	var (
		debugMode   bool
		enableTools []string

		// Transport options
		transport       string
		httpAddr        string
		sseEndpoint     string
		messageEndpoint string
		httpEndpoint    string

		// OAuth options (HTTP transports only)
		oauthEnabled   bool
		oauthBaseURL   string
		oauthIssuerURL string
		oauthClientID  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP Prometheus server",
		Long: `Start the MCP Prometheus server to provide tools for interacting
with Prometheus metrics via the Model Context Protocol.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - sse: Server-Sent Events over HTTP
  - streamable-http: Streamable HTTP transport

Environment Variables:
  PROMETHEUS_URL      - Required: Prometheus server URL
  PROMETHEUS_SERVICE  - Optional: in-cluster Service (namespace/name[:port])
                        resolved to a URL when PROMETHEUS_URL is not set
  PROMETHEUS_USERNAME - Optional: Basic auth username
  PROMETHEUS_PASSWORD - Optional: Basic auth password
  PROMETHEUS_TOKEN    - Optional: Bearer token (wins over basic auth when both are set)
  PROMETHEUS_ORGID    - Optional: Organization ID for multi-tenant setups
  OAUTH_CLIENT_SECRET - Optional: OIDC client secret for --oauth-enabled

The --enable-tools flag restricts the exposed tool set to an explicit
allow-list; dispatching any other tool name returns an UnknownToolError
payload.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			oauthCfg := server.OAuthConfig{
				Enabled:      oauthEnabled,
				BaseURL:      oauthBaseURL,
				IssuerURL:    oauthIssuerURL,
				ClientID:     oauthClientID,
				ClientSecret: os.Getenv("OAUTH_CLIENT_SECRET"),
			}
			return runServe(transport, debugMode, enableTools, oauthCfg,
				httpAddr, sseEndpoint, messageEndpoint, httpEndpoint)
		},
	}

	// Add flags for configuring the server
	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging (default: false)")
	cmd.Flags().StringSliceVar(&enableTools, "enable-tools", nil, "Comma-separated allow-list of tool names to expose (default: all)")

	// Transport flags
	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport type: stdio, sse, or streamable-http")
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "HTTP server address (for sse and streamable-http transports)")
	cmd.Flags().StringVar(&sseEndpoint, "sse-endpoint", "/sse", "SSE endpoint path (for sse transport)")
	cmd.Flags().StringVar(&messageEndpoint, "message-endpoint", "/message", "Message endpoint path (for sse transport)")
	cmd.Flags().StringVar(&httpEndpoint, "http-endpoint", "/mcp", "HTTP endpoint path (for streamable-http transport)")

	// OAuth flags
	cmd.Flags().BoolVar(&oauthEnabled, "oauth-enabled", false, "Protect the HTTP transports with OAuth 2.1 (requires --oauth-base-url, --oauth-issuer-url, --oauth-client-id)")
	cmd.Flags().StringVar(&oauthBaseURL, "oauth-base-url", "", "Externally reachable base URL of this server (OAuth issuer)")
	cmd.Flags().StringVar(&oauthIssuerURL, "oauth-issuer-url", "", "Upstream Dex OIDC issuer URL")
	cmd.Flags().StringVar(&oauthClientID, "oauth-client-id", "", "OIDC client ID registered with the upstream issuer")

	return cmd
}

// runServe contains the main server logic with support for multiple transports
func runServe(transport string, debugMode bool, enableTools []string, oauthCfg server.OAuthConfig,
	httpAddr, sseEndpoint, messageEndpoint, httpEndpoint string) error {

	// Setup graceful shutdown - listen for both SIGINT and SIGTERM
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := &simpleLogger{debug: debugMode}

	// Validate connection configuration up front: a missing or invalid URL
	// is fatal at startup, not a per-call surprise.
	config := server.ConfigFromEnv()
	if err := config.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		return err
	}

	// Create server context
	serverContext, err := server.NewServerContext(shutdownCtx,
		server.WithDebugMode(debugMode),
		server.WithLogger(logger),
		server.WithPrometheusConfig(config),
		server.WithOAuthConfig(oauthCfg),
		server.WithEnabledTools(enableTools),
	)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			log.Printf("Error during server context shutdown: %v", err)
		}
	}()

	// Optional tracing; no-op unless OTEL_EXPORTER_OTLP_ENDPOINT is set
	telemetryShutdown, err := telemetry.Setup(shutdownCtx, "mcp-prometheus", rootCmd.Version)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer flushCancel()
		if err := telemetryShutdown(flushCtx); err != nil {
			log.Printf("Error during telemetry shutdown: %v", err)
		}
	}()

	// Log configuration (never secrets)
	logger.Info("Prometheus configuration",
		"url", config.URL,
		"authentication", config.AuthMethod(),
		"orgID", config.OrgID)
	if len(enableTools) > 0 {
		logger.Info("Tool allow-list active", "tools", strings.Join(enableTools, ","))
	}

	// Create MCP server
	mcpSrv := mcpserver.NewMCPServer("mcp-prometheus", rootCmd.Version,
		mcpserver.WithToolCapabilities(true),
	)

	// Register Prometheus tools
	if err := prometheus.RegisterPrometheusTools(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register Prometheus tools: %w", err)
	}

	logger.Info("Starting MCP Prometheus server", "transport", transport)

	// Start the appropriate server based on transport type
	switch transport {
	case "stdio":
		if serverContext.OAuthConfig().Enabled {
			return fmt.Errorf("OAuth protection only applies to the sse and streamable-http transports")
		}
		return runStdioServer(mcpSrv)
	case "sse":
		return runSSEServer(mcpSrv, httpAddr, sseEndpoint, messageEndpoint, shutdownCtx, serverContext)
	case "streamable-http":
		return runStreamableHTTPServer(mcpSrv, httpAddr, httpEndpoint, shutdownCtx, serverContext)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, sse, streamable-http)", transport)
	}
}

// runStdioServer runs the server with STDIO transport
func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	if err := mcpserver.ServeStdio(mcpSrv); err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	fmt.Println("Server gracefully stopped")
	return nil
}

// runSSEServer runs the server with SSE transport
func runSSEServer(mcpSrv *mcpserver.MCPServer, addr, sseEndpoint, messageEndpoint string,
	ctx context.Context, sc *server.ServerContext) error {

	logger := sc.Logger()
	sseServer := mcpserver.NewSSEServer(mcpSrv,
		mcpserver.WithSSEEndpoint(sseEndpoint),
		mcpserver.WithMessageEndpoint(messageEndpoint),
	)

	logger.Info("SSE server starting", "addr", addr, "sseEndpoint", sseEndpoint, "messageEndpoint", messageEndpoint)

	if sc.OAuthConfig().Enabled {
		return runOAuthHTTPServer(ctx, addr, sseServer, sc)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := sseServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("SSE server stopped with error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received, stopping SSE server")
		stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stopCancel()
		return sseServer.Shutdown(stopCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	fmt.Println("SSE server gracefully stopped")
	return nil
}

// runStreamableHTTPServer runs the server with Streamable HTTP transport
func runStreamableHTTPServer(mcpSrv *mcpserver.MCPServer, addr, endpoint string,
	ctx context.Context, sc *server.ServerContext) error {

	logger := sc.Logger()
	httpServer := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithEndpointPath(endpoint),
	)

	logger.Info("Streamable HTTP server starting", "addr", addr, "endpoint", endpoint)

	if sc.OAuthConfig().Enabled {
		return runOAuthHTTPServer(ctx, addr, httpServer, sc)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received, stopping HTTP server")
		stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stopCancel()
		return httpServer.Shutdown(stopCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	fmt.Println("HTTP server gracefully stopped")
	return nil
}

// runOAuthHTTPServer wraps an MCP HTTP handler with OAuth 2.1 protection and
// serves it on addr.
func runOAuthHTTPServer(ctx context.Context, addr string, mcpHandler http.Handler,
	sc *server.ServerContext) error {

	logger := sc.Logger()
	oauthCfg := sc.OAuthConfig()
	oauthServer, err := server.NewOAuthHTTPServer(oauthCfg, mcpHandler, sc.IsDebugMode())
	if err != nil {
		return fmt.Errorf("failed to create OAuth HTTP server: %w", err)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           oauthServer.CreateMux(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("OAuth protection enabled", "baseURL", oauthCfg.BaseURL, "issuer", oauthCfg.IssuerURL)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("OAuth HTTP server stopped with error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received, stopping OAuth HTTP server")
		stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stopCancel()
		if err := oauthServer.Shutdown(stopCtx); err != nil {
			logger.Error("Error during OAuth server shutdown", "error", err)
		}
		return srv.Shutdown(stopCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	fmt.Println("OAuth HTTP server gracefully stopped")
	return nil
}
