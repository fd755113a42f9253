package server

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"sync"
)

// Logger interface for structured logging
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// PrometheusConfig holds the Prometheus server connection settings.
// It is immutable after NewServerContext returns.
type PrometheusConfig struct {
	URL      string
	Username string
	Password string
	Token    string
	OrgID    string
}

// Validate checks that the configuration is usable. A missing or unparsable
// URL is a configuration error and aborts startup.
func (c PrometheusConfig) Validate() error {
	if c.URL == "" {
		return &ConfigurationError{
			Message: "PROMETHEUS_URL environment variable is not set; " +
				"set it to your Prometheus server URL (e.g. http://prometheus:9090)",
		}
	}
	u, err := url.Parse(c.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ConfigurationError{
			Message: fmt.Sprintf("PROMETHEUS_URL %q is not a valid absolute URL", c.URL),
		}
	}
	return nil
}

// AuthMethod describes which authentication the client will use. When both a
// bearer token and basic credentials are configured the bearer token wins.
func (c PrometheusConfig) AuthMethod() string {
	switch {
	case c.Token != "":
		return "bearer_token"
	case c.Username != "" && c.Password != "":
		return "basic_auth"
	default:
		return "none"
	}
}

// ConfigurationError indicates invalid or missing startup configuration.
// It is fatal: the process refuses to start rather than limping along.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// IsConfigurationError reports whether err is a startup configuration error.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// OAuthConfig holds settings for the optional OAuth 2.1 protection of the
// HTTP transports.
type OAuthConfig struct {
	Enabled      bool
	BaseURL      string
	IssuerURL    string
	ClientID     string
	ClientSecret string
}

// ServerContext holds the server configuration and shared resources
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc
	mutex  sync.RWMutex

	// Configuration
	debugMode bool
	logger    Logger

	// Prometheus configuration
	prometheusConfig PrometheusConfig

	// Optional OAuth protection for HTTP transports
	oauthConfig OAuthConfig

	// Enabled tool allow-list (nil = all tools)
	enabledTools []string
}

// ServerOption is a functional option for configuring ServerContext
type ServerOption func(*ServerContext)

// WithDebugMode sets whether debug logging is enabled
func WithDebugMode(enabled bool) ServerOption {
	return func(sc *ServerContext) {
		sc.debugMode = enabled
	}
}

// WithLogger sets the logger for the server context
func WithLogger(logger Logger) ServerOption {
	return func(sc *ServerContext) {
		sc.logger = logger
	}
}

// WithPrometheusConfig sets the Prometheus configuration
func WithPrometheusConfig(config PrometheusConfig) ServerOption {
	return func(sc *ServerContext) {
		sc.prometheusConfig = config
	}
}

// WithOAuthConfig sets the OAuth configuration for HTTP transports
func WithOAuthConfig(config OAuthConfig) ServerOption {
	return func(sc *ServerContext) {
		sc.oauthConfig = config
	}
}

// WithEnabledTools restricts the registered tool set to the given names.
// An empty or nil list enables every tool.
func WithEnabledTools(names []string) ServerOption {
	return func(sc *ServerContext) {
		sc.enabledTools = names
	}
}

// NewServerContext creates a new server context with the given options
func NewServerContext(ctx context.Context, opts ...ServerOption) (*ServerContext, error) {
	serverCtx, cancel := context.WithCancel(ctx)

	sc := &ServerContext{
		ctx:    serverCtx,
		cancel: cancel,
	}

	// Apply options
	for _, opt := range opts {
		opt(sc)
	}

	// Set default logger if none provided
	if sc.logger == nil {
		sc.logger = &noopLogger{}
	}

	// Load Prometheus configuration from environment if not provided
	if sc.prometheusConfig.URL == "" {
		sc.prometheusConfig = ConfigFromEnv()
	}

	return sc, nil
}

// ConfigFromEnv collects the Prometheus connection settings from the
// environment in one place. When PROMETHEUS_URL is unset but
// PROMETHEUS_SERVICE names an in-cluster Service, the URL is resolved via
// the Kubernetes API (see ResolveServiceURL).
func ConfigFromEnv() PrometheusConfig {
	cfg := PrometheusConfig{
		URL:      os.Getenv("PROMETHEUS_URL"),
		Username: os.Getenv("PROMETHEUS_USERNAME"),
		Password: os.Getenv("PROMETHEUS_PASSWORD"),
		Token:    os.Getenv("PROMETHEUS_TOKEN"),
		OrgID:    os.Getenv("PROMETHEUS_ORGID"),
	}
	if cfg.URL == "" {
		if svc := os.Getenv("PROMETHEUS_SERVICE"); svc != "" {
			if resolved, err := ResolveServiceURL(context.Background(), svc); err == nil {
				cfg.URL = resolved
			}
		}
	}
	return cfg
}

// Context returns the context associated with the server
func (sc *ServerContext) Context() context.Context {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	return sc.ctx
}

// IsDebugMode returns whether debug logging is enabled
func (sc *ServerContext) IsDebugMode() bool {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	return sc.debugMode
}

// Logger returns the configured logger
func (sc *ServerContext) Logger() Logger {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	return sc.logger
}

// PrometheusConfig returns the Prometheus configuration
func (sc *ServerContext) PrometheusConfig() PrometheusConfig {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	return sc.prometheusConfig
}

// OAuthConfig returns the OAuth configuration for HTTP transports
func (sc *ServerContext) OAuthConfig() OAuthConfig {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	return sc.oauthConfig
}

// EnabledTools returns the tool allow-list (nil = all tools enabled)
func (sc *ServerContext) EnabledTools() []string {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	return sc.enabledTools
}

// Shutdown gracefully shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	if sc.cancel != nil {
		sc.cancel()
		sc.cancel = nil
	}

	return nil
}

// noopLogger is a logger that does nothing
type noopLogger struct{}

func (l *noopLogger) Debug(msg string, args ...interface{}) {}
func (l *noopLogger) Info(msg string, args ...interface{})  {}
func (l *noopLogger) Warn(msg string, args ...interface{})  {}
func (l *noopLogger) Error(msg string, args ...interface{}) {}
