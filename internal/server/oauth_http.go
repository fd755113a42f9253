package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	oauth "github.com/giantswarm/mcp-oauth"
	"github.com/giantswarm/mcp-oauth/providers/dex"
	oauthserver "github.com/giantswarm/mcp-oauth/server"
	"github.com/giantswarm/mcp-oauth/storage/memory"
)

const (
	// defaultRefreshTokenTTL is the TTL for refresh tokens (30 days).
	defaultRefreshTokenTTL = 30 * 24 * time.Hour

	// defaultMaxClientsPerIP caps dynamic client registrations per IP.
	defaultMaxClientsPerIP = 10
)

// oidcScopes are the scopes requested from the upstream Dex OIDC provider.
var oidcScopes = []string{"openid", "profile", "email", "groups", "offline_access"}

// OAuthHTTPServer wraps an MCP HTTP handler with OAuth 2.1 authentication:
// authorization, token issuance, and token validation middleware on the MCP
// endpoints. The stdio transport is never wrapped.
type OAuthHTTPServer struct {
	config       OAuthConfig
	oauthServer  *oauth.Server
	oauthHandler *oauth.Handler
	mcpHandler   http.Handler
}

// NewOAuthHTTPServer creates an OAuth-enabled HTTP server protecting the
// given MCP handler.
func NewOAuthHTTPServer(cfg OAuthConfig, mcpHandler http.Handler, debug bool) (*OAuthHTTPServer, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("OAuth server is not enabled")
	}
	if err := validateHTTPSRequirement(cfg.BaseURL); err != nil {
		return nil, err
	}

	oauthSrv, err := createOAuthServer(cfg, debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create OAuth server: %w", err)
	}

	return &OAuthHTTPServer{
		config:       cfg,
		oauthServer:  oauthSrv,
		oauthHandler: oauth.NewHandler(oauthSrv, oauthSrv.Logger),
		mcpHandler:   mcpHandler,
	}, nil
}

// CreateMux routes OAuth 2.1 endpoints alongside the token-protected MCP
// endpoints.
func (s *OAuthHTTPServer) CreateMux() http.Handler {
	mux := http.NewServeMux()

	// Unauthenticated health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// OAuth 2.1 endpoints (RFC 9728, RFC 8414, RFC 7591, RFC 7009, RFC 7662)
	mux.HandleFunc("/.well-known/oauth-protected-resource", s.oauthHandler.ServeProtectedResourceMetadata)
	mux.HandleFunc("/.well-known/oauth-authorization-server", s.oauthHandler.ServeAuthorizationServerMetadata)
	mux.HandleFunc("/oauth/register", s.oauthHandler.ServeClientRegistration)
	mux.HandleFunc("/oauth/authorize", s.oauthHandler.ServeAuthorization)
	mux.HandleFunc("/oauth/token", s.oauthHandler.ServeToken)
	mux.HandleFunc("/oauth/callback", s.oauthHandler.ServeCallback)
	mux.HandleFunc("/oauth/revoke", s.oauthHandler.ServeTokenRevocation)
	mux.HandleFunc("/oauth/introspect", s.oauthHandler.ServeTokenIntrospection)

	// MCP endpoints behind token validation
	mux.Handle("/mcp", s.oauthHandler.ValidateToken(s.mcpHandler))
	mux.Handle("/sse", s.oauthHandler.ValidateToken(s.mcpHandler))
	mux.Handle("/message", s.oauthHandler.ValidateToken(s.mcpHandler))

	return mux
}

// Shutdown gracefully shuts down the OAuth server (rate limiters, storage
// cleanup).
func (s *OAuthHTTPServer) Shutdown(ctx context.Context) error {
	if s.oauthServer != nil {
		if err := s.oauthServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown OAuth server: %w", err)
		}
	}
	return nil
}

// createOAuthServer builds the mcp-oauth server with an OIDC provider and
// in-memory stores.
func createOAuthServer(cfg OAuthConfig, debug bool) (*oauth.Server, error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	provider, err := dex.NewProvider(&dex.Config{
		IssuerURL:    cfg.IssuerURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.BaseURL + "/oauth/callback",
		Scopes:       oidcScopes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Dex OIDC provider: %w", err)
	}

	store := memory.New()

	serverConfig := &oauthserver.Config{
		Issuer:                    cfg.BaseURL,
		RefreshTokenTTL:           int64(defaultRefreshTokenTTL.Seconds()),
		AllowRefreshTokenRotation: true,
		RequirePKCE:               true,
		AllowPKCEPlain:            false,
		MaxClientsPerIP:           defaultMaxClientsPerIP,
	}

	oauthSrv, err := oauth.NewServer(provider, store, store, store, serverConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create OAuth server: %w", err)
	}

	return oauthSrv, nil
}

// validateHTTPSRequirement enforces OAuth 2.1 HTTPS compliance; plain HTTP is
// allowed only for loopback addresses.
func validateHTTPSRequirement(baseURL string) error {
	if baseURL == "" {
		return fmt.Errorf("OAuth base URL cannot be empty")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid OAuth base URL: %w", err)
	}

	switch u.Scheme {
	case "https":
		return nil
	case "http":
		host := u.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			return fmt.Errorf("OAuth 2.1 requires HTTPS for production (got: %s); use HTTPS or localhost for development", baseURL)
		}
		return nil
	default:
		return fmt.Errorf("invalid OAuth base URL scheme %q, must be http (localhost only) or https", u.Scheme)
	}
}
