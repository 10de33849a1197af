package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/ctxlog"

	"github.com/smartreview-app/smartreview/pkg/domain/interfaces"
)

// config holds internal HTTP server configuration
type config struct {
	addr          string
	webhookSecret string
	apiToken      string
}

// Option is a functional option for Server configuration
type Option func(*config)

// WithAddr sets the server address
func WithAddr(addr string) Option {
	return func(c *config) {
		c.addr = addr
	}
}

// WithWebhookSecret sets the shared webhook secret. An empty secret
// disables signature verification (local development only).
func WithWebhookSecret(secret string) Option {
	return func(c *config) {
		c.webhookSecret = secret
	}
}

// WithAPIToken sets the bearer token guarding the credential
// management API. An empty token disables those endpoints.
func WithAPIToken(token string) Option {
	return func(c *config) {
		c.apiToken = token
	}
}

// Server represents the HTTP server
type Server struct {
	*http.Server
}

// NewServer creates the HTTP server: webhook intake, health check and
// the credential management API.
func NewServer(
	ctx context.Context,
	webhookUC interfaces.WebhookUseCase,
	vault interfaces.Vault,
	opts ...Option,
) (*Server, error) {
	cfg := &config{
		addr: "localhost:8080",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.webhookSecret == "" {
		ctxlog.From(ctx).Warn("webhook secret is not configured, signature verification is DISABLED; " +
			"this mode is for local development only")
	}

	router := chi.NewRouter()

	// Global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggingMiddleware(ctx))
	router.Use(middleware.Recoverer)

	// Health check
	router.Get("/health", handleHealth)

	// Webhook endpoint
	webhookHandler := NewWebhookHandler(cfg.webhookSecret, webhookUC)
	router.Post("/hooks/github/app", webhookHandler.Handle)

	// Credential management API
	if cfg.apiToken != "" {
		credHandler := NewCredentialHandler(vault)
		router.Route("/api/v1/credentials", func(r chi.Router) {
			r.Use(BearerAuth(cfg.apiToken))
			r.Put("/{ownerID}", credHandler.Put)
			r.Delete("/{ownerID}", credHandler.Delete)
		})
	} else {
		ctxlog.From(ctx).Warn("API token is not configured, credential management endpoints are disabled")
	}

	server := &Server{
		Server: &http.Server{
			Addr:              cfg.addr,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
		},
	}

	return server, nil
}
