package app

import (
	"context"
	"net/http"

	"federated-auth/internal/auth/handler"
	"federated-auth/internal/auth/provider"
	"federated-auth/internal/auth/provider/github"
	"federated-auth/internal/auth/provider/google"
	"federated-auth/internal/auth/provider/keycloak"
	"federated-auth/internal/auth/resolver"
	"federated-auth/internal/config"
	"federated-auth/internal/identity"
	"federated-auth/internal/logger"
	"federated-auth/internal/middleware"
	"federated-auth/internal/session"
	"federated-auth/internal/token"

	"github.com/gin-gonic/gin"
)

func setupProviders(ctx context.Context, cfg config.Config) (*provider.Registry, error) {
	var list []provider.OAuthProvider

	if cfg.GoogleEnabled() {
		p, err := google.New(ctx, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}

	if cfg.GitHubEnabled() {
		var opts []github.Option
		if cfg.GitHubAPIBaseURL != "" {
			opts = append(opts, github.WithAPIBaseURL(cfg.GitHubAPIBaseURL))
		}
		p, err := github.New(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubRedirectURL, opts...)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}

	if cfg.KeycloakEnabled() {
		p, err := keycloak.New(
			ctx,
			cfg.KeycloakIssuer,
			cfg.KeycloakClientID,
			cfg.KeycloakRedirectURL,
			cfg.KeycloakPublicBaseURL,
		)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}

	registry := provider.NewRegistry(list...)
	if len(list) == 0 {
		logger.Warn("no oauth providers configured", nil)
	} else {
		logger.Info("oauth providers registered", map[string]any{"providers": registry.Names()})
	}
	return registry, nil
}

// newRouter wires the public, session-gated and bearer-gated routes.
// Each protected group sits behind exactly one gate.
func newRouter(
	cfg config.Config,
	registry *provider.Registry,
	identities identity.Store,
	sessions session.Store,
) (*gin.Engine, error) {

	tokens, err := token.NewService(
		[]byte(cfg.TokenSecret),
		cfg.TokenTTL,
		token.WithIssuer(cfg.TokenIssuer),
	)
	if err != nil {
		return nil, err
	}

	codec := session.NewCodec(identities)
	identityResolver := resolver.NewStoreResolver(identities)

	authHandler := handler.NewHandler(
		registry,
		sessions,
		identityResolver,
		codec,
		tokens,
		handler.Config{
			SessionTTL:   cfg.SessionTTL,
			SecureCookie: cfg.CookieSecure,
		},
	)

	router := gin.New()
	router.Use(gin.Recovery())

	// ----------------------------
	// Public Routes
	// ----------------------------

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authHandler.RegisterRoutes(router)

	// ----------------------------
	// Web Routes (session cookie)
	// ----------------------------

	web := router.Group("/")
	web.Use(middleware.Gin(middleware.NewSessionGate(sessions, codec).RequireSession))

	web.GET("/dashboard", authHandler.Dashboard)
	web.GET("/auth/token", authHandler.Token)

	// ----------------------------
	// API Routes (bearer token)
	// ----------------------------

	api := router.Group("/api")
	api.Use(middleware.Gin(middleware.NewBearerGate(tokens).RequireToken))

	api.GET("/me", authHandler.Me)
	api.GET("/ping", authHandler.Ping)

	return router, nil
}

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {

	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	registry, err := setupProviders(ctx, cfg)
	if err != nil {
		_ = infra.Close()
		return nil, nil, err
	}

	router, err := newRouter(cfg, registry, infra.Identities, infra.Sessions)
	if err != nil {
		_ = infra.Close()
		return nil, nil, err
	}

	return router, infra.Close, nil
}
