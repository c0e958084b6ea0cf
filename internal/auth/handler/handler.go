package handler

import (
	"net/http"
	"time"

	"federated-auth/internal/auth/provider"
	"federated-auth/internal/auth/resolver"
	"federated-auth/internal/logger"
	"federated-auth/internal/session"
	"federated-auth/internal/token"

	"github.com/gin-gonic/gin"
)

const (
	afterLoginPath = "/dashboard"
	afterErrorPath = "/"
)

type Handler struct {
	providers    *provider.Registry
	sessionStore session.Store
	resolver     resolver.Resolver
	codec        *session.Codec
	tokens       *token.Service

	cookieOpts session.CookieOptions
	sessionTTL time.Duration
	now        func() time.Time
}

type Config struct {
	SessionTTL   time.Duration
	SecureCookie bool
}

func NewHandler(
	registry *provider.Registry,
	sessionStore session.Store,
	resolver resolver.Resolver,
	codec *session.Codec,
	tokens *token.Service,
	cfg Config,
) *Handler {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Handler{
		providers:    registry,
		sessionStore: sessionStore,
		resolver:     resolver,
		codec:        codec,
		tokens:       tokens,
		cookieOpts:   session.CookieOptions{Secure: cfg.SecureCookie},
		sessionTTL:   ttl,
		now:          time.Now,
	}
}

// RegisterRoutes mounts the public OAuth routes.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/oauth/login/:provider", h.login)
	r.GET("/oauth/callback/:provider", h.callback)
	r.POST("/auth/logout", h.Logout)
}

func (h *Handler) login(c *gin.Context) {
	providerName := c.Param("provider")

	p, err := h.providers.Get(providerName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unknown oauth provider",
		})
		return
	}

	state, err := h.generateState(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start login"})
		return
	}
	_, codeChallenge, err := h.generatePKCE(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start login"})
		return
	}

	c.Redirect(http.StatusFound, p.AuthCodeURL(state, codeChallenge))
}

func (h *Handler) callback(c *gin.Context) {
	ctx := c.Request.Context()
	providerName := c.Param("provider")

	p, err := h.providers.Get(providerName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unknown oauth provider",
		})
		return
	}

	if !validateState(c) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "invalid state",
		})
		return
	}

	// state and verifier are single use
	codeVerifier := getPKCEVerifier(c)
	h.setFlowCookie(c, stateCookieName, "", -1)
	h.setFlowCookie(c, pkceCookieName, "", -1)

	// CASE 1: provider reported an error (user denied consent, etc.)
	if errParam := c.Query("error"); errParam != "" {
		logger.Warn("oauth callback returned error", map[string]any{
			"provider": providerName,
			"error":    errParam,
			"desc":     c.Query("error_description"),
		})
		c.Redirect(http.StatusFound, afterErrorPath)
		return
	}

	// CASE 2: Normal OAuth callback
	code := c.Query("code")
	if code == "" {
		logger.Error("oauth callback missing code and error", map[string]any{
			"provider": providerName,
		})
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}

	if codeVerifier == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "missing pkce verifier",
		})
		return
	}

	profile, err := p.ExchangeCode(ctx, code, codeVerifier)
	if err != nil {
		logger.Warn("oauth code exchange failed", map[string]any{
			"provider": providerName,
			"error":    err.Error(),
		})
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "authentication failed",
		})
		return
	}

	ident, err := h.resolver.Resolve(ctx, profile)
	if err != nil {
		logger.Error("identity reconciliation failed", map[string]any{
			"provider": providerName,
			"error":    err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to resolve user",
		})
		return
	}

	bearer, claims, err := h.tokens.Issue(ident)
	if err != nil {
		logger.Error("token issue failed", map[string]any{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	sessionID, err := session.GenerateID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to create session",
		})
		return
	}

	// a fresh login never reuses a session id the browser already held
	if oldID, ok := session.IDFromRequest(c.Request); ok {
		if err := h.sessionStore.Delete(ctx, oldID); err != nil {
			logger.Warn("session delete failed", map[string]any{"error": err.Error()})
		}
	}

	now := h.now().UTC()
	sess := session.Session{
		ID:             sessionID,
		Principal:      h.codec.Encode(ident),
		Token:          bearer,
		TokenExpiresAt: claims.ExpiresAt,
		CreatedAt:      now,
		ExpiresAt:      now.Add(h.sessionTTL),
	}

	if err := h.sessionStore.Create(ctx, sess); err != nil {
		logger.Error("session persist failed", map[string]any{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to persist session",
		})
		return
	}

	session.SetCookie(c.Writer, sessionID, sess.ExpiresAt, h.cookieOpts)

	logger.Info("login succeeded", map[string]any{
		"identity_id": ident.ID,
		"provider":    providerName,
		"ip":          c.ClientIP(),
	})

	c.Redirect(http.StatusFound, afterLoginPath)
}

func (h *Handler) Logout(c *gin.Context) {
	// 1. Delete session from store (best-effort)
	if sessionID, ok := session.IDFromRequest(c.Request); ok {
		if err := h.sessionStore.Delete(c.Request.Context(), sessionID); err != nil {
			logger.Warn("session delete failed", map[string]any{"error": err.Error()})
		}
	}

	// 2. Clear cookie
	session.ClearCookie(c.Writer, h.cookieOpts)

	// 3. Idempotent response
	c.Status(http.StatusNoContent)
}
