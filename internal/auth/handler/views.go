package handler

import (
	"net/http"
	"sort"
	"time"

	"federated-auth/internal/identity"
	"federated-auth/internal/logger"
	"federated-auth/internal/middleware"
	"federated-auth/internal/token"

	"github.com/gin-gonic/gin"
)

type linkView struct {
	Provider string `json:"provider"`
	Subject  string `json:"subject"`
}

type profileView struct {
	ID           string     `json:"id"`
	Email        string     `json:"email,omitempty"`
	DisplayName  string     `json:"display_name"`
	AvatarURL    string     `json:"avatar_url,omitempty"`
	LastProvider string     `json:"last_provider"`
	Providers    []linkView `json:"providers"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  time.Time  `json:"last_login_at"`
}

// Provider credentials are never part of the view.
func newProfileView(i *identity.Identity) profileView {
	links := make([]linkView, 0, len(i.ProviderLinks))
	for p, sub := range i.ProviderLinks {
		links = append(links, linkView{Provider: string(p), Subject: sub})
	}
	sort.Slice(links, func(a, b int) bool { return links[a].Provider < links[b].Provider })

	return profileView{
		ID:           i.ID,
		Email:        i.Email,
		DisplayName:  i.DisplayName,
		AvatarURL:    i.AvatarURL,
		LastProvider: string(i.LastAuthenticatedProvider),
		Providers:    links,
		CreatedAt:    i.CreatedAt,
		LastLoginAt:  i.LastLoginAt,
	}
}

// Dashboard renders the signed-in identity. Session gate only.
func (h *Handler) Dashboard(c *gin.Context) {
	ident, ok := middleware.IdentityFromContext(c.Request.Context())
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	c.JSON(http.StatusOK, newProfileView(ident))
}

type tokenView struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresIn int64     `json:"expires_in"` // seconds
	ExpiresAt time.Time `json:"expires_at"`
}

// Token hands the session's bearer token to the browser, issuing a new one
// from the live identity once the stored token has expired. Session gate only.
func (h *Handler) Token(c *gin.Context) {
	ctx := c.Request.Context()
	ident, ok := middleware.IdentityFromContext(ctx)
	sess, hasSession := middleware.SessionFromContext(ctx)
	if !ok || !hasSession {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	current := *sess
	if current.Token == "" || !h.now().Before(current.TokenExpiresAt) {
		bearer, claims, err := h.tokens.Issue(ident)
		if err != nil {
			logger.Error("token issue failed", map[string]any{"error": err.Error()})
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
			return
		}
		current.Token = bearer
		current.TokenExpiresAt = claims.ExpiresAt

		if err := h.sessionStore.Update(ctx, current); err != nil {
			logger.Error("session update failed", map[string]any{"error": err.Error()})
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
			return
		}
	}

	// never report more than a token can live, whatever the clock skew
	remaining := min(current.TokenExpiresAt.Sub(h.now()), h.tokens.Lifetime())

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, tokenView{
		Token:     current.Token,
		TokenType: middleware.DefaultScheme,
		ExpiresIn: int64(max(remaining, 0) / time.Second),
		ExpiresAt: current.TokenExpiresAt,
	})
}

type claimsView struct {
	Subject     string    `json:"sub"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"display_name"`
	Provider    string    `json:"provider"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func newClaimsView(c token.Claims) claimsView {
	return claimsView{
		Subject:     c.Subject,
		Email:       c.Email,
		DisplayName: c.DisplayName,
		Provider:    string(c.Provider),
		IssuedAt:    c.IssuedAt,
		ExpiresAt:   c.ExpiresAt,
	}
}

// Me echoes the caller's token claims. Bearer gate only.
func (h *Handler) Me(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	c.JSON(http.StatusOK, newClaimsView(claims))
}

func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
