package keycloak

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"federated-auth/internal/auth"
	"federated-auth/internal/logger"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const providerName = auth.ProviderKeycloak

// Provider implements OAuth + OIDC authentication against a Keycloak realm.
// It returns identity facts only; no identity/session decisions are made here.
type Provider struct {
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
}

// New initializes a Keycloak OIDC provider using discovery.
// issuer must be the realm issuer URL, e.g.
// http://localhost:8081/realms/federated-auth
//
// publicBaseURL, when set, replaces the host of the browser-facing
// authorization endpoint (the realm is often reached on an internal
// address by the server and a public one by browsers).
func New(
	ctx context.Context,
	issuer string,
	clientID string,
	redirectURL string,
	publicBaseURL string,
) (*Provider, error) {

	if issuer == "" || clientID == "" || redirectURL == "" {
		return nil, errors.New("keycloak oauth config missing required fields")
	}

	oidcProvider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to init keycloak oidc provider: %w", err)
	}

	verifier := oidcProvider.Verifier(&oidc.Config{
		ClientID: clientID,
	})

	ep := oidcProvider.Endpoint()
	if publicBaseURL != "" {
		ep.AuthURL = rebase(ep.AuthURL, publicBaseURL)
	}

	oauthCfg := &oauth2.Config{
		ClientID:    clientID,
		RedirectURL: redirectURL,
		Endpoint:    ep,
		Scopes: []string{
			oidc.ScopeOpenID,
			"email",
			"profile",
		},
	}

	return &Provider{
		oauthConfig: oauthCfg,
		verifier:    verifier,
	}, nil
}

// rebase swaps the scheme+host of authURL for publicBaseURL, keeping the path.
func rebase(authURL, publicBaseURL string) string {
	if j := strings.Index(authURL, "/realms/"); j >= 0 {
		return strings.TrimRight(publicBaseURL, "/") + authURL[j:]
	}
	return authURL
}

// Name returns the provider identifier used by the registry.
func (p *Provider) Name() auth.Provider {
	return providerName
}

// AuthCodeURL builds the OAuth authorization URL with PKCE parameters.
func (p *Provider) AuthCodeURL(state string, codeChallenge string) string {
	return p.oauthConfig.AuthCodeURL(
		state,
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

type idClaims struct {
	Subject           string `json:"sub"`
	Email             string `json:"email"`
	EmailVerified     bool   `json:"email_verified"`
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
}

// ExchangeCode exchanges the authorization code and returns a normalized profile.
// This method MUST NOT create identities, sessions, or perform linking logic.
func (p *Provider) ExchangeCode(
	ctx context.Context,
	code string,
	codeVerifier string,
) (*auth.Profile, error) {

	token, err := p.oauthConfig.Exchange(
		ctx,
		code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier),
	)
	if err != nil {
		logger.Error("keycloak token exchange failed", map[string]any{
			"error": err.Error(),
		})
		return nil, fmt.Errorf("keycloak token exchange failed: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("keycloak did not return id_token")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		logger.Error("keycloak id_token verification failed", map[string]any{
			"error": err.Error(),
		})
		return nil, fmt.Errorf("keycloak id_token verification failed: %w", err)
	}

	var claims idClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("keycloak id_token claims parse failed: %w", err)
	}

	if claims.Subject == "" {
		return nil, errors.New("keycloak id_token missing sub")
	}

	logger.Info("keycloak oidc verified", map[string]any{
		"issuer":         idToken.Issuer,
		"email_present":  claims.Email != "",
		"email_verified": claims.EmailVerified,
		"expiry_unix":    idToken.Expiry.Unix(),
	})

	email := ""
	if claims.EmailVerified {
		email = claims.Email
	}

	return &auth.Profile{
		Provider:      providerName,
		Subject:       claims.Subject,
		Email:         email,
		DisplayName:   claims.Name,
		AlternateName: claims.PreferredUsername,
		AccessToken:   token.AccessToken,
		RefreshToken:  token.RefreshToken,
	}, nil
}
