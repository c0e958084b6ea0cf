package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"federated-auth/internal/auth"
	"federated-auth/internal/logger"

	"golang.org/x/oauth2"
	githubendpoint "golang.org/x/oauth2/github"
)

const (
	providerName      = auth.ProviderGitHub
	defaultAPIBaseURL = "https://api.github.com"
)

// Provider implements the GitHub OAuth app flow. GitHub has no ID token,
// so the profile comes from the REST user endpoints.
type Provider struct {
	oauthConfig *oauth2.Config
	apiBaseURL  string
}

type Option func(*Provider)

// WithEndpoint overrides the github.com OAuth endpoints (GitHub Enterprise, tests).
func WithEndpoint(ep oauth2.Endpoint) Option {
	return func(p *Provider) { p.oauthConfig.Endpoint = ep }
}

// WithAPIBaseURL overrides https://api.github.com.
func WithAPIBaseURL(u string) Option {
	return func(p *Provider) { p.apiBaseURL = strings.TrimRight(u, "/") }
}

func New(
	clientID string,
	clientSecret string,
	redirectURL string,
	opts ...Option,
) (*Provider, error) {

	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("github oauth config missing required fields")
	}

	p := &Provider{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     githubendpoint.Endpoint,
			Scopes:       []string{"read:user", "user:email"},
		},
		apiBaseURL: defaultAPIBaseURL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Name returns the provider identifier used by the registry.
func (p *Provider) Name() auth.Provider {
	return providerName
}

// AuthCodeURL builds the OAuth authorization URL with PKCE parameters.
func (p *Provider) AuthCodeURL(state string, codeChallenge string) string {
	return p.oauthConfig.AuthCodeURL(
		state,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

type user struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type email struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

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
		return nil, fmt.Errorf("github token exchange failed: %w", err)
	}

	client := p.oauthConfig.Client(ctx, token)

	var u user
	if err := p.get(ctx, client, "/user", &u); err != nil {
		return nil, fmt.Errorf("github user lookup failed: %w", err)
	}
	if u.ID == 0 {
		return nil, errors.New("github user response missing id")
	}

	// public email is often hidden; the emails endpoint still knows it
	if u.Email == "" {
		var emails []email
		if err := p.get(ctx, client, "/user/emails", &emails); err != nil {
			logger.Warn("github email lookup failed", map[string]any{
				"error": err.Error(),
			})
		}
		u.Email = primaryEmail(emails)
	}

	logger.Info("github user fetched", map[string]any{
		"email_present": u.Email != "",
		"name_present":  u.Name != "",
	})

	return &auth.Profile{
		Provider:      providerName,
		Subject:       strconv.FormatInt(u.ID, 10),
		Email:         u.Email,
		DisplayName:   u.Name,
		AlternateName: u.Login,
		AvatarURL:     u.AvatarURL,
		AccessToken:   token.AccessToken,
		RefreshToken:  token.RefreshToken,
	}, nil
}

func (p *Provider) get(ctx context.Context, client *http.Client, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func primaryEmail(emails []email) string {
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	return ""
}
