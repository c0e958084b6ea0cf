package auth

import "strings"

// Provider names an external identity provider.
type Provider string

const (
	ProviderGoogle   Provider = "google"
	ProviderGitHub   Provider = "github"
	ProviderKeycloak Provider = "keycloak"
)

func (p Provider) String() string {
	return string(p)
}

// Profile is a normalized identity assertion returned by an OAuth provider.
// It contains facts only, no decisions. Any field except Provider and
// Subject may be empty.
type Profile struct {
	Provider Provider // e.g. "google", "github"
	Subject  string   // provider-scoped unique user identifier (sub, numeric id)

	Email         string
	DisplayName   string
	AlternateName string // provider handle used when DisplayName is absent (GitHub login)
	AvatarURL     string

	AccessToken  string
	RefreshToken string
}

// ResolvedName picks the best human-readable name the profile offers.
func (p *Profile) ResolvedName() string {
	for _, v := range []string{p.DisplayName, p.AlternateName, p.Email, p.Subject} {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
