package identity

import (
	"maps"
	"time"

	"federated-auth/internal/auth"
)

// Identity is the canonical local user record reconciled from one or
// more providers. ID and CreatedAt never change once set.
type Identity struct {
	ID            string
	ProviderLinks map[auth.Provider]string // provider -> provider subject

	Email       string // empty when the provider withheld it
	DisplayName string
	AvatarURL   string

	LastAuthenticatedProvider auth.Provider
	CreatedAt                 time.Time
	LastLoginAt               time.Time

	// Provider credentials from the latest login. Never used for local
	// authorization.
	LastAccessToken  string
	LastRefreshToken string
}

// Clone returns a deep copy so callers never share link maps with a store.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	c.ProviderLinks = maps.Clone(i.ProviderLinks)
	if c.ProviderLinks == nil {
		c.ProviderLinks = make(map[auth.Provider]string)
	}
	return &c
}
