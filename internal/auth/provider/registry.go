package provider

import (
	"errors"
	"fmt"
	"sort"

	"federated-auth/internal/auth"
)

var ErrUnknownProvider = errors.New("unknown oauth provider")

// Registry holds all configured OAuth providers and allows
// lookup by provider name. It performs no auth logic itself.
type Registry struct {
	providers map[auth.Provider]OAuthProvider
}

// NewRegistry registers the given OAuth providers by name.
// A later provider with a duplicate name replaces the earlier one.
func NewRegistry(list ...OAuthProvider) *Registry {
	m := make(map[auth.Provider]OAuthProvider)
	for _, p := range list {
		m[p.Name()] = p
	}
	return &Registry{providers: m}
}

// Get returns the OAuth provider by name or an error if not registered.
func (r *Registry) Get(name string) (OAuthProvider, error) {
	p, ok := r.providers[auth.Provider(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}

// Names lists registered providers in sorted order.
func (r *Registry) Names() []auth.Provider {
	names := make([]auth.Provider, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
