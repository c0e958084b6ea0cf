package resolver

import (
	"context"
	"errors"

	"federated-auth/internal/auth"
	"federated-auth/internal/identity"
)

// ErrInvalidProfile means the caller passed a profile without the provider
// or subject needed to key it. Missing optional fields are never an error.
var ErrInvalidProfile = errors.New("resolver: profile missing provider or subject")

// Resolver determines which local identity an external profile belongs to.
// It is the ONLY place where provider-to-identity mapping logic lives.
type Resolver interface {
	Resolve(
		ctx context.Context,
		profile *auth.Profile,
	) (*identity.Identity, error)
}
