package identity

import (
	"context"
	"errors"

	"federated-auth/internal/auth"
)

var (
	ErrInvalidIdentity = errors.New("identity: missing id")
	// ErrLinkConflict is returned by Put when one of the identity's provider
	// links already belongs to a different identity.
	ErrLinkConflict = errors.New("identity: provider subject linked to another identity")
)

// Store holds local identity records.
//
// Lookups return (nil, nil) when nothing matches; a non-nil error always
// means the store itself failed. Implementations must be safe for
// concurrent use and must hand out copies, never shared records.
type Store interface {
	Get(ctx context.Context, id string) (*Identity, error)
	FindByProviderSubject(ctx context.Context, provider auth.Provider, subject string) (*Identity, error)
	Put(ctx context.Context, identity *Identity) error
	Delete(ctx context.Context, id string) error
}
