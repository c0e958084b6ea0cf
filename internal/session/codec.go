package session

import (
	"context"
	"fmt"

	"federated-auth/internal/identity"
)

// Principal is the minimal reference to an identity kept in a session.
type Principal struct {
	IdentityID string `json:"identity_id"`
}

// Codec converts identities to principals and back.
type Codec struct {
	store identity.Store
}

func NewCodec(store identity.Store) *Codec {
	return &Codec{store: store}
}

// Encode projects the identity down to its id.
func (c *Codec) Encode(i *identity.Identity) Principal {
	if i == nil {
		return Principal{}
	}
	return Principal{IdentityID: i.ID}
}

// Decode loads the identity a principal refers to. It returns (nil, nil)
// when the identity no longer exists; callers treat that as
// unauthenticated. Only store failures produce an error.
func (c *Codec) Decode(ctx context.Context, p Principal) (*identity.Identity, error) {
	if p.IdentityID == "" {
		return nil, nil
	}
	i, err := c.store.Get(ctx, p.IdentityID)
	if err != nil {
		return nil, fmt.Errorf("session: decode principal: %w", err)
	}
	return i, nil
}
