package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"federated-auth/internal/auth"
	"federated-auth/internal/identity"
)

func storedIdentity(t *testing.T, store identity.Store) *identity.Identity {
	t.Helper()
	now := time.Date(2026, 4, 5, 6, 7, 8, 0, time.UTC)
	i := &identity.Identity{
		ID:                        "11111111-2222-3333-4444-555555555555",
		ProviderLinks:             map[auth.Provider]string{auth.ProviderGitHub: "583231"},
		Email:                     "octo@example.com",
		DisplayName:               "The Octocat",
		AvatarURL:                 "https://avatars.example.com/u/583231",
		LastAuthenticatedProvider: auth.ProviderGitHub,
		CreatedAt:                 now,
		LastLoginAt:               now,
		LastAccessToken:           "gho_x",
	}
	require.NoError(t, store.Put(context.Background(), i))
	return i
}

func TestCodec_RoundTrip(t *testing.T) {
	store := identity.NewMemoryStore()
	codec := NewCodec(store)
	in := storedIdentity(t, store)

	p := codec.Encode(in)
	assert.Equal(t, Principal{IdentityID: in.ID}, p)

	out, err := codec.Decode(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestCodec_Tombstone(t *testing.T) {
	ctx := context.Background()
	store := identity.NewMemoryStore()
	codec := NewCodec(store)
	in := storedIdentity(t, store)

	p := codec.Encode(in)
	require.NoError(t, store.Delete(ctx, in.ID))

	out, err := codec.Decode(ctx, p)
	assert.NoError(t, err)
	assert.Nil(t, out)
}

func TestCodec_EmptyPrincipal(t *testing.T) {
	codec := NewCodec(identity.NewMemoryStore())

	assert.Equal(t, Principal{}, codec.Encode(nil))

	out, err := codec.Decode(context.Background(), Principal{})
	assert.NoError(t, err)
	assert.Nil(t, out)
}

type brokenStore struct{ identity.Store }

var errBroken = errors.New("store unreachable")

func (brokenStore) Get(context.Context, string) (*identity.Identity, error) {
	return nil, errBroken
}

func TestCodec_StoreFailure(t *testing.T) {
	codec := NewCodec(brokenStore{})

	out, err := codec.Decode(context.Background(), Principal{IdentityID: "x"})
	assert.ErrorIs(t, err, errBroken)
	assert.Nil(t, out)
}
