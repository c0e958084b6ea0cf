package identity_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"federated-auth/internal/auth"
	"federated-auth/internal/identity"
)

func newIdentity(id string, links map[auth.Provider]string) *identity.Identity {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &identity.Identity{
		ID:                        id,
		ProviderLinks:             links,
		Email:                     id + "@example.com",
		DisplayName:               "User " + id,
		LastAuthenticatedProvider: auth.ProviderGoogle,
		CreatedAt:                 now,
		LastLoginAt:               now,
	}
}

// runStoreContract exercises behaviour every Store implementation must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) identity.Store) {
	ctx := context.Background()

	t.Run("get missing returns nil", func(t *testing.T) {
		s := newStore(t)
		got, err := s.Get(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("find missing returns nil", func(t *testing.T) {
		s := newStore(t)
		got, err := s.FindByProviderSubject(ctx, auth.ProviderGitHub, "nobody")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("put then get and find", func(t *testing.T) {
		s := newStore(t)
		in := newIdentity("id-1", map[auth.Provider]string{auth.ProviderGoogle: "g-1"})
		require.NoError(t, s.Put(ctx, in))

		got, err := s.Get(ctx, "id-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, in.Email, got.Email)
		assert.Equal(t, "g-1", got.ProviderLinks[auth.ProviderGoogle])
		assert.True(t, in.CreatedAt.Equal(got.CreatedAt))

		found, err := s.FindByProviderSubject(ctx, auth.ProviderGoogle, "g-1")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "id-1", found.ID)

		other, err := s.FindByProviderSubject(ctx, auth.ProviderGitHub, "g-1")
		require.NoError(t, err)
		assert.Nil(t, other)
	})

	t.Run("put replaces and relinks", func(t *testing.T) {
		s := newStore(t)
		in := newIdentity("id-2", map[auth.Provider]string{auth.ProviderGoogle: "g-2"})
		require.NoError(t, s.Put(ctx, in))

		in.DisplayName = "Renamed"
		in.ProviderLinks = map[auth.Provider]string{auth.ProviderGitHub: "gh-2"}
		require.NoError(t, s.Put(ctx, in))

		got, err := s.Get(ctx, "id-2")
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.DisplayName)

		gone, err := s.FindByProviderSubject(ctx, auth.ProviderGoogle, "g-2")
		require.NoError(t, err)
		assert.Nil(t, gone)

		found, err := s.FindByProviderSubject(ctx, auth.ProviderGitHub, "gh-2")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "id-2", found.ID)
	})

	t.Run("link conflict", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, newIdentity("id-a", map[auth.Provider]string{auth.ProviderGoogle: "dup"})))

		err := s.Put(ctx, newIdentity("id-b", map[auth.Provider]string{auth.ProviderGoogle: "dup"}))
		assert.ErrorIs(t, err, identity.ErrLinkConflict)

		missing, err := s.Get(ctx, "id-b")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("put rejects empty id", func(t *testing.T) {
		s := newStore(t)
		assert.ErrorIs(t, s.Put(ctx, &identity.Identity{}), identity.ErrInvalidIdentity)
		assert.ErrorIs(t, s.Put(ctx, nil), identity.ErrInvalidIdentity)
	})

	t.Run("delete removes identity and links", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, newIdentity("id-3", map[auth.Provider]string{auth.ProviderGitHub: "gh-3"})))
		require.NoError(t, s.Delete(ctx, "id-3"))
		require.NoError(t, s.Delete(ctx, "id-3"))

		got, err := s.Get(ctx, "id-3")
		require.NoError(t, err)
		assert.Nil(t, got)

		found, err := s.FindByProviderSubject(ctx, auth.ProviderGitHub, "gh-3")
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestMemoryStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) identity.Store {
		return identity.NewMemoryStore()
	})
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := identity.NewMemoryStore()

	in := newIdentity("id-1", map[auth.Provider]string{auth.ProviderGoogle: "g-1"})
	require.NoError(t, s.Put(ctx, in))

	in.ProviderLinks[auth.ProviderGitHub] = "leak"
	in.DisplayName = "mutated"

	got, err := s.Get(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "User id-1", got.DisplayName)
	_, linked := got.ProviderLinks[auth.ProviderGitHub]
	assert.False(t, linked)

	got.DisplayName = "also mutated"
	again, err := s.Get(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "User id-1", again.DisplayName)
}

func TestMemoryStore_ConcurrentPutsForDifferentUsers(t *testing.T) {
	ctx := context.Background()
	s := identity.NewMemoryStore()

	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("id-%d", i)
			sub := fmt.Sprintf("sub-%d", i)
			assert.NoError(t, s.Put(ctx, newIdentity(id, map[auth.Provider]string{auth.ProviderGoogle: sub})))
			_, _ = s.Get(ctx, id)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, n, s.Len())
	for i := 0; i < n; i++ {
		got, err := s.FindByProviderSubject(ctx, auth.ProviderGoogle, fmt.Sprintf("sub-%d", i))
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, fmt.Sprintf("id-%d", i), got.ID)
	}
}
