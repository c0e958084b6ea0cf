package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(t *testing.T, ttl time.Duration) Session {
	t.Helper()
	id, err := GenerateID()
	require.NoError(t, err)
	now := time.Now().UTC()
	return Session{
		ID:             id,
		Principal:      Principal{IdentityID: "identity-1"},
		Token:          "header.payload.sig",
		TokenExpiresAt: now.Add(time.Hour).Truncate(time.Second),
		CreatedAt:      now.Truncate(time.Second),
		ExpiresAt:      now.Add(ttl).Truncate(time.Second),
	}
}

func runSessionStoreTests(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("create get delete", func(t *testing.T) {
		s := newSession(t, time.Hour)
		require.NoError(t, store.Create(ctx, s))

		got, err := store.Get(ctx, s.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, s.Principal, got.Principal)
		assert.Equal(t, s.Token, got.Token)
		assert.True(t, s.ExpiresAt.Equal(got.ExpiresAt))
		assert.True(t, s.TokenExpiresAt.Equal(got.TokenExpiresAt))

		require.NoError(t, store.Delete(ctx, s.ID))
		got, err = store.Get(ctx, s.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("unknown session", func(t *testing.T) {
		got, err := store.Get(ctx, "does-not-exist")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("rejects invalid", func(t *testing.T) {
		s := newSession(t, time.Hour)
		s.Principal = Principal{}
		assert.ErrorIs(t, store.Create(ctx, s), ErrInvalidSession)

		assert.ErrorIs(t, store.Create(ctx, newSession(t, -time.Minute)), ErrExpired)
	})

	t.Run("update", func(t *testing.T) {
		s := newSession(t, time.Hour)
		require.NoError(t, store.Create(ctx, s))

		s.Token = "rotated"
		require.NoError(t, store.Update(ctx, s))
		got, err := store.Get(ctx, s.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "rotated", got.Token)

		s.ExpiresAt = time.Now().Add(-time.Second)
		require.NoError(t, store.Update(ctx, s))
		got, err = store.Get(ctx, s.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestMemoryStore(t *testing.T) {
	runSessionStoreTests(t, NewMemoryStore())
}

func TestMemoryStore_LazyExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	s := newSession(t, time.Minute)
	require.NoError(t, store.Create(ctx, s))

	store.now = func() time.Time { return s.ExpiresAt }
	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Empty(t, store.sessions)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	runSessionStoreTests(t, NewRedisStore(client))
}

func TestRedisStore_KeyExpires(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisStore(client)

	s := newSession(t, time.Hour)
	require.NoError(t, store.Create(ctx, s))
	assert.True(t, mr.Exists("session:"+s.ID))

	mr.FastForward(2 * time.Hour)

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStore_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisStore(client)

	mr.Close()

	_, err := store.Get(context.Background(), "any")
	assert.Error(t, err)
}

func TestSession_Expired(t *testing.T) {
	exp := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := Session{ExpiresAt: exp}

	assert.False(t, s.Expired(exp.Add(-time.Nanosecond)))
	assert.True(t, s.Expired(exp))
	assert.True(t, s.Expired(exp.Add(time.Second)))
}

func TestCookies(t *testing.T) {
	w := httptest.NewRecorder()
	exp := time.Now().Add(time.Hour)
	SetCookie(w, "sid-1", exp, CookieOptions{Secure: true})

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, CookieName, c.Name)
	assert.Equal(t, "sid-1", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	id, ok := IDFromRequest(req)
	assert.True(t, ok)
	assert.Equal(t, "sid-1", id)

	_, ok = IDFromRequest(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)

	w = httptest.NewRecorder()
	ClearCookie(w, CookieOptions{})
	cleared := w.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, "", cleared[0].Value)
	assert.Less(t, cleared[0].MaxAge, 0)
}

func TestGenerateID(t *testing.T) {
	a, err := GenerateID()
	require.NoError(t, err)
	b, err := GenerateID()
	require.NoError(t, err)

	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
}
