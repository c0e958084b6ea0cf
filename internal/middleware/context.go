package middleware

import (
	"context"

	"federated-auth/internal/identity"
	"federated-auth/internal/session"
	"federated-auth/internal/token"
)

// unexported, collision-proof context keys
type (
	identityContextKey struct{}
	sessionContextKey  struct{}
	claimsContextKey   struct{}
)

// IdentityFromContext returns the live identity set by the session gate.
func IdentityFromContext(ctx context.Context) (*identity.Identity, bool) {
	i, ok := ctx.Value(identityContextKey{}).(*identity.Identity)
	return i, ok && i != nil
}

// SessionFromContext returns the session set by the session gate.
func SessionFromContext(ctx context.Context) (*session.Session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(*session.Session)
	return s, ok && s != nil
}

// ClaimsFromContext returns the token claims set by the bearer gate.
func ClaimsFromContext(ctx context.Context) (token.Claims, bool) {
	c, ok := ctx.Value(claimsContextKey{}).(token.Claims)
	return c, ok
}
