package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"federated-auth/internal/logger"
	"federated-auth/internal/token"
)

const (
	AuthorizationHeader = "Authorization"
	DefaultScheme       = "Bearer"
)

// BearerGate admits requests carrying a valid signed token in the
// Authorization header. It is stateless: only the token's claims reach
// the handler, the identity store is never consulted.
type BearerGate struct {
	Tokens *token.Service
	Scheme string
}

func NewBearerGate(tokens *token.Service) *BearerGate {
	return &BearerGate{Tokens: tokens, Scheme: DefaultScheme}
}

func (g *BearerGate) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get(AuthorizationHeader))
		if header == "" {
			reject(w, http.StatusUnauthorized, ReasonMissingCredential)
			return
		}

		raw, ok := g.credential(header)
		if !ok {
			reject(w, http.StatusForbidden, ReasonTokenMalformed)
			return
		}

		claims, err := g.Tokens.Verify(raw)
		if err != nil {
			logger.Debug("bearer token rejected", map[string]any{"error": err.Error()})
		}
		switch {
		case errors.Is(err, token.ErrExpired):
			reject(w, http.StatusForbidden, ReasonTokenExpired)
			return
		case err != nil:
			reject(w, http.StatusForbidden, ReasonTokenMalformed)
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// credential splits "<scheme> <token>".
func (g *BearerGate) credential(header string) (string, bool) {
	scheme, raw, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, g.Scheme) {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.ContainsAny(raw, " \t") {
		return "", false
	}
	return raw, true
}
