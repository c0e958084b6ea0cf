package middleware

import (
	"context"
	"net/http"
	"time"

	"federated-auth/internal/logger"
	"federated-auth/internal/session"
)

// SessionGate admits requests carrying a live cookie session and exposes
// the full identity downstream.
type SessionGate struct {
	Store session.Store
	Codec *session.Codec
	now   func() time.Time
}

func NewSessionGate(store session.Store, codec *session.Codec) *SessionGate {
	return &SessionGate{Store: store, Codec: codec, now: time.Now}
}

func (g *SessionGate) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		// 1. Read session cookie
		sessionID, ok := session.IDFromRequest(r)
		if !ok {
			reject(w, http.StatusUnauthorized, ReasonUnauthenticated)
			return
		}

		// 2. Load session
		sess, err := g.Store.Get(ctx, sessionID)
		if err != nil {
			logger.Error("session lookup failed", map[string]any{"error": err.Error()})
			reject(w, http.StatusInternalServerError, ReasonInternal)
			return
		}
		if sess == nil {
			reject(w, http.StatusUnauthorized, ReasonUnauthenticated)
			return
		}

		// 3. Enforce absolute expiry even if the store has not evicted yet
		if sess.Expired(g.now()) {
			if err := g.Store.Delete(ctx, sessionID); err != nil {
				logger.Warn("expired session delete failed", map[string]any{"error": err.Error()})
			}
			reject(w, http.StatusUnauthorized, ReasonUnauthenticated)
			return
		}

		// 4. Principal -> identity; a deleted identity is just unauthenticated
		ident, err := g.Codec.Decode(ctx, sess.Principal)
		if err != nil {
			logger.Error("identity lookup failed", map[string]any{"error": err.Error()})
			reject(w, http.StatusInternalServerError, ReasonInternal)
			return
		}
		if ident == nil {
			reject(w, http.StatusUnauthorized, ReasonUnauthenticated)
			return
		}

		ctx = context.WithValue(ctx, identityContextKey{}, ident)
		ctx = context.WithValue(ctx, sessionContextKey{}, sess)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
