package middleware

import (
	"encoding/json"
	"net/http"

	"federated-auth/internal/logger"
)

// Reason is the coarse rejection code returned to clients.
type Reason string

const (
	ReasonUnauthenticated   Reason = "unauthenticated"
	ReasonMissingCredential Reason = "missing_credential"
	ReasonTokenMalformed    Reason = "token_malformed"
	ReasonTokenExpired      Reason = "token_expired"
	ReasonInternal          Reason = "internal_error"
)

type rejection struct {
	Error Reason `json:"error"`
}

// reject writes a rejection body. Only the reason code is ever exposed.
func reject(w http.ResponseWriter, status int, reason Reason) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(rejection{Error: reason}); err != nil {
		logger.Error("failed to encode rejection", map[string]any{
			"error": err.Error(),
		})
	}
}
