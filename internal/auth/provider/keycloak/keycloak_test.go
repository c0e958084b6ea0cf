package keycloak

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRebase(t *testing.T) {
	assert.Equal(t,
		"https://login.example.com/realms/app/protocol/openid-connect/auth",
		rebase("http://keycloak:8080/realms/app/protocol/openid-connect/auth", "https://login.example.com/"),
	)
	assert.Equal(t,
		"https://idp.example.com/authorize",
		rebase("https://idp.example.com/authorize", "https://login.example.com"),
	)
}
