// Package token issues and verifies the stateless bearer tokens handed to
// API clients. A token is a signed snapshot of an identity; it is never
// checked against the identity store.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"federated-auth/internal/auth"
	"federated-auth/internal/identity"
)

var (
	ErrInvalidConfig = errors.New("token: secret and a positive whole-second lifetime required")

	// ErrMalformed covers bad structure, bad signature and foreign claims.
	ErrMalformed = errors.New("token: malformed")
	// ErrExpired is only returned for tokens whose signature checked out.
	ErrExpired = errors.New("token: expired")
)

// Claims is the identity snapshot carried by a token.
type Claims struct {
	Subject     string        `json:"subject"`
	Email       string        `json:"email,omitempty"`
	DisplayName string        `json:"display_name"`
	Provider    auth.Provider `json:"provider"`
	IssuedAt    time.Time     `json:"issued_at"`
	ExpiresAt   time.Time     `json:"expires_at"`
}

type jwtClaims struct {
	jwt.RegisteredClaims
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
	Provider string `json:"provider,omitempty"`
}

type Service struct {
	secret   []byte
	lifetime time.Duration
	issuer   string
	now      func() time.Time
	parser   *jwt.Parser
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIssuer(issuer string) Option {
	return func(s *Service) { s.issuer = issuer }
}

func NewService(secret []byte, lifetime time.Duration, opts ...Option) (*Service, error) {
	// exp is carried in whole seconds; a fractional lifetime would expire early
	if len(secret) == 0 || lifetime <= 0 || lifetime%time.Second != 0 {
		return nil, ErrInvalidConfig
	}

	s := &Service{
		secret:   secret,
		lifetime: lifetime,
		issuer:   "federated-auth",
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	return s, nil
}

// Lifetime is the fixed validity window of every issued token.
func (s *Service) Lifetime() time.Duration {
	return s.lifetime
}

// Issue signs a token for the identity's current fields.
// Valid on [IssuedAt, ExpiresAt).
func (s *Service) Issue(i *identity.Identity) (string, Claims, error) {
	if i == nil || i.ID == "" {
		return "", Claims{}, fmt.Errorf("token: issue: %w", identity.ErrInvalidIdentity)
	}

	// JWT dates have second precision
	issuedAt := s.now().UTC().Truncate(time.Second)
	claims := Claims{
		Subject:     i.ID,
		Email:       i.Email,
		DisplayName: i.DisplayName,
		Provider:    i.LastAuthenticatedProvider,
		IssuedAt:    issuedAt,
		ExpiresAt:   issuedAt.Add(s.lifetime),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   claims.Subject,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
		Email:    claims.Email,
		Name:     claims.DisplayName,
		Provider: string(claims.Provider),
	})

	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("token: sign: %w", err)
	}
	return signed, claims, nil
}

// Verify checks the signature and expiry and returns the embedded claims.
func (s *Service) Verify(raw string) (Claims, error) {
	var jc jwtClaims
	tok, err := s.parser.ParseWithClaims(raw, &jc, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired) && !hasMalformation(err):
		return Claims{}, ErrExpired
	default:
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !tok.Valid {
		return Claims{}, ErrMalformed
	}

	if jc.Subject == "" || jc.IssuedAt == nil {
		return Claims{}, fmt.Errorf("%w: missing sub or iat", ErrMalformed)
	}

	return Claims{
		Subject:     jc.Subject,
		Email:       jc.Email,
		DisplayName: jc.Name,
		Provider:    auth.Provider(jc.Provider),
		IssuedAt:    jc.IssuedAt.UTC(),
		ExpiresAt:   jc.ExpiresAt.UTC(),
	}, nil
}

// hasMalformation reports a failure other than expiry. The jwt validator
// joins every failed claim check, so an expired token with a foreign
// issuer carries both errors.
func hasMalformation(err error) bool {
	for _, target := range []error{
		jwt.ErrTokenMalformed,
		jwt.ErrTokenUnverifiable,
		jwt.ErrTokenSignatureInvalid,
		jwt.ErrTokenInvalidIssuer,
		jwt.ErrTokenInvalidSubject,
		jwt.ErrTokenInvalidAudience,
		jwt.ErrTokenRequiredClaimMissing,
		jwt.ErrTokenNotValidYet,
		jwt.ErrTokenUsedBeforeIssued,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
