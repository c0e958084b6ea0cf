package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"federated-auth/internal/auth"
	"federated-auth/internal/identity"
	"federated-auth/internal/logger"

	"github.com/google/uuid"
)

// StoreResolver resolves profiles against an identity.Store.
//
// Lookup and insert for one provider subject run under a per-subject lock,
// so concurrent callbacks for the same account (double-clicks, retried
// redirects) always land on a single identity. Callbacks for different
// subjects proceed in parallel.
type StoreResolver struct {
	store identity.Store
	locks *keyLock

	now   func() time.Time
	newID func() string
}

type Option func(*StoreResolver)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *StoreResolver) { r.now = now }
}

// WithIDGenerator overrides uuid.NewString.
func WithIDGenerator(gen func() string) Option {
	return func(r *StoreResolver) { r.newID = gen }
}

func NewStoreResolver(store identity.Store, opts ...Option) *StoreResolver {
	r := &StoreResolver{
		store: store,
		locks: newKeyLock(),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *StoreResolver) Resolve(
	ctx context.Context,
	profile *auth.Profile,
) (*identity.Identity, error) {

	if profile == nil || profile.Provider == "" || strings.TrimSpace(profile.Subject) == "" {
		return nil, ErrInvalidProfile
	}

	unlock := r.locks.Lock(string(profile.Provider) + ":" + profile.Subject)
	defer unlock()

	// 1. Returning principal?
	existing, err := r.store.FindByProviderSubject(ctx, profile.Provider, profile.Subject)
	if err != nil {
		return nil, fmt.Errorf("resolver: lookup: %w", err)
	}
	if existing != nil {
		return r.refresh(ctx, existing, profile)
	}

	// 2. First login for this provider subject
	created, err := r.create(ctx, profile)
	if !errors.Is(err, identity.ErrLinkConflict) {
		return created, err
	}

	// Another process linked the subject between our lookup and insert;
	// the winner is the identity for this subject.
	existing, err = r.store.FindByProviderSubject(ctx, profile.Provider, profile.Subject)
	if err != nil {
		return nil, fmt.Errorf("resolver: lookup after conflict: %w", err)
	}
	if existing == nil {
		return nil, fmt.Errorf("resolver: %w", identity.ErrLinkConflict)
	}
	return r.refresh(ctx, existing, profile)
}

func (r *StoreResolver) create(
	ctx context.Context,
	profile *auth.Profile,
) (*identity.Identity, error) {

	now := r.now().UTC()

	created := &identity.Identity{
		ID: r.newID(),
		ProviderLinks: map[auth.Provider]string{
			profile.Provider: profile.Subject,
		},
		Email:                     strings.TrimSpace(profile.Email),
		DisplayName:               profile.ResolvedName(),
		AvatarURL:                 strings.TrimSpace(profile.AvatarURL),
		LastAuthenticatedProvider: profile.Provider,
		CreatedAt:                 now,
		LastLoginAt:               now,
		LastAccessToken:           profile.AccessToken,
		LastRefreshToken:          profile.RefreshToken,
	}

	if err := r.store.Put(ctx, created); err != nil {
		if errors.Is(err, identity.ErrLinkConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("resolver: create: %w", err)
	}

	logger.Info("identity created", map[string]any{
		"identity_id": created.ID,
		"provider":    profile.Provider.String(),
	})

	return created, nil
}

// refresh records a returning login. Profile fields only ever overwrite
// with non-empty values.
func (r *StoreResolver) refresh(
	ctx context.Context,
	current *identity.Identity,
	profile *auth.Profile,
) (*identity.Identity, error) {

	now := r.now().UTC()
	if now.After(current.LastLoginAt) {
		current.LastLoginAt = now
	}
	current.LastAuthenticatedProvider = profile.Provider

	if v := strings.TrimSpace(profile.Email); v != "" {
		current.Email = v
	}
	if v := strings.TrimSpace(profile.DisplayName); v != "" {
		current.DisplayName = v
	} else if current.DisplayName == "" {
		current.DisplayName = profile.ResolvedName()
	}
	if v := strings.TrimSpace(profile.AvatarURL); v != "" {
		current.AvatarURL = v
	}
	if profile.AccessToken != "" {
		current.LastAccessToken = profile.AccessToken
	}
	if profile.RefreshToken != "" {
		current.LastRefreshToken = profile.RefreshToken
	}

	if err := r.store.Put(ctx, current); err != nil {
		return nil, fmt.Errorf("resolver: update: %w", err)
	}

	logger.Info("identity reconciled", map[string]any{
		"identity_id": current.ID,
		"provider":    profile.Provider.String(),
	})

	return current, nil
}
