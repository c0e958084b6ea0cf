package identity

import (
	"context"
	"sync"

	"federated-auth/internal/auth"
)

// MemoryStore is a process-local Store. Contents are lost on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[string]*Identity
	links map[string]string // linkKey -> identity id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:  make(map[string]*Identity),
		links: make(map[string]string),
	}
}

func linkKey(provider auth.Provider, subject string) string {
	return string(provider) + ":" + subject
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.byID[id].Clone(), nil
}

func (s *MemoryStore) FindByProviderSubject(
	_ context.Context,
	provider auth.Provider,
	subject string,
) (*Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.links[linkKey(provider, subject)]
	if !ok {
		return nil, nil
	}
	return s.byID[id].Clone(), nil
}

func (s *MemoryStore) Put(_ context.Context, identity *Identity) error {
	if identity == nil || identity.ID == "" {
		return ErrInvalidIdentity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for p, sub := range identity.ProviderLinks {
		if owner, ok := s.links[linkKey(p, sub)]; ok && owner != identity.ID {
			return ErrLinkConflict
		}
	}

	// drop links the new version no longer carries
	if prev, ok := s.byID[identity.ID]; ok {
		for p, sub := range prev.ProviderLinks {
			if identity.ProviderLinks[p] != sub {
				delete(s.links, linkKey(p, sub))
			}
		}
	}

	stored := identity.Clone()
	s.byID[stored.ID] = stored
	for p, sub := range stored.ProviderLinks {
		s.links[linkKey(p, sub)] = stored.ID
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.byID[id]
	if !ok {
		return nil
	}
	for p, sub := range prev.ProviderLinks {
		delete(s.links, linkKey(p, sub))
	}
	delete(s.byID, id)
	return nil
}

// Len reports the number of stored identities.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
