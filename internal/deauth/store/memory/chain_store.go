package memory

import (
	"context"
	"sync"
	"time"

	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/hashchain"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/store"
)

// ChainStore keeps hash chains in memory. Intended for tests and dry runs;
// nothing survives a restart.
type ChainStore struct {
	mu     sync.Mutex
	chains map[uint32]store.ChainRecord
}

func NewChainStore() *ChainStore {
	return &ChainStore{chains: make(map[uint32]store.ChainRecord)}
}

func (s *ChainStore) LoadChain(_ context.Context, badgeID uint32) (store.ChainRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.chains[badgeID]
	if !ok {
		return store.ChainRecord{}, store.ErrNotFound
	}
	return rec, nil
}

func (s *ChainStore) Enroll(_ context.Context, badgeID uint32, chain *hashchain.Chain) error {
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chains[badgeID] = store.ChainRecord{
		BadgeID:    badgeID,
		Chain:      chain,
		EnrolledAt: now,
		UpdatedAt:  now,
	}
	return nil
}

func (s *ChainStore) Advance(_ context.Context, badgeID uint32, from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.chains[badgeID]
	if !ok {
		return store.ErrNotFound
	}
	if rec.Consumed != from || to <= from {
		return store.ErrConflict
	}
	rec.Consumed = to
	rec.UpdatedAt = time.Now().UTC()
	s.chains[badgeID] = rec
	return nil
}

// Consumed returns the stored consumed count. Test-only helper.
func (s *ChainStore) Consumed(badgeID uint32) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chains[badgeID].Consumed
}
