package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/hashchain"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/store"
)

// Credentials hands out hash-chain values. Each value is persisted as
// consumed before it is returned, so a crash can skip a value but never
// reveal one twice.
type Credentials struct {
	store store.ChainStore
	mu    sync.Mutex
}

func NewCredentials(st store.ChainStore) *Credentials {
	return &Credentials{store: st}
}

// Next reserves and returns the next credential for badgeID.
func (c *Credentials) Next(ctx context.Context, badgeID uint32) (hashchain.Credential, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, err := c.cursor(ctx, badgeID)
	if err != nil {
		return hashchain.Credential{}, err
	}
	from := cur.Consumed
	cred, err := cur.Next()
	if err != nil {
		return hashchain.Credential{}, err
	}

	if err := c.store.Advance(ctx, badgeID, from, cur.Consumed); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return hashchain.Credential{}, fmt.Errorf("%w: badge %d at %d", ErrChainConflict, badgeID, from)
		}
		return hashchain.Credential{}, fmt.Errorf("advance chain: %w", err)
	}
	return cred, nil
}

// Remaining reports how many credentials are left for badgeID.
func (c *Credentials) Remaining(ctx context.Context, badgeID uint32) (int, error) {
	cur, err := c.cursor(ctx, badgeID)
	if err != nil {
		return 0, err
	}
	return cur.Remaining(), nil
}

func (c *Credentials) cursor(ctx context.Context, badgeID uint32) (*hashchain.Cursor, error) {
	rec, err := c.store.LoadChain(ctx, badgeID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: badge %d", ErrNotEnrolled, badgeID)
	}
	if err != nil {
		return nil, fmt.Errorf("load chain: %w", err)
	}
	return &hashchain.Cursor{Chain: rec.Chain, Consumed: rec.Consumed}, nil
}
