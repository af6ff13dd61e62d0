package store

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/hashchain"
)

// ChainRecord is the persisted hash chain of one badge and how many of its
// values have been revealed.
type ChainRecord struct {
	BadgeID    uint32
	Chain      *hashchain.Chain
	Consumed   int
	EnrolledAt time.Time
	UpdatedAt  time.Time
}

// ChainStore persists hash chains.
//
// Advance is a compare-and-swap on the consumed count: it fails with
// ErrConflict unless the stored value still equals from. It must be durable
// before it returns, since the caller transmits the credential right after.
type ChainStore interface {
	LoadChain(ctx context.Context, badgeID uint32) (ChainRecord, error)
	Enroll(ctx context.Context, badgeID uint32, chain *hashchain.Chain) error
	Advance(ctx context.Context, badgeID uint32, from, to int) error
}
