package store

import (
	"context"

	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/types"
)

// BadgeStore resolves a local identity to its paired badge.
// Implementations return ErrNotFound when the identity is not registered.
type BadgeStore interface {
	LookupBadge(ctx context.Context, identity string) (types.BadgeRecord, error)
}
