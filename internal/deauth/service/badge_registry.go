package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/store"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/types"
)

type BadgeRegistry struct {
	store store.BadgeStore
}

func NewBadgeRegistry(st store.BadgeStore) *BadgeRegistry {
	return &BadgeRegistry{store: st}
}

func (r *BadgeRegistry) Lookup(ctx context.Context, identity string) (types.BadgeRecord, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return types.BadgeRecord{}, fmt.Errorf("%w: empty identity", ErrBadgeNotFound)
	}
	rec, err := r.store.LookupBadge(ctx, identity)
	if errors.Is(err, store.ErrNotFound) {
		return types.BadgeRecord{}, fmt.Errorf("%w: %q", ErrBadgeNotFound, identity)
	}
	if err != nil {
		return types.BadgeRecord{}, fmt.Errorf("lookup badge: %w", err)
	}
	return rec, nil
}
