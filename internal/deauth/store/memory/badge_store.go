package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/store"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/types"
)

// BadgeStore is an in-memory badge table, seeded from config or a badge file.
type BadgeStore struct {
	mu     sync.RWMutex
	badges map[string]types.BadgeRecord
}

func NewBadgeStore(records []types.BadgeRecord) *BadgeStore {
	s := &BadgeStore{}
	s.Replace(records)
	return s
}

func (s *BadgeStore) LookupBadge(_ context.Context, identity string) (types.BadgeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.badges[strings.TrimSpace(identity)]
	if !ok {
		return types.BadgeRecord{}, store.ErrNotFound
	}
	return rec, nil
}

// Replace swaps the whole table. Lookups never observe a partial table.
func (s *BadgeStore) Replace(records []types.BadgeRecord) {
	m := make(map[string]types.BadgeRecord, len(records))
	for _, r := range records {
		r.Identity = strings.TrimSpace(r.Identity)
		if r.Identity != "" {
			m[r.Identity] = r
		}
	}
	s.mu.Lock()
	s.badges = m
	s.mu.Unlock()
}

func (s *BadgeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.badges)
}
