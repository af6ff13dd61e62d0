package memory

import (
	"context"
	"sync"

	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/types"
)

// AuditStore is an in-memory append-only log of lock events.
// It is intended for use in tests and dev environments.
type AuditStore struct {
	mu     sync.Mutex
	events []types.LockEvent
	err    error
}

func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

func (s *AuditStore) AppendLockEvent(_ context.Context, ev types.LockEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

// FailWith makes every subsequent append return err. Test-only helper.
func (s *AuditStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Events returns a copy of all recorded events.  Test-only helper.
func (s *AuditStore) Events() []types.LockEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.LockEvent, len(s.events))
	copy(out, s.events)
	return out
}
