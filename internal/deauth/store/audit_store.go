package store

import (
	"context"

	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/types"
)

// AuditStore persists lock events as an append-only log.
// Records are never updated or deleted.
type AuditStore interface {
	AppendLockEvent(ctx context.Context, ev types.LockEvent) error
}
