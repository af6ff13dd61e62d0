package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/BrandonDHaskell/DeAuth/workstation/internal/db"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/store"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/types"
)

type BadgeStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewBadgeStore(db *sql.DB, writer *dbpkg.Worker) *BadgeStore {
	return &BadgeStore{db: db, writer: writer}
}

func (s *BadgeStore) LookupBadge(ctx context.Context, identity string) (types.BadgeRecord, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return types.BadgeRecord{}, store.ErrNotFound
	}

	rec := types.BadgeRecord{Identity: identity}
	err := s.db.QueryRowContext(ctx, `
SELECT badge_id, credential_ref
FROM badges
WHERE identity = ?;
`, identity).Scan(&rec.BadgeID, &rec.CredentialRef)

	if errors.Is(err, sql.ErrNoRows) {
		return types.BadgeRecord{}, store.ErrNotFound
	}
	if err != nil {
		return types.BadgeRecord{}, fmt.Errorf("LookupBadge query: %w", err)
	}
	return rec, nil
}

// Upsert registers or re-points a badge for an identity.
func (s *BadgeStore) Upsert(ctx context.Context, rec types.BadgeRecord) error {
	identity := strings.TrimSpace(rec.Identity)
	if identity == "" {
		return fmt.Errorf("Upsert: identity is required")
	}
	ms := time.Now().UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO badges(identity, badge_id, credential_ref, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(identity) DO UPDATE SET
  badge_id       = excluded.badge_id,
  credential_ref = excluded.credential_ref,
  updated_at_ms  = excluded.updated_at_ms;
`, identity, rec.BadgeID, rec.CredentialRef, ms, ms); err != nil {
			return fmt.Errorf("Upsert badge: %w", err)
		}
		return nil
	})
}
