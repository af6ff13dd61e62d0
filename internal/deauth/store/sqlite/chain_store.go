package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	dbpkg "github.com/BrandonDHaskell/DeAuth/workstation/internal/db"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/hashchain"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/store"
)

type ChainStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewChainStore(db *sql.DB, writer *dbpkg.Worker) *ChainStore {
	return &ChainStore{db: db, writer: writer}
}

func (s *ChainStore) LoadChain(ctx context.Context, badgeID uint32) (store.ChainRecord, error) {
	var (
		alg        string
		blob       []byte
		consumed   int
		enrolledMs int64
		updatedMs  int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT algorithm, chain_values, consumed, enrolled_at_ms, updated_at_ms
FROM hash_chains
WHERE badge_id = ?;
`, badgeID).Scan(&alg, &blob, &consumed, &enrolledMs, &updatedMs)

	if errors.Is(err, sql.ErrNoRows) {
		return store.ChainRecord{}, store.ErrNotFound
	}
	if err != nil {
		return store.ChainRecord{}, fmt.Errorf("LoadChain query: %w", err)
	}

	chain, err := hashchain.Unmarshal(hashchain.Algorithm(alg), blob)
	if err != nil {
		return store.ChainRecord{}, fmt.Errorf("LoadChain badge %d: %w", badgeID, err)
	}

	return store.ChainRecord{
		BadgeID:    badgeID,
		Chain:      chain,
		Consumed:   consumed,
		EnrolledAt: time.UnixMilli(enrolledMs).UTC(),
		UpdatedAt:  time.UnixMilli(updatedMs).UTC(),
	}, nil
}

// Enroll replaces the badge's chain and resets its consumed count.
func (s *ChainStore) Enroll(ctx context.Context, badgeID uint32, chain *hashchain.Chain) error {
	blob, err := chain.MarshalBinary()
	if err != nil {
		return fmt.Errorf("Enroll marshal: %w", err)
	}
	ms := time.Now().UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO hash_chains(badge_id, algorithm, chain_len, chain_values, consumed, enrolled_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, 0, ?, ?)
ON CONFLICT(badge_id) DO UPDATE SET
  algorithm      = excluded.algorithm,
  chain_len      = excluded.chain_len,
  chain_values   = excluded.chain_values,
  consumed       = 0,
  enrolled_at_ms = excluded.enrolled_at_ms,
  updated_at_ms  = excluded.updated_at_ms;
`, badgeID, string(chain.Algorithm()), chain.Len(), blob, ms, ms); err != nil {
			return fmt.Errorf("Enroll upsert: %w", err)
		}
		return nil
	})
}

func (s *ChainStore) Advance(ctx context.Context, badgeID uint32, from, to int) error {
	if to <= from {
		return store.ErrConflict
	}
	ms := time.Now().UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE hash_chains
SET consumed = ?, updated_at_ms = ?
WHERE badge_id = ? AND consumed = ? AND ? <= chain_len;
`, to, ms, badgeID, from, to)
		if err != nil {
			return fmt.Errorf("Advance update: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("Advance rows: %w", err)
		}
		if n == 0 {
			return store.ErrConflict
		}
		return nil
	})
}
