// Package postgres reads badge assignments from a shared PostgreSQL
// directory, for sites that manage badges centrally instead of per machine.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/store"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/types"
)

var (
	ErrInvalidInput = errors.New("postgres: invalid input")

	identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
)

// BadgeStore looks badges up in <schema>.badges. The store never writes.
type BadgeStore struct {
	pool   *pgxpool.Pool
	schema string
}

type StoreOption func(*BadgeStore) error

// WithSchema sets the schema holding the badges table (default: "deauth").
func WithSchema(schema string) StoreOption {
	return func(s *BadgeStore) error {
		schema = strings.TrimSpace(schema)
		if !identRe.MatchString(schema) {
			return ErrInvalidInput
		}
		s.schema = schema
		return nil
	}
}

func NewBadgeStore(pool *pgxpool.Pool, opts ...StoreOption) (*BadgeStore, error) {
	st := &BadgeStore{pool: pool, schema: "deauth"}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, ErrInvalidInput
	}
	return st, nil
}

// Connect opens a pool for dsn and verifies it within timeout.
func Connect(ctx context.Context, dsn string, timeout time.Duration) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse badge dsn: %w", err)
	}
	cfg.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open badge pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping badge directory: %w", err)
	}
	return pool, nil
}

func (s *BadgeStore) LookupBadge(ctx context.Context, identity string) (types.BadgeRecord, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return types.BadgeRecord{}, store.ErrNotFound
	}

	var (
		badgeID int64
		ref     string
	)
	q := fmt.Sprintf(`SELECT badge_id, credential_ref FROM %s.badges WHERE identity = $1 AND revoked_at IS NULL`, s.schema)
	err := s.pool.QueryRow(ctx, q, identity).Scan(&badgeID, &ref)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.BadgeRecord{}, store.ErrNotFound
	}
	if err != nil {
		return types.BadgeRecord{}, fmt.Errorf("LookupBadge query: %w", err)
	}
	if badgeID < 0 || badgeID > int64(^uint32(0)) {
		return types.BadgeRecord{}, fmt.Errorf("LookupBadge: badge_id %d out of range", badgeID)
	}

	return types.BadgeRecord{
		Identity:      identity,
		BadgeID:       uint32(badgeID),
		CredentialRef: ref,
	}, nil
}
