package postgres_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/store"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/store/postgres"
)

func TestNewBadgeStore_RejectsBadInput(t *testing.T) {
	if _, err := postgres.NewBadgeStore(nil); !errors.Is(err, postgres.ErrInvalidInput) {
		t.Fatalf("nil pool: expected ErrInvalidInput, got %v", err)
	}
}

func TestBadgeStore_Integration(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("DEAUTH_TEST_PG_DSN"))
	if dsn == "" {
		t.Skip("integration test skipped: DEAUTH_TEST_PG_DSN is not set")
	}

	ctx := context.Background()
	pool, err := postgres.Connect(ctx, dsn, 3*time.Second)
	if err != nil {
		t.Skipf("integration test skipped: Postgres unreachable: %v", err)
	}
	t.Cleanup(pool.Close)

	schema := "deauth_test"
	for _, stmt := range []string{
		`CREATE SCHEMA IF NOT EXISTS deauth_test`,
		`CREATE TABLE IF NOT EXISTS deauth_test.badges (
			identity TEXT PRIMARY KEY,
			badge_id BIGINT NOT NULL,
			credential_ref TEXT NOT NULL,
			revoked_at TIMESTAMPTZ
		)`,
		`TRUNCATE deauth_test.badges`,
		`INSERT INTO deauth_test.badges(identity, badge_id, credential_ref) VALUES ('alice', 7, '/keys/alice.pem')`,
		`INSERT INTO deauth_test.badges(identity, badge_id, credential_ref, revoked_at) VALUES ('bob', 8, '/keys/bob.pem', now())`,
	} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("setup %q: %v", stmt, err)
		}
	}

	bs, err := postgres.NewBadgeStore(pool, postgres.WithSchema(schema))
	if err != nil {
		t.Fatalf("NewBadgeStore: %v", err)
	}

	rec, err := bs.LookupBadge(ctx, "alice")
	if err != nil {
		t.Fatalf("LookupBadge alice: %v", err)
	}
	if rec.BadgeID != 7 || rec.CredentialRef != "/keys/alice.pem" {
		t.Errorf("unexpected record: %+v", rec)
	}

	if _, err := bs.LookupBadge(ctx, "bob"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("revoked badge should be ErrNotFound, got %v", err)
	}
	if _, err := bs.LookupBadge(ctx, "carol"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing badge should be ErrNotFound, got %v", err)
	}
}
