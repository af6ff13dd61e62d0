package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/hashchain"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/store"
	sqlitestore "github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/store/sqlite"
)

func newChain(t *testing.T, seed string, n int) *hashchain.Chain {
	t.Helper()
	c, err := hashchain.Generate([]byte(seed), n, hashchain.SHA256)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return c
}

func TestChainStore_EnrollAndLoad(t *testing.T) {
	conn := openTestDB(t)
	cs := sqlitestore.NewChainStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	chain := newChain(t, "seed", 10)
	if err := cs.Enroll(ctx, 7, chain); err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	rec, err := cs.LoadChain(ctx, 7)
	if err != nil {
		t.Fatalf("LoadChain: %v", err)
	}
	if rec.Consumed != 0 {
		t.Errorf("expected consumed=0, got %d", rec.Consumed)
	}
	if rec.Chain.Len() != 10 {
		t.Errorf("expected len=10, got %d", rec.Chain.Len())
	}
	if string(rec.Chain.Root()) != string(chain.Root()) {
		t.Error("root mismatch after reload")
	}
}

func TestChainStore_LoadMissing(t *testing.T) {
	conn := openTestDB(t)
	cs := sqlitestore.NewChainStore(conn, newTestWriter(t, conn))

	_, err := cs.LoadChain(context.Background(), 99)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Advance: compare-and-swap
// ═══════════════════════════════════════════════════════════════════════════

func TestChainStore_Advance_CAS(t *testing.T) {
	conn := openTestDB(t)
	cs := sqlitestore.NewChainStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	if err := cs.Enroll(ctx, 7, newChain(t, "seed", 3)); err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	if err := cs.Advance(ctx, 7, 0, 1); err != nil {
		t.Fatalf("Advance 0->1: %v", err)
	}
	if err := cs.Advance(ctx, 7, 0, 1); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("stale Advance should conflict, got %v", err)
	}
	if err := cs.Advance(ctx, 7, 1, 0); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("backwards Advance should conflict, got %v", err)
	}
	if err := cs.Advance(ctx, 7, 1, 4); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("Advance past chain length should conflict, got %v", err)
	}

	rec, err := cs.LoadChain(ctx, 7)
	if err != nil {
		t.Fatalf("LoadChain: %v", err)
	}
	if rec.Consumed != 1 {
		t.Errorf("expected consumed=1, got %d", rec.Consumed)
	}
}

func TestChainStore_ReEnrollResetsConsumed(t *testing.T) {
	conn := openTestDB(t)
	cs := sqlitestore.NewChainStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	if err := cs.Enroll(ctx, 7, newChain(t, "one", 2)); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if err := cs.Advance(ctx, 7, 0, 2); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if err := cs.Enroll(ctx, 7, newChain(t, "two", 5)); err != nil {
		t.Fatalf("re-Enroll: %v", err)
	}

	rec, err := cs.LoadChain(ctx, 7)
	if err != nil {
		t.Fatalf("LoadChain: %v", err)
	}
	if rec.Consumed != 0 || rec.Chain.Len() != 5 {
		t.Errorf("expected fresh chain, got consumed=%d len=%d", rec.Consumed, rec.Chain.Len())
	}
}
