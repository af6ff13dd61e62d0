package sqlite_test

import (
	"context"
	"testing"
	"time"

	sqlitestore "github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/store/sqlite"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/types"
)

func TestLockEventStore_AppendAndRecent(t *testing.T) {
	conn := openTestDB(t)
	ls := sqlitestore.NewLockEventStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	base := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	d := 2.3
	el := 13.4

	if err := ls.AppendLockEvent(ctx, types.LockEvent{
		At: base, Reason: types.ReasonThreshold, Distance: &d, ThresholdMeters: 2.2, Epoch: 1,
	}); err != nil {
		t.Fatalf("append threshold: %v", err)
	}
	if err := ls.AppendLockEvent(ctx, types.LockEvent{
		At: base.Add(time.Minute), Reason: types.ReasonTimeout, ElapsedSeconds: &el, ThresholdMeters: 2.2, Epoch: 2,
	}); err != nil {
		t.Fatalf("append timeout: %v", err)
	}

	events, err := ls.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	newest := events[0]
	if newest.Reason != types.ReasonTimeout || newest.ElapsedSeconds == nil || *newest.ElapsedSeconds != el {
		t.Errorf("unexpected newest event: %+v", newest)
	}
	if newest.Distance != nil {
		t.Error("timeout event should have no distance")
	}
	if len(newest.ID) != 26 {
		t.Errorf("expected a ULID id, got %q", newest.ID)
	}

	oldest := events[1]
	if oldest.Distance == nil || *oldest.Distance != d {
		t.Errorf("unexpected oldest event: %+v", oldest)
	}
	if !oldest.At.Equal(base) {
		t.Errorf("expected at=%v, got %v", base, oldest.At)
	}
}
