package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	dbpkg "github.com/BrandonDHaskell/DeAuth/workstation/internal/db"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/types"
)

// LockEventStore mirrors the audit log file into SQLite so lock history can
// be queried. Rows are insert-only.
type LockEventStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewLockEventStore(db *sql.DB, writer *dbpkg.Worker) *LockEventStore {
	return &LockEventStore{db: db, writer: writer}
}

func (s *LockEventStore) AppendLockEvent(ctx context.Context, ev types.LockEvent) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	if ev.ID == "" {
		id, err := ulid.New(ulid.Timestamp(ev.At), rand.Reader)
		if err != nil {
			return fmt.Errorf("AppendLockEvent id: %w", err)
		}
		ev.ID = id.String()
	}

	var distance, elapsed, detail any
	if ev.Distance != nil {
		distance = *ev.Distance
	}
	if ev.ElapsedSeconds != nil {
		elapsed = *ev.ElapsedSeconds
	}
	if ev.Detail != "" {
		detail = ev.Detail
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO lock_events(
  event_id, locked_at_ms, reason, distance_m, elapsed_s, threshold_m, epoch, detail
) VALUES (?, ?, ?, ?, ?, ?, ?, ?);
`,
			ev.ID, ev.At.UTC().UnixMilli(), string(ev.Reason),
			distance, elapsed, ev.ThresholdMeters, ev.Epoch, detail,
		); err != nil {
			return fmt.Errorf("AppendLockEvent insert: %w", err)
		}
		return nil
	})
}

// Recent returns the newest lock events, newest first.
func (s *LockEventStore) Recent(ctx context.Context, limit int) ([]types.LockEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT event_id, locked_at_ms, reason, distance_m, elapsed_s, threshold_m, epoch, detail
FROM lock_events
ORDER BY locked_at_ms DESC, event_id DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("Recent query: %w", err)
	}
	defer rows.Close()

	var out []types.LockEvent
	for rows.Next() {
		var (
			ev       types.LockEvent
			atMs     int64
			reason   string
			distance sql.NullFloat64
			elapsed  sql.NullFloat64
			detail   sql.NullString
		)
		if err := rows.Scan(&ev.ID, &atMs, &reason, &distance, &elapsed, &ev.ThresholdMeters, &ev.Epoch, &detail); err != nil {
			return nil, fmt.Errorf("Recent scan: %w", err)
		}
		ev.At = time.UnixMilli(atMs).UTC()
		ev.Reason = types.LockReason(reason)
		if distance.Valid {
			v := distance.Float64
			ev.Distance = &v
		}
		if elapsed.Valid {
			v := elapsed.Float64
			ev.ElapsedSeconds = &v
		}
		ev.Detail = detail.String
		out = append(out, ev)
	}
	return out, rows.Err()
}
