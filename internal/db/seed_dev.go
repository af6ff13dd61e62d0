package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type SeedDevOptions struct {
	Identity      string
	BadgeID       uint32
	CredentialRef string
}

// SeedDev registers a single badge for the local identity so a dev machine
// can pair without running deauth-enroll's registration step. Existing rows
// are left untouched.
func SeedDev(ctx context.Context, db *sql.DB, opt SeedDevOptions) error {
	identity := strings.TrimSpace(opt.Identity)
	if identity == "" {
		return nil
	}
	now := time.Now().UTC().UnixMilli()

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO badges(identity, badge_id, credential_ref, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?);`, identity, opt.BadgeID, opt.CredentialRef, now, now); err != nil {
		return fmt.Errorf("seed badge %s: %w", identity, err)
	}
	return nil
}
