package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/store"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/types"
)

// ScreenLocker asks the OS to lock the interactive session.
type ScreenLocker interface {
	Lock(ctx context.Context) error
}

type ActuatorConfig struct {
	// Primary is the durable audit log. Required.
	Primary store.AuditStore
	// Mirror receives a best-effort copy of each event. Optional.
	Mirror store.AuditStore
	Locker ScreenLocker
	// Timeout bounds the OS lock call. Defaults to 5s.
	Timeout  time.Duration
	Logger   *slog.Logger
	Observer Observer
}

// Actuator carries out a lock decision in two phases. record runs while the
// engine holds its mutex; actuate runs after the mutex is released.
type Actuator struct {
	primary  store.AuditStore
	mirror   store.AuditStore
	locker   ScreenLocker
	timeout  time.Duration
	logger   *slog.Logger
	observer Observer
}

func NewActuator(cfg ActuatorConfig) *Actuator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Actuator{
		primary:  cfg.Primary,
		mirror:   cfg.Mirror,
		locker:   cfg.Locker,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
		observer: orNop(cfg.Observer),
	}
}

// record stamps ev and appends it to the primary audit log. A failed write
// is returned wrapped in ErrAuditWrite but does not stop the lock.
func (a *Actuator) record(ctx context.Context, ev *types.LockEvent) error {
	if ev.ID == "" {
		ev.ID = ulid.Make().String()
	}
	if err := a.primary.AppendLockEvent(ctx, *ev); err != nil {
		a.observer.LockFailed(StageAudit)
		a.logger.Error("audit.write_failed", "event_id", ev.ID, "reason", ev.Reason, "err", err)
		return fmt.Errorf("%w: %w", ErrAuditWrite, err)
	}
	return nil
}

// actuate mirrors the event and locks the session. The session lock is
// attempted even when the mirror fails.
func (a *Actuator) actuate(ctx context.Context, ev types.LockEvent) error {
	if a.mirror != nil {
		if err := a.mirror.AppendLockEvent(ctx, ev); err != nil {
			a.observer.LockFailed(StageMirror)
			a.logger.Warn("audit.mirror_failed", "event_id", ev.ID, "err", err)
		}
	}

	if a.locker == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if err := a.locker.Lock(ctx); err != nil {
		a.observer.LockFailed(StageSession)
		a.logger.Error("lock.session_failed", "event_id", ev.ID, "reason", ev.Reason, "err", err)
		return fmt.Errorf("%w: %w", ErrLockActuationPartial, err)
	}
	return nil
}
