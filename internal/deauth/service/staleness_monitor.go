package service

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// StalenessMonitor periodically asks the engine whether the badge has gone
// quiet for longer than the timeout. It runs as a background goroutine and
// is safe to stop via its context or the Stop method.
type StalenessMonitor struct {
	engine   *Engine
	interval time.Duration
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewStalenessMonitor creates a monitor but does not start it.
// An interval of zero defaults to one second.
func NewStalenessMonitor(e *Engine, interval time.Duration, logger *slog.Logger) *StalenessMonitor {
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StalenessMonitor{
		engine:   e,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start begins the check loop. The loop exits when ctx is cancelled or
// Stop is called.
func (m *StalenessMonitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	go m.loop(ctx)
	m.logger.Info("staleness monitor started", "interval", m.interval)
}

// Stop signals the monitor to exit and waits for it to finish.
func (m *StalenessMonitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	<-m.done
}

func (m *StalenessMonitor) loop(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

func (m *StalenessMonitor) check(ctx context.Context) {
	_, err := m.engine.CheckStaleness(ctx)
	if err == nil {
		return
	}
	if errors.Is(err, ErrLockActuationPartial) || errors.Is(err, ErrAuditWrite) {
		m.logger.Error("staleness lock incomplete", "err", err)
		return
	}
	m.logger.Warn("staleness check error", "err", err)
}
