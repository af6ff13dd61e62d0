package service

import (
	"context"
	"log/slog"
	"time"
)

// LockStateReader reports whether the interactive session is locked.
type LockStateReader interface {
	IsLocked(ctx context.Context) (bool, error)
}

type SupervisorConfig struct {
	Identity         string
	PollInterval     time.Duration
	HandshakeOnStart bool
}

// Supervisor polls the session lock state and starts a pairing handshake on
// every unlock edge. Poll errors keep the previous level.
type Supervisor struct {
	cfg      SupervisorConfig
	session  LockStateReader
	pairing  *Pairing
	detector *EdgeDetector
	logger   *slog.Logger
	observer Observer

	cancel context.CancelFunc
	done   chan struct{}
}

func NewSupervisor(cfg SupervisorConfig, session LockStateReader, p *Pairing, logger *slog.Logger, obs Observer) *Supervisor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		cfg:      cfg,
		session:  session,
		pairing:  p,
		detector: NewEdgeDetector(cfg.HandshakeOnStart),
		logger:   logger,
		observer: orNop(obs),
		done:     make(chan struct{}),
	}
}

// Start polls once immediately, then every PollInterval, until ctx is
// cancelled or Stop is called.
func (s *Supervisor) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	go s.loop(ctx)
	s.logger.Info("unlock supervisor started", "identity", s.cfg.Identity, "interval", s.cfg.PollInterval)
}

func (s *Supervisor) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.done
}

func (s *Supervisor) loop(ctx context.Context) {
	defer close(s.done)

	s.Poll(ctx)

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Poll(ctx)
		}
	}
}

// Poll runs a single iteration and reports whether a handshake was attempted.
func (s *Supervisor) Poll(ctx context.Context) bool {
	locked, err := s.session.IsLocked(ctx)
	if err != nil {
		s.observer.SessionPollFailed()
		s.logger.Warn("session poll failed", "err", err)
		return false
	}
	if !s.detector.Observe(locked) {
		return false
	}

	s.logger.Info("session unlocked, starting handshake", "identity", s.cfg.Identity)
	// Failures are logged and counted by Pairing; the next edge tries again.
	_, _ = s.pairing.Initiate(ctx, s.cfg.Identity)
	return true
}
