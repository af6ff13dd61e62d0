package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/service"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/store/memory"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/session"
)

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// recordingTransport captures frames and optionally fails.
type recordingTransport struct {
	mu     sync.Mutex
	frames []string
	err    error
}

func (t *recordingTransport) Send(_ context.Context, frame string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frames = append(t.frames, frame)
	return t.err
}

func (t *recordingTransport) Frames() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.frames...)
}

type rig struct {
	clock  *fakeClock
	audit  *memory.AuditStore
	screen *session.Fake
	engine *service.Engine
}

func newRig() *rig {
	r := &rig{
		clock:  newClock(),
		audit:  memory.NewAuditStore(),
		screen: session.NewFake(false),
	}
	act := service.NewActuator(service.ActuatorConfig{
		Primary: r.audit,
		Locker:  r.screen,
		Logger:  silentLogger(),
	})
	r.engine = service.NewEngine(service.EngineConfig{
		ThresholdMeters: 2.2,
		Timeout:         13 * time.Second,
		Grace:           2 * time.Second,
		Now:             r.clock.Now,
	}, act, silentLogger(), nil)
	return r
}

func newFailingMirror() *memory.AuditStore {
	m := memory.NewAuditStore()
	m.FailWith(errors.New("mirror unavailable"))
	return m
}
