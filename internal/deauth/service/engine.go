package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/types"
)

const recentWindow = 10

type EngineConfig struct {
	// ThresholdMeters locks the session when a sample is at or beyond it.
	ThresholdMeters float64
	// Timeout locks the session when no sample has arrived for longer than it.
	Timeout time.Duration
	// Grace suppresses staleness checks for a short period after a lock.
	Grace time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Engine owns the telemetry state of the current epoch and decides when to
// lock. All state transitions happen under one mutex, so two triggers that
// race within an epoch produce a single audited lock.
type Engine struct {
	cfg      EngineConfig
	actuator *Actuator
	logger   *slog.Logger
	observer Observer

	mu       sync.Mutex
	history  []types.DistanceSample
	last     time.Time
	epoch    uint64
	lockedAt time.Time
}

func NewEngine(cfg EngineConfig, act *Actuator, logger *slog.Logger, obs Observer) *Engine {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, actuator: act, logger: logger, observer: orNop(obs)}
}

// ValidateSample rejects values that cannot be a distance.
func ValidateSample(meters float64) error {
	if math.IsNaN(meters) || math.IsInf(meters, 0) || meters < 0 {
		return fmt.Errorf("%w: %v", ErrMalformedSample, meters)
	}
	return nil
}

// Ingest records a sample and runs the threshold check. It returns the lock
// event when the sample triggered a lock. A non-nil error alongside an event
// means the lock was recorded but a later stage failed.
func (e *Engine) Ingest(ctx context.Context, meters float64) (*types.LockEvent, error) {
	if err := ValidateSample(meters); err != nil {
		e.observer.SampleRejected()
		return nil, err
	}

	e.mu.Lock()
	now := e.cfg.Now()
	e.history = append(e.history, types.DistanceSample{Meters: meters, ReceivedAt: now})
	e.last = now
	e.observer.SampleAccepted(meters)

	if meters < e.cfg.ThresholdMeters {
		e.mu.Unlock()
		return nil, nil
	}

	d := meters
	ev := types.LockEvent{
		At:              now,
		Reason:          types.ReasonThreshold,
		Distance:        &d,
		ThresholdMeters: e.cfg.ThresholdMeters,
		Epoch:           e.epoch,
	}
	auditErr := e.commitLocked(ctx, &ev)
	e.mu.Unlock()

	return &ev, e.finish(ctx, ev, auditErr)
}

// CheckStaleness locks the session when the current epoch has at least one
// sample and the newest one is older than the timeout.
func (e *Engine) CheckStaleness(ctx context.Context) (*types.LockEvent, error) {
	e.mu.Lock()
	now := e.cfg.Now()
	if len(e.history) == 0 || e.last.IsZero() {
		e.mu.Unlock()
		return nil, nil
	}
	if !e.lockedAt.IsZero() && now.Sub(e.lockedAt) < e.cfg.Grace {
		e.mu.Unlock()
		return nil, nil
	}
	elapsed := now.Sub(e.last)
	if elapsed <= e.cfg.Timeout {
		e.mu.Unlock()
		return nil, nil
	}

	secs := elapsed.Seconds()
	ev := types.LockEvent{
		At:              now,
		Reason:          types.ReasonTimeout,
		ElapsedSeconds:  &secs,
		ThresholdMeters: e.cfg.ThresholdMeters,
		Epoch:           e.epoch,
	}
	auditErr := e.commitLocked(ctx, &ev)
	e.mu.Unlock()

	return &ev, e.finish(ctx, ev, auditErr)
}

// LockNow locks the session for a reason other than distance or timeout.
func (e *Engine) LockNow(ctx context.Context, detail string) (types.LockEvent, error) {
	e.mu.Lock()
	ev := types.LockEvent{
		At:              e.cfg.Now(),
		Reason:          types.ReasonOther,
		ThresholdMeters: e.cfg.ThresholdMeters,
		Epoch:           e.epoch,
		Detail:          detail,
	}
	auditErr := e.commitLocked(ctx, &ev)
	e.mu.Unlock()

	return ev, e.finish(ctx, ev, auditErr)
}

// BeginEpoch discards the current telemetry without auditing. Called after
// a successful pairing handshake.
func (e *Engine) BeginEpoch() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
	return e.epoch
}

// Epoch returns the current epoch number.
func (e *Engine) Epoch() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.epoch
}

func (e *Engine) resetLocked() {
	e.history = nil
	e.last = time.Time{}
	e.epoch++
}

// commitLocked writes the audit entry and resets state. e.mu must be held.
func (e *Engine) commitLocked(ctx context.Context, ev *types.LockEvent) error {
	var err error
	if e.actuator != nil {
		err = e.actuator.record(ctx, ev)
	}
	e.resetLocked()
	e.lockedAt = ev.At
	e.observer.Locked(ev.Reason)
	return err
}

func (e *Engine) finish(ctx context.Context, ev types.LockEvent, auditErr error) error {
	attrs := []any{"event_id", ev.ID, "reason", ev.Reason, "epoch", ev.Epoch}
	if ev.Distance != nil {
		attrs = append(attrs, "distance_m", *ev.Distance)
	}
	if ev.ElapsedSeconds != nil {
		attrs = append(attrs, "elapsed_s", *ev.ElapsedSeconds)
	}
	e.logger.Info("lock.triggered", attrs...)

	var actErr error
	if e.actuator != nil {
		actErr = e.actuator.actuate(ctx, ev)
	}
	return errors.Join(auditErr, actErr)
}

// Snapshot returns a consistent view of the current epoch.
func (e *Engine) Snapshot() types.StatusSnapshot {
	e.mu.Lock()
	hist := slices.Clone(e.history)
	last := e.last
	epoch := e.epoch
	now := e.cfg.Now()
	e.mu.Unlock()

	snap := types.StatusSnapshot{
		TotalMeasurements:    len(hist),
		RecentMeasurements:   []float64{},
		AllMeasurements:      make([]float64, 0, len(hist)),
		MeasurementsWithTime: make([]types.Measurement, 0, len(hist)),
		Epoch:                epoch,
		ThresholdMeters:      e.cfg.ThresholdMeters,
		TimeoutSeconds:       e.cfg.Timeout.Seconds(),
		ServerTime:           now.UTC().Format(time.RFC3339Nano),
	}
	if len(hist) == 0 {
		return snap
	}

	var sum float64
	for i, s := range hist {
		sum += s.Meters
		snap.AllMeasurements = append(snap.AllMeasurements, s.Meters)
		m := types.Measurement{Distance: s.Meters, Timestamp: s.ReceivedAt.UnixMilli()}
		if i > 0 {
			gap := s.ReceivedAt.Sub(hist[i-1].ReceivedAt).Seconds()
			m.TimeSincePrevious = &gap
		}
		snap.MeasurementsWithTime = append(snap.MeasurementsWithTime, m)
	}

	recent := snap.AllMeasurements
	if len(recent) > recentWindow {
		recent = recent[len(recent)-recentWindow:]
	}
	snap.RecentMeasurements = slices.Clone(recent)

	mostRecent := hist[len(hist)-1].Meters
	avg := sum / float64(len(hist))
	lastMs := last.UnixMilli()
	snap.MostRecent = &mostRecent
	snap.Average = &avg
	snap.LastTime = &lastMs

	sorted := slices.Clone(snap.AllMeasurements)
	slices.Sort(sorted)
	snap.Statistics = &types.Statistics{
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Median: sorted[len(sorted)/2],
	}
	return snap
}
