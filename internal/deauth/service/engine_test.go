package service_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/service"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/types"
)

// ═══════════════════════════════════════════════════════════════════════════
// Threshold path
// ═══════════════════════════════════════════════════════════════════════════

func TestEngine_ThresholdBreachLocksOnce(t *testing.T) {
	r := newRig()
	ctx := context.Background()

	for _, d := range []float64{1.0, 1.5} {
		ev, err := r.engine.Ingest(ctx, d)
		require.NoError(t, err)
		require.Nil(t, ev)
		r.clock.Advance(500 * time.Millisecond)
	}
	require.Equal(t, 2, r.engine.Snapshot().TotalMeasurements)

	ev, err := r.engine.Ingest(ctx, 2.3)
	require.NoError(t, err)
	require.NotNil(t, ev)
	require.Equal(t, types.ReasonThreshold, ev.Reason)
	require.InDelta(t, 2.3, *ev.Distance, 1e-9)
	require.NotEmpty(t, ev.ID)

	events := r.audit.Events()
	require.Len(t, events, 1)
	require.Equal(t, ev.ID, events[0].ID)
	require.Equal(t, uint64(0), events[0].Epoch)

	snap := r.engine.Snapshot()
	require.Equal(t, 0, snap.TotalMeasurements)
	require.Equal(t, uint64(1), snap.Epoch)
	require.Equal(t, 1, r.screen.LockCalls())
}

func TestEngine_ExactThresholdLocks(t *testing.T) {
	r := newRig()
	ev, err := r.engine.Ingest(context.Background(), 2.2)
	require.NoError(t, err)
	require.NotNil(t, ev)
}

func TestEngine_MalformedSampleRejected(t *testing.T) {
	r := newRig()
	ctx := context.Background()
	_, err := r.engine.Ingest(ctx, 1.0)
	require.NoError(t, err)

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), -0.5} {
		ev, err := r.engine.Ingest(ctx, v)
		require.ErrorIs(t, err, service.ErrMalformedSample, "value %v", v)
		require.Nil(t, ev)
	}
	require.Equal(t, 1, r.engine.Snapshot().TotalMeasurements)
	require.Empty(t, r.audit.Events())
}

// ═══════════════════════════════════════════════════════════════════════════
// Staleness path
// ═══════════════════════════════════════════════════════════════════════════

func TestEngine_StalenessIsStrict(t *testing.T) {
	r := newRig()
	ctx := context.Background()

	_, err := r.engine.Ingest(ctx, 1.0)
	require.NoError(t, err)

	r.clock.Advance(13 * time.Second)
	ev, err := r.engine.CheckStaleness(ctx)
	require.NoError(t, err)
	require.Nil(t, ev, "exactly at the timeout must not lock")

	r.clock.Advance(time.Millisecond)
	ev, err = r.engine.CheckStaleness(ctx)
	require.NoError(t, err)
	require.NotNil(t, ev)
	require.Equal(t, types.ReasonTimeout, ev.Reason)
	require.InDelta(t, 13.001, *ev.ElapsedSeconds, 1e-6)
	require.Len(t, r.audit.Events(), 1)
}

func TestEngine_NoSamplesNeverStale(t *testing.T) {
	r := newRig()
	r.clock.Advance(time.Hour)

	ev, err := r.engine.CheckStaleness(context.Background())
	require.NoError(t, err)
	require.Nil(t, ev)
	require.Empty(t, r.audit.Events())
}

func TestEngine_LockedEpochDoesNotGoStale(t *testing.T) {
	r := newRig()
	ctx := context.Background()

	_, err := r.engine.Ingest(ctx, 3.0)
	require.NoError(t, err)

	r.clock.Advance(time.Minute)
	ev, err := r.engine.CheckStaleness(ctx)
	require.NoError(t, err)
	require.Nil(t, ev)
	require.Len(t, r.audit.Events(), 1)
}

func TestEngine_GraceWindowAfterLock(t *testing.T) {
	r := newRig()
	act := service.NewActuator(service.ActuatorConfig{Primary: r.audit, Locker: r.screen, Logger: silentLogger()})
	e := service.NewEngine(service.EngineConfig{
		ThresholdMeters: 2.2,
		Timeout:         time.Second,
		Grace:           5 * time.Second,
		Now:             r.clock.Now,
	}, act, silentLogger(), nil)
	ctx := context.Background()

	_, err := e.Ingest(ctx, 3.0)
	require.NoError(t, err)
	r.clock.Advance(100 * time.Millisecond)
	_, err = e.Ingest(ctx, 0.5)
	require.NoError(t, err)

	r.clock.Advance(2 * time.Second)
	ev, err := e.CheckStaleness(ctx)
	require.NoError(t, err)
	require.Nil(t, ev, "inside grace window")

	r.clock.Advance(4 * time.Second)
	ev, err = e.CheckStaleness(ctx)
	require.NoError(t, err)
	require.NotNil(t, ev)
	require.Len(t, r.audit.Events(), 2)
}

func TestEngine_ConcurrentTriggersCollapse(t *testing.T) {
	r := newRig()
	ctx := context.Background()

	_, err := r.engine.Ingest(ctx, 1.0)
	require.NoError(t, err)
	r.clock.Advance(20 * time.Second)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		fired int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ev, err := r.engine.CheckStaleness(ctx)
			if err != nil {
				t.Errorf("CheckStaleness: %v", err)
			}
			if ev != nil {
				mu.Lock()
				fired++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, fired)
	require.Len(t, r.audit.Events(), 1)
	require.Equal(t, 1, r.screen.LockCalls())
}

func TestEngine_ThresholdRacingStalenessAuditsOncePerEpoch(t *testing.T) {
	ctx := context.Background()

	for i := 0; i < 200; i++ {
		r := newRig()
		_, err := r.engine.Ingest(ctx, 1.0)
		require.NoError(t, err)
		r.clock.Advance(20 * time.Second)

		start := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			if _, err := r.engine.Ingest(ctx, 3.0); err != nil {
				t.Errorf("Ingest: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			<-start
			if _, err := r.engine.CheckStaleness(ctx); err != nil {
				t.Errorf("CheckStaleness: %v", err)
			}
		}()
		close(start)
		wg.Wait()

		events := r.audit.Events()
		require.NotEmpty(t, events, "iteration %d", i)
		perEpoch := map[uint64]int{}
		for _, ev := range events {
			perEpoch[ev.Epoch]++
			require.Equal(t, 1, perEpoch[ev.Epoch], "iteration %d: epoch %d audited twice", i, ev.Epoch)
		}
		require.Equal(t, len(events), r.screen.LockCalls())
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Actuation failures
// ═══════════════════════════════════════════════════════════════════════════

func TestEngine_SessionLockFailureIsPartial(t *testing.T) {
	r := newRig()
	r.screen.LockErr = errors.New("loginctl: no such session")

	ev, err := r.engine.Ingest(context.Background(), 4.0)
	require.ErrorIs(t, err, service.ErrLockActuationPartial)
	require.NotNil(t, ev)

	require.Len(t, r.audit.Events(), 1)
	require.Equal(t, 0, r.engine.Snapshot().TotalMeasurements)
	require.Equal(t, uint64(1), r.engine.Epoch())
}

func TestEngine_AuditFailureStillLocks(t *testing.T) {
	r := newRig()
	r.audit.FailWith(errors.New("disk full"))

	ev, err := r.engine.Ingest(context.Background(), 4.0)
	require.ErrorIs(t, err, service.ErrAuditWrite)
	require.NotErrorIs(t, err, service.ErrLockActuationPartial)
	require.NotNil(t, ev)
	require.Equal(t, 1, r.screen.LockCalls())
	require.Equal(t, 0, r.engine.Snapshot().TotalMeasurements)
}

func TestEngine_MirrorFailureIgnored(t *testing.T) {
	r := newRig()
	mirror := newFailingMirror()
	act := service.NewActuator(service.ActuatorConfig{
		Primary: r.audit,
		Mirror:  mirror,
		Locker:  r.screen,
		Logger:  silentLogger(),
	})
	e := service.NewEngine(service.EngineConfig{ThresholdMeters: 2.2, Timeout: 13 * time.Second, Now: r.clock.Now}, act, silentLogger(), nil)

	_, err := e.Ingest(context.Background(), 4.0)
	require.NoError(t, err)
	require.Len(t, r.audit.Events(), 1)
	require.Equal(t, 1, r.screen.LockCalls())
}

// ═══════════════════════════════════════════════════════════════════════════
// Epochs and snapshots
// ═══════════════════════════════════════════════════════════════════════════

func TestEngine_BeginEpochResetsWithoutAudit(t *testing.T) {
	r := newRig()
	ctx := context.Background()
	_, err := r.engine.Ingest(ctx, 1.0)
	require.NoError(t, err)

	require.Equal(t, uint64(1), r.engine.BeginEpoch())
	require.Equal(t, 0, r.engine.Snapshot().TotalMeasurements)
	require.Empty(t, r.audit.Events())
	require.Equal(t, 0, r.screen.LockCalls())
}

func TestEngine_LockNowUsesOtherReason(t *testing.T) {
	r := newRig()
	ev, err := r.engine.LockNow(context.Background(), "manual request")
	require.NoError(t, err)
	require.Equal(t, types.ReasonOther, ev.Reason)
	require.Equal(t, "manual request", r.audit.Events()[0].Detail)
}

func TestEngine_SnapshotStatistics(t *testing.T) {
	r := newRig()
	ctx := context.Background()

	empty := r.engine.Snapshot()
	require.Nil(t, empty.MostRecent)
	require.Nil(t, empty.Statistics)
	require.NotNil(t, empty.AllMeasurements)

	values := []float64{1, 0.4, 2, 1.5, 0.2, 0.3, 0.9, 1.1, 1.2, 0.8, 0.7, 1.9}
	for _, v := range values {
		_, err := r.engine.Ingest(ctx, v)
		require.NoError(t, err)
		r.clock.Advance(250 * time.Millisecond)
	}

	snap := r.engine.Snapshot()
	require.Equal(t, len(values), snap.TotalMeasurements)
	require.Equal(t, values, snap.AllMeasurements)
	require.Equal(t, values[2:], snap.RecentMeasurements)
	require.InDelta(t, 1.9, *snap.MostRecent, 1e-9)

	var sum float64
	for _, v := range values {
		sum += v
	}
	require.InDelta(t, sum/float64(len(values)), *snap.Average, 1e-9)

	require.Equal(t, 0.2, snap.Statistics.Min)
	require.Equal(t, 2.0, snap.Statistics.Max)
	// sorted: .2 .3 .4 .7 .8 .9 1 1.1 1.2 1.5 1.9 2 -> index 6
	require.Equal(t, 1.0, snap.Statistics.Median)

	require.Nil(t, snap.MeasurementsWithTime[0].TimeSincePrevious)
	require.InDelta(t, 0.25, *snap.MeasurementsWithTime[1].TimeSincePrevious, 1e-9)
	require.Equal(t, snap.MeasurementsWithTime[11].Timestamp, *snap.LastTime)
}
