package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BrandonDHaskell/DeAuth/workstation/internal/auditlog"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/companion"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/config"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/db"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/service"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/store"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/store/memory"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/store/postgres"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/store/sqlite"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/grpcapi"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/httpapi"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/instance"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/logging"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/metrics"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "deauth-workstation: invalid configuration:\n%v\n", err)
		os.Exit(2)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, logger); err != nil {
		logger.Error("deauth-workstation exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	guard, err := instance.Acquire(cfg.LockFile)
	if err != nil {
		return err
	}
	defer func() { _ = guard.Release() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage
	sqlDB, err := db.Open(ctx, db.Config{Path: cfg.DBPath})
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	writer := db.NewWorker(sqlDB)
	defer writer.Close()

	if cfg.Env == "dev" {
		if err := db.SeedDev(ctx, sqlDB, db.SeedDevOptions{
			Identity:      cfg.Identity,
			BadgeID:       uint32(cfg.DevBadgeID),
			CredentialRef: cfg.DevCredentialRef,
		}); err != nil {
			return err
		}
	}

	badges, closeBadges, err := openBadgeStore(ctx, cfg, sqlDB, writer, logger)
	if err != nil {
		return err
	}
	defer closeBadges()

	audit, err := auditlog.Open(cfg.AuditLogPath)
	if err != nil {
		return err
	}
	defer audit.Close()

	// Services
	m := metrics.New()

	var screen session.Controller = session.NewLoginctl(cfg.SessionID, cfg.RequestTimeout)
	if cfg.DryRun {
		logger.Warn("dry run: session will not actually be locked")
		screen = session.NewFake(false)
	}

	actuator := service.NewActuator(service.ActuatorConfig{
		Primary:  audit,
		Mirror:   sqlite.NewLockEventStore(sqlDB, writer),
		Locker:   screen,
		Timeout:  5 * time.Second,
		Logger:   logger,
		Observer: m,
	})
	engine := service.NewEngine(service.EngineConfig{
		ThresholdMeters: cfg.DistanceThresholdM,
		Timeout:         cfg.DistanceTimeout(),
		Grace:           cfg.LockGrace,
	}, actuator, logger, m)

	health := grpcapi.NewServer(logger)

	pairing := service.NewPairing(service.PairingDeps{
		Registry:    service.NewBadgeRegistry(badges),
		Credentials: service.NewCredentials(sqlite.NewChainStore(sqlDB, writer)),
		Transport:   companion.NewHTTPTransport(cfg.CompanionURL, cfg.RequestTimeout),
		Epochs:      engine,
		Logger:      logger,
		Observer:    m,
		Listeners:   []service.HandshakeListener{health.HandshakeListener()},
	})

	monitor := service.NewStalenessMonitor(engine, cfg.CheckInterval, logger)
	supervisor := service.NewSupervisor(service.SupervisorConfig{
		Identity:         cfg.Identity,
		PollInterval:     cfg.PollInterval,
		HandshakeOnStart: cfg.HandshakeOnStart,
	}, screen, pairing, logger, m)

	// Transport
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:   logger,
		Addr:     cfg.HTTPAddr,
		Engine:   engine,
		Observer: m,
		Metrics:  m.Handler(),
	})

	errCh := make(chan error, 2)

	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		if err := srv.Start(); err != nil {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		go func() {
			logger.Info("health service listening", "addr", cfg.GRPCAddr)
			if err := health.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	monitor.Start(ctx)
	supervisor.Start(ctx)
	stopManual := handleManualLock(ctx, engine, logger)

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-errCh:
	}
	stop()

	stopManual()
	supervisor.Stop()
	monitor.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	health.Shutdown(shutdownCtx)

	return runErr
}

// openBadgeStore picks the badge source: a shared Postgres directory, a
// watched TOML file, or the local SQLite table.
func openBadgeStore(ctx context.Context, cfg config.Config, sqlDB *sql.DB, writer *db.Worker, logger *slog.Logger) (store.BadgeStore, func(), error) {
	switch {
	case cfg.BadgeDSN != "":
		pool, err := postgres.Connect(ctx, cfg.BadgeDSN, 5*time.Second)
		if err != nil {
			return nil, nil, err
		}
		bs, err := postgres.NewBadgeStore(pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("badge registry: postgres")
		return bs, pool.Close, nil

	case cfg.BadgeFile != "":
		bs := memory.NewBadgeStore(nil)
		w := service.NewRegistryWatcher(cfg.BadgeFile, bs, logger)
		if err := w.Start(ctx); err != nil {
			return nil, nil, err
		}
		logger.Info("badge registry: file", "path", cfg.BadgeFile)
		return bs, w.Stop, nil
	}

	logger.Info("badge registry: sqlite", "path", cfg.DBPath)
	return sqlite.NewBadgeStore(sqlDB, writer), func() {}, nil
}

func logLockResult(logger *slog.Logger, err error) {
	switch {
	case err == nil:
	case errors.Is(err, service.ErrLockActuationPartial):
		logger.Error("manual lock recorded but session lock failed", "err", err)
	default:
		logger.Error("manual lock incomplete", "err", err)
	}
}
