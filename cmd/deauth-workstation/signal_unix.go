//go:build unix

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/service"
)

// handleManualLock locks the session on SIGUSR1, for hotkeys and scripts.
func handleManualLock(ctx context.Context, engine *service.Engine, logger *slog.Logger) func() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ch:
				_, err := engine.LockNow(ctx, "manual (SIGUSR1)")
				logLockResult(logger, err)
			}
		}
	}()

	return func() {
		signal.Stop(ch)
		<-done
	}
}
