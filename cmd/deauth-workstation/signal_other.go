//go:build !unix

package main

import (
	"context"
	"log/slog"

	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/service"
)

func handleManualLock(context.Context, *service.Engine, *slog.Logger) func() {
	return func() {}
}
