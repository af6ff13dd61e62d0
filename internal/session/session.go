// Package session talks to the OS session manager: it reports whether the
// local graphical session is locked and can request a lock. It cannot unlock.
package session

import (
	"context"
	"errors"
)

var ErrNoSession = errors.New("session: no login session found")

type Controller interface {
	Lock(ctx context.Context) error
	IsLocked(ctx context.Context) (bool, error)
}
