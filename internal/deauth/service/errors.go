package service

import (
	"errors"

	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/hashchain"
)

var (
	ErrBadgeNotFound        = errors.New("no badge registered for identity")
	ErrChainExhausted       = hashchain.ErrChainExhausted
	ErrNotEnrolled          = errors.New("badge has no enrolled hash chain")
	ErrChainConflict        = errors.New("hash chain advanced concurrently")
	ErrCredentialUnreadable = errors.New("credential material unreadable")
	ErrTransportFailure     = errors.New("companion transport failure")
	ErrMalformedSample      = errors.New("malformed distance sample")
	ErrAuditWrite           = errors.New("audit log write failed")
	ErrLockActuationPartial = errors.New("lock recorded but session lock failed")
)

// IsFatalPairing reports whether err will keep failing until the badge is
// re-enrolled.
func IsFatalPairing(err error) bool {
	return errors.Is(err, ErrChainExhausted) || errors.Is(err, ErrNotEnrolled)
}
