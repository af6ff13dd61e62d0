package service

import "github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/types"

// Observer receives operational events. The metrics package implements it.
type Observer interface {
	SampleAccepted(meters float64)
	SampleRejected()
	Locked(reason types.LockReason)
	LockFailed(stage string)
	Handshake(result string)
	SessionPollFailed()
}

// Lock failure stages reported to Observer.LockFailed.
const (
	StageAudit   = "audit"
	StageMirror  = "mirror"
	StageSession = "session"
)

type nopObserver struct{}

func (nopObserver) SampleAccepted(float64) {}
func (nopObserver) SampleRejected() {}
func (nopObserver) Locked(types.LockReason) {}
func (nopObserver) LockFailed(string) {}
func (nopObserver) Handshake(string) {}
func (nopObserver) SessionPollFailed() {}

func orNop(o Observer) Observer {
	if o == nil {
		return nopObserver{}
	}
	return o
}
