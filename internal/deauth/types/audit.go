package types

import "time"

type LockReason string

const (
	ReasonThreshold LockReason = "threshold"
	ReasonTimeout   LockReason = "timeout"
	ReasonOther     LockReason = "other"
)

// LockEvent is the audit record written for every automatic lock.
// Distance is set for threshold locks, ElapsedSeconds for timeout locks.
type LockEvent struct {
	ID              string
	At              time.Time
	Reason          LockReason
	Distance        *float64
	ElapsedSeconds  *float64
	ThresholdMeters float64
	Epoch           uint64
	Detail          string
}
