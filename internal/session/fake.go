package session

import (
	"context"
	"sync"
)

// Fake is an in-process Controller used by tests and dry-run mode.
// Lock flips the state to locked; Script queues states for IsLocked.
type Fake struct {
	mu        sync.Mutex
	locked    bool
	script    []bool
	lockCalls int
	LockErr   error
	PollErr   error
}

func NewFake(locked bool) *Fake {
	return &Fake{locked: locked}
}

func (f *Fake) Lock(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lockCalls++
	if f.LockErr != nil {
		return f.LockErr
	}
	f.locked = true
	return nil
}

func (f *Fake) IsLocked(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PollErr != nil {
		return false, f.PollErr
	}
	if len(f.script) > 0 {
		f.locked = f.script[0]
		f.script = f.script[1:]
	}
	return f.locked, nil
}

// Set forces the current state, as a user unlocking the screen would.
func (f *Fake) Set(locked bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locked = locked
}

// Script queues states returned by successive IsLocked calls.
func (f *Fake) Script(states ...bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script = append(f.script, states...)
}

func (f *Fake) LockCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lockCalls
}
