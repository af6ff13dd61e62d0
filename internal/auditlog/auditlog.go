// Package auditlog writes the durable, line-oriented record of every
// automatic screen lock. The file is opened append-only and each line is
// fsync'd before Append returns. It is never rotated or truncated here.
package auditlog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/types"
)

var ErrClosed = errors.New("auditlog: closed")

const timestampLayout = "2006-01-02 15:04:05.000"

type FileLog struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// Open opens (or creates) the audit log at path for appending.
func Open(path string) (*FileLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("mkdir audit dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &FileLog{f: f, path: path}, nil
}

func (l *FileLog) Path() string { return l.path }

// AppendLockEvent writes one line and syncs it to disk.
func (l *FileLog) AppendLockEvent(_ context.Context, ev types.LockEvent) error {
	line := FormatLine(ev)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return ErrClosed
	}
	if _, err := l.f.WriteString(line); err != nil {
		return fmt.Errorf("write audit line: %w", err)
	}
	if err := l.f.Sync(); err != nil {
		return fmt.Errorf("sync audit log: %w", err)
	}
	return nil
}

func (l *FileLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}

// FormatLine renders ev as
//
//	[2006-01-02 15:04:05.000] SCREEN LOCKED - <reason-specific message>
//
// in local time, newline terminated.
func FormatLine(ev types.LockEvent) string {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	return fmt.Sprintf("[%s] SCREEN LOCKED - %s\n", at.Local().Format(timestampLayout), message(ev))
}

func message(ev types.LockEvent) string {
	switch {
	case ev.Reason == types.ReasonThreshold && ev.Distance != nil:
		return fmt.Sprintf("Distance threshold exceeded: %.2f meters (threshold: %sm)",
			*ev.Distance, strconv.FormatFloat(ev.ThresholdMeters, 'f', -1, 64))
	case ev.Reason == types.ReasonTimeout && ev.ElapsedSeconds != nil:
		return fmt.Sprintf("Timeout: No distance received for %.1f seconds", *ev.ElapsedSeconds)
	case ev.Detail != "":
		return "Reason: " + ev.Detail
	default:
		return "Reason: " + string(ev.Reason)
	}
}
