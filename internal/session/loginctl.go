package session

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Runner executes a command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w (%s)", name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// Loginctl drives systemd-logind through the loginctl CLI.
type Loginctl struct {
	// SessionID pins the session; empty means the first session listed.
	SessionID string
	Timeout   time.Duration
	Bin       string
	Run       Runner
}

func NewLoginctl(sessionID string, timeout time.Duration) *Loginctl {
	return &Loginctl{SessionID: sessionID, Timeout: timeout}
}

func (l *Loginctl) run(ctx context.Context, args ...string) ([]byte, error) {
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	bin := l.Bin
	if bin == "" {
		bin = "loginctl"
	}
	run := l.Run
	if run == nil {
		run = execRunner
	}
	return run(ctx, bin, args...)
}

func (l *Loginctl) session(ctx context.Context) (string, error) {
	if id := strings.TrimSpace(l.SessionID); id != "" {
		return id, nil
	}
	out, err := l.run(ctx, "list-sessions", "--no-legend")
	if err != nil {
		return "", err
	}
	fields := strings.Fields(string(out))
	if len(fields) == 0 {
		return "", ErrNoSession
	}
	return fields[0], nil
}

func (l *Loginctl) IsLocked(ctx context.Context) (bool, error) {
	id, err := l.session(ctx)
	if err != nil {
		return false, err
	}
	out, err := l.run(ctx, "show-session", id, "-p", "LockedHint")
	if err != nil {
		return false, err
	}
	_, v, ok := strings.Cut(strings.TrimSpace(string(out)), "=")
	if !ok {
		return false, fmt.Errorf("unexpected LockedHint output %q", out)
	}
	return strings.EqualFold(strings.TrimSpace(v), "yes"), nil
}

func (l *Loginctl) Lock(ctx context.Context) error {
	args := []string{"lock-session"}
	if id := strings.TrimSpace(l.SessionID); id != "" {
		args = append(args, id)
	}
	_, err := l.run(ctx, args...)
	return err
}
