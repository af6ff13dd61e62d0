package session_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/BrandonDHaskell/DeAuth/workstation/internal/session"
)

type call struct {
	name string
	args string
}

func scripted(t *testing.T, replies map[string]string, calls *[]call) session.Runner {
	t.Helper()
	return func(_ context.Context, name string, args ...string) ([]byte, error) {
		joined := strings.Join(args, " ")
		*calls = append(*calls, call{name: name, args: joined})
		out, ok := replies[joined]
		if !ok {
			return nil, errors.New("unexpected command: " + joined)
		}
		return []byte(out), nil
	}
}

func TestLoginctl_IsLocked_UsesFirstSession(t *testing.T) {
	var calls []call
	l := session.NewLoginctl("", 0)
	l.Run = scripted(t, map[string]string{
		"list-sessions --no-legend":    "  4 1000 alice seat0 tty2\n  9 1001 bob\n",
		"show-session 4 -p LockedHint": "LockedHint=yes\n",
	}, &calls)

	locked, err := l.IsLocked(context.Background())
	if err != nil {
		t.Fatalf("IsLocked: %v", err)
	}
	if !locked {
		t.Error("expected locked=true")
	}
	if len(calls) != 2 || calls[0].name != "loginctl" {
		t.Errorf("unexpected calls: %+v", calls)
	}
}

func TestLoginctl_IsLocked_Unlocked(t *testing.T) {
	var calls []call
	l := session.NewLoginctl("c2", 0)
	l.Run = scripted(t, map[string]string{
		"show-session c2 -p LockedHint": "LockedHint=no\n",
	}, &calls)

	locked, err := l.IsLocked(context.Background())
	if err != nil {
		t.Fatalf("IsLocked: %v", err)
	}
	if locked {
		t.Error("expected locked=false")
	}
}

func TestLoginctl_NoSessions(t *testing.T) {
	var calls []call
	l := session.NewLoginctl("", 0)
	l.Run = scripted(t, map[string]string{"list-sessions --no-legend": ""}, &calls)

	if _, err := l.IsLocked(context.Background()); !errors.Is(err, session.ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestLoginctl_Lock(t *testing.T) {
	var calls []call
	l := session.NewLoginctl("c2", 0)
	l.Run = scripted(t, map[string]string{"lock-session c2": ""}, &calls)

	if err := l.Lock(context.Background()); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
}
