//go:build unix

package instance_test

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/BrandonDHaskell/DeAuth/workstation/internal/instance"
)

func TestAcquire_Exclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "deauth.lock")

	first, err := instance.Acquire(path)
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}

	if _, err := instance.Acquire(path); !errors.Is(err, instance.ErrAlreadyRunning) {
		t.Fatalf("second Acquire: expected ErrAlreadyRunning, got %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read lock file: %v", err)
	}
	if strings.TrimSpace(string(b)) != strconv.Itoa(os.Getpid()) {
		t.Errorf("lock file holds %q, want our pid", b)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	again, err := instance.Acquire(path)
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	_ = again.Release()
	_ = again.Release()
}
