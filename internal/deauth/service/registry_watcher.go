package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"

	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/types"
)

// badgeFile is the on-disk layout:
//
//	[badges.alice]
//	badge_id = 7
//	credential_ref = "alice.pem"
type badgeFile struct {
	Badges map[string]struct {
		BadgeID       uint32 `toml:"badge_id"`
		CredentialRef string `toml:"credential_ref"`
	} `toml:"badges"`
}

// LoadBadgeFile parses a badge file. Relative credential_ref paths are
// resolved against the file's directory.
func LoadBadgeFile(path string) ([]types.BadgeRecord, error) {
	var f badgeFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("decode badge file %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	out := make([]types.BadgeRecord, 0, len(f.Badges))
	for identity, b := range f.Badges {
		ref := b.CredentialRef
		if ref != "" && !filepath.IsAbs(ref) {
			ref = filepath.Join(dir, ref)
		}
		out = append(out, types.BadgeRecord{Identity: identity, BadgeID: b.BadgeID, CredentialRef: ref})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out, nil
}

// BadgeSink receives a freshly loaded badge table.
type BadgeSink interface {
	Replace(records []types.BadgeRecord)
}

// RegistryWatcher keeps a BadgeSink in sync with a badge file. It watches the
// parent directory so that editors which replace the file by rename are
// picked up. A file that fails to parse leaves the previous table in place.
type RegistryWatcher struct {
	path     string
	sink     BadgeSink
	debounce time.Duration
	logger   *slog.Logger

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}

	mu       sync.Mutex
	timer    *time.Timer
	stopped  bool
	inflight sync.WaitGroup
}

func NewRegistryWatcher(path string, sink BadgeSink, logger *slog.Logger) *RegistryWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &RegistryWatcher{
		path:     filepath.Clean(path),
		sink:     sink,
		debounce: 200 * time.Millisecond,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Load reads the file once and pushes it to the sink.
func (w *RegistryWatcher) Load() error {
	records, err := LoadBadgeFile(w.path)
	if err != nil {
		return err
	}
	w.sink.Replace(records)
	w.logger.Info("badge file loaded", "path", w.path, "badges", len(records))
	return nil
}

// Start performs an initial load and begins watching for changes.
func (w *RegistryWatcher) Start(ctx context.Context) error {
	if err := w.Load(); err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		_ = fw.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	w.watcher = fw

	ctx, w.cancel = context.WithCancel(ctx)
	go w.loop(ctx)
	return nil
}

// Stop ends the watch loop and waits for it and any pending reload to exit.
// No reload reaches the sink after Stop returns.
func (w *RegistryWatcher) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done

	w.mu.Lock()
	w.stopped = true
	if w.timer != nil && w.timer.Stop() {
		w.inflight.Done()
	}
	w.mu.Unlock()
	w.inflight.Wait()
}

func (w *RegistryWatcher) loop(ctx context.Context) {
	defer close(w.done)
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				w.schedule()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("badge file watch error", "err", err)
		}
	}
}

func (w *RegistryWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.timer != nil && w.timer.Stop() {
		w.inflight.Done()
	}
	w.inflight.Add(1)
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *RegistryWatcher) reload() {
	defer w.inflight.Done()

	w.mu.Lock()
	stopped := w.stopped
	w.mu.Unlock()
	if stopped {
		return
	}
	if err := w.Load(); err != nil {
		w.logger.Warn("badge file reload failed, keeping previous table", "path", w.path, "err", err)
	}
}
