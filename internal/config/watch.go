package config

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay is how long after the last file event a reload waits.
// Editors and copy tools emit bursts of Write events for one save;
// reloading on the last of them avoids parsing half-written YAML.
const settleDelay = 250 * time.Millisecond

// Store holds the active pipeline configuration and swaps it atomically
// when the config file is rewritten. Watch-mode runs read their settings
// through Current, so a reload takes effect on the next processed file.
type Store struct {
	mu  sync.RWMutex
	cfg *Config
}

// NewStore creates a Store seeded with the startup configuration.
func NewStore(cfg *Config) *Store {
	return &Store{cfg: cfg}
}

// Current returns the active configuration. The returned value must be
// treated as read-only.
func (s *Store) Current() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Watch monitors path and swaps the active configuration each time the
// file settles after a change. It runs until ctx is cancelled.
//
// A reload that fails to parse or validate is logged and discarded; the
// active configuration stays in force.
func (s *Store) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	slog.Info("config: watching for changes", "path", path)

	settle := time.NewTimer(settleDelay)
	if !settle.Stop() {
		<-settle.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Atomic saves replace the inode and surface as Create.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			settle.Reset(settleDelay)

		case <-settle.C:
			s.reload(path)
			// Re-add the file in case an atomic save replaced the inode.
			_ = watcher.Add(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}

// reload loads path and, if valid, makes it the active configuration.
func (s *Store) reload(path string) {
	cfg, err := Load(path)
	if err != nil {
		slog.Error("config: reload failed, keeping active config", "path", path, "err", err)
		return
	}

	s.mu.Lock()
	prev := s.cfg
	s.cfg = cfg
	s.mu.Unlock()

	// The watched directory and status port are bound at startup and
	// cannot follow a reload.
	if cfg.Watch != prev.Watch {
		slog.Warn("config: watch settings changed, restart to apply",
			"dir", cfg.Watch.Dir, "http_port", cfg.Watch.HTTPPort)
	}

	slog.Info("config: reloaded",
		"windows", cfg.Windows.Count,
		"gap", cfg.Windows.Gap,
		"targets", cfg.Windows.Targets,
		"group_by", cfg.Windows.GroupBy,
		"workers", cfg.Pipeline.Workers,
	)
}
