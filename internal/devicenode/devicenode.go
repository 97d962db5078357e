// Package devicenode creates and tracks the /dev/block/vold/<major>:<minor>
// block-special device nodes vold mints
// for every block device it sees, mirroring Volume::createDeviceNode.
package devicenode

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// Manager creates device nodes under a fixed directory and remembers
// the (major, minor) pairs it has already created.
type Manager struct {
	dir     string
	log     zerolog.Logger
	watcher *fsnotify.Watcher

	mu    sync.Mutex
	seen  map[string]bool
}

// New builds a Manager rooted at dir (spec.md §6: "/dev/block/vold/<major>:<minor>").
// The fsnotify watcher is best-effort: when it can't be established (the
// directory doesn't exist yet, running unprivileged in a test) node
// creation still proceeds, it just loses the defensive existence
// assertion described in SPEC_FULL.md §2.
func New(dir string, log zerolog.Logger) *Manager {
	m := &Manager{dir: dir, log: log, seen: make(map[string]bool)}
	if w, err := fsnotify.NewWatcher(); err == nil {
		if err := w.Add(dir); err == nil {
			m.watcher = w
		} else {
			_ = w.Close()
		}
	}
	return m
}

func nodePath(dir string, major, minor int) string {
	return filepath.Join(dir, fmt.Sprintf("%d:%d", major, minor))
}

// Path returns the device node path for (major, minor) without creating
// it, for callers that only need to name a node Create already made.
func (m *Manager) Path(major, minor int) string {
	return nodePath(m.dir, major, minor)
}

// Create mknods a block device node for (major, minor), tolerating
// EEXIST exactly like Volume::createDeviceNode does. Returns the path
// created.
func (m *Manager) Create(major, minor int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := nodePath(m.dir, major, minor)
	key := fmt.Sprintf("%d:%d", major, minor)
	if m.seen[key] {
		return path, nil
	}

	mode := uint32(0o660) | unix.S_IFBLK
	dev := unix.Mkdev(uint32(major), uint32(minor))
	if err := unix.Mknod(path, mode, int(dev)); err != nil && err != unix.EEXIST {
		return "", fmt.Errorf("mknod %s: %w", path, err)
	}
	m.seen[key] = true

	if m.watcher != nil {
		m.assertCreated(path)
	}

	return path, nil
}

// assertCreated waits briefly for fsnotify to confirm the node showed
// up in the directory listing. It only logs a warning on failure -- this
// is a debug-time double-check, never a gate on mount/format proceeding
// (see SPEC_FULL.md §2).
func (m *Manager) assertCreated(path string) {
	deadline := time.After(200 * time.Millisecond)
	for {
		select {
		case ev, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if ev.Name == path && (ev.Op&fsnotify.Create != 0) {
				return
			}
		case <-deadline:
			m.log.Warn().Str("path", path).Msg("device node creation not observed by watcher")
			return
		}
	}
}

// Close releases the fsnotify watcher, if any.
func (m *Manager) Close() error {
	if m.watcher != nil {
		return m.watcher.Close()
	}
	return nil
}
