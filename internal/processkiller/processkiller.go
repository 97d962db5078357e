// Package processkiller evicts processes holding open files, mmaps, or
// symlinked cwd/root/exe under a path, mirroring Process.cpp's
// killProcessesWithOpenFiles in the original vold. It is its own
// interface (spec.md §9 design note) so mount/unmount retry loops and
// the "storage users" control command can be tested without touching
// /proc.
package processkiller

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Signal names the two escalation steps the original vold uses: a
// polite SIGHUP first, then SIGKILL once retries are nearly exhausted.
type Signal int

const (
	SignalNone Signal = iota
	SignalHup
	SignalKill
)

func (s Signal) unix() unix.Signal {
	switch s {
	case SignalHup:
		return unix.SIGHUP
	case SignalKill:
		return unix.SIGKILL
	default:
		return 0
	}
}

// Holder describes one process found to be referencing a path.
type Holder struct {
	PID  int
	Name string
}

// Killer finds and signals processes with open references under a
// mountpoint path.
type Killer interface {
	// Holders returns every process referencing path via an open file
	// descriptor, an mmap region, or a cwd/root/exe symlink -- the same
	// five checks CommandListener::StorageCmd performs for "storage
	// users".
	Holders(path string) ([]Holder, error)
	// Kill signals every holder of path with sig. Best effort: it never
	// fails the overall retry loop, matching the original's
	// fire-and-forget kill() calls.
	Kill(path string, sig Signal)
}

// ProcKiller is the real /proc-scanning implementation.
type ProcKiller struct{}

func New() *ProcKiller { return &ProcKiller{} }

func (ProcKiller) Holders(path string) ([]Holder, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, fmt.Errorf("read /proc: %w", err)
	}

	var holders []Holder
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		if checkFDs(pid, path) || checkMaps(pid, path) ||
			checkSymlink(pid, path, "cwd") ||
			checkSymlink(pid, path, "root") ||
			checkSymlink(pid, path, "exe") {
			holders = append(holders, Holder{PID: pid, Name: processName(pid)})
		}
	}
	return holders, nil
}

func (ProcKiller) Kill(path string, sig Signal) {
	if sig == SignalNone {
		return
	}
	holders, err := (ProcKiller{}).Holders(path)
	if err != nil {
		return
	}
	for _, h := range holders {
		_ = unix.Kill(h.PID, sig.unix())
	}
}

func processName(pid int) string {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid))
	if err != nil {
		return "?"
	}
	return strings.TrimSpace(string(data))
}

func checkFDs(pid int, path string) bool {
	dir := fmt.Sprintf("/proc/%d/fd", pid)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		target, err := os.Readlink(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		if strings.HasPrefix(target, path) {
			return true
		}
	}
	return false
}

func checkMaps(pid int, path string) bool {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/maps", pid))
	if err != nil {
		return false
	}
	return strings.Contains(string(data), path)
}

func checkSymlink(pid int, path, which string) bool {
	target, err := os.Readlink(fmt.Sprintf("/proc/%d/%s", pid, which))
	if err != nil {
		return false
	}
	return strings.HasPrefix(target, path)
}
