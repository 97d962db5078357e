// Package mountops wraps the raw mount(2)/umount(2) syscalls and the
// higher-level retry/escalation contracts spec.md §4.3-4.4 specify:
// five-try move-mount with SIGHUP-then-SIGKILL escalation, and the
// doUnmount one-immediate-plus-retry-plus-force-round contract.
package mountops

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/kvold/vold/internal/processkiller"
)

// IsMounted scans /proc/mounts for an exact mountpoint match, mirroring
// Volume::isMountpointMounted.
func IsMounted(path string) (bool, error) {
	data, err := os.ReadFile("/proc/mounts")
	if err != nil {
		return false, fmt.Errorf("read /proc/mounts: %w", err)
	}

	for _, line := range splitLines(string(data)) {
		fields := splitFields(line)
		if len(fields) < 2 {
			continue
		}
		if fields[1] == path {
			return true, nil
		}
	}
	return false, nil
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return out
}

func splitFields(s string) []string {
	var out []string
	field := ""
	for _, r := range s {
		if r == ' ' || r == '\t' {
			if field != "" {
				out = append(out, field)
				field = ""
			}
			continue
		}
		field += string(r)
	}
	if field != "" {
		out = append(out, field)
	}
	return out
}

// MoveMount atomically relocates src to dst (MS_MOVE), retrying up to 5
// times on EBUSY. When force is set and two or fewer retries remain, it
// signals holders of src (SIGHUP with two retries left, SIGKILL with
// one left) before retrying, pausing 250ms between attempts -- spec.md §4.3's
// move-mount contract, grounded on Volume::doMoveMount.
func MoveMount(src, dst string, force bool, killer processkiller.Killer) error {
	if dst == "" {
		return unix.EINVAL
	}
	if err := os.MkdirAll(dst, 0o774); err != nil && !os.IsExist(err) {
		return fmt.Errorf("mkdir %s: %w", dst, err)
	}

	retries := 5
	for retries > 0 {
		retries--
		err := unix.Mount(src, dst, "", unix.MS_MOVE, "")
		if err == nil {
			return nil
		}
		if err != unix.EBUSY {
			return fmt.Errorf("move mount %s -> %s: %w", src, dst, err)
		}

		if force && killer != nil {
			switch retries {
			case 2:
				killer.Kill(src, processkiller.SignalHup)
			case 1:
				killer.Kill(src, processkiller.SignalKill)
			}
		}
		time.Sleep(250 * time.Millisecond)
	}

	return fmt.Errorf("move mount %s -> %s: %w", src, dst, unix.EBUSY)
}

// Bind bind-mounts src onto dst (MS_BIND), used for the ASEC secure-area
// exposure step.
func Bind(src, dst string) error {
	return unix.Mount(src, dst, "", unix.MS_BIND, "")
}

// DoUnmount implements Volume::doUnmount's retry contract: one immediate
// attempt, treating EINVAL/ENOENT as success; on failure, one retry
// after 5s; if force is set and that also fails, 20 rounds of
// (SIGHUP+SIGKILL, 2s sleep, retry) before giving up with EBUSY.
func DoUnmount(path string, force bool, killer processkiller.Killer) error {
	if tryUnmount(path) {
		return nil
	}

	time.Sleep(5 * time.Second)
	if tryUnmount(path) {
		return nil
	}

	if force {
		for round := 0; round < 20; round++ {
			if killer != nil {
				killer.Kill(path, processkiller.SignalHup)
				killer.Kill(path, processkiller.SignalKill)
			}
			time.Sleep(2 * time.Second)
			if tryUnmount(path) {
				return nil
			}
		}
	}

	return fmt.Errorf("unmount %s: %w", path, unix.EBUSY)
}

// InitializeMbr writes a single active FAT32 partition spanning the
// whole disk via sfdisk, the closest standard tool to apply_disk_config
// in original_source/Volume.cpp's initializeMbr. In this codebase the
// only caller (Format) never actually reaches it -- see format.go's
// formatEntireDevice comment -- so this exists to keep the call shape
// faithful rather than to be exercised.
func InitializeMbr(deviceNode string) error {
	script := "label: dos\n,,0c,*\n"
	cmd := exec.Command("sfdisk", deviceNode)
	cmd.Stdin = strings.NewReader(script)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("sfdisk %s: %w: %s", deviceNode, err, out)
	}
	return nil
}

func tryUnmount(path string) bool {
	err := unix.Unmount(path, 0)
	return err == nil || err == unix.EINVAL || err == unix.ENOENT
}
